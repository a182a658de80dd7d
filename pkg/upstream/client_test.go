package upstream_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"trade-caddie/internal/config"
	"trade-caddie/internal/model"
	"trade-caddie/pkg/upstream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, h http.HandlerFunc) upstream.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return upstream.NewClient(config.UpstreamConfig{URL: srv.URL + "/api/v1/chat"})
}

var history = []model.RelayMessage{
	{Role: model.RoleUser, Content: "Hello"},
	{Role: model.RoleAssistant, Content: "Hi, trader."},
	{Role: model.RoleUser, Content: "Review my day"},
}

func TestChat_RequestFormat(t *testing.T) {
	t.Parallel()

	var captured []byte
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"response":"ok"}`))
	})

	_, err := client.Chat(context.Background(), history)
	require.NoError(t, err)

	var body struct {
		Messages []model.RelayMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(captured, &body))
	assert.Equal(t, history, body.Messages)
}

func TestChat_Success(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"Stay disciplined."}`))
	})

	got, err := client.Chat(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, "Stay disciplined.", got)
}

func TestChat_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		body        string
		wantStatus  int
		wantMessage string
		wantDetails string
	}{
		{"error status with error body", http.StatusServiceUnavailable, `{"error":"down"}`, 503, "down", ""},
		{"error status with details", http.StatusBadGateway, `{"error":"model failed","details":"timeout"}`, 502, "model failed", "timeout"},
		{"error status without error field", http.StatusInternalServerError, `{}`, 500, upstream.DefaultErrorMessage, ""},
		{"error status with html body", http.StatusBadGateway, `<html>bad gateway</html>`, 502, upstream.DefaultErrorMessage, "<html>bad gateway</html>"},
		{"ok status with error field", http.StatusOK, `{"error":"quota exceeded"}`, 0, "quota exceeded", ""},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := client.Chat(context.Background(), history)
			var upErr *upstream.Error
			require.True(t, errors.As(err, &upErr), "got %v", err)
			assert.Equal(t, tc.wantStatus, upErr.Status)
			assert.Equal(t, tc.wantMessage, upErr.Message)
			assert.Equal(t, tc.wantDetails, upErr.Details)
		})
	}
}

func TestChat_InvalidPayload(t *testing.T) {
	t.Parallel()

	for name, body := range map[string]string{
		"missing response": `{"answer":"x"}`,
		"empty response":   `{"response":""}`,
		"not json":         `plain text`,
	} {
		body := body
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			_, err := client.Chat(context.Background(), history)
			assert.True(t, errors.Is(err, upstream.ErrInvalidPayload), "got %v", err)
		})
	}
}

func TestChat_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := upstream.NewClient(config.UpstreamConfig{URL: url})
	_, err := client.Chat(context.Background(), history)

	var upErr *upstream.Error
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, 0, upErr.Status)
	assert.NotEmpty(t, upErr.Message)
	assert.NotContains(t, upErr.Message, url)
	assert.NotContains(t, upErr.Message, "Post ")
}
