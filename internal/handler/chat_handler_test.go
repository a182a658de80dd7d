package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-caddie/internal/model"
	"trade-caddie/internal/service"
	"trade-caddie/pkg/textstream"
)

type fakeRelay struct {
	relayFn func(ctx context.Context, req model.RelayRequest) (textstream.Stream, error)
}

func (f *fakeRelay) Relay(ctx context.Context, req model.RelayRequest) (textstream.Stream, error) {
	return f.relayFn(ctx, req)
}

func newRouter(relay service.RelayService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, NewChatHandler(relay))
	return r
}

func post(r http.Handler, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestRelay_StreamsPlainText(t *testing.T) {
	var got model.RelayRequest
	r := newRouter(&fakeRelay{relayFn: func(_ context.Context, req model.RelayRequest) (textstream.Stream, error) {
		got = req
		return textstream.FromChunks("Buy ", "the ", "dip"), nil
	}})

	w := post(r, `{"messages":[{"role":"assistant","content":"Hi"},{"role":"user","content":"Q"}]}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "Buy the dip", w.Body.String())
	assert.True(t, w.Flushed)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, model.RoleAssistant, got.Messages[0].Role)
	assert.Equal(t, "Q", got.Messages[1].Content)
}

func TestRelay_MalformedBody(t *testing.T) {
	called := false
	r := newRouter(&fakeRelay{relayFn: func(context.Context, model.RelayRequest) (textstream.Stream, error) {
		called = true
		return nil, nil
	}})

	w := post(r, `{"messages":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"Invalid request body"`)
	assert.False(t, called)
}

func TestRelay_RelayErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "no messages",
			err:      &service.RelayError{Kind: service.KindInvalidRequest, Status: http.StatusBadRequest, Message: "No messages provided"},
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"No messages provided"}`,
		},
		{
			name:     "upstream error with details",
			err:      &service.RelayError{Kind: service.KindUpstreamError, Status: http.StatusServiceUnavailable, Message: "model down", Details: "retry later"},
			wantCode: http.StatusServiceUnavailable,
			wantBody: `{"error":"model down","details":"retry later"}`,
		},
		{
			name:     "invalid payload",
			err:      &service.RelayError{Kind: service.KindInvalidUpstreamPayload, Status: http.StatusInternalServerError, Message: "Invalid response structure from AI service"},
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"Invalid response structure from AI service"}`,
		},
		{
			name:     "unclassified",
			err:      errors.New("boom"),
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"boom"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(&fakeRelay{relayFn: func(context.Context, model.RelayRequest) (textstream.Stream, error) {
				return nil, tt.err
			}})

			w := post(r, `{"messages":[]}`)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestHealth(t *testing.T) {
	r := newRouter(&fakeRelay{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func dialWS(t *testing.T, relay service.RelayService) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(newRouter(relay))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestRelayWebSocket_ChunksThenCompletion(t *testing.T) {
	conn := dialWS(t, &fakeRelay{relayFn: func(context.Context, model.RelayRequest) (textstream.Stream, error) {
		return textstream.FromChunks("Hel", "lo"), nil
	}})

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"messages":[{"role":"user","content":"hi"}]}`)))

	for _, want := range []string{"Hel", "lo"} {
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, want, string(msg))
	}
	var done map[string]string
	require.NoError(t, conn.ReadJSON(&done))
	assert.Equal(t, map[string]string{"type": "completion", "status": "finished"}, done)
}

func TestRelayWebSocket_ErrorKeepsConnectionOpen(t *testing.T) {
	calls := 0
	conn := dialWS(t, &fakeRelay{relayFn: func(context.Context, model.RelayRequest) (textstream.Stream, error) {
		calls++
		if calls == 1 {
			return nil, &service.RelayError{Kind: service.KindInvalidRequest, Status: http.StatusBadRequest, Message: "No messages provided"}
		}
		return textstream.Once("ok"), nil
	}})

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"messages":[]}`)))

	var frame wsFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, wsFrame{Type: "error", Status: http.StatusBadRequest, Error: "No messages provided"}, frame)
	var done map[string]string
	require.NoError(t, conn.ReadJSON(&done))
	assert.Equal(t, "completion", done["type"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"messages":[{"role":"user","content":"again"}]}`)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "ok", string(msg))
}

func TestRelayWebSocket_MalformedFrame(t *testing.T) {
	conn := dialWS(t, &fakeRelay{relayFn: func(context.Context, model.RelayRequest) (textstream.Stream, error) {
		t.Error("relay must not be called")
		return nil, nil
	}})

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))

	var frame wsFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "error", frame.Type)
	assert.Equal(t, http.StatusBadRequest, frame.Status)
	assert.Equal(t, invalidBodyMessage, frame.Error)
}
