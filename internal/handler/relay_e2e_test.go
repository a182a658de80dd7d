package handler

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"trade-caddie/internal/config"
	"trade-caddie/internal/service"
	"trade-caddie/pkg/upstream"
)

func newBackedRouter(t *testing.T, backend http.HandlerFunc) (http.Handler, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		backend(w, r)
	}))
	t.Cleanup(srv.Close)

	client := upstream.NewClient(config.UpstreamConfig{URL: srv.URL})
	return newRouter(service.NewRelayService(client)), &calls
}

func TestRelayEndToEnd(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		status    int
		reply     string
		wantCode  int
		wantBody  string
		wantJSON  bool
		wantCalls int32
	}{
		{
			name:      "success",
			body:      `{"messages":[{"role":"user","content":"hi"}]}`,
			status:    http.StatusOK,
			reply:     `{"response":"X"}`,
			wantCode:  http.StatusOK,
			wantBody:  "X",
			wantCalls: 1,
		},
		{
			name:      "empty list",
			body:      `{"messages":[]}`,
			wantCode:  http.StatusBadRequest,
			wantBody:  `{"error":"No messages provided"}`,
			wantJSON:  true,
			wantCalls: 0,
		},
		{
			name:      "backend down",
			body:      `{"messages":[{"role":"user","content":"hi"}]}`,
			status:    http.StatusServiceUnavailable,
			reply:     `{"error":"down"}`,
			wantCode:  http.StatusServiceUnavailable,
			wantBody:  `{"error":"down"}`,
			wantJSON:  true,
			wantCalls: 1,
		},
		{
			name:      "missing response field",
			body:      `{"messages":[{"role":"user","content":"hi"}]}`,
			status:    http.StatusOK,
			reply:     `{}`,
			wantCode:  http.StatusInternalServerError,
			wantBody:  `{"error":"Invalid response structure from AI service"}`,
			wantJSON:  true,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, calls := newBackedRouter(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.reply))
			})

			w := post(r, tt.body)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantJSON {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			} else {
				assert.Equal(t, tt.wantBody, w.Body.String())
				assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
			}
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(calls))
		})
	}
}
