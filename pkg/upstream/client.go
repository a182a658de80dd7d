// Package upstream provides a client for the external AI chat backend.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"trade-caddie/internal/config"
	"trade-caddie/internal/model"
	"trade-caddie/pkg/log"
)

// DefaultErrorMessage 在上游没有给出错误文本时使用。
const DefaultErrorMessage = "Failed to get response from AI service"

// ErrInvalidPayload 表示上游成功响应中缺少 response 文本字段。
var ErrInvalidPayload = errors.New("invalid response structure from AI service")

// Error 表示上游不可达、返回非 2xx 或在响应体中显式携带 error 字段。
// Status 为 0 表示没有可用的上游状态码。
type Error struct {
	Status  int
	Message string
	Details string
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return "upstream: " + e.Message
	}
	return fmt.Sprintf("upstream: status %d: %s", e.Status, e.Message)
}

// Client defines the interface for the AI backend client.
type Client interface {
	// Chat 将完整的消息列表转发给后端，返回其 response 文本。
	Chat(ctx context.Context, messages []model.RelayMessage) (string, error)
}

// Option configures a Client.
type Option func(*httpClient)

// WithHTTPClient 替换底层的 *http.Client。
func WithHTTPClient(c *http.Client) Option {
	return func(h *httpClient) { h.client = c }
}

type httpClient struct {
	url    string
	client *http.Client
}

// NewClient creates a new backend client for cfg.URL.
func NewClient(cfg config.UpstreamConfig, opts ...Option) Client {
	c := &httpClient{
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Messages []model.RelayMessage `json:"messages"`
}

// Chat posts the message list and decodes the single JSON answer.
func (c *httpClient) Chat(ctx context.Context, messages []model.RelayMessage) (string, error) {
	reqBytes, err := json.Marshal(chatRequest{Messages: messages})
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// 上游地址只记录在服务端日志中
		log.Warnw("upstream request failed", "url", c.url, "error", err)
		return "", &Error{Message: transportMessage(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Status: resp.StatusCode, Message: fmt.Sprintf("failed to read response body: %v", err)}
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300

	var reply model.UpstreamReply
	if err := json.Unmarshal(body, &reply); err != nil {
		if !ok {
			return "", &Error{Status: resp.StatusCode, Message: DefaultErrorMessage, Details: snippet(body)}
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if !ok || reply.Error != "" {
		msg := reply.Error
		if msg == "" {
			msg = DefaultErrorMessage
		}
		status := resp.StatusCode
		if ok {
			// 2xx 携带 error 字段时没有可用的错误状态码
			status = 0
		}
		return "", &Error{Status: status, Message: msg, Details: reply.Details}
	}

	if reply.Response == nil || *reply.Response == "" {
		return "", ErrInvalidPayload
	}
	return *reply.Response, nil
}

// transportMessage 去掉 *url.Error 中的方法与地址，只保留底层错误文本。
func transportMessage(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return err.Error()
}

func snippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}
