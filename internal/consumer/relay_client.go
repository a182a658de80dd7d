package consumer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"trade-caddie/internal/model"
)

// maxErrorBody 限制读取错误响应体的字节数。
const maxErrorBody = 64 << 10

// Relay 把一次中继请求发出去，成功时返回可增量读取的响应体。
type Relay interface {
	Send(ctx context.Context, req model.RelayRequest) (io.ReadCloser, error)
}

// RelayClient 通过 HTTP 调用中继端点。
type RelayClient struct {
	url        string
	httpClient *http.Client
}

// ClientOption 配置 RelayClient。
type ClientOption func(*RelayClient)

// WithHTTPClient 替换默认的 http.Client。
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *RelayClient) { c.httpClient = hc }
}

// NewRelayClient 创建指向 url 的 RelayClient。
func NewRelayClient(url string, opts ...ClientOption) *RelayClient {
	c := &RelayClient{url: url, httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send 发送请求。非 2xx 状态返回 *RelayError，调用方负责关闭返回的响应体。
func (c *RelayClient) Send(ctx context.Context, req model.RelayRequest) (io.ReadCloser, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal relay request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build relay request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("relay request failed: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		return nil, decodeRelayError(resp)
	}
	return resp.Body, nil
}

// decodeRelayError 读取 {error, details} 错误体；缺失或无法解析时使用通用文本。
func decodeRelayError(resp *http.Response) *RelayError {
	relayErr := &RelayError{
		Status:  resp.StatusCode,
		Message: fmt.Sprintf("API error status %d", resp.StatusCode),
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return relayErr
	}
	var body model.ErrorBody
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		relayErr.Message = body.Error
		relayErr.Details = body.Details
	}
	return relayErr
}
