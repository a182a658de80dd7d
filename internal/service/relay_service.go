// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"trade-caddie/internal/model"
	"trade-caddie/pkg/kvstore"
	"trade-caddie/pkg/log"
	"trade-caddie/pkg/textstream"
	"trade-caddie/pkg/upstream"
)

// ErrorKind 是中继端点的错误分类。
type ErrorKind string

const (
	KindInvalidRequest         ErrorKind = "InvalidRequest"
	KindUpstreamError          ErrorKind = "UpstreamError"
	KindInvalidUpstreamPayload ErrorKind = "InvalidUpstreamPayload"
)

const invalidPayloadMessage = "Invalid response structure from AI service"

// RelayError 携带返回给调用方的 HTTP 状态码与错误体。
type RelayError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Details string
	Err     error
}

func (e *RelayError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s (%d): %s: %s", e.Kind, e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
}

func (e *RelayError) Unwrap() error { return e.Err }

// Body 返回对外的 JSON 错误体。
func (e *RelayError) Body() model.ErrorBody {
	return model.ErrorBody{Error: e.Message, Details: e.Details}
}

// EventPublisher 发布中继交换事件。
type EventPublisher interface {
	Publish(ctx context.Context, event model.RelayEvent) error
}

// RelayService 将会话转发给上游 AI 服务，并以文本流的形式返回回答。
type RelayService interface {
	Relay(ctx context.Context, req model.RelayRequest) (textstream.Stream, error)
}

// Option 配置 RelayService 的可选能力。
type Option func(*relayService)

// WithCache 启用回复缓存：成功且被完整读取的回答会写入 store。
func WithCache(store kvstore.Store, ttl time.Duration) Option {
	return func(s *relayService) {
		s.cache = store
		s.cacheTTL = ttl
	}
}

// WithEvents 在每次中继调用结束后异步发布一条 RelayEvent。
func WithEvents(pub EventPublisher) Option {
	return func(s *relayService) { s.events = pub }
}

type relayService struct {
	client   upstream.Client
	cache    kvstore.Store
	cacheTTL time.Duration
	events   EventPublisher
	now      func() time.Time
}

// NewRelayService 创建一个新的 RelayService 实例。
func NewRelayService(client upstream.Client, opts ...Option) RelayService {
	s := &relayService{client: client, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Relay 校验请求、查询缓存、调用上游，并把回答包装为文本流。
func (s *relayService) Relay(ctx context.Context, req model.RelayRequest) (textstream.Stream, error) {
	start := s.now()
	event := model.RelayEvent{
		RequestID:    RequestIDFrom(ctx),
		MessageCount: len(req.Messages),
		Status:       http.StatusOK,
	}

	stream, err := s.relay(ctx, req, &event)
	if err != nil {
		var relayErr *RelayError
		if errors.As(err, &relayErr) {
			event.Status = relayErr.Status
			event.ErrorKind = string(relayErr.Kind)
		}
		log.Warnw("relay failed", "request_id", event.RequestID, "error", err)
	}

	event.LatencyMs = s.now().Sub(start).Milliseconds()
	event.Timestamp = model.LocalTime(start)
	s.publish(event)
	return stream, err
}

func (s *relayService) relay(ctx context.Context, req model.RelayRequest, event *model.RelayEvent) (textstream.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, &RelayError{Kind: KindInvalidRequest, Status: http.StatusBadRequest, Message: err.Error(), Err: err}
	}

	key := ""
	if s.cache != nil {
		key = cacheKey(req.Messages)
		if cached, err := s.cache.Get(ctx, key); err == nil {
			event.CacheHit = true
			return textstream.Once(string(cached)), nil
		} else if !errors.Is(err, kvstore.ErrNotFound) {
			log.Warnw("reply cache lookup failed", "request_id", event.RequestID, "error", err)
		}
	}

	text, err := s.client.Chat(ctx, req.Messages)
	if err != nil {
		return nil, classify(err)
	}

	stream := textstream.Once(text)
	if s.cache != nil {
		requestID := event.RequestID
		stream = textstream.Tee(stream, func(full string) {
			putCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := s.cache.Put(putCtx, key, []byte(full), s.cacheTTL); err != nil {
				log.Warnw("reply cache store failed", "request_id", requestID, "error", err)
			}
		})
	}
	return stream, nil
}

// classify 把上游客户端的错误映射到中继错误分类。
func classify(err error) *RelayError {
	if errors.Is(err, upstream.ErrInvalidPayload) {
		return &RelayError{Kind: KindInvalidUpstreamPayload, Status: http.StatusInternalServerError, Message: invalidPayloadMessage, Err: err}
	}
	var upErr *upstream.Error
	if errors.As(err, &upErr) {
		status := upErr.Status
		if status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
		return &RelayError{Kind: KindUpstreamError, Status: status, Message: upErr.Message, Details: upErr.Details, Err: err}
	}
	return &RelayError{Kind: KindUpstreamError, Status: http.StatusInternalServerError, Message: err.Error(), Err: err}
}

func (s *relayService) publish(event model.RelayEvent) {
	if s.events == nil {
		return
	}
	// 发布不阻塞响应；失败只记录日志
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.events.Publish(ctx, event); err != nil {
			log.Warnw("relay event publish failed", "request_id", event.RequestID, "error", err)
		}
	}()
}

// cacheKey 对规范化的消息列表取 sha256。
func cacheKey(messages []model.RelayMessage) string {
	b, _ := json.Marshal(messages)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
