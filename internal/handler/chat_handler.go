// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"trade-caddie/internal/model"
	"trade-caddie/internal/service"
	"trade-caddie/pkg/log"
	"trade-caddie/pkg/textstream"
)

const invalidBodyMessage = "Invalid request body"

// ChatHandler 负责把浏览器或终端客户端的会话中继给上游 AI 服务。
type ChatHandler struct {
	relay service.RelayService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(relay service.RelayService) *ChatHandler {
	return &ChatHandler{relay: relay}
}

// Relay 处理 POST /api/chat：成功时以 text/plain 流式返回回答文本。
func (h *ChatHandler) Relay(c *gin.Context) {
	var req model.RelayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorBody{Error: invalidBodyMessage, Details: err.Error()})
		return
	}

	stream, err := h.relay.Relay(c.Request.Context(), req)
	if err != nil {
		status, body := errorResponse(err)
		c.JSON(status, body)
		return
	}
	defer stream.Close()

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	if err := pipeChunks(stream, func(chunk string) error {
		if _, err := c.Writer.WriteString(chunk); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}); err != nil {
		// 响应头已发出，只能中断
		log.Errorw("relay stream interrupted", "request_id", service.RequestIDFrom(c.Request.Context()), "error", err)
	}
}

// pipeChunks 依次把 stream 的每个分块交给 write，直到 io.EOF。
func pipeChunks(stream textstream.Stream, write func(chunk string) error) error {
	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if chunk == "" {
			continue
		}
		if err := write(chunk); err != nil {
			return err
		}
	}
}

// errorResponse 把服务层错误映射为状态码与 JSON 错误体。
func errorResponse(err error) (int, model.ErrorBody) {
	var relayErr *service.RelayError
	if errors.As(err, &relayErr) {
		return relayErr.Status, relayErr.Body()
	}
	return http.StatusInternalServerError, model.ErrorBody{Error: err.Error()}
}
