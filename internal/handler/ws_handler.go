package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"trade-caddie/internal/model"
	"trade-caddie/pkg/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// wsFrame 是 WebSocket 上的控制帧；回答文本本身以纯文本帧发送。
type wsFrame struct {
	Type    string `json:"type"`
	Status  int    `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

var completionFrame = map[string]string{"type": "completion", "status": "finished"}

// RelayWebSocket 处理 GET /api/chat/ws。每个入站文本帧是一个中继请求，
// 回答按分块以文本帧返回，最后发送一个 completion 帧。
func (h *ChatHandler) RelayWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	for {
		msgType, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("从 WebSocket 读取消息失败: %v", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var req model.RelayRequest
		if err := json.Unmarshal(message, &req); err != nil {
			if !writeFrames(conn, wsFrame{Type: "error", Status: http.StatusBadRequest, Error: invalidBodyMessage, Details: err.Error()}) {
				return
			}
			continue
		}

		stream, err := h.relay.Relay(ctx, req)
		if err != nil {
			status, body := errorResponse(err)
			if !writeFrames(conn, wsFrame{Type: "error", Status: status, Error: body.Error, Details: body.Details}) {
				return
			}
			continue
		}

		err = pipeChunks(stream, func(chunk string) error {
			return conn.WriteMessage(websocket.TextMessage, []byte(chunk))
		})
		_ = stream.Close()
		if err != nil {
			log.Warnf("写入 WebSocket 分块失败: %v", err)
			return
		}
		if err := conn.WriteJSON(completionFrame); err != nil {
			return
		}
	}
}

// writeFrames 发送错误帧和 completion 帧，连接不可写时返回 false。
func writeFrames(conn *websocket.Conn, frame wsFrame) bool {
	if err := conn.WriteJSON(frame); err != nil {
		return false
	}
	return conn.WriteJSON(completionFrame) == nil
}
