// Package consumer 是聊天中继的客户端：维护一个会话的消息记录，
// 每次提交时把完整历史发给中继端点，并逐块渲染返回的文本流。
package consumer

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"trade-caddie/internal/model"
)

// Cursor 是流式输出尚未结束时附加在消息末尾的光标字符。
const Cursor = "▋"

// Message 是会话中的一条消息。ID 在创建时生成，之后不再改变。
type Message struct {
	ID        string
	Role      model.Role
	Content   string
	CreatedAt time.Time
}

// Streaming 报告消息是否仍在接收流式文本。
func (m Message) Streaming() bool {
	return m.Role == model.RoleAssistant && strings.HasSuffix(m.Content, Cursor)
}

func newMessage(role model.Role, content string, now time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: now,
	}
}

// toRelay 把消息列表投影为中继请求，角色一一对应、内容原样保留。
func toRelay(messages []Message) model.RelayRequest {
	out := make([]model.RelayMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, model.RelayMessage{Role: m.Role, Content: m.Content})
	}
	return model.RelayRequest{Messages: out}
}
