// Package model 包含了应用的数据模型定义。
package model

import (
	"errors"
	"fmt"
)

// Role 是消息发送方的角色。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid 报告角色是否属于中继协议允许的集合。
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ErrNoMessages 表示中继请求中没有任何消息。
var ErrNoMessages = errors.New("No messages provided")

// RelayMessage 是中继协议中的单条消息，同时也是转发给上游的格式。
type RelayMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// RelayRequest 是 Conversation 的无状态投影，每次调用都完整发送。
type RelayRequest struct {
	Messages []RelayMessage `json:"messages"`
}

// Validate 在边界处校验请求结构，失败即返回。
func (r RelayRequest) Validate() error {
	if len(r.Messages) == 0 {
		return ErrNoMessages
	}
	for i, m := range r.Messages {
		if !m.Role.Valid() {
			return fmt.Errorf("messages[%d]: invalid role %q", i, m.Role)
		}
	}
	return nil
}

// ErrorBody 是中继端点与上游共用的错误响应体。
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// UpstreamReply 是上游 AI 服务的响应体。Response 为 nil 表示字段缺失。
type UpstreamReply struct {
	Response *string `json:"response,omitempty"`
	Error    string  `json:"error,omitempty"`
	Details  string  `json:"details,omitempty"`
}
