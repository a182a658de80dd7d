package consumer

import (
	"errors"
	"fmt"
)

// GenericErrorText 是无法得到更具体错误信息时展示给用户的文本。
const GenericErrorText = "Sorry, something went wrong. Please try again."

var (
	// ErrBusy 表示已有一次发送正在进行。
	ErrBusy = errors.New("consumer: a send is already in flight")
	// ErrNoSuchPrompt 表示快捷提问的下标越界。
	ErrNoSuchPrompt = errors.New("consumer: no quick reply at that index")
)

// RelayError 表示中继端点返回了非 2xx 状态。
type RelayError struct {
	Status  int
	Message string
	Details string
}

func (e *RelayError) Error() string { return e.Message }

// StreamReadError 表示读取响应体的过程中失败。
type StreamReadError struct {
	Err error
}

func (e *StreamReadError) Error() string {
	return fmt.Sprintf("Connection lost while reading the reply: %v", e.Err)
}

func (e *StreamReadError) Unwrap() error { return e.Err }

// errorText 返回写入消息记录的错误文本。
func errorText(err error) string {
	if err == nil || err.Error() == "" {
		return GenericErrorText
	}
	return err.Error()
}
