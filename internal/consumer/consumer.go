package consumer

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"trade-caddie/internal/model"
	"trade-caddie/pkg/log"
)

const readBufferSize = 4096

// Seed 是打开会话时的初始内容。
type Seed struct {
	Greeting string
	Prompts  []string
}

// Snapshot 是某一时刻的会话状态副本。
// Version 单调递增，观察者可以据此丢弃乱序到达的旧快照。
type Snapshot struct {
	Version   uint64
	SessionID string
	Messages  []Message
	Loading   bool
	// Thinking 为 true 表示请求已发出但回答消息尚未出现。
	Thinking bool
	Prompts  []string
}

// Observer 接收每一次状态变化后的快照，可能在任意 goroutine 中被调用。
type Observer func(Snapshot)

// Option 配置 Consumer。
type Option func(*Consumer)

// WithObserver 设置状态变化的观察者。
func WithObserver(fn Observer) Option {
	return func(c *Consumer) { c.observer = fn }
}

// WithClock 替换消息时间戳使用的时钟。
func WithClock(now func() time.Time) Option {
	return func(c *Consumer) { c.now = now }
}

// Consumer 持有一个会话和至多一个正在进行的发送。
type Consumer struct {
	relay    Relay
	observer Observer
	now      func() time.Time

	mu        sync.Mutex
	version   uint64
	opened    bool
	sessionID string
	epoch     uint64 // 每次切换会话加一，旧发送的后续更新据此丢弃
	messages  []Message
	prompts   []string
	loading   bool
	inflight  string // 正在接收流式文本的消息 ID
}

// New 创建一个使用 relay 发送请求的 Consumer。
func New(relay Relay, opts ...Option) *Consumer {
	c := &Consumer{relay: relay, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open 切换到 sessionID。与当前会话相同时什么也不做；
// 否则清空消息记录和进行中的句柄，并写入一次开场白。
func (c *Consumer) Open(sessionID string, seed Seed) {
	c.mu.Lock()
	if c.opened && c.sessionID == sessionID {
		c.mu.Unlock()
		return
	}
	c.opened = true
	c.sessionID = sessionID
	c.epoch++
	c.messages = nil
	c.inflight = ""
	c.prompts = append([]string(nil), seed.Prompts...)
	if seed.Greeting != "" {
		c.messages = append(c.messages, newMessage(model.RoleAssistant, seed.Greeting, c.now()))
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// Submit 提交一条用户消息并阻塞到这次发送结束。
// 只含空白的输入直接忽略；已有发送进行中时返回 ErrBusy。
// 中继错误和读取错误写入消息记录，不作为返回值。
func (c *Consumer) Submit(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return ErrBusy
	}
	user := newMessage(model.RoleUser, text, c.now())
	c.messages = append(c.messages, user)
	req := toRelay(c.messages)
	c.prompts = nil
	c.loading = true
	c.inflight = ""
	epoch := c.epoch
	sessionID := c.sessionID
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	log.Infow("chat send started", "session", sessionID, "messages", len(req.Messages))
	c.send(ctx, epoch, req)
	return nil
}

// SubmitPrompt 提交第 i 条快捷提问。
func (c *Consumer) SubmitPrompt(ctx context.Context, i int) error {
	c.mu.Lock()
	if i < 0 || i >= len(c.prompts) {
		c.mu.Unlock()
		return ErrNoSuchPrompt
	}
	prompt := c.prompts[i]
	c.mu.Unlock()
	return c.Submit(ctx, prompt)
}

// Snapshot 返回当前状态的副本。
func (c *Consumer) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Consumer) send(ctx context.Context, epoch uint64, req model.RelayRequest) {
	body, err := c.relay.Send(ctx, req)
	if err != nil {
		var relayErr *RelayError
		if errors.As(err, &relayErr) {
			log.Warnw("relay returned error", "status", relayErr.Status, "error", relayErr.Message)
		} else {
			log.Warnw("relay request failed", "error", err)
		}
		c.fail(epoch, err)
		return
	}
	defer body.Close()

	id, ok := c.bind(epoch)
	if !ok {
		return
	}

	// 跨增量拆开的多字节字符会留到下一次读取时再输出
	r := transform.NewReader(body, unicode.UTF8.NewDecoder())
	buf := make([]byte, readBufferSize)
	var acc strings.Builder
	for {
		n, err := r.Read(buf)
		if n > 0 {
			acc.Write(buf[:n])
			if !c.update(epoch, id, acc.String()+Cursor) {
				return
			}
		}
		if errors.Is(err, io.EOF) {
			c.finish(epoch, id, acc.String())
			return
		}
		if err != nil {
			log.Warnw("relay stream read failed", "error", err)
			c.fail(epoch, &StreamReadError{Err: err})
			return
		}
	}
}

// bind 追加一条只显示光标的助手消息并把它设为进行中的句柄。
func (c *Consumer) bind(epoch uint64) (string, bool) {
	c.mu.Lock()
	if epoch != c.epoch {
		c.loading = false
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.notify(snap)
		return "", false
	}
	msg := newMessage(model.RoleAssistant, Cursor, c.now())
	c.messages = append(c.messages, msg)
	c.inflight = msg.ID
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return msg.ID, true
}

// update 把绑定消息的内容设置为 content；会话已切换时返回 false。
func (c *Consumer) update(epoch uint64, id, content string) bool {
	c.mu.Lock()
	if epoch != c.epoch {
		c.loading = false
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.notify(snap)
		return false
	}
	c.setContentLocked(id, content)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return true
}

func (c *Consumer) finish(epoch uint64, id, content string) {
	c.end(epoch, func() {
		c.setContentLocked(id, content)
	})
}

// fail 把错误写入消息记录：有绑定消息时替换其内容，否则追加一条新的助手消息。
func (c *Consumer) fail(epoch uint64, err error) {
	text := errorText(err)
	c.end(epoch, func() {
		if c.inflight != "" && c.setContentLocked(c.inflight, text) {
			return
		}
		c.messages = append(c.messages, newMessage(model.RoleAssistant, text, c.now()))
	})
}

// end 结束一次发送。会话未切换时才应用 apply；忙碌标记总是清除。
func (c *Consumer) end(epoch uint64, apply func()) {
	c.mu.Lock()
	if epoch == c.epoch {
		apply()
	}
	c.inflight = ""
	c.loading = false
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

func (c *Consumer) setContentLocked(id, content string) bool {
	for i := range c.messages {
		if c.messages[i].ID == id {
			c.messages[i].Content = content
			return true
		}
	}
	return false
}

func (c *Consumer) snapshotLocked() Snapshot {
	c.version++
	return Snapshot{
		Version:   c.version,
		SessionID: c.sessionID,
		Messages:  append([]Message(nil), c.messages...),
		Loading:   c.loading,
		Thinking:  c.loading && c.inflight == "",
		Prompts:   append([]string(nil), c.prompts...),
	}
}

func (c *Consumer) notify(snap Snapshot) {
	if c.observer != nil {
		c.observer(snap)
	}
}
