package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"trade-caddie/internal/consumer"
	"trade-caddie/internal/model"
)

var _ tea.Model = Model{}

// maxQuickReplies 是可以用数字键选择的快捷提问数量。
const maxQuickReplies = 9

// Options 是创建 Model 所需的参数。
type Options struct {
	Persona   string
	Title     string
	SessionID string
	Seed      consumer.Seed
	// NewSessionID 生成 ctrl+n 使用的会话 ID，默认 uuid。
	NewSessionID func() string
}

// Model 是终端界面的 Bubble Tea 模型。
type Model struct {
	// Input 是输入框，导出以便测试。
	Input textinput.Model
	// Viewport 是消息记录的滚动区域。
	Viewport viewport.Model

	ctx      context.Context
	consumer *consumer.Consumer
	updates  <-chan consumer.Snapshot
	opts     Options
	styles   Styles

	snap    consumer.Snapshot
	sending bool
	err     error
	ready   bool
}

// New 创建一个 Model。updates 必须是 c 的观察者写入的通道。
func New(ctx context.Context, c *consumer.Consumer, updates <-chan consumer.Snapshot, opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask your Caddie..."
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 0

	if opts.Persona == "" {
		opts.Persona = "Trade Caddie"
	}
	if opts.NewSessionID == nil {
		opts.NewSessionID = uuid.NewString
	}
	if opts.SessionID == "" {
		opts.SessionID = opts.NewSessionID()
	}

	return Model{
		Input:    ti,
		ctx:      ctx,
		consumer: c,
		updates:  updates,
		opts:     opts,
		styles:   DefaultStyles(),
	}
}

// Snapshot 返回界面当前展示的状态。
func (m Model) Snapshot() consumer.Snapshot { return m.snap }

// Err 返回最近一次提交的错误。
func (m Model) Err() error { return m.err }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		openSession(m.consumer, m.opts.SessionID, m.opts.Seed),
		listenForSnapshot(m.updates),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SnapshotMsg:
		// 观察者可能在多个 goroutine 中被调用，旧快照直接丢弃
		if msg.Snapshot.Version > m.snap.Version {
			m.snap = msg.Snapshot
			m = m.refresh()
		}
		return m, listenForSnapshot(m.updates)

	case SubmitDoneMsg:
		m.sending = false
		if errors.Is(msg.Err, consumer.ErrBusy) {
			m.err = msg.Err
		}
		return m, m.Input.Focus()
	}

	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.styles.Header.Render(m.header()))
	b.WriteString("\n")
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) busy() bool {
	return m.sending || m.snap.Loading
}

func (m Model) header() string {
	if m.opts.Title != "" {
		return m.opts.Persona + " · " + m.opts.Title
	}
	return m.opts.Persona
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	headerH := 1
	statusH := 1
	inputH := 1
	borderH := 3
	vpHeight := msg.Height - headerH - statusH - inputH - borderH
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.Input.Width = msg.Width
	return m.refresh()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyCtrlN:
		m.err = nil
		m.Input.SetValue("")
		return m, openSession(m.consumer, m.opts.NewSessionID(), m.opts.Seed)

	case tea.KeyEnter:
		if m.busy() {
			return m, nil
		}
		text := m.Input.Value()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		m.Input.SetValue("")
		return m.startSubmit(func(ctx context.Context) error {
			return m.consumer.Submit(ctx, text)
		})

	case tea.KeyRunes:
		if i, ok := quickReplyIndex(msg, m.Input.Value(), len(m.snap.Prompts)); ok && !m.busy() {
			return m.startSubmit(func(ctx context.Context) error {
				return m.consumer.SubmitPrompt(ctx, i)
			})
		}
	}

	if m.busy() {
		// 发送期间输入框不可用，只允许滚动
		var cmd tea.Cmd
		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
		}
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	if msg.Type != tea.KeyRunes {
		m.Viewport, cmd = m.Viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) startSubmit(submit func(ctx context.Context) error) (tea.Model, tea.Cmd) {
	m.sending = true
	m.err = nil
	m.Input.Blur()
	ctx := m.ctx
	return m, func() tea.Msg {
		return SubmitDoneMsg{Err: submit(ctx)}
	}
}

// quickReplyIndex 在输入框为空时把数字键 1-9 映射为快捷提问下标。
func quickReplyIndex(msg tea.KeyMsg, input string, n int) (int, bool) {
	if input != "" || len(msg.Runes) != 1 {
		return 0, false
	}
	r := msg.Runes[0]
	if r < '1' || r > '9' {
		return 0, false
	}
	i := int(r - '1')
	if i >= n || i >= maxQuickReplies {
		return 0, false
	}
	return i, true
}

func (m Model) refresh() Model {
	if !m.ready {
		return m
	}
	m.Viewport.SetContent(m.renderTranscript())
	m.Viewport.GotoBottom()
	return m
}

func (m Model) renderTranscript() string {
	width := m.Viewport.Width
	var b strings.Builder
	for i, msg := range m.snap.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg, width))
		b.WriteString("\n")
	}
	if m.snap.Thinking {
		b.WriteString("\n")
		b.WriteString(m.styles.Thinking.Render(m.opts.Persona + " is thinking..."))
		b.WriteString("\n")
	}
	if len(m.snap.Prompts) > 0 && !m.snap.Loading {
		b.WriteString("\n")
		for i, p := range m.snap.Prompts {
			if i >= maxQuickReplies {
				break
			}
			b.WriteString(m.styles.Prompt.Width(width).Render(fmt.Sprintf("[%d] %s", i+1, p)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderMessage(msg consumer.Message, width int) string {
	name := m.styles.AssistName.Render(m.opts.Persona)
	body := m.styles.Body
	if msg.Role == model.RoleUser {
		name = m.styles.UserName.Render("You")
		body = m.styles.UserBody
	}
	stamp := m.styles.Timestamp.Render(msg.CreatedAt.Format("15:04"))
	if width > 2 {
		body = body.Width(width)
	}
	return name + " " + stamp + "\n" + body.Render(msg.Content)
}

func (m Model) statusLine() string {
	if m.err != nil {
		return m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err))
	}
	if m.busy() {
		return m.styles.Muted.Render("Waiting for " + m.opts.Persona + "...")
	}
	if len(m.snap.Prompts) > 0 {
		return m.styles.Muted.Render("Enter to send, 1-9 for a quick reply, Ctrl+N new session, Ctrl+C to quit")
	}
	return m.styles.Muted.Render("Enter to send, Ctrl+N new session, Ctrl+C to quit")
}

// openSession 在事件循环之外切换会话，避免观察者阻塞 Update。
func openSession(c *consumer.Consumer, sessionID string, seed consumer.Seed) tea.Cmd {
	return func() tea.Msg {
		c.Open(sessionID, seed)
		return nil
	}
}
