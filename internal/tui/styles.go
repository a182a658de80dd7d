package tui

import "github.com/charmbracelet/lipgloss"

// Styles 是终端界面使用的 lipgloss 样式。
type Styles struct {
	Header     lipgloss.Style
	UserName   lipgloss.Style
	AssistName lipgloss.Style
	Timestamp  lipgloss.Style
	UserBody   lipgloss.Style
	Body       lipgloss.Style
	Thinking   lipgloss.Style
	Prompt     lipgloss.Style
	Muted      lipgloss.Style
	Error      lipgloss.Style
}

// DefaultStyles 返回默认配色。
func DefaultStyles() Styles {
	return Styles{
		Header:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		UserName:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4")),
		AssistName: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		Timestamp:  lipgloss.NewStyle().Faint(true),
		UserBody:   lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("4")),
		Body:       lipgloss.NewStyle().PaddingLeft(2),
		Thinking:   lipgloss.NewStyle().Italic(true).Faint(true),
		Prompt:     lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		Muted:      lipgloss.NewStyle().Faint(true),
		Error:      lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
}
