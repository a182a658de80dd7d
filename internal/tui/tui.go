// Package tui 是 Trade Caddie 的终端聊天界面。
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"trade-caddie/internal/consumer"
)

// SnapshotMsg 把 Consumer 的状态快照送进 Bubble Tea 的事件循环。
type SnapshotMsg struct {
	Snapshot consumer.Snapshot
}

// SubmitDoneMsg 表示一次提交已经结束。
type SubmitDoneMsg struct {
	Err error
}

// SnapshotChannel 返回一个观察者及其对应的快照通道。
func SnapshotChannel(size int) (consumer.Observer, <-chan consumer.Snapshot) {
	ch := make(chan consumer.Snapshot, size)
	return func(s consumer.Snapshot) { ch <- s }, ch
}

// Run 运行终端界面直到退出。ctx 取消时界面退出。
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// listenForSnapshot 等待下一个快照。
func listenForSnapshot(ch <-chan consumer.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return SnapshotMsg{Snapshot: snap}
	}
}
