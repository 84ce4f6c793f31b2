// Package tui provides a Bubble Tea terminal frontend for the Veldt
// answer stream.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/veldt-ai/veldt"
)

// AskFunc issues one question and streams the result through the handler.
// It blocks until the stream resolves or the context is cancelled.
type AskFunc func(ctx context.Context, query string, h veldt.Handler) error

// Run creates and runs the Bubble Tea program. It blocks until the program
// exits. The context is used for graceful shutdown — when cancelled, the
// program quits.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// StreamEventMsg wraps a normal stream event for delivery to the model.
type StreamEventMsg struct {
	Event veldt.Event
}

// StreamErrorMsg wraps a declared error event or transport failure.
type StreamErrorMsg struct {
	Err error
}

// AskDoneMsg signals that the ask call has returned.
type AskDoneMsg struct {
	Err error
}

// startAsk runs the ask in a goroutine, pumping handler callbacks into
// msgCh, and signals the return value on doneCh.
func startAsk(run AskFunc, ctx context.Context, query string, msgCh chan<- tea.Msg, doneCh chan<- error) tea.Cmd {
	return func() tea.Msg {
		push := func(msg tea.Msg) {
			select {
			case msgCh <- msg:
			case <-ctx.Done():
			}
		}
		err := run(ctx, query, veldt.Handler{
			OnEvent: func(e veldt.Event) { push(StreamEventMsg{Event: e}) },
			OnError: func(e error) { push(StreamErrorMsg{Err: e}) },
			// Completion is observed as the run returning.
		})
		close(msgCh)
		doneCh <- err
		return nil
	}
}

// listenForMsg waits for the next stream message. When the channel closes,
// it reads the error from doneCh and returns AskDoneMsg.
func listenForMsg(ch <-chan tea.Msg, doneCh <-chan error) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return AskDoneMsg{Err: <-doneCh}
		}
		return msg
	}
}
