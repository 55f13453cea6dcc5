package tui

import tea "github.com/charmbracelet/bubbletea"

// wakeMsg tells the model that at least one session has news.
type wakeMsg struct{}

// Waker coalesces session notifications into UI wake-ups. Notify never
// blocks, so it is safe to pass to client.WithNotify.
type Waker struct {
	ch chan struct{}
}

// NewWaker returns a Waker with no pending wake-up.
func NewWaker() *Waker {
	return &Waker{ch: make(chan struct{}, 1)}
}

// Notify records a pending wake-up.
func (w *Waker) Notify() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

func (w *Waker) wait() tea.Cmd {
	return func() tea.Msg {
		<-w.ch
		return wakeMsg{}
	}
}

// C returns the channel that receives pending wake-ups, for callers that
// run without a bubbletea program.
func (w *Waker) C() <-chan struct{} {
	return w.ch
}
