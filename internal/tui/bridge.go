package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/AntoineGS/swselect/internal/hub"
)

const bridgeCapacity = 16

// dispatchMsg carries a call scheduled onto the Update loop.
type dispatchMsg func()

// hubMsg carries a notification from the readiness hub.
type hubMsg hub.Message

// Bridge moves calls from background tasks onto the bubbletea Update loop,
// which is the interactive thread of the selection screen.
type Bridge struct {
	calls chan func()
	done  chan struct{}
	once  sync.Once
}

// NewBridge creates a Bridge.
func NewBridge() *Bridge {
	return &Bridge{
		calls: make(chan func(), bridgeCapacity),
		done:  make(chan struct{}),
	}
}

// Dispatch queues fn for the Update loop. It blocks while the queue is full
// and drops fn once the bridge is closed.
func (b *Bridge) Dispatch(fn func()) {
	select {
	case b.calls <- fn:
	case <-b.done:
	}
}

// Close stops accepting calls.
func (b *Bridge) Close() {
	b.once.Do(func() { close(b.done) })
}

// next waits for the next dispatched call.
func (b *Bridge) next() tea.Cmd {
	return func() tea.Msg {
		select {
		case fn := <-b.calls:
			return dispatchMsg(fn)
		case <-b.done:
			return nil
		}
	}
}

// waitForHub waits for the next hub notification.
func waitForHub(messages <-chan hub.Message) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-messages
		if !ok {
			return nil
		}
		return hubMsg(msg)
	}
}
