// Package hub aggregates readiness and status messages from installer
// screens and fans them out to subscribers such as the terminal UI.
package hub

import (
	"log/slog"
	"sync"
)

const defaultSubscriberCapacity = 64

// Kind identifies the notification carried by a Message.
type Kind int

// Notification kinds.
const (
	// KindNotReady marks a screen as busy
	KindNotReady Kind = iota
	// KindReady marks a screen as done processing
	KindReady
	// KindMessage carries a status text for a screen
	KindMessage
)

func (k Kind) String() string {
	switch k {
	case KindNotReady:
		return "not-ready"
	case KindReady:
		return "ready"
	case KindMessage:
		return "message"
	}

	return "unknown"
}

// Message is a single notification about a screen.
type Message struct {
	Screen string
	Text   string
	Kind   Kind
	Dirty  bool
}

// Option customizes Hub construction.
type Option func(*Hub)

// WithLogger injects a logger for dropped-message diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = logger
	}
}

// WithSubscriberCapacity overrides the buffered channel size per subscriber.
func WithSubscriberCapacity(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.capacity = n
		}
	}
}

// Hub records per-screen readiness and the last posted message. Notifications
// are fire-and-forget: a subscriber whose buffer is full misses messages
// rather than blocking the sender.
type Hub struct {
	logger   *slog.Logger
	ready    map[string]bool
	dirty    map[string]bool
	messages map[string]string
	subs     map[*subscriber]struct{}
	capacity int
	mu       sync.RWMutex
}

type subscriber struct {
	ch chan Message
}

// Subscription is an active stream of hub messages.
type Subscription struct {
	Messages <-chan Message
	cancel   func()
}

// Close stops delivery and closes the Messages channel.
func (s Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// New creates a Hub.
func New(opts ...Option) *Hub {
	h := &Hub{
		logger:   slog.Default(),
		ready:    make(map[string]bool),
		dirty:    make(map[string]bool),
		messages: make(map[string]string),
		subs:     make(map[*subscriber]struct{}),
		capacity: defaultSubscriberCapacity,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	return h
}

// NotReady marks screen as busy.
func (h *Hub) NotReady(screen string) {
	h.mu.Lock()
	h.ready[screen] = false
	h.mu.Unlock()

	h.publish(Message{Kind: KindNotReady, Screen: screen})
}

// Ready marks screen as done processing. Ready does not imply success.
func (h *Hub) Ready(screen string, dirty bool) {
	h.mu.Lock()
	h.ready[screen] = true
	h.dirty[screen] = dirty
	h.mu.Unlock()

	h.publish(Message{Kind: KindReady, Screen: screen, Dirty: dirty})
}

// PostMessage records text as the latest status message of screen.
func (h *Hub) PostMessage(screen, text string) {
	h.mu.Lock()
	h.messages[screen] = text
	h.mu.Unlock()

	h.publish(Message{Kind: KindMessage, Screen: screen, Text: text})
}

// IsReady reports whether screen last reported ready. Screens that never
// reported are not ready.
func (h *Hub) IsReady(screen string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.ready[screen]
}

// LastMessage returns the latest message posted for screen.
func (h *Hub) LastMessage(screen string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.messages[screen]
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe() Subscription {
	sub := &subscriber{ch: make(chan Message, h.capacity)}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once

	return Subscription{
		Messages: sub.ch,
		cancel: func() {
			once.Do(func() {
				h.mu.Lock()
				delete(h.subs, sub)
				close(sub.ch)
				h.mu.Unlock()
			})
		},
	}
}

func (h *Hub) publish(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs {
		select {
		case sub.ch <- msg:
		default:
			h.logger.Warn("hub subscriber full, dropping message",
				slog.String("screen", msg.Screen),
				slog.String("kind", msg.Kind.String()))
		}
	}
}
