// Package api exposes the software selection screen over HTTP.
package api

import (
	"context"
)

const loopCapacity = 16

// Loop is the interactive thread of a headless screen: a single goroutine
// that runs every controller call in order.
type Loop struct {
	calls chan func()
	done  chan struct{}
}

// NewLoop creates a Loop. Nothing runs until Run is called.
func NewLoop() *Loop {
	return &Loop{
		calls: make(chan func(), loopCapacity),
		done:  make(chan struct{}),
	}
}

// Dispatch queues fn. It never runs fn on the caller's goroutine and drops fn
// once the loop stopped.
func (l *Loop) Dispatch(fn func()) {
	select {
	case l.calls <- fn:
	case <-l.done:
	}
}

// Do runs fn on the loop and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})

	select {
	case l.calls <- func() {
		defer close(finished)
		fn()
	}:
	case <-l.done:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes queued calls until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)

	for {
		select {
		case fn := <-l.calls:
			fn()
		case <-ctx.Done():
			return
		}
	}
}
