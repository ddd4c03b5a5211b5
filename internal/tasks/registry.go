// Package tasks runs named background tasks and lets callers poll or join
// them by name.
package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Registry tracks named background tasks. Several tasks may share a name;
// Running and Wait consider all of them.
type Registry struct {
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *slog.Logger
	running map[string]int
	idle    map[string]chan struct{}
	errs    map[string]error
	wg      sync.WaitGroup
	mu      sync.Mutex
}

// NewRegistry creates a Registry whose tasks receive contexts derived from ctx.
func NewRegistry(ctx context.Context) *Registry {
	ctx, cancel := context.WithCancel(ctx)

	return &Registry{
		ctx:     ctx,
		cancel:  cancel,
		logger:  slog.Default(),
		running: make(map[string]int),
		idle:    make(map[string]chan struct{}),
		errs:    make(map[string]error),
	}
}

// WithLogger sets a custom logger
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Go starts fn in a new goroutine under name. A returned error or a panic is
// logged and kept for Err.
func (r *Registry) Go(name string, fn func(ctx context.Context) error) {
	r.mu.Lock()
	if r.running[name] == 0 {
		r.idle[name] = make(chan struct{})
	}
	r.running[name]++
	r.wg.Add(1)
	r.mu.Unlock()

	r.logger.Debug("task started", slog.String("task", name))

	go func() {
		defer r.wg.Done()

		err := run(r.ctx, name, fn)

		r.mu.Lock()
		r.errs[name] = err
		r.running[name]--
		if r.running[name] == 0 {
			delete(r.running, name)
			close(r.idle[name])
			delete(r.idle, name)
		}
		r.mu.Unlock()

		if err != nil {
			r.logger.Error("task failed", slog.String("task", name), slog.String("error", err.Error()))
			return
		}
		r.logger.Debug("task finished", slog.String("task", name))
	}()
}

func run(ctx context.Context, name string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task %s panicked: %v", name, p)
		}
	}()

	return fn(ctx)
}

// Running reports whether any task with name is still executing.
func (r *Registry) Running(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.running[name] > 0
}

// Wait blocks until no task with name is executing. It returns immediately
// when none is.
func (r *Registry) Wait(name string) {
	r.mu.Lock()
	ch, ok := r.idle[name]
	r.mu.Unlock()

	if ok {
		<-ch
	}
}

// Err returns the result of the most recently finished task with name.
func (r *Registry) Err(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.errs[name]
}

// Close cancels every task context and waits for all tasks to return.
func (r *Registry) Close() {
	r.cancel()
	r.wg.Wait()
}
