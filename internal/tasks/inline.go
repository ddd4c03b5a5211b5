package tasks

import (
	"context"
	"sync"
)

// Inline runs every task synchronously on the caller's goroutine. It stands
// in for a Registry where ordering must be deterministic, such as tests and
// one-shot command line runs.
type Inline struct {
	errs map[string]error
	mu   sync.Mutex
}

// Go runs fn to completion before returning.
func (in *Inline) Go(name string, fn func(ctx context.Context) error) {
	err := run(context.Background(), name, fn)

	in.mu.Lock()
	defer in.mu.Unlock()

	if in.errs == nil {
		in.errs = make(map[string]error)
	}
	in.errs[name] = err
}

// Running is always false: tasks finish inside Go.
func (in *Inline) Running(string) bool { return false }

// Wait returns immediately.
func (in *Inline) Wait(string) {}

// Err returns the result of the last task run with name.
func (in *Inline) Err(name string) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	return in.errs[name]
}
