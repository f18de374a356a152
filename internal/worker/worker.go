package worker

import (
	"context"
	"sync"
)

// Worker owns one background goroutine at a time.
// Stop cancels the goroutine's context and blocks until it has returned,
// so two generations of the same worker never run concurrently.
type Worker struct {
	name string

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped worker.
func New(name string) *Worker {
	return &Worker{name: name}
}

// Name returns the worker name used in logs.
func (w *Worker) Name() string {
	return w.name
}

// Start stops any previous run, then launches fn in a new goroutine.
// fn must return promptly once ctx is cancelled.
func (w *Worker) Start(fn func(ctx context.Context)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done

	go func() {
		defer close(done)
		fn(ctx)
	}()
}

// Stop signals the running goroutine and waits for it to exit.
// Stop is safe to call on a stopped worker.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked()
}

// Running reports whether a goroutine is live.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done == nil {
		return false
	}
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}

// Done returns a channel closed when the current run exits, or nil when stopped.
func (w *Worker) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done
}

func (w *Worker) stopLocked() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
	w.cancel = nil
	w.done = nil
}
