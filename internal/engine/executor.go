package engine

import (
	"context"
	"fmt"
	"log/slog"
)

// Executor runs deferred tasks one at a time in submission order.
//
// It is the owning execution context of a member client: async operations
// are copied into a closure and submitted here, then run by exactly one
// goroutine calling Run, or synchronously by Drain. A task always runs to
// completion once dequeued; there is no cancellation of dispatched work.
//
// Thread-safety model:
//   - Submit: safe from any goroutine
//   - Run / Drain: one caller at a time
type Executor struct {
	queue  *taskQueue
	clock  *Clock
	logger *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithLogger sets the logger used for task tracing.
func WithLogger(l *slog.Logger) ExecutorOption {
	return func(x *Executor) {
		x.logger = l
	}
}

// NewExecutor creates an idle executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	x := &Executor{
		queue:  newTaskQueue(),
		clock:  NewClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Submit queues fn for execution and returns its sequence number.
func (x *Executor) Submit(fn Task) (int64, error) {
	if fn == nil {
		return 0, fmt.Errorf("submit: nil task")
	}
	seq := x.clock.Next()
	ok := x.queue.Enqueue(func() {
		x.logger.Debug("executor: running task", "seq", seq)
		fn()
	})
	if !ok {
		return 0, ErrClosed
	}
	return seq, nil
}

// Drain runs every queued task on the calling goroutine, including tasks
// queued by the tasks themselves, and returns how many ran.
func (x *Executor) Drain() int {
	n := 0
	for {
		t, ok := x.queue.TryDequeue()
		if !ok {
			return n
		}
		t()
		n++
	}
}

// Run processes tasks until ctx is cancelled or Stop is called.
// Tasks already queued when Stop is called still run.
func (x *Executor) Run(ctx context.Context) error {
	x.logger.Info("executor starting")

	for {
		if t, ok := x.queue.TryDequeue(); ok {
			t()
			continue
		}

		select {
		case <-ctx.Done():
			x.logger.Info("executor stopping: context cancelled", "pending", x.queue.Len())
			x.queue.Close()
			return ctx.Err()

		case <-x.queue.Wait():
			// The signal channel closes with the queue, so this fires
			// immediately once stopped.
			if x.queue.isClosed() && x.queue.Len() == 0 {
				x.logger.Info("executor stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the executor to new submissions.
func (x *Executor) Stop() {
	x.queue.Close()
}

// Pending returns the number of queued tasks.
func (x *Executor) Pending() int {
	return x.queue.Len()
}
