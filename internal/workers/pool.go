// Package workers bounds concurrent backtest execution. Runs themselves are
// single-threaded; the pool only caps how many independent runs the host
// process serves at once.
package workers

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// Task represents a unit of work to be executed on the pool.
type Task interface {
	Execute() error
}

// TaskFunc is a function that can be used as a Task.
type TaskFunc func() error

func (f TaskFunc) Execute() error { return f() }

// Pool is a fixed-size concurrency gate. Run blocks the caller until a slot
// is free, executes the task on the caller's goroutine, and releases the
// slot; panics inside a task are recovered and surfaced as errors.
type Pool struct {
	logger *zap.Logger
	name   string
	slots  chan struct{}
	active atomic.Int64
}

// NewPool creates a pool allowing size concurrent tasks.
func NewPool(logger *zap.Logger, name string, size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		logger: logger,
		name:   name,
		slots:  make(chan struct{}, size),
	}
}

// Run executes task once a slot is available, or fails if ctx is done first.
func (p *Pool) Run(ctx context.Context, task Task) (err error) {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.active.Add(1)
	defer func() {
		p.active.Add(-1)
		<-p.slots

		if r := recover(); r != nil {
			p.logger.Error("task panicked",
				zap.String("pool", p.name),
				zap.Any("panic", r),
			)
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()

	return task.Execute()
}

// Active returns the number of tasks currently executing.
func (p *Pool) Active() int64 {
	return p.active.Load()
}

// Capacity returns the pool's slot count.
func (p *Pool) Capacity() int {
	return cap(p.slots)
}
