package client

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Loop runs posted closures one at a time on a single goroutine. Everything
// that touches the store, the sync engine or the selection machine goes
// through it.
type Loop struct {
	inbox  chan func()
	done   chan struct{}
	logger *zap.Logger
}

func NewLoop(size int, logger *zap.Logger) *Loop {
	if size <= 0 {
		size = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		inbox:  make(chan func(), size),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Post queues f. It reports false once the loop has stopped.
func (l *Loop) Post(f func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.inbox <- f:
		return true
	case <-l.done:
		return false
	}
}

// Run executes queued closures until ctx ends. A panicking closure is
// logged and the loop carries on.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f := <-l.inbox:
			l.exec(f)
		}
	}
}

func (l *Loop) exec(f func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("loop_task_panic", zap.String("panic", fmt.Sprint(r)), zap.Stack("stack"))
		}
	}()
	f()
}

// Call runs f on the loop and waits for it.
func (l *Loop) Call(ctx context.Context, f func()) error {
	done := make(chan struct{})
	if !l.Post(func() { defer close(done); f() }) {
		return context.Canceled
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return context.Canceled
	}
}
