package pysbridge

import (
	"context"
	"sync"
)

// Promise is a one-shot readiness signal. It starts unresolved and can be
// resolved exactly once; resolving again is a no-op and a resolved promise
// never becomes unresolved. Every goroutine blocked in Wait is released when
// Resolve runs.
type Promise struct {
	once sync.Once
	done chan struct{}
}

func NewPromise() *Promise {
	return &Promise{done: make(chan struct{})}
}

// Resolve marks the promise resolved. Idempotent.
func (p *Promise) Resolve() {
	p.once.Do(func() { close(p.done) })
}

// Resolved reports whether Resolve has run.
func (p *Promise) Resolved() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Done returns a channel that is closed on resolution, for use in select
// statements.
func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the promise resolves or ctx is cancelled. A promise that
// is already resolved returns nil regardless of ctx. With a background
// context the wait is indefinite.
func (p *Promise) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	default:
	}
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
