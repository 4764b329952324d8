// Package dispatch bridges the protocol engine's blocking calls into
// cancellable, future-returning ones for the asynchronous half of the client
// API, bounding how many such calls may run concurrently.
package dispatch

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Future is the result of a call submitted to a Pool. It is resolved exactly
// once, either with a value or with an error.
type Future struct {
	done  chan struct{}
	value any
	err   error
}

// NewFuture returns an unresolved Future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(value any, err error) {
	f.value, f.err = value, err
	close(f.done)
}

// Wait blocks until the future is resolved or ctx is done, whichever comes
// first. Waiting does not cancel the underlying call: once a submitted
// function has started running, it runs to completion regardless of
// whether any caller is still waiting on its Future.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Pool runs submitted functions on background goroutines, admitting at most
// Concurrency of them at once. A function submitted while the pool is full
// queues (ordinary goroutine scheduling) until a slot frees up.
type Pool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// NewPool returns a Pool that admits at most concurrency functions at once.
func NewPool(concurrency int64) *Pool {
	return &Pool{sem: semaphore.NewWeighted(concurrency)}
}

// Submit schedules fn to run in the background and returns its Future
// immediately. If ctx is already done before a slot becomes available, fn
// never starts and the Future resolves with ctx.Err(); once fn has started,
// cancelling ctx no longer has any effect on it (there is no way to abort an
// in-flight network call).
func (p *Pool) Submit(ctx context.Context, fn func(context.Context) (any, error)) *Future {
	future := NewFuture()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := ctx.Err(); err != nil {
			future.resolve(nil, err)
			return
		}
		if err := p.sem.Acquire(ctx, 1); err != nil {
			future.resolve(nil, err)
			return
		}
		defer p.sem.Release(1)
		value, err := fn(ctx)
		future.resolve(value, err)
	}()

	return future
}

// Wait blocks until every function ever submitted to the pool has returned.
// Intended for orderly shutdown.
func (p *Pool) Wait() {
	p.wg.Wait()
}
