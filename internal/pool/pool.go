// Package pool provides a bounded worker pool shared by the pipeline
// stages. All blocking collaborator work (paper searches, LLM calls)
// runs on the pool so a single job cannot spawn unbounded goroutines.
package pool

import (
	"context"
	"sync"
)

// Pool limits the number of concurrently running tasks. The zero value
// is not usable; use New.
type Pool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

// New creates a pool that runs at most size tasks concurrently.
// A size below 1 is treated as 1.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Submit schedules fn on the pool and returns a channel that is closed
// when fn has finished. Submit blocks until a worker slot is free; if
// ctx is done first, fn is never started and ctx.Err() is returned.
//
// fn itself is responsible for honoring cancellation. A caller that
// stops waiting on the returned channel simply abandons the result;
// the task runs to completion and releases its slot.
func (p *Pool) Submit(ctx context.Context, fn func()) (<-chan struct{}, error) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	done := make(chan struct{})
	p.wg.Add(1)
	go func() {
		defer func() {
			<-p.sem
			p.wg.Done()
			close(done)
		}()
		fn()
	}()
	return done, nil
}

// Wait blocks until all submitted tasks have finished. Intended for
// shutdown paths and tests.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Size returns the maximum number of concurrent tasks.
func (p *Pool) Size() int {
	return cap(p.sem)
}
