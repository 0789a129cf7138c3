// Package rworker runs jobs on goroutines with a bound on how many run at once.
package rworker

import (
	"context"
	"sync"
)

type Pool struct {
	wg    sync.WaitGroup
	slots chan struct{}
	errCh chan<- error
}

// New returns a pool running at most size jobs at once. Job errors are sent
// to errCh without blocking; errors that do not fit are dropped.
func New(size int, errCh chan<- error) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{slots: make(chan struct{}, size), errCh: errCh}
}

// Go runs fn once a slot is free. A job still waiting for a slot when ctx is
// done is dropped and reports ctx.Err().
func (p *Pool) Go(ctx context.Context, fn func(context.Context) error) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		select {
		case p.slots <- struct{}{}:
		case <-ctx.Done():
			p.report(ctx.Err())
			return
		}
		defer func() { <-p.slots }()
		if err := fn(ctx); err != nil {
			p.report(err)
		}
	}()
}

// Wait blocks until every started job returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) report(err error) {
	if p.errCh == nil {
		return
	}
	select {
	case p.errCh <- err:
	default:
	}
}
