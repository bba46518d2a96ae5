// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package fanout provides a fixed-size worker pool that executes indexed
// tasks and hands their results back in strictly ascending index order. The
// caller launches tasks (possibly from a separate feeder goroutine) and a
// single consumer drains them with [Pool.Next]; completions that arrive out
// of order are parked in a min-heap until the next expected index shows up.
package fanout

import (
	"cmp"
	"context"
	"sync"

	"github.com/addrummond/heap"
)

type completion[T any] struct {
	index int
	value T
	err   error
}

func (a *completion[T]) Cmp(b *completion[T]) int {
	return cmp.Compare(a.index, b.index)
}

// A Pool runs up to a fixed number of tasks concurrently. Launch may be
// called from a different goroutine than Next, but Next must have a single
// caller, and indices must be launched starting at zero without gaps (tasks
// may still complete in any order).
type Pool[T any] struct {
	ctx    context.Context
	cancel context.CancelFunc
	slots  chan struct{}
	done   chan completion[T]
	wg     sync.WaitGroup

	// Consumer-side state, touched only by Next.
	pending heap.Heap[completion[T], heap.Min]
	next    int
}

// New creates a pool with the given number of worker slots. The pool's
// internal context derives from ctx; canceling ctx stops all workers. Close
// must be called on every exit path to guarantee teardown.
func New[T any](ctx context.Context, workers int) *Pool[T] {
	if workers < 1 {
		panic("fanout: pool must have at least one worker")
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pool[T]{
		ctx:    ctx,
		cancel: cancel,
		slots:  make(chan struct{}, workers),
		done:   make(chan completion[T], workers),
	}
}

// Launch blocks until a worker slot is free, then runs task in its own
// goroutine. It returns a context error when ctx or the pool's context is
// canceled before a slot frees.
func (p *Pool[T]) Launch(ctx context.Context, index int, task func(context.Context) (T, error)) error {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
	// The slot send can win the select against an already-canceled context;
	// recheck so cancellation reliably stops the launch stream.
	if err := p.ctx.Err(); err != nil {
		<-p.slots
		return err
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.slots }()
		if p.ctx.Err() != nil {
			// Don't start work nobody will consume.
			return
		}
		value, err := task(p.ctx)
		select {
		case p.done <- completion[T]{index: index, value: value, err: err}:
		case <-p.ctx.Done():
			// Nobody is consuming anymore; drop the result.
		}
	}()
	return nil
}

// Next returns the result of the task with the lowest index not yet
// delivered, blocking until that task completes. The task's own error is
// passed through; a context error means ctx was canceled while waiting.
func (p *Pool[T]) Next(ctx context.Context) (int, T, error) {
	for {
		if top, ok := heap.Peek(&p.pending); ok && top.index == p.next {
			c, _ := heap.PopOrderable(&p.pending)
			p.next++
			return c.index, c.value, c.err
		}
		select {
		case c := <-p.done:
			heap.PushOrderable(&p.pending, c)
		case <-ctx.Done():
			var zero T
			return 0, zero, ctx.Err()
		}
	}
}

// Close cancels any in-flight tasks and waits for all worker goroutines to
// return. It is safe to call more than once.
func (p *Pool[T]) Close() {
	p.cancel()
	p.wg.Wait()
}
