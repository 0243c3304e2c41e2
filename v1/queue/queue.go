// Package queue provides a bounded FIFO queue for producer/consumer
// pipelines: Put blocks while the queue is full, Get blocks while it is
// empty. It is a condition-variable exercise collaborator of the lock
// toolkit and carries no graph bookkeeping of its own.
package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned once the queue is closed and drained.
var ErrClosed = errors.New("queue: closed")

// Queue is a bounded FIFO safe for concurrent producers and consumers.
type Queue[T any] struct {
	ch        chan T
	done      chan struct{}
	closeOnce sync.Once
}

// New returns a queue holding at most capacity items. Capacity must be at
// least one.
func New[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{
		ch:   make(chan T, capacity),
		done: make(chan struct{}),
	}
}

// Put blocks until there is room, then enqueues item. It returns ErrClosed
// if the queue has been closed.
func (q *Queue[T]) Put(item T) error {
	return q.PutCtx(context.Background(), item)
}

// PutCtx is Put with cancellation.
func (q *Queue[T]) PutCtx(ctx context.Context, item T) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	select {
	case q.ch <- item:
		// a send racing Close may win this select; the item is then drained
		// by consumers like any other, never lost
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get blocks until an item is available and dequeues it. Once the queue is
// closed, Get keeps draining buffered items and returns ErrClosed after the
// last one.
func (q *Queue[T]) Get() (T, error) {
	return q.GetCtx(context.Background())
}

// GetCtx is Get with cancellation.
func (q *Queue[T]) GetCtx(ctx context.Context) (T, error) {
	var zero T
	select {
	case item := <-q.ch:
		return item, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-q.done:
		// drain what producers enqueued before the close
		select {
		case item := <-q.ch:
			return item, nil
		default:
			return zero, ErrClosed
		}
	}
}

// Len returns the number of buffered items.
func (q *Queue[T]) Len() int {
	return len(q.ch)
}

// Close stops all producers; consumers drain the remaining items. Close is
// idempotent.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}
