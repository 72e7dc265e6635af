package stream

import (
	"context"
	"sync"
)

// Value holds a current value and delivers every change, in order and
// without dropping any, to each subscriber.
type Value[T any] struct {
	mu   sync.Mutex
	cur  T
	subs map[*queue[T]]struct{}
}

// NewValue creates a Value holding initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{cur: initial, subs: make(map[*queue[T]]struct{})}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cur
}

// Set replaces the current value and publishes it.
func (v *Value[T]) Set(x T) {
	v.Update(func(T) T { return x })
}

// Update atomically applies fn to the current value, publishes and returns the result.
func (v *Value[T]) Update(fn func(T) T) T {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cur = fn(v.cur)
	for q := range v.subs {
		q.push(v.cur)
	}
	return v.cur
}

// Subscribe returns a channel that first receives the current value and then
// every subsequent value. The channel closes when ctx is done.
func (v *Value[T]) Subscribe(ctx context.Context) <-chan T {
	q := &queue[T]{wake: make(chan struct{}, 1)}

	v.mu.Lock()
	q.push(v.cur)
	v.subs[q] = struct{}{}
	v.mu.Unlock()

	out := make(chan T)
	go func() {
		defer close(out)
		defer func() {
			v.mu.Lock()
			delete(v.subs, q)
			v.mu.Unlock()
		}()

		for {
			batch := q.drain()
			if len(batch) == 0 {
				select {
				case <-q.wake:
					continue
				case <-ctx.Done():
					return
				}
			}
			for _, x := range batch {
				select {
				case out <- x:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// queue is an unbounded per-subscriber buffer.
type queue[T any] struct {
	mu    sync.Mutex
	items []T
	wake  chan struct{}
}

func (q *queue[T]) push(x T) {
	q.mu.Lock()
	q.items = append(q.items, x)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *queue[T]) drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}
