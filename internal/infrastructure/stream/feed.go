package stream

import (
	"context"
	"sync"
)

// Feed is like Value but every watcher receives every stored value, in
// order. Each watcher has its own unbounded queue, so a slow reader delays
// only itself.
type Feed[T any] struct {
	mu      sync.Mutex
	current T
	next    int
	subs    map[int]*queue[T]
}

func NewFeed[T any](initial T) *Feed[T] {
	return &Feed[T]{
		current: initial,
		subs:    make(map[int]*queue[T]),
	}
}

func (f *Feed[T]) Load() T {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.current
}

func (f *Feed[T]) Store(val T) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.current = val
	for _, q := range f.subs {
		q.push(val)
	}
}

// Watch emits the current value and then every later one until ctx is done,
// at which point the channel is closed.
func (f *Feed[T]) Watch(ctx context.Context) <-chan T {
	out := make(chan T)
	q := &queue[T]{wake: make(chan struct{}, 1)}

	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = q
	q.push(f.current)
	f.mu.Unlock()

	go func() {
		defer close(out)
		defer func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		}()

		for {
			val, ok := q.pop()
			if !ok {
				select {
				case <-q.wake:
					continue
				case <-ctx.Done():
					return
				}
			}

			select {
			case out <- val:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

type queue[T any] struct {
	mu    sync.Mutex
	items []T
	wake  chan struct{}
}

func (q *queue[T]) push(val T) {
	q.mu.Lock()
	q.items = append(q.items, val)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *queue[T]) pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}

	val := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]

	return val, true
}
