package stream

import (
	"context"
	"sync"
)

// Value holds the last published value of T and fans every change out to
// its watchers. Watchers only ever see the most recent value: a slow reader
// skips intermediate values instead of blocking the publisher.
type Value[T any] struct {
	mu      sync.Mutex
	current T
	next    int
	subs    map[int]chan T
}

func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{
		current: initial,
		subs:    make(map[int]chan T),
	}
}

// Load returns the last stored value.
func (v *Value[T]) Load() T {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.current
}

func (v *Value[T]) Store(val T) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.current = val
	for _, ch := range v.subs {
		offer(ch, val)
	}
}

// Watch emits the current value immediately and then every later one until
// ctx is done, at which point the channel is closed.
func (v *Value[T]) Watch(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	v.mu.Lock()
	id := v.next
	v.next++
	v.subs[id] = ch
	ch <- v.current
	v.mu.Unlock()

	go func() {
		<-ctx.Done()

		v.mu.Lock()
		defer v.mu.Unlock()

		delete(v.subs, id)
		close(ch)
	}()

	return ch
}

func offer[T any](ch chan T, val T) {
	select {
	case <-ch:
	default:
	}

	select {
	case ch <- val:
	default:
	}
}
