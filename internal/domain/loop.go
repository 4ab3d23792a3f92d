package domain

import "context"

type Task func(ctx context.Context)

// Loop runs tasks one at a time on a single goroutine. Every mutation of
// lobby state happens inside a task, so components reached only from tasks
// need no locking of their own.
type Loop struct {
	tasks chan Task
	done  chan struct{}
}

func NewLoop(size int) *Loop {
	return &Loop{
		tasks: make(chan Task, size),
		done:  make(chan struct{}),
	}
}

// Post queues task and reports whether the loop accepted it. It never
// blocks once the loop has stopped.
func (l *Loop) Post(task Task) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.tasks <- task:
		return true
	case <-l.done:
		return false
	}
}

// Do queues task and waits until it ran.
func (l *Loop) Do(ctx context.Context, task Task) error {
	ran := make(chan struct{})

	if !l.Post(func(ctx context.Context) {
		defer close(ran)
		task(ctx)
	}) {
		return ErrLoopStopped
	}

	select {
	case <-ran:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopStopped
	}
}

// Run executes queued tasks until ctx is done. It must be called once.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)

	for {
		select {
		case <-ctx.Done():
			return nil
		case task := <-l.tasks:
			task(ctx)
		}
	}
}
