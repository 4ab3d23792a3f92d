package domain

import (
	"context"
	"log/slog"
	"time"

	"github.com/arthurdotwork/lobby/internal/infrastructure/stream"
)

// Watchdog flips readiness to true on the first presence snapshot, or when
// the timeout elapses first. Readiness never goes back to false. Begin and
// Loaded must be called from the lobby loop.
type Watchdog struct {
	loop    *Loop
	timeout time.Duration

	ready *stream.Value[bool]
	timer *time.Timer
}

func NewWatchdog(loop *Loop, timeout time.Duration) *Watchdog {
	return &Watchdog{
		loop:    loop,
		timeout: timeout,
		ready:   stream.NewValue(false),
	}
}

func (w *Watchdog) Ready() bool {
	return w.ready.Load()
}

func (w *Watchdog) WatchReady(ctx context.Context) <-chan bool {
	return w.ready.Watch(ctx)
}

// Begin arms the timer the first time a consumer starts waiting.
func (w *Watchdog) Begin(ctx context.Context) {
	if w.timer != nil || w.ready.Load() {
		return
	}

	w.timer = time.AfterFunc(w.timeout, func() {
		w.loop.Post(w.expire)
	})
}

func (w *Watchdog) Loaded(ctx context.Context) {
	if w.ready.Load() {
		return
	}

	if w.timer != nil {
		w.timer.Stop()
	}

	w.ready.Store(true)
}

func (w *Watchdog) expire(ctx context.Context) {
	if w.ready.Load() {
		return
	}

	slog.InfoContext(ctx, "no presence snapshot before timeout, marking view ready", "timeout", w.timeout)
	w.ready.Store(true)
}
