package domain_test

import (
	"context"
	"testing"

	"github.com/arthurdotwork/lobby/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestLoop(t *testing.T) {
	t.Parallel()

	t.Run("it should run tasks in order", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		loop := domain.NewLoop(8)
		go func() { _ = loop.Run(ctx) }()

		var order []int
		for i := 0; i < 5; i++ {
			i := i
			require.True(t, loop.Post(func(ctx context.Context) { order = append(order, i) }))
		}

		require.NoError(t, loop.Do(ctx, func(ctx context.Context) {}))
		require.Equal(t, []int{0, 1, 2, 3, 4}, order)
	})

	t.Run("it should refuse tasks once stopped", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		loop := domain.NewLoop(8)
		stopped := make(chan struct{})
		go func() {
			_ = loop.Run(ctx)
			close(stopped)
		}()

		cancel()
		<-stopped

		require.False(t, loop.Post(func(ctx context.Context) {}))
		require.ErrorIs(t, loop.Do(context.Background(), func(ctx context.Context) {}), domain.ErrLoopStopped)
	})
}
