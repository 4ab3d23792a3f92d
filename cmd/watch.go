package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arthurdotwork/lobby/internal/adapters/primary/session"
	"github.com/arthurdotwork/lobby/internal/infrastructure/log"
	"github.com/spf13/cobra"
)

// Watch logs in as the user given by --user and logs every change of the
// lobby view until it is interrupted.
func Watch(ctx context.Context, c *cobra.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("loadConfig: %w", err)
	}

	if err := log.Config(ctx, cfg.LogLevel); err != nil {
		return fmt.Errorf("log.Config: %w", err)
	}

	userID, err := c.Flags().GetInt64("user")
	if err != nil {
		return fmt.Errorf("flags.GetInt64: %w", err)
	}

	holder := session.NewHolder()

	lobby, release, err := newLobby(cfg, holder)
	if err != nil {
		return fmt.Errorf("newLobby: %w", err)
	}
	defer release()

	if userID > 0 {
		holder.Login(userID)
	}

	return serve(ctx, lobby,
		func(ctx context.Context) error {
			for state := range lobby.WatchConnectionState(ctx) {
				slog.InfoContext(ctx, "connection state changed", "state", state.String())
			}
			return nil
		},
		func(ctx context.Context) error {
			for users := range lobby.WatchOthersOnline(ctx) {
				slog.InfoContext(ctx, "online users changed", "count", len(users))
			}
			return nil
		},
		func(ctx context.Context) error {
			for invitations := range lobby.WatchPendingForMe(ctx) {
				slog.InfoContext(ctx, "pending invitations changed", "count", len(invitations))
			}
			return nil
		},
		func(ctx context.Context) error {
			if err := lobby.WaitReady(ctx); err != nil {
				return nil
			}

			slog.InfoContext(ctx, "lobby ready", "online", len(lobby.OthersOnline()))
			<-ctx.Done()
			return nil
		},
	)
}
