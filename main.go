package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/arthurdotwork/lobby/cmd"
	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sig
		slog.DebugContext(ctx, "received signal, initiating shutdown")
		cancel()
	}()

	root := &cobra.Command{
		Use:          "lobby",
		Short:        "Realtime lobby client",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("transport", "", "override LOBBY_TRANSPORT (stomp, redis or nats)")

	root.AddCommand(&cobra.Command{
		Use:   "client",
		Short: "Interactive lobby session",
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.Client(c.Context(), c)
		},
	})

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Log lobby changes for a user",
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.Watch(c.Context(), c)
		},
	}
	watch.Flags().Int64("user", 0, "user id to log in as")
	root.AddCommand(watch)

	if err := root.ExecuteContext(ctx); err != nil {
		slog.ErrorContext(ctx, "error running lobby", "error", err)
		os.Exit(1)
	}
}
