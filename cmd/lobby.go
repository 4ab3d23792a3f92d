package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/arthurdotwork/lobby/internal/adapters/secondary/api"
	"github.com/arthurdotwork/lobby/internal/adapters/secondary/nats"
	"github.com/arthurdotwork/lobby/internal/adapters/secondary/redis"
	"github.com/arthurdotwork/lobby/internal/adapters/secondary/stomp"
	"github.com/arthurdotwork/lobby/internal/domain"
	"github.com/arthurdotwork/lobby/internal/infrastructure/config"
	"github.com/arthurdotwork/lobby/internal/infrastructure/runner"
	"github.com/spf13/cobra"
)

const (
	clientName      = "lobby-client"
	shutdownTimeout = 5 * time.Second
)

// loadConfig reads the environment and applies the command line overrides.
func loadConfig(c *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("config.Load: %w", err)
	}

	transport, err := c.Flags().GetString("transport")
	if err != nil {
		return config.Config{}, fmt.Errorf("flags.GetString: %w", err)
	}

	if transport != "" {
		cfg.Transport = transport
		if err := cfg.Validate(); err != nil {
			return config.Config{}, fmt.Errorf("cfg.Validate: %w", err)
		}
	}

	return cfg, nil
}

// newLobby wires the lobby service for cfg. The returned func releases the
// connections that outlive a single lobby connection.
func newLobby(cfg config.Config, sessions domain.SessionSource) (*domain.LobbyService, func(), error) {
	var transport domain.Transport
	switch cfg.Transport {
	case config.TransportStomp:
		transport = stomp.NewTransport(cfg.StompURL, nil)
	case config.TransportRedis:
		transport = redis.NewTransport(cfg.RedisAddr)
	case config.TransportNATS:
		transport = nats.NewTransport(cfg.NATSURL, clientName, cfg.RequestTimeout)
	default:
		return nil, nil, fmt.Errorf("%w: unknown transport %q", config.ErrInvalidConfig, cfg.Transport)
	}

	apiClient := api.NewClient(cfg.APIURL, &http.Client{Timeout: cfg.RequestTimeout})

	var inviter domain.Inviter = apiClient
	release := func() {}

	if cfg.Invites == config.InvitesNATS {
		nc, err := nats.Connect(cfg.NATSURL, clientName)
		if err != nil {
			return nil, nil, fmt.Errorf("nats.Connect: %w", err)
		}

		inviter = nats.NewInviter(nc, nats.Subjects{
			Invite: nats.Subject(cfg.Destinations.Invite),
			Reply:  nats.Subject(cfg.Destinations.Reply),
		})
		release = nc.Close
	}

	lobby := domain.NewLobbyService(domain.LobbyOptions{
		Transport: transport,
		Sessions:  sessions,
		Inviter:   inviter,
		Directory: apiClient,
		Destinations: domain.Destinations{
			Presence:            cfg.Destinations.Presence,
			Invitations:         cfg.Destinations.Invitations,
			InvitationResponses: cfg.Destinations.InvitationResponses,
			UserConnect:         cfg.Destinations.UserConnect,
			UserDisconnect:      cfg.Destinations.UserDisconnect,
		},
		ReconnectDelay: cfg.ReconnectDelay,
		ReadyTimeout:   cfg.ReadyTimeout,
		RequestTimeout: cfg.RequestTimeout,
	})

	return lobby, release, nil
}

// serve runs the lobby next to fns. As soon as one of them returns, the
// others are cancelled and the lobby is disconnected cleanly before its loop is stopped.
func serve(ctx context.Context, lobby *domain.LobbyService, fns ...func(ctx context.Context) error) error {
	loopCtx, stopLoop := context.WithCancel(context.WithoutCancel(ctx))
	defer stopLoop()

	loopErr := make(chan error, 1)
	go func() {
		loopErr <- lobby.Run(loopCtx)
	}()

	runCtx, stopAll := context.WithCancel(ctx)
	defer stopAll()

	r := runner.New(runCtx)
	for _, fn := range fns {
		fn := fn
		r.Go(func(ctx context.Context) error {
			defer stopAll()
			return fn(ctx)
		})
	}

	err := r.Wait()

	slog.DebugContext(ctx, "initiating lobby shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := lobby.Close(shutdownCtx); err != nil {
		slog.ErrorContext(ctx, "error closing lobby", "error", err)
	}

	stopLoop()
	if err := <-loopErr; err != nil {
		slog.ErrorContext(ctx, "error running lobby", "error", err)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("runner.Wait: %w", err)
	}

	return nil
}
