package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	TransportStomp = "stomp"
	TransportRedis = "redis"
	TransportNATS  = "nats"

	InvitesHTTP = "http"
	InvitesNATS = "nats"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Transport string `env:"LOBBY_TRANSPORT" envDefault:"stomp"`
	StompURL  string `env:"LOBBY_STOMP_URL" envDefault:"ws://localhost:8080/ws/websocket"`
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	NATSURL   string `env:"NATS_URL" envDefault:"nats://localhost:4222"`

	Invites string `env:"LOBBY_INVITES" envDefault:"http"`
	APIURL  string `env:"LOBBY_API_URL" envDefault:"http://localhost:8080/api"`

	ReconnectDelay time.Duration `env:"LOBBY_RECONNECT_DELAY" envDefault:"5s"`
	ReadyTimeout   time.Duration `env:"LOBBY_READY_TIMEOUT" envDefault:"5s"`
	RequestTimeout time.Duration `env:"LOBBY_REQUEST_TIMEOUT" envDefault:"10s"`

	Destinations Destinations `envPrefix:"LOBBY_DEST_"`
}

// Destinations are the logical channel names shared with the lobby server.
// Per-user destinations carry a single %d verb for the user id.
type Destinations struct {
	Presence            string `env:"PRESENCE" envDefault:"/topic/users.online"`
	Invitations         string `env:"INVITATIONS" envDefault:"/user/%d/queue/invitations"`
	InvitationResponses string `env:"INVITATION_RESPONSES" envDefault:"/user/%d/queue/invitation-responses"`
	UserConnect         string `env:"USER_CONNECT" envDefault:"/app/user.connect"`
	UserDisconnect      string `env:"USER_DISCONNECT" envDefault:"/app/user.disconnect"`
	Invite              string `env:"INVITE" envDefault:"/app/invite"`
	Reply               string `env:"REPLY" envDefault:"/app/invitation.reply"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("env.Parse: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("cfg.Validate: %w", err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Transport {
	case TransportStomp, TransportRedis, TransportNATS:
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalidConfig, c.Transport)
	}

	switch c.Invites {
	case InvitesHTTP, InvitesNATS:
	default:
		return fmt.Errorf("%w: unknown invites backend %q", ErrInvalidConfig, c.Invites)
	}

	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("%w: reconnect delay must be positive", ErrInvalidConfig)
	}

	if c.ReadyTimeout <= 0 {
		return fmt.Errorf("%w: ready timeout must be positive", ErrInvalidConfig)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request timeout must be positive", ErrInvalidConfig)
	}

	if c.Destinations.Presence == "" {
		return fmt.Errorf("%w: presence destination is required", ErrInvalidConfig)
	}

	return nil
}
