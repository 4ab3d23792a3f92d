package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/arthurdotwork/lobby/internal/domain"
	"github.com/arthurdotwork/lobby/internal/infrastructure/redis"
)

// Transport carries lobby channels over Redis pub/sub: destinations are
// used verbatim as channel names.
type Transport struct {
	addr string
}

func NewTransport(addr string) *Transport {
	return &Transport{addr: addr}
}

func (t *Transport) Dial(ctx context.Context) (domain.Conn, error) {
	client := redis.NewClient(t.addr)

	pubsub, err := client.Open(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("client.Open: %w", err)
	}

	return &Conn{client: client, pubsub: pubsub}, nil
}

type Conn struct {
	client *redis.Client
	pubsub *redis.PubSub
}

func (c *Conn) Subscribe(ctx context.Context, destination string) error {
	if err := c.pubsub.Subscribe(ctx, destination); err != nil {
		return fmt.Errorf("pubsub.Subscribe: %w", err)
	}

	return nil
}

func (c *Conn) Send(ctx context.Context, destination string, body []byte) error {
	if err := c.client.Publish(ctx, destination, body); err != nil {
		return fmt.Errorf("client.Publish: %w", err)
	}

	return nil
}

func (c *Conn) Receive(ctx context.Context) (domain.Frame, error) {
	msg, err := c.pubsub.Next(ctx)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("pubsub.Next: %w", err)
	}

	return domain.Frame{Destination: msg.Channel, Body: []byte(msg.Payload)}, nil
}

func (c *Conn) Close() error {
	return errors.Join(c.pubsub.Close(), c.client.Close())
}
