package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	*redis.Client
}

func NewClient(addr string) *Client {
	return &Client{Client: redis.NewClient(&redis.Options{
		Addr: addr,
		// A failed dial is reported to the caller, which owns the retry policy.
		MaxRetries: -1,
	})}
}

type Message = redis.Message

var ErrFailedToReceiveMessage = errors.New("failed to receive message")

type PubSub struct {
	*redis.PubSub
}

// Open checks the server is reachable and returns a pub/sub session with no
// channel subscribed yet.
func (c *Client) Open(ctx context.Context) (*PubSub, error) {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("client.Ping: %w", err)
	}

	return &PubSub{PubSub: c.Client.Subscribe(ctx)}, nil
}

// Next blocks until a message arrives on a subscribed channel. Subscription
// confirmations and pongs are skipped.
func (p *PubSub) Next(ctx context.Context) (*Message, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
			msg, err := p.PubSub.Receive(ctx)
			if err != nil {
				return nil, fmt.Errorf("pubsub.Receive: %w: %w", ErrFailedToReceiveMessage, err)
			}

			if m, ok := msg.(*Message); ok {
				return m, nil
			}
		}
	}
}

func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := c.Client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("client.Publish: %w", err)
	}

	return nil
}
