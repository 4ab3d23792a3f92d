package nats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/arthurdotwork/lobby/internal/domain"
	"github.com/nats-io/nats.go"
)

const inboxSize = 256

var ErrConnectionClosed = errors.New("nats connection closed")

// Subject maps a slash separated destination onto a NATS subject, e.g.
// /user/5/queue/invitations becomes user.5.queue.invitations.
func Subject(destination string) string {
	return strings.ReplaceAll(strings.Trim(destination, "/"), "/", ".")
}

// Connect opens a long-lived connection for request/reply traffic. Unlike
// Transport it lets the client reconnect on its own.
func Connect(url string, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name(name), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("nats.Connect: %w", err)
	}

	return nc, nil
}

// Transport connects to NATS with the client's own reconnection disabled:
// reconnecting is the connection manager's job.
type Transport struct {
	url         string
	name        string
	dialTimeout time.Duration
}

func NewTransport(url string, name string, dialTimeout time.Duration) *Transport {
	return &Transport{url: url, name: name, dialTimeout: dialTimeout}
}

func (t *Transport) Dial(ctx context.Context) (domain.Conn, error) {
	c := &Conn{
		inbox:        make(chan *nats.Msg, inboxSize),
		closed:       make(chan struct{}),
		destinations: make(map[string]string),
	}

	timeout := t.dialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}

	nc, err := nats.Connect(t.url,
		nats.Name(t.name),
		nats.NoReconnect(),
		nats.Timeout(timeout),
		nats.ClosedHandler(func(*nats.Conn) { c.markClosed() }),
	)
	if err != nil {
		return nil, fmt.Errorf("nats.Connect: %w", err)
	}

	c.nc = nc
	return c, nil
}

type Conn struct {
	nc     *nats.Conn
	inbox  chan *nats.Msg
	closed chan struct{}
	once   sync.Once

	mu           sync.Mutex
	destinations map[string]string
}

func (c *Conn) Subscribe(ctx context.Context, destination string) error {
	subject := Subject(destination)

	c.mu.Lock()
	c.destinations[subject] = destination
	c.mu.Unlock()

	if _, err := c.nc.ChanSubscribe(subject, c.inbox); err != nil {
		return fmt.Errorf("nc.ChanSubscribe: %w", err)
	}

	return nil
}

func (c *Conn) Send(ctx context.Context, destination string, body []byte) error {
	if err := c.nc.Publish(Subject(destination), body); err != nil {
		return fmt.Errorf("nc.Publish: %w", err)
	}

	return nil
}

func (c *Conn) Receive(ctx context.Context) (domain.Frame, error) {
	select {
	case msg := <-c.inbox:
		c.mu.Lock()
		destination, ok := c.destinations[msg.Subject]
		c.mu.Unlock()

		if !ok {
			destination = msg.Subject
		}

		return domain.Frame{Destination: destination, Body: msg.Data}, nil
	case <-c.closed:
		return domain.Frame{}, ErrConnectionClosed
	case <-ctx.Done():
		return domain.Frame{}, ctx.Err()
	}
}

func (c *Conn) Close() error {
	c.nc.Close()
	c.markClosed()

	return nil
}

func (c *Conn) markClosed() {
	c.once.Do(func() { close(c.closed) })
}
