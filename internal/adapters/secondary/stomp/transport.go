package stomp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/arthurdotwork/lobby/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	subprotocol      = "v12.stomp"
	handshakeTimeout = 10 * time.Second
	closeGracePeriod = time.Second
)

var ErrServerError = errors.New("stomp server error")

// Transport dials a STOMP broker over a WebSocket, such as the Spring
// message broker behind the lobby server.
type Transport struct {
	url    string
	header http.Header
	dialer *websocket.Dialer
}

func NewTransport(rawURL string, header http.Header) *Transport {
	return &Transport{
		url:    rawURL,
		header: header,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
			Subprotocols:     []string{subprotocol},
		},
	}
}

func (t *Transport) Dial(ctx context.Context) (domain.Conn, error) {
	u, err := url.Parse(t.url)
	if err != nil {
		return nil, fmt.Errorf("url.Parse: %w", err)
	}

	ws, resp, err := t.dialer.DialContext(ctx, t.url, t.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dialer.DialContext: %w", err)
	}

	c := &Conn{
		ws:            ws,
		subscriptions: make(map[string]string),
	}

	if err := c.handshake(ctx, u.Hostname()); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("handshake: %w", err)
	}

	return c, nil
}

// Conn is one STOMP session. Writes are serialised; Receive must only be
// called from one goroutine.
type Conn struct {
	ws *websocket.Conn

	writeMu sync.Mutex

	mu            sync.Mutex
	subscriptions map[string]string
	pending       []Frame
	closed        bool
}

func (c *Conn) handshake(ctx context.Context, host string) error {
	connect := NewFrame(CommandConnect,
		"accept-version", "1.2",
		"host", host,
		"heart-beat", "0,0",
	)
	if err := c.write(ctx, connect); err != nil {
		return err
	}

	deadline := time.Now().Add(handshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.ws.SetReadDeadline(deadline); err != nil {
		return fmt.Errorf("ws.SetReadDeadline: %w", err)
	}
	defer func() { _ = c.ws.SetReadDeadline(time.Time{}) }()

	f, err := c.next()
	if err != nil {
		return err
	}

	switch f.Command {
	case CommandConnected:
		return nil
	case CommandError:
		return serverError(f)
	default:
		return fmt.Errorf("%w: expected CONNECTED, got %s", ErrInvalidFrame, f.Command)
	}
}

func (c *Conn) Subscribe(ctx context.Context, destination string) error {
	id := uuid.NewString()

	c.mu.Lock()
	c.subscriptions[id] = destination
	c.mu.Unlock()

	return c.write(ctx, NewFrame(CommandSubscribe,
		"id", id,
		"destination", destination,
		"ack", "auto",
	))
}

func (c *Conn) Send(ctx context.Context, destination string, body []byte) error {
	f := NewFrame(CommandSend,
		"destination", destination,
		"content-type", "application/json",
		"content-length", strconv.Itoa(len(body)),
	)
	f.Body = body

	return c.write(ctx, f)
}

// Receive returns the next MESSAGE, tagged with the destination it was
// subscribed under. An ERROR frame ends the session.
func (c *Conn) Receive(ctx context.Context) (domain.Frame, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = c.ws.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		f, err := c.next()
		if errors.Is(err, ErrInvalidFrame) {
			slog.WarnContext(ctx, "dropping unparsable stomp message", "error", err)
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return domain.Frame{}, ctx.Err()
			}

			return domain.Frame{}, err
		}

		switch f.Command {
		case CommandMessage:
			return domain.Frame{Destination: c.destinationOf(f), Body: f.Body}, nil
		case CommandError:
			return domain.Frame{}, serverError(f)
		case CommandReceipt:
			continue
		default:
			slog.DebugContext(ctx, "ignoring stomp frame", "command", f.Command)
		}
	}
}

func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), closeGracePeriod)
	defer cancel()

	_ = c.write(ctx, NewFrame(CommandDisconnect))

	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeGracePeriod))
	c.writeMu.Unlock()

	if err := c.ws.Close(); err != nil {
		return fmt.Errorf("ws.Close: %w", err)
	}

	return nil
}

func (c *Conn) destinationOf(f Frame) string {
	if id, ok := f.Get("subscription"); ok {
		c.mu.Lock()
		destination, known := c.subscriptions[id]
		c.mu.Unlock()

		if known {
			return destination
		}
	}

	destination, _ := f.Get("destination")
	return destination
}

func (c *Conn) next() (Frame, error) {
	for len(c.pending) == 0 {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return Frame{}, fmt.Errorf("ws.ReadMessage: %w", err)
		}

		frames, err := Parse(data)
		if err != nil {
			return Frame{}, fmt.Errorf("Parse: %w", err)
		}

		c.pending = frames
	}

	f := c.pending[0]
	c.pending = c.pending[1:]

	return f, nil
}

func (c *Conn) write(ctx context.Context, f Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, _ := ctx.Deadline()
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("ws.SetWriteDeadline: %w", err)
	}

	if err := c.ws.WriteMessage(websocket.TextMessage, f.Marshal()); err != nil {
		return fmt.Errorf("ws.WriteMessage: %w", err)
	}

	return nil
}

func serverError(f Frame) error {
	message, _ := f.Get("message")
	if message == "" {
		message = string(f.Body)
	}

	return fmt.Errorf("%w: %s", ErrServerError, message)
}
