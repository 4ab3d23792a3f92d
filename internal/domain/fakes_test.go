package domain_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/arthurdotwork/lobby/internal/adapters/primary/session"
	"github.com/arthurdotwork/lobby/internal/domain"
	"github.com/arthurdotwork/lobby/internal/domain/mocks"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

var (
	errDial   = errors.New("connection refused")
	errClosed = errors.New("connection closed")
)

var destinations = domain.Destinations{
	Presence:            "/topic/users.online",
	Invitations:         "/user/%d/queue/invitations",
	InvitationResponses: "/user/%d/queue/invitation-responses",
	UserConnect:         "/app/user.connect",
	UserDisconnect:      "/app/user.disconnect",
}

type sentFrame struct {
	destination string
	body        []byte
}

type fakeConn struct {
	mu            sync.Mutex
	subscriptions []string
	sent          []sentFrame

	inbound   chan domain.Frame
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan domain.Frame, 16),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) Subscribe(ctx context.Context, destination string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.subscriptions = append(c.subscriptions, destination)
	return nil
}

func (c *fakeConn) Send(ctx context.Context, destination string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sent = append(c.sent, sentFrame{destination: destination, body: body})
	return nil
}

func (c *fakeConn) Receive(ctx context.Context) (domain.Frame, error) {
	select {
	case f := <-c.inbound:
		return f, nil
	case <-c.closed:
		return domain.Frame{}, errClosed
	case <-ctx.Done():
		return domain.Frame{}, ctx.Err()
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// drop simulates the server going away.
func (c *fakeConn) drop() {
	_ = c.Close()
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) push(t *testing.T, destination string, payload any) {
	t.Helper()

	body, ok := payload.([]byte)
	if !ok {
		var err error
		body, err = json.Marshal(payload)
		require.NoError(t, err)
	}

	c.inbound <- domain.Frame{Destination: destination, Body: body}
}

func (c *fakeConn) sentTo(destination string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, f := range c.sent {
		if f.destination == destination {
			n++
		}
	}

	return n
}

func (c *fakeConn) subscribed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.subscriptions...)
}

type fakeTransport struct {
	mu      sync.Mutex
	failing bool
	gate    chan struct{}
	dials   int
	conns   []*fakeConn
}

func (t *fakeTransport) Dial(ctx context.Context) (domain.Conn, error) {
	t.mu.Lock()
	t.dials++
	gate, failing := t.gate, t.failing
	t.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if failing {
		return nil, errDial
	}

	conn := newFakeConn()

	t.mu.Lock()
	t.conns = append(t.conns, conn)
	t.mu.Unlock()

	return conn, nil
}

func (t *fakeTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.dials
}

func (t *fakeTransport) connCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.conns)
}

func (t *fakeTransport) last() *fakeConn {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.conns) == 0 {
		return nil
	}

	return t.conns[len(t.conns)-1]
}

type fixture struct {
	lobby     *domain.LobbyService
	transport *fakeTransport
	sessions  *session.Holder
	inviter   *mocks.MockInviter
}

func newFixture(t *testing.T, transport *fakeTransport, configure ...func(*domain.LobbyOptions)) *fixture {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	sessions := session.NewHolder()
	inviter := mocks.NewMockInviter(t)

	opts := domain.LobbyOptions{
		Transport:      transport,
		Sessions:       sessions,
		Inviter:        inviter,
		Destinations:   destinations,
		ReconnectDelay: time.Hour,
		ReadyTimeout:   time.Hour,
		RequestTimeout: time.Second,
	}
	for _, c := range configure {
		c(&opts)
	}

	lobby := domain.NewLobbyService(opts)
	go func() {
		_ = lobby.Run(ctx)
	}()

	return &fixture{
		lobby:     lobby,
		transport: transport,
		sessions:  sessions,
		inviter:   inviter,
	}
}

// connected waits until the lobby reached CONNECTED on a new connection and
// returns that connection.
func (f *fixture) connected(t *testing.T, conns int) *fakeConn {
	t.Helper()

	require.Eventually(t, func() bool {
		return f.transport.connCount() == conns && f.lobby.ConnectionState() == domain.Connected
	}, waitFor, tick)

	return f.transport.last()
}

func user(id int64, name string) domain.User {
	return domain.User{ID: id, Username: name, Online: true}
}

func ids(users []domain.User) []int64 {
	out := make([]int64, 0, len(users))
	for _, u := range users {
		out = append(out, u.ID)
	}

	return out
}
