package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arthurdotwork/lobby/internal/infrastructure/stream"
	"github.com/google/uuid"
)

const defaultOutboxSize = 64

var errOutboxFull = errors.New("outbox full")

// ConnectionHooks are called on the loop, in this order for a connection:
// OnConnected after the state is CONNECTED, OnFrame for each inbound frame,
// OnDisconnected before the state is DISCONNECTED.
type ConnectionHooks struct {
	OnConnected    func(ctx context.Context)
	OnFrame        func(ctx context.Context, frame Frame)
	OnDisconnected func(ctx context.Context)
}

// ConnectionManager owns the transport connection. All methods except
// State and WatchState must be called from the lobby loop.
type ConnectionManager struct {
	transport      Transport
	loop           *Loop
	reconnectDelay time.Duration
	farewell       string
	outboxSize     int
	hooks          ConnectionHooks

	state      *stream.Feed[ConnectionState]
	generation uint64
	link       *link
	dialCancel context.CancelFunc
	reconnect  *time.Timer
	shutdown   bool
}

func NewConnectionManager(transport Transport, loop *Loop, reconnectDelay time.Duration, farewell string, outboxSize int) *ConnectionManager {
	if outboxSize <= 0 {
		outboxSize = defaultOutboxSize
	}

	return &ConnectionManager{
		transport:      transport,
		loop:           loop,
		reconnectDelay: reconnectDelay,
		farewell:       farewell,
		outboxSize:     outboxSize,
		state:          stream.NewFeed(Disconnected),
	}
}

func (m *ConnectionManager) SetHooks(hooks ConnectionHooks) {
	m.hooks = hooks
}

func (m *ConnectionManager) State() ConnectionState {
	return m.state.Load()
}

// WatchState emits the current state and then every transition, none
// skipped, however slowly the watcher reads.
func (m *ConnectionManager) WatchState(ctx context.Context) <-chan ConnectionState {
	return m.state.Watch(ctx)
}

// Generation identifies the current connection attempt. It changes on every
// connect and every teardown.
func (m *ConnectionManager) Generation() uint64 {
	return m.generation
}

// Connect opens the transport unless a connection is already up or being
// established. A scheduled reconnect is replaced by an immediate attempt.
func (m *ConnectionManager) Connect(ctx context.Context) {
	if m.shutdown || m.State() != Disconnected {
		return
	}

	m.cancelReconnect()

	m.generation++
	generation := m.generation

	dialCtx, cancel := context.WithCancel(ctx)
	m.dialCancel = cancel
	m.state.Store(Connecting)

	slog.DebugContext(ctx, "connecting", "generation", generation)

	go func() {
		conn, err := m.transport.Dial(dialCtx)
		if !m.loop.Post(func(ctx context.Context) { m.dialed(ctx, dialCtx, generation, conn, err) }) {
			cancel()
			if conn != nil {
				_ = conn.Close()
			}
		}
	}()
}

// Disconnect tears the connection down without scheduling a reconnect. When
// connected, the farewell frame is written before the transport closes.
func (m *ConnectionManager) Disconnect(ctx context.Context) {
	m.cancelReconnect()

	switch m.State() {
	case Connecting:
		m.generation++
		m.dialCancel()
		m.dialCancel = nil
		m.markDisconnected(ctx)
	case Connected:
		if m.farewell != "" {
			if !m.link.enqueue(outbound{destination: m.farewell, body: emptyBody}) {
				slog.WarnContext(ctx, "dropping farewell", "error", errOutboxFull)
			}
		}

		m.teardown(ctx)
	}

	slog.DebugContext(ctx, "disconnected on request")
}

// Shutdown disconnects for good; later Connect calls are ignored.
func (m *ConnectionManager) Shutdown(ctx context.Context) {
	m.Disconnect(ctx)
	m.shutdown = true
}

// Subscribe queues a subscription on the live connection.
func (m *ConnectionManager) Subscribe(ctx context.Context, destination string) error {
	if m.link == nil {
		return ErrNotConnected
	}

	if !m.link.enqueue(outbound{subscribe: true, destination: destination}) {
		return fmt.Errorf("subscribe %s: %w", destination, errOutboxFull)
	}

	return nil
}

// Send queues a frame on the live connection. Frames are never kept for a
// later connection.
func (m *ConnectionManager) Send(ctx context.Context, destination string, body []byte) error {
	if m.link == nil {
		return ErrNotConnected
	}

	if !m.link.enqueue(outbound{destination: destination, body: body}) {
		return fmt.Errorf("send %s: %w", destination, errOutboxFull)
	}

	return nil
}

func (m *ConnectionManager) dialed(ctx context.Context, linkCtx context.Context, generation uint64, conn Conn, err error) {
	if generation != m.generation {
		if conn != nil {
			go func() { _ = conn.Close() }()
		}

		return
	}

	if err != nil {
		m.dialCancel()
		m.dialCancel = nil

		slog.WarnContext(ctx, "dial failed", "error", err, "generation", generation)

		m.markDisconnected(ctx)
		m.scheduleReconnect(ctx)
		return
	}

	l := &link{
		id:         uuid.New(),
		generation: generation,
		conn:       conn,
		outbox:     make(chan outbound, m.outboxSize),
		cancel:     m.dialCancel,
	}
	m.link = l
	m.dialCancel = nil

	slog.InfoContext(ctx, "connected", "link", l.id, "generation", generation)

	m.state.Store(Connected)
	if m.hooks.OnConnected != nil {
		m.hooks.OnConnected(ctx)
	}

	go l.write(linkCtx)
	go m.read(linkCtx, l)
}

func (m *ConnectionManager) read(ctx context.Context, l *link) {
	for {
		frame, err := l.conn.Receive(ctx)
		if err != nil {
			m.loop.Post(func(ctx context.Context) { m.dropped(ctx, l.generation, err) })
			return
		}

		if !m.loop.Post(func(ctx context.Context) { m.deliver(ctx, l.generation, frame) }) {
			return
		}
	}
}

func (m *ConnectionManager) deliver(ctx context.Context, generation uint64, frame Frame) {
	if m.link == nil || generation != m.generation {
		return
	}

	if m.hooks.OnFrame != nil {
		m.hooks.OnFrame(ctx, frame)
	}
}

func (m *ConnectionManager) dropped(ctx context.Context, generation uint64, err error) {
	if m.link == nil || generation != m.generation {
		return
	}

	slog.WarnContext(ctx, "connection lost", "error", err, "link", m.link.id, "generation", generation)

	m.teardown(ctx)
	m.scheduleReconnect(ctx)
}

func (m *ConnectionManager) teardown(ctx context.Context) {
	l := m.link
	m.link = nil
	m.generation++

	close(l.outbox)

	m.markDisconnected(ctx)
}

func (m *ConnectionManager) markDisconnected(ctx context.Context) {
	if m.hooks.OnDisconnected != nil {
		m.hooks.OnDisconnected(ctx)
	}

	m.state.Store(Disconnected)
}

func (m *ConnectionManager) scheduleReconnect(ctx context.Context) {
	if m.shutdown {
		return
	}

	slog.DebugContext(ctx, "reconnect scheduled", "delay", m.reconnectDelay)

	var timer *time.Timer
	timer = time.AfterFunc(m.reconnectDelay, func() {
		m.loop.Post(func(ctx context.Context) {
			if m.reconnect != timer {
				return
			}

			m.reconnect = nil
			m.Connect(ctx)
		})
	})
	m.reconnect = timer
}

func (m *ConnectionManager) cancelReconnect() {
	if m.reconnect == nil {
		return
	}

	m.reconnect.Stop()
	m.reconnect = nil
}

var emptyBody = []byte("{}")

type outbound struct {
	subscribe   bool
	destination string
	body        []byte
}

// link is one established connection. Its outbox is written and closed by
// the loop only; the writer goroutine drains it and then closes the conn.
type link struct {
	id         uuid.UUID
	generation uint64
	conn       Conn
	outbox     chan outbound
	cancel     context.CancelFunc
}

func (l *link) enqueue(out outbound) bool {
	select {
	case l.outbox <- out:
		return true
	default:
		return false
	}
}

func (l *link) write(ctx context.Context) {
	defer func() {
		l.cancel()
		if err := l.conn.Close(); err != nil {
			slog.DebugContext(ctx, "conn.Close", "error", err, "link", l.id)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case out, ok := <-l.outbox:
			if !ok {
				return
			}

			if err := l.deliver(ctx, out); err != nil {
				slog.WarnContext(ctx, "outbound frame failed", "error", err, "destination", out.destination, "link", l.id)
			}
		}
	}
}

func (l *link) deliver(ctx context.Context, out outbound) error {
	if out.subscribe {
		if err := l.conn.Subscribe(ctx, out.destination); err != nil {
			return fmt.Errorf("conn.Subscribe: %w", err)
		}

		return nil
	}

	if err := l.conn.Send(ctx, out.destination, out.body); err != nil {
		return fmt.Errorf("conn.Send: %w", err)
	}

	return nil
}
