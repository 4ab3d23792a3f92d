package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Destinations are the logical channel names shared with the lobby server.
// Per-user destinations carry a single %d verb for the user id.
type Destinations struct {
	Presence            string
	Invitations         string
	InvitationResponses string
	UserConnect         string
	UserDisconnect      string
}

func (d Destinations) forUser(pattern string, userID int64) string {
	if pattern == "" {
		return ""
	}

	return fmt.Sprintf(pattern, userID)
}

type frameHandler func(ctx context.Context, body []byte) error

// ChannelSubscriber subscribes the live connection to the presence channel
// and the session user's invitation channels, and routes inbound frames to
// the stores. It is driven from the lobby loop only.
type ChannelSubscriber struct {
	manager        *ConnectionManager
	presence       *PresenceStore
	invitations    *InvitationStore
	watchdog       *Watchdog
	directory      Directory
	loop           *Loop
	destinations   Destinations
	requestTimeout time.Duration

	session            Session
	routes             map[string]frameHandler
	pending            map[string]frameHandler
	subscribedUser     int64
	snapshotGeneration uint64
}

func NewChannelSubscriber(
	manager *ConnectionManager,
	presence *PresenceStore,
	invitations *InvitationStore,
	watchdog *Watchdog,
	directory Directory,
	loop *Loop,
	destinations Destinations,
	requestTimeout time.Duration,
) *ChannelSubscriber {
	return &ChannelSubscriber{
		manager:        manager,
		presence:       presence,
		invitations:    invitations,
		watchdog:       watchdog,
		directory:      directory,
		loop:           loop,
		destinations:   destinations,
		requestTimeout: requestTimeout,
		routes:         make(map[string]frameHandler),
		pending:        make(map[string]frameHandler),
	}
}

func (s *ChannelSubscriber) OnConnected(ctx context.Context) {
	s.reset()

	s.subscribe(ctx, s.destinations.Presence, s.handlePresence)
	if s.session.Present() {
		s.subscribeUser(ctx)
	}

	s.bootstrap(ctx)
}

func (s *ChannelSubscriber) OnDisconnected(ctx context.Context) {
	s.reset()
}

func (s *ChannelSubscriber) reset() {
	s.routes = make(map[string]frameHandler)
	s.pending = make(map[string]frameHandler)
	s.subscribedUser = 0
}

func (s *ChannelSubscriber) SessionChanged(ctx context.Context, session Session) {
	s.session = session
	s.retryPending(ctx)

	// A different user on the same connection is handled by the reconnect
	// the dispatcher issues for a session switch.
	if !session.Present() || s.manager.State() != Connected || s.subscribedUser != 0 {
		return
	}

	s.subscribeUser(ctx)
}

// HandleFrame routes one inbound frame. A frame that fails to decode or
// validate is logged and dropped.
func (s *ChannelSubscriber) HandleFrame(ctx context.Context, frame Frame) {
	s.retryPending(ctx)

	handler, ok := s.routes[frame.Destination]
	if !ok {
		slog.DebugContext(ctx, "frame on unknown destination", "destination", frame.Destination)
		return
	}

	if err := handler(ctx, frame.Body); err != nil {
		slog.WarnContext(ctx, "dropping frame", "error", err, "destination", frame.Destination)
	}
}

func (s *ChannelSubscriber) subscribeUser(ctx context.Context) {
	s.subscribedUser = s.session.UserID

	s.subscribe(ctx, s.destinations.forUser(s.destinations.Invitations, s.session.UserID), s.handleInvitation)
	s.subscribe(ctx, s.destinations.forUser(s.destinations.InvitationResponses, s.session.UserID), s.handleInvitation)
}

func (s *ChannelSubscriber) subscribe(ctx context.Context, destination string, handler frameHandler) {
	if destination == "" {
		return
	}

	if _, ok := s.routes[destination]; ok {
		return
	}

	if err := s.manager.Subscribe(ctx, destination); err != nil {
		if _, retrying := s.pending[destination]; !retrying {
			slog.WarnContext(ctx, "subscribe failed, will retry", "error", err, "destination", destination)
		}

		s.pending[destination] = handler
		return
	}

	delete(s.pending, destination)
	s.routes[destination] = handler
	slog.DebugContext(ctx, "subscribed", "destination", destination)
}

// retryPending subscribes again to the destinations whose subscription
// could not be queued, as long as the connection is up.
func (s *ChannelSubscriber) retryPending(ctx context.Context) {
	if len(s.pending) == 0 || s.manager.State() != Connected {
		return
	}

	for destination, handler := range s.pending {
		s.subscribe(ctx, destination, handler)
	}
}

func (s *ChannelSubscriber) handlePresence(ctx context.Context, body []byte) error {
	users, err := decodePresence(body)
	if err != nil {
		return fmt.Errorf("decodePresence: %w", err)
	}

	s.snapshotGeneration = s.manager.Generation()
	s.applyPresence(ctx, users)
	return nil
}

func (s *ChannelSubscriber) handleInvitation(ctx context.Context, body []byte) error {
	inv, err := decodeInvitation(body)
	if err != nil {
		return fmt.Errorf("decodeInvitation: %w", err)
	}

	s.invitations.ApplyUpdate(inv)
	return nil
}

func (s *ChannelSubscriber) applyPresence(ctx context.Context, users []User) {
	s.presence.ApplySnapshot(users)
	s.watchdog.Loaded(ctx)
}

// bootstrap fetches the online list out of band so the view fills even if
// the server only broadcasts on change. A presence frame received on the
// same connection wins over the fetched list.
func (s *ChannelSubscriber) bootstrap(ctx context.Context) {
	if s.directory == nil {
		return
	}

	generation := s.manager.Generation()

	go func() {
		reqCtx, cancel := context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()

		users, err := s.directory.ListOnline(reqCtx)

		s.loop.Post(func(ctx context.Context) {
			if generation != s.manager.Generation() || s.snapshotGeneration == generation {
				return
			}

			if err != nil {
				slog.WarnContext(ctx, "listing online users failed", "error", err)
				return
			}

			s.snapshotGeneration = generation
			s.applyPresence(ctx, users)
		})
	}()
}

func decodePresence(body []byte) ([]User, error) {
	var users []User
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}

	if users == nil {
		return nil, fmt.Errorf("%w: presence snapshot is null", ErrMalformedFrame)
	}

	for _, u := range users {
		if err := u.Validate(); err != nil {
			return nil, fmt.Errorf("user.Validate: %w", err)
		}
	}

	return users, nil
}

func decodeInvitation(body []byte) (Invitation, error) {
	var inv Invitation
	if err := json.Unmarshal(body, &inv); err != nil {
		return Invitation{}, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}

	if err := inv.Validate(); err != nil {
		return Invitation{}, fmt.Errorf("invitation.Validate: %w", err)
	}

	return inv, nil
}
