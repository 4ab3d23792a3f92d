package domain

import (
	"context"
	"fmt"
	"time"
)

const loopSize = 256

type LobbyOptions struct {
	Transport Transport
	Sessions  SessionSource
	Inviter   Inviter
	// Directory is optional; when set, the online list is fetched on every
	// connect.
	Directory    Directory
	Destinations Destinations

	ReconnectDelay time.Duration
	ReadyTimeout   time.Duration
	RequestTimeout time.Duration
	// OutboxSize bounds the frames queued for one connection. Zero means 64.
	OutboxSize int
}

// LobbyService keeps the local view of who is online and which invitations
// are pending for the session user, fed by the lobby server connection.
type LobbyService struct {
	loop        *Loop
	sessions    SessionSource
	manager     *ConnectionManager
	subscriber  *ChannelSubscriber
	presence    *PresenceStore
	invitations *InvitationStore
	dispatcher  *Dispatcher
	watchdog    *Watchdog

	session Session
}

func NewLobbyService(opts LobbyOptions) *LobbyService {
	loop := NewLoop(loopSize)
	presence := NewPresenceStore()
	invitations := NewInvitationStore()
	watchdog := NewWatchdog(loop, opts.ReadyTimeout)
	manager := NewConnectionManager(opts.Transport, loop, opts.ReconnectDelay, opts.Destinations.UserDisconnect, opts.OutboxSize)
	subscriber := NewChannelSubscriber(manager, presence, invitations, watchdog, opts.Directory, loop, opts.Destinations, opts.RequestTimeout)
	dispatcher := NewDispatcher(manager, opts.Inviter, opts.Destinations.UserConnect, opts.RequestTimeout)

	s := &LobbyService{
		loop:        loop,
		sessions:    opts.Sessions,
		manager:     manager,
		subscriber:  subscriber,
		presence:    presence,
		invitations: invitations,
		dispatcher:  dispatcher,
		watchdog:    watchdog,
	}

	manager.SetHooks(ConnectionHooks{
		OnConnected: func(ctx context.Context) {
			subscriber.OnConnected(ctx)
			dispatcher.OnConnected(ctx)
		},
		OnFrame: subscriber.HandleFrame,
		OnDisconnected: func(ctx context.Context) {
			presence.Clear()
			invitations.Clear()
			subscriber.OnDisconnected(ctx)
		},
	})

	return s
}

// Run processes lobby events until ctx is done.
func (s *LobbyService) Run(ctx context.Context) error {
	go func() {
		for session := range s.sessions.Watch(ctx) {
			if !s.loop.Post(func(ctx context.Context) { s.sessionChanged(ctx, session) }) {
				return
			}
		}
	}()

	if err := s.loop.Run(ctx); err != nil {
		return fmt.Errorf("loop.Run: %w", err)
	}

	return nil
}

func (s *LobbyService) sessionChanged(ctx context.Context, session Session) {
	if session == s.session {
		return
	}

	s.session = session

	s.presence.SetSelf(session.UserID)
	s.invitations.SetSelf(session.UserID)
	s.subscriber.SessionChanged(ctx, session)
	s.dispatcher.SessionChanged(ctx, session)
}

func (s *LobbyService) Connect() bool {
	return s.loop.Post(s.manager.Connect)
}

func (s *LobbyService) Disconnect() bool {
	return s.loop.Post(s.manager.Disconnect)
}

// Close disconnects for good and waits until the loop has done so.
func (s *LobbyService) Close(ctx context.Context) error {
	if err := s.loop.Do(ctx, s.manager.Shutdown); err != nil {
		return fmt.Errorf("loop.Do: %w", err)
	}

	return nil
}

func (s *LobbyService) ConnectionState() ConnectionState {
	return s.manager.State()
}

func (s *LobbyService) WatchConnectionState(ctx context.Context) <-chan ConnectionState {
	return s.manager.WatchState(ctx)
}

func (s *LobbyService) OthersOnline() []User {
	return s.presence.OthersOnline()
}

func (s *LobbyService) WatchOthersOnline(ctx context.Context) <-chan []User {
	return s.presence.WatchOthersOnline(ctx)
}

func (s *LobbyService) Invitations() []Invitation {
	return s.invitations.All()
}

func (s *LobbyService) PendingForMe() []Invitation {
	return s.invitations.PendingForMe()
}

func (s *LobbyService) WatchPendingForMe(ctx context.Context) <-chan []Invitation {
	return s.invitations.WatchPendingForMe(ctx)
}

func (s *LobbyService) Ready() bool {
	return s.watchdog.Ready()
}

func (s *LobbyService) WatchReady(ctx context.Context) <-chan bool {
	return s.watchdog.WatchReady(ctx)
}

// WaitReady arms the readiness watchdog and blocks until the view is ready.
func (s *LobbyService) WaitReady(ctx context.Context) error {
	if !s.loop.Post(s.watchdog.Begin) {
		return ErrLoopStopped
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for ready := range s.watchdog.WatchReady(watchCtx) {
		if ready {
			return nil
		}
	}

	return ctx.Err()
}

func (s *LobbyService) SendInvitation(ctx context.Context, toUserID int64) <-chan InviteResult {
	return s.dispatcher.SendInvitation(ctx, toUserID)
}

func (s *LobbyService) Reply(ctx context.Context, invitationID int64, status InvitationStatus) <-chan InviteResult {
	return s.dispatcher.Reply(ctx, invitationID, status)
}
