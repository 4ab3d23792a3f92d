package domain

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Dispatcher turns session changes into connect/disconnect commands and user
// actions into invitation requests.
type Dispatcher struct {
	manager            *ConnectionManager
	inviter            Inviter
	connectDestination string
	requestTimeout     time.Duration

	session   Session
	self      atomic.Int64
	announced uint64
}

func NewDispatcher(manager *ConnectionManager, inviter Inviter, connectDestination string, requestTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		manager:            manager,
		inviter:            inviter,
		connectDestination: connectDestination,
		requestTimeout:     requestTimeout,
	}
}

// SessionChanged must be called from the lobby loop. Logging out sends the
// user disconnect command through ConnectionManager.Disconnect, which writes
// it as the farewell frame.
func (d *Dispatcher) SessionChanged(ctx context.Context, session Session) {
	previous := d.session
	d.session = session
	d.self.Store(session.UserID)

	switch {
	case !session.Present():
		if previous.Present() {
			slog.InfoContext(ctx, "session ended", "user_id", previous.UserID)
			d.manager.Disconnect(ctx)
		}
	case previous.Present() && previous.UserID != session.UserID:
		slog.InfoContext(ctx, "session switched user", "from", previous.UserID, "to", session.UserID)
		d.manager.Disconnect(ctx)
		d.manager.Connect(ctx)
	default:
		d.manager.Connect(ctx)
		d.announce(ctx)
	}
}

// OnConnected must be called from the lobby loop.
func (d *Dispatcher) OnConnected(ctx context.Context) {
	d.announce(ctx)
}

// announce sends the user connect command once per connection, as soon as
// there is both a session and a live connection.
func (d *Dispatcher) announce(ctx context.Context) {
	if !d.session.Present() || d.manager.State() != Connected {
		return
	}

	generation := d.manager.Generation()
	if d.announced == generation {
		return
	}

	if err := d.manager.Send(ctx, d.connectDestination, emptyBody); err != nil {
		slog.WarnContext(ctx, "user connect not sent", "error", err)
		return
	}

	d.announced = generation
	slog.DebugContext(ctx, "user connect sent", "user_id", d.session.UserID, "generation", generation)
}

// SendInvitation asks the server to invite toUserID. The call returns at
// once; the result arrives on the returned channel, which is closed after
// it. The invitation itself reaches the stores through the invitation
// channel, not through this result.
func (d *Dispatcher) SendInvitation(ctx context.Context, toUserID int64) <-chan InviteResult {
	from := d.self.Load()

	switch {
	case from <= 0:
		return failed(ErrNoSession)
	case toUserID <= 0 || toUserID == from:
		return failed(fmt.Errorf("%w: %d", ErrInvalidInvitee, toUserID))
	}

	return d.request(ctx, func(ctx context.Context) (Invitation, error) {
		inv, err := d.inviter.Invite(ctx, from, toUserID)
		if err != nil {
			return Invitation{}, fmt.Errorf("inviter.Invite: %w", err)
		}

		return inv, nil
	})
}

// Reply answers or withdraws an invitation, asynchronously like SendInvitation.
func (d *Dispatcher) Reply(ctx context.Context, invitationID int64, status InvitationStatus) <-chan InviteResult {
	if d.self.Load() <= 0 {
		return failed(ErrNoSession)
	}

	if invitationID <= 0 || !status.Valid() || status == InvitationPending {
		return failed(fmt.Errorf("%w: invitation %d with status %q", ErrInvalidReply, invitationID, status))
	}

	return d.request(ctx, func(ctx context.Context) (Invitation, error) {
		inv, err := d.inviter.Reply(ctx, invitationID, status)
		if err != nil {
			return Invitation{}, fmt.Errorf("inviter.Reply: %w", err)
		}

		return inv, nil
	})
}

func (d *Dispatcher) request(ctx context.Context, call func(ctx context.Context) (Invitation, error)) <-chan InviteResult {
	results := make(chan InviteResult, 1)

	go func() {
		defer close(results)

		ctx, cancel := context.WithTimeout(ctx, d.requestTimeout)
		defer cancel()

		inv, err := call(ctx)
		if err != nil {
			slog.WarnContext(ctx, "invitation request failed", "error", err)
			results <- InviteResult{Err: err}
			return
		}

		results <- InviteResult{Invitation: inv}
	}()

	return results
}

func failed(err error) <-chan InviteResult {
	results := make(chan InviteResult, 1)
	results <- InviteResult{Err: err}
	close(results)

	return results
}
