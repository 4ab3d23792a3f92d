package domain

import (
	"context"
	"errors"
)

var (
	ErrNotConnected   = errors.New("not connected")
	ErrNoSession      = errors.New("no active session")
	ErrInvalidInvitee = errors.New("invalid invitee")
	ErrMalformedFrame = errors.New("malformed frame")
	ErrInvalidReply   = errors.New("invalid invitation reply")
	ErrLoopStopped    = errors.New("lobby loop stopped")
)

// Frame is one inbound message, tagged with the destination it was
// delivered on.
type Frame struct {
	Destination string
	Body        []byte
}

type Transport interface {
	Dial(ctx context.Context) (Conn, error)
}

// Conn is a live connection to the lobby server. Receive blocks until a
// frame arrives; any error it returns means the connection is gone.
type Conn interface {
	Subscribe(ctx context.Context, destination string) error
	Send(ctx context.Context, destination string, body []byte) error
	Receive(ctx context.Context) (Frame, error)
	Close() error
}

type Inviter interface {
	Invite(ctx context.Context, fromUserID int64, toUserID int64) (Invitation, error)
	Reply(ctx context.Context, invitationID int64, status InvitationStatus) (Invitation, error)
}

type Directory interface {
	ListOnline(ctx context.Context) ([]User, error)
}

type SessionSource interface {
	Current() Session
	Watch(ctx context.Context) <-chan Session
}
