package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/arthurdotwork/lobby/internal/domain"
	"github.com/nats-io/nats.go"
)

var ErrRejected = errors.New("request rejected")

type Subjects struct {
	Invite string
	Reply  string
}

// Inviter sends invitation requests as NATS request/reply messages.
type Inviter struct {
	nc       *nats.Conn
	subjects Subjects
}

func NewInviter(nc *nats.Conn, subjects Subjects) *Inviter {
	return &Inviter{nc: nc, subjects: subjects}
}

type inviteRequest struct {
	FromUserID int64 `json:"fromUserId"`
	ToUserID   int64 `json:"toUserId"`
}

type replyRequest struct {
	InvitationID int64                   `json:"invitationId"`
	Status       domain.InvitationStatus `json:"status"`
}

type response struct {
	Invitation *domain.Invitation `json:"invitation,omitempty"`
	Error      string             `json:"error,omitempty"`
}

func (i *Inviter) Invite(ctx context.Context, fromUserID int64, toUserID int64) (domain.Invitation, error) {
	return i.request(ctx, i.subjects.Invite, inviteRequest{FromUserID: fromUserID, ToUserID: toUserID})
}

func (i *Inviter) Reply(ctx context.Context, invitationID int64, status domain.InvitationStatus) (domain.Invitation, error) {
	return i.request(ctx, i.subjects.Reply, replyRequest{InvitationID: invitationID, Status: status})
}

func (i *Inviter) request(ctx context.Context, subject string, payload any) (domain.Invitation, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return domain.Invitation{}, fmt.Errorf("json.Marshal: %w", err)
	}

	msg, err := i.nc.RequestWithContext(ctx, subject, data)
	if err != nil {
		return domain.Invitation{}, fmt.Errorf("nc.RequestWithContext: %w", err)
	}

	return decodeResponse(msg.Data)
}

func decodeResponse(data []byte) (domain.Invitation, error) {
	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		return domain.Invitation{}, fmt.Errorf("json.Unmarshal: %w", err)
	}

	if resp.Error != "" {
		return domain.Invitation{}, fmt.Errorf("%w: %s", ErrRejected, resp.Error)
	}

	if resp.Invitation == nil {
		return domain.Invitation{}, fmt.Errorf("%w: empty response", ErrRejected)
	}

	if err := resp.Invitation.Validate(); err != nil {
		return domain.Invitation{}, fmt.Errorf("invitation.Validate: %w", err)
	}

	return *resp.Invitation, nil
}
