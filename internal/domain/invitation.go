package domain

import (
	"fmt"
	"strings"
)

type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "PENDING"
	InvitationAccepted  InvitationStatus = "ACCEPTED"
	InvitationDeclined  InvitationStatus = "DECLINED"
	InvitationCancelled InvitationStatus = "CANCELLED"
)

func (s InvitationStatus) Valid() bool {
	switch s {
	case InvitationPending, InvitationAccepted, InvitationDeclined, InvitationCancelled:
		return true
	default:
		return false
	}
}

// UnmarshalText rejects statuses the lobby does not know about so that a
// malformed frame fails at decode time.
func (s *InvitationStatus) UnmarshalText(text []byte) error {
	status := InvitationStatus(strings.ToUpper(string(text)))
	if !status.Valid() {
		return fmt.Errorf("%w: invitation status %q", ErrMalformedFrame, string(text))
	}

	*s = status
	return nil
}

type Invitation struct {
	ID       int64            `json:"id"`
	FromUser User             `json:"fromUser"`
	ToUser   User             `json:"toUser"`
	Status   InvitationStatus `json:"status"`
}

func (i Invitation) Validate() error {
	if i.ID <= 0 {
		return fmt.Errorf("%w: invitation id %d", ErrMalformedFrame, i.ID)
	}

	if err := i.FromUser.Validate(); err != nil {
		return fmt.Errorf("fromUser: %w", err)
	}

	if err := i.ToUser.Validate(); err != nil {
		return fmt.Errorf("toUser: %w", err)
	}

	if !i.Status.Valid() {
		return fmt.Errorf("%w: invitation status %q", ErrMalformedFrame, i.Status)
	}

	return nil
}

// InviteResult is the outcome of an asynchronous invitation request.
type InviteResult struct {
	Invitation Invitation
	Err        error
}
