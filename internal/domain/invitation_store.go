package domain

import (
	"context"
	"slices"

	"github.com/arthurdotwork/lobby/internal/infrastructure/stream"
)

// InvitationStore keeps invitations in arrival order, merged by id. Only
// the lobby loop writes to it.
type InvitationStore struct {
	items []Invitation
	index map[int64]int
	self  int64

	all     *stream.Value[[]Invitation]
	pending *stream.Value[[]Invitation]
}

func NewInvitationStore() *InvitationStore {
	return &InvitationStore{
		items:   []Invitation{},
		index:   make(map[int64]int),
		all:     stream.NewValue([]Invitation{}),
		pending: stream.NewValue([]Invitation{}),
	}
}

// ApplyUpdate replaces the invitation with the same id in place, or appends
// it. Applying the same update twice is a no-op the second time.
func (s *InvitationStore) ApplyUpdate(inv Invitation) {
	items := slices.Clone(s.items)

	if i, ok := s.index[inv.ID]; ok {
		items[i] = inv
	} else {
		s.index[inv.ID] = len(items)
		items = append(items, inv)
	}

	s.items = items
	s.publish()
}

func (s *InvitationStore) SetSelf(userID int64) {
	if s.self == userID {
		return
	}

	s.self = userID
	s.publish()
}

func (s *InvitationStore) Clear() {
	s.items = []Invitation{}
	s.index = make(map[int64]int)
	s.publish()
}

func (s *InvitationStore) All() []Invitation {
	return slices.Clone(s.all.Load())
}

// PendingForMe returns the pending invitations addressed to the session user.
func (s *InvitationStore) PendingForMe() []Invitation {
	return slices.Clone(s.pending.Load())
}

// WatchPendingForMe streams the view; received slices must not be modified.
func (s *InvitationStore) WatchPendingForMe(ctx context.Context) <-chan []Invitation {
	return s.pending.Watch(ctx)
}

func (s *InvitationStore) publish() {
	pending := make([]Invitation, 0)
	if s.self > 0 {
		for _, inv := range s.items {
			if inv.Status == InvitationPending && inv.ToUser.ID == s.self {
				pending = append(pending, inv)
			}
		}
	}

	s.all.Store(s.items)
	s.pending.Store(pending)
}
