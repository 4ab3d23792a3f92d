package domain

import (
	"context"
	"slices"

	"github.com/arthurdotwork/lobby/internal/infrastructure/stream"
)

// PresenceStore holds the last online-user snapshot and the view of it
// without the session user. Only the lobby loop writes to it.
type PresenceStore struct {
	snapshot []User
	self     int64

	users  *stream.Value[[]User]
	others *stream.Value[[]User]
}

func NewPresenceStore() *PresenceStore {
	return &PresenceStore{
		snapshot: []User{},
		users:    stream.NewValue([]User{}),
		others:   stream.NewValue([]User{}),
	}
}

// ApplySnapshot replaces the whole snapshot. Duplicate ids keep the last
// entry at the position of the first.
func (s *PresenceStore) ApplySnapshot(users []User) {
	snapshot := make([]User, 0, len(users))
	index := make(map[int64]int, len(users))

	for _, u := range users {
		if i, ok := index[u.ID]; ok {
			snapshot[i] = u
			continue
		}

		index[u.ID] = len(snapshot)
		snapshot = append(snapshot, u)
	}

	s.snapshot = snapshot
	s.publish()
}

func (s *PresenceStore) SetSelf(userID int64) {
	if s.self == userID {
		return
	}

	s.self = userID
	s.publish()
}

// Clear drops the snapshot; the session user is kept.
func (s *PresenceStore) Clear() {
	s.snapshot = []User{}
	s.publish()
}

func (s *PresenceStore) Users() []User {
	return slices.Clone(s.users.Load())
}

// OthersOnline returns the current snapshot without the session user.
func (s *PresenceStore) OthersOnline() []User {
	return slices.Clone(s.others.Load())
}

// WatchOthersOnline streams the view; received slices must not be modified.
func (s *PresenceStore) WatchOthersOnline(ctx context.Context) <-chan []User {
	return s.others.Watch(ctx)
}

func (s *PresenceStore) publish() {
	others := make([]User, 0, len(s.snapshot))
	for _, u := range s.snapshot {
		if u.ID == s.self {
			continue
		}

		others = append(others, u)
	}

	s.users.Store(s.snapshot)
	s.others.Store(others)
}
