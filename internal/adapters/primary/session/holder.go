package session

import (
	"context"

	"github.com/arthurdotwork/lobby/internal/domain"
	"github.com/arthurdotwork/lobby/internal/infrastructure/stream"
)

// Holder is an in-process session boundary: whoever authenticates the user
// calls Login and Logout, the lobby watches the changes.
type Holder struct {
	current *stream.Value[domain.Session]
}

func NewHolder() *Holder {
	return &Holder{current: stream.NewValue(domain.Session{})}
}

func (h *Holder) Login(userID int64) {
	h.current.Store(domain.Session{UserID: userID})
}

func (h *Holder) Logout() {
	h.current.Store(domain.Session{})
}

func (h *Holder) Current() domain.Session {
	return h.current.Load()
}

func (h *Holder) Watch(ctx context.Context) <-chan domain.Session {
	return h.current.Watch(ctx)
}
