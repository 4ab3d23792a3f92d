package domain

import "fmt"

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Online   bool   `json:"online"`
}

func (u User) Validate() error {
	if u.ID <= 0 {
		return fmt.Errorf("%w: user id %d", ErrMalformedFrame, u.ID)
	}

	return nil
}

// Session is the externally owned login state. A zero UserID means nobody
// is logged in.
type Session struct {
	UserID int64
}

func (s Session) Present() bool {
	return s.UserID > 0
}
