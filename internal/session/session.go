// Package session identifies the user behind every request. Sessions are
// opaque tokens persisted in SQLite.
package session

import "time"

type Session struct {
	Username string    `json:"username"`
	Guest    bool      `json:"guest"`
	Admin    bool      `json:"admin"`
	Token    string    `json:"token,omitempty"`
	IssuedAt time.Time `json:"issued_at"`
}

func (s Session) IsZero() bool {
	return s.Username == ""
}
