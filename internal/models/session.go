package models

import "time"

// SessionTTL is how long a session stays valid after creation.
const SessionTTL = 30 * 24 * time.Hour

// Session is a server-side login record keyed by an opaque token.
type Session struct {
	Token     string    `json:"-"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionView is a live session joined with its owner.
type SessionView struct {
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      UserView  `json:"user"`
}
