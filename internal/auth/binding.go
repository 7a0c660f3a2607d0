package auth

import "time"

// Binding holds the session token on the caller's side, such as a browser
// cookie or a file for the CLI. A caller holds at most one token.
type Binding interface {
	// Get returns the bound token, if any.
	Get() (string, bool)
	// Set binds token until expiresAt, replacing any previous token.
	Set(token string, expiresAt time.Time)
	// Clear removes the bound token.
	Clear()
}

// MemoryBinding keeps the token in memory. It is used for bearer-only
// callers and tests.
type MemoryBinding struct {
	token     string
	expiresAt time.Time
}

func (b *MemoryBinding) Get() (string, bool) {
	if b.token == "" {
		return "", false
	}
	if !b.expiresAt.IsZero() && !timeNow().Before(b.expiresAt) {
		return "", false
	}
	return b.token, true
}

func (b *MemoryBinding) Set(token string, expiresAt time.Time) {
	b.token, b.expiresAt = token, expiresAt
}

func (b *MemoryBinding) Clear() {
	b.token, b.expiresAt = "", time.Time{}
}
