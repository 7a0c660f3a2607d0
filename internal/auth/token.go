package auth

import (
	"crypto/rand"
	"encoding/base64"
)

// tokenBytes gives 256 bits of entropy per session token.
const tokenBytes = 32

// NewToken returns a random URL-safe session token.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
