// Package storage keeps uploaded resumes and preview images.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Open for an unknown key.
var ErrNotFound = errors.New("object not found")

// ErrInvalidKey is returned for keys that escape the storage root.
var ErrInvalidKey = errors.New("invalid object key")

// Uploader stores and retrieves uploaded files by key.
type Uploader interface {
	// Upload writes r under key and returns the stored path.
	Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// timeNow is a seam for tests.
var timeNow = time.Now

// NewKey returns a fresh object key for a user's upload, keeping the
// original file extension.
func NewKey(userID, filename string) string {
	d := timeNow().UTC()
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("users/%s/%04d/%02d/%02d/%s%s", userID, d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}

func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}
