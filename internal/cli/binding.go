package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// timeNow is a seam for tests.
var timeNow = time.Now

type storedSession struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// FileBinding keeps the session token in a file readable only by the
// current user. An expired or unreadable file counts as no binding.
type FileBinding struct {
	path string
}

// NewFileBinding returns a binding stored at path.
func NewFileBinding(path string) *FileBinding {
	return &FileBinding{path: path}
}

// DefaultSessionPath returns the per-user session file location.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "resumectl", "session.json"), nil
}

// Path returns the file location.
func (b *FileBinding) Path() string { return b.path }

func (b *FileBinding) Get() (string, bool) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return "", false
	}
	var s storedSession
	if err := json.Unmarshal(data, &s); err != nil || s.Token == "" {
		return "", false
	}
	if !s.ExpiresAt.IsZero() && !timeNow().Before(s.ExpiresAt) {
		return "", false
	}
	return s.Token, true
}

// Set writes the token atomically with mode 0600.
func (b *FileBinding) Set(token string, expiresAt time.Time) {
	if err := b.write(storedSession{Token: token, ExpiresAt: expiresAt}); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not save session: %v\n", err)
	}
}

func (b *FileBinding) Clear() {
	if err := os.Remove(b.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: could not remove session file: %v\n", err)
	}
}

func (b *FileBinding) write(s storedSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), b.path)
}
