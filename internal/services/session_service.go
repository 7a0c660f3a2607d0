package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/isdelr/resumai-be/internal/auth"
	"github.com/isdelr/resumai-be/internal/database"
	"github.com/isdelr/resumai-be/internal/models"
)

// SessionServiceProvider defines the interface for session services.
type SessionServiceProvider interface {
	Create(ctx context.Context, userID string) (models.Session, error)
	FindByToken(ctx context.Context, token string) (*models.SessionView, error)
	Delete(ctx context.Context, token string) error
	PurgeExpired(ctx context.Context) (int64, error)
}

// SessionService persists login sessions.
type SessionService struct {
	db  database.Querier
	now func() time.Time
}

// SessionOption configures a SessionService.
type SessionOption func(*SessionService)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionService) { s.now = now }
}

// NewSessionService creates a new SessionService.
func NewSessionService(db database.Querier, opts ...SessionOption) *SessionService {
	s := &SessionService{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens a session for userID that expires after models.SessionTTL.
func (s *SessionService) Create(ctx context.Context, userID string) (models.Session, error) {
	token, err := auth.NewToken()
	if err != nil {
		return models.Session{}, fmt.Errorf("generate session token: %w", err)
	}

	now := s.now().UTC()
	session := models.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(models.SessionTTL),
	}

	_, err = s.db.ExecContext(ctx,
		s.db.Rebind("INSERT INTO user_sessions (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)"),
		session.Token, session.UserID, session.ExpiresAt, session.CreatedAt,
	)
	if err != nil {
		return models.Session{}, fmt.Errorf("insert session: %w", err)
	}
	return session, nil
}

// FindByToken returns the live session for token joined with its owner, or
// nil, nil when the token is unknown or expired.
func (s *SessionService) FindByToken(ctx context.Context, token string) (*models.SessionView, error) {
	var view models.SessionView
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`
		SELECT s.token, s.expires_at, u.id, u.email, u.first_name, u.last_name, u.created_at
		FROM user_sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = ? AND s.expires_at > ?`),
		token, s.now().UTC(),
	)
	err := row.Scan(
		&view.Token, &view.ExpiresAt,
		&view.User.ID, &view.User.Email, &view.User.FirstName, &view.User.LastName, &view.User.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &view, nil
}

// Delete removes the session for token. Deleting an unknown token is not
// an error.
func (s *SessionService) Delete(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM user_sessions WHERE token = ?"), token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpired deletes every session whose expiry has passed and returns
// how many were removed.
func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM user_sessions WHERE expires_at <= ?"), s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge sessions rows affected: %w", err)
	}
	return n, nil
}
