package services

import (
	"context"
	"time"

	"github.com/isdelr/resumai-be/internal/auth"
	"github.com/isdelr/resumai-be/internal/database"
	"github.com/isdelr/resumai-be/internal/models"
)

// RegistrationService creates a user and its first session in one
// transaction, so a failed session insert leaves no orphaned account.
type RegistrationService struct {
	db     *database.DB
	hasher auth.PasswordHasher
	now    func() time.Time
}

// NewRegistrationService creates a new RegistrationService.
func NewRegistrationService(db *database.DB, hasher auth.PasswordHasher) *RegistrationService {
	return &RegistrationService{db: db, hasher: hasher, now: time.Now}
}

// Register implements auth.Registrar.
func (s *RegistrationService) Register(ctx context.Context, in auth.SignupInput) (models.User, models.Session, error) {
	// Hash before opening the transaction; bcrypt is slow and SQLite runs on
	// a single connection.
	prepared, err := NewUserService(s.db, s.hasher).PrepareUser(in.Email, in.Password, in.FirstName, in.LastName)
	if err != nil {
		return models.User{}, models.Session{}, err
	}

	var (
		user    models.User
		session models.Session
	)
	err = s.db.WithTx(ctx, func(ctx context.Context, q database.Querier) error {
		var err error
		if user, err = NewUserService(q, s.hasher).InsertUser(ctx, prepared); err != nil {
			return err
		}
		session, err = NewSessionService(q, WithClock(s.now)).Create(ctx, user.ID)
		return err
	})
	if err != nil {
		return models.User{}, models.Session{}, err
	}
	return user, session, nil
}
