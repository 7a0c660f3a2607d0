package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/resumai-be/internal/auth"
	"github.com/isdelr/resumai-be/internal/database"
	"github.com/isdelr/resumai-be/internal/models"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	CreateUser(ctx context.Context, email, password, firstName, lastName string) (models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// UserService persists user accounts.
type UserService struct {
	db     database.Querier
	hasher auth.PasswordHasher
	now    func() time.Time
}

// NewUserService creates a new UserService.
func NewUserService(db database.Querier, hasher auth.PasswordHasher) *UserService {
	return &UserService{db: db, hasher: hasher, now: time.Now}
}

// CreateUser hashes the password and stores a new user. A taken email
// yields auth.ErrDuplicateEmail. The returned user carries no hash.
func (s *UserService) CreateUser(ctx context.Context, email, password, firstName, lastName string) (models.User, error) {
	user, err := s.PrepareUser(email, password, firstName, lastName)
	if err != nil {
		return models.User{}, err
	}
	return s.InsertUser(ctx, user)
}

// PrepareUser builds a user record with a fresh ID and hashed password
// without touching the database.
func (s *UserService) PrepareUser(email, password, firstName, lastName string) (models.User, error) {
	hashedPassword, err := s.hasher.Hash(password)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}
	return models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hashedPassword,
		FirstName:    firstName,
		LastName:     lastName,
		CreatedAt:    s.now().UTC(),
	}, nil
}

// InsertUser stores a prepared user.
func (s *UserService) InsertUser(ctx context.Context, user models.User) (models.User, error) {
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind("INSERT INTO users (id, email, password_hash, first_name, last_name, created_at) VALUES (?, ?, ?, ?, ?, ?)"),
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return models.User{}, auth.ErrDuplicateEmail
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}

	// Return user without password hash
	user.PasswordHash = ""
	return user, nil
}

// FindUserByEmail retrieves a user by exact email, including the password
// hash. It returns nil, nil when no user matches.
func (s *UserService) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	row := s.db.QueryRowContext(ctx,
		s.db.Rebind("SELECT id, email, password_hash, first_name, last_name, created_at FROM users WHERE email = ?"),
		email,
	)
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// GetUserByID retrieves a single user by their ID, without the hash.
func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	row := s.db.QueryRowContext(ctx,
		s.db.Rebind("SELECT id, email, first_name, last_name, created_at FROM users WHERE id = ?"),
		id,
	)
	err := row.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &user, nil
}
