package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/isdelr/resumai-be/internal/models"
	"github.com/rs/zerolog/log"
)

// CredentialStore persists users.
type CredentialStore interface {
	CreateUser(ctx context.Context, email, password, firstName, lastName string) (models.User, error)
	// FindUserByEmail returns nil, nil when no user has that email.
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// SessionStore persists sessions.
type SessionStore interface {
	Create(ctx context.Context, userID string) (models.Session, error)
	// FindByToken returns nil, nil for a missing or expired token.
	FindByToken(ctx context.Context, token string) (*models.SessionView, error)
	Delete(ctx context.Context, token string) error
}

// Registrar creates a user and its first session atomically.
type Registrar interface {
	Register(ctx context.Context, in SignupInput) (models.User, models.Session, error)
}

// EventRecorder stores audit events.
type EventRecorder interface {
	CreateEvent(ctx context.Context, eventType, level, message string, userID *string) error
}

// Notifier pushes messages to a user's live connections.
type Notifier interface {
	NotifyUser(userID, msgType string, payload any)
}

// Event types recorded by the Manager.
const (
	EventSignup       = "auth.signup"
	EventLogin        = "auth.login"
	EventLoginFail    = "auth.login.fail"
	EventLogout       = "auth.logout"
	EventSessionFault = "auth.session.fault"
)

// Notification types pushed by the Manager.
const (
	NotifySessionCreated = "session.created"
	NotifySessionRevoked = "session.revoked"
	NotifySessionFault   = "session.fault"
)

// dummyPassword is hashed once and verified against for unknown emails so
// that both login failures cost one bcrypt comparison.
const dummyPassword = "resumai-timing-equaliser"

// fallbackDummyHash is a well-formed cost 12 bcrypt hash used when the
// configured hasher cannot produce one.
const fallbackDummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// SignupInput carries the fields accepted at signup.
type SignupInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// Validate checks required fields. Email is kept as given; matching is
// case-sensitive.
func (in SignupInput) Validate() error {
	if strings.TrimSpace(in.Email) == "" {
		return ErrEmailRequired
	}
	return ValidatePassword(in.Password)
}

// Manager runs the signup, login, checkAuth and logout transitions against
// the stores and a caller's Client.
type Manager struct {
	users     CredentialStore
	sessions  SessionStore
	hasher    PasswordHasher
	registrar Registrar
	events    EventRecorder
	notifier  Notifier

	dummyHash string
}

// Option configures a Manager.
type Option func(*Manager)

// WithRegistrar makes signup atomic across the user and session rows.
func WithRegistrar(r Registrar) Option {
	return func(m *Manager) { m.registrar = r }
}

// WithEventRecorder records audit events for each transition.
func WithEventRecorder(e EventRecorder) Option {
	return func(m *Manager) { m.events = e }
}

// WithNotifier pushes session changes to live connections.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// NewManager creates a Manager.
func NewManager(users CredentialStore, sessions SessionStore, hasher PasswordHasher, opts ...Option) *Manager {
	m := &Manager{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.dummyHash = m.prepareDummy()
	return m
}

// Signup registers a new user, opens a session and binds it to c.
func (m *Manager) Signup(ctx context.Context, c *Client, in SignupInput) (*models.UserView, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	prev := c.State()
	c.transition(State{Status: StatusAuthenticating})

	user, session, err := m.register(ctx, in)
	if err != nil {
		c.transition(prev)
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		log.Error().Err(err).Str("email", in.Email).Msg("Signup failed")
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	view := user.View()
	m.bind(c, session, view)
	m.record(ctx, EventSignup, "info", "Account created", &view.ID)
	m.notify(view.ID, NotifySessionCreated, map[string]any{"expiresAt": session.ExpiresAt})
	return &view, nil
}

func (m *Manager) register(ctx context.Context, in SignupInput) (models.User, models.Session, error) {
	if m.registrar != nil {
		return m.registrar.Register(ctx, in)
	}

	user, err := m.users.CreateUser(ctx, in.Email, in.Password, in.FirstName, in.LastName)
	if err != nil {
		return models.User{}, models.Session{}, err
	}
	// Without a registrar the user row survives a failed session create.
	session, err := m.sessions.Create(ctx, user.ID)
	if err != nil {
		return models.User{}, models.Session{}, err
	}
	return user, session, nil
}

// Login verifies credentials, opens a new session and binds it to c. A
// failed login leaves c as it was.
func (m *Manager) Login(ctx context.Context, c *Client, email, password string) (*models.UserView, error) {
	if strings.TrimSpace(email) == "" {
		return nil, ErrEmailRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}

	prev := c.State()
	c.transition(State{Status: StatusAuthenticating})

	user, err := m.users.FindUserByEmail(ctx, email)
	if err != nil {
		c.transition(prev)
		log.Error().Err(err).Msg("Failed to look up user for login")
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if user == nil {
		m.hasher.Verify(password, m.dummyHash)
		c.transition(prev)
		m.record(ctx, EventLoginFail, "warn", "Failed login attempt", nil)
		return nil, ErrInvalidCredentials
	}
	if !m.hasher.Verify(password, user.PasswordHash) {
		c.transition(prev)
		m.record(ctx, EventLoginFail, "warn", "Failed login attempt", &user.ID)
		return nil, ErrInvalidCredentials
	}

	session, err := m.sessions.Create(ctx, user.ID)
	if err != nil {
		c.transition(prev)
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to create session")
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	view := user.View()
	m.bind(c, session, view)
	m.record(ctx, EventLogin, "info", "Logged in", &view.ID)
	m.notify(view.ID, NotifySessionCreated, map[string]any{"expiresAt": session.ExpiresAt})
	return &view, nil
}

// CheckAuth resolves the token bound to c. It never fails: a missing,
// expired or unreadable session clears the binding and leaves c
// unauthenticated. Lookup faults are logged and recorded.
func (m *Manager) CheckAuth(ctx context.Context, c *Client) State {
	token, ok := c.binding.Get()
	if !ok {
		return c.transition(State{Status: StatusUnauthenticated})
	}

	c.transition(State{Status: StatusAuthenticating})

	view, err := m.sessions.FindByToken(ctx, token)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrSessionLookup, err)
		log.Error().Err(err).Msg("Session lookup failed, treating caller as signed out")
		m.record(ctx, EventSessionFault, "error", err.Error(), nil)
		c.binding.Clear()
		return c.transition(State{Status: StatusUnauthenticated})
	}
	if view == nil {
		c.binding.Clear()
		return c.transition(State{Status: StatusUnauthenticated})
	}

	user := view.User
	return c.transition(State{
		Status:    StatusAuthenticated,
		User:      &user,
		ExpiresAt: view.ExpiresAt,
	})
}

// Logout revokes the bound session on a best-effort basis and always
// clears the binding. Store faults are logged and recorded, not returned.
func (m *Manager) Logout(ctx context.Context, c *Client) State {
	prev := c.State()
	var userID *string
	if prev.User != nil {
		id := prev.User.ID
		userID = &id
	}

	if token, ok := c.binding.Get(); ok {
		if userID == nil {
			// Attribution only; a lookup failure does not stop the revoke.
			if view, err := m.sessions.FindByToken(ctx, token); err == nil && view != nil {
				id := view.User.ID
				userID = &id
			}
		}
		if err := m.sessions.Delete(ctx, token); err != nil {
			err = fmt.Errorf("%w: %v", ErrStorage, err)
			log.Error().Err(err).Msg("Failed to revoke session on logout")
			m.record(ctx, EventSessionFault, "error", "Logout could not revoke session: "+err.Error(), userID)
			if userID != nil {
				m.notify(*userID, NotifySessionFault, map[string]any{"reason": "revoke failed"})
			}
		} else if userID != nil {
			m.record(ctx, EventLogout, "info", "Logged out", userID)
			m.notify(*userID, NotifySessionRevoked, nil)
		}
	}

	c.binding.Clear()
	return c.transition(State{Status: StatusUnauthenticated})
}

func (m *Manager) bind(c *Client, s models.Session, view models.UserView) {
	c.binding.Set(s.Token, s.ExpiresAt)
	c.transition(State{
		Status:    StatusAuthenticated,
		User:      &view,
		ExpiresAt: s.ExpiresAt,
	})
}

func (m *Manager) prepareDummy() string {
	h, err := m.hasher.Hash(dummyPassword)
	if err != nil {
		log.Error().Err(err).Msg("Failed to prepare dummy password hash, using fallback")
		return fallbackDummyHash
	}
	return h
}

func (m *Manager) record(ctx context.Context, eventType, level, message string, userID *string) {
	if m.events == nil {
		return
	}
	// Audit events must not fail the transition they describe.
	if err := m.events.CreateEvent(context.WithoutCancel(ctx), eventType, level, message, userID); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("Failed to record event")
	}
}

func (m *Manager) notify(userID, msgType string, payload any) {
	if m.notifier == nil {
		return
	}
	m.notifier.NotifyUser(userID, msgType, payload)
}

// Status is the caller-visible authentication state.
type Status int

const (
	StatusUnauthenticated Status = iota
	StatusAuthenticating
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// State is a snapshot of a Client. User is set only when authenticated.
type State struct {
	Status    Status
	User      *models.UserView
	ExpiresAt time.Time
}

// Client is the per-caller auth state: a request, a CLI process, a test.
// Listeners registered with Subscribe see every transition in order.
type Client struct {
	binding Binding

	mu     sync.Mutex
	state  State
	nextID int
	subs   map[int]func(State)
}

// NewClient creates an unauthenticated Client over binding.
func NewClient(binding Binding) *Client {
	return &Client{
		binding: binding,
		subs:    make(map[int]func(State)),
	}
}

// State returns the current snapshot.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Binding returns the binding the client was created with.
func (c *Client) Binding() Binding {
	return c.binding
}

// Subscribe registers fn for state changes and returns a function that
// removes it.
func (c *Client) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Client) transition(s State) State {
	c.mu.Lock()
	c.state = s
	subs := make([]func(State), 0, len(c.subs))
	for id := 0; id < c.nextID; id++ {
		if fn, ok := c.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
	return s
}
