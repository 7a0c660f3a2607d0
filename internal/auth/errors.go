package auth

import "errors"

var (
	// ErrDuplicateEmail is returned when signing up with an email that is
	// already registered.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password so callers cannot probe which emails exist.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrSessionLookup marks a store fault while resolving a session token.
	// Callers see an unauthenticated state; the fault is only logged.
	ErrSessionLookup = errors.New("session lookup failed")

	// ErrStorage wraps any other store failure during signup, login or logout.
	ErrStorage = errors.New("storage failure")

	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordTooLong  = errors.New("password must be at most 72 bytes")
)
