package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/isdelr/resumai-be/internal/auth"
	"github.com/isdelr/resumai-be/internal/models"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles signup, login, logout and session checks.
type AuthHandler struct {
	manager *auth.Manager
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(manager *auth.Manager) *AuthHandler {
	return &AuthHandler{manager: manager}
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by signup and login. The token is included for
// clients that send it as a bearer token instead of relying on the cookie.
type AuthResponse struct {
	User      *models.UserView `json:"user"`
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

// SessionResponse describes the caller's authentication state.
type SessionResponse struct {
	Status    string           `json:"status"`
	User      *models.UserView `json:"user,omitempty"`
	ExpiresAt *time.Time       `json:"expiresAt,omitempty"`
}

// Signup handles new user registration.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	client, ok := clientFrom(w, r)
	if !ok {
		return
	}

	var payload auth.SignupInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.manager.Signup(r.Context(), client, payload)
	if err != nil {
		status, msg := authErrorStatus(err)
		if status == http.StatusInternalServerError {
			log.Error().Err(err).Msg("Failed to register user")
		}
		http.Error(w, msg, status)
		return
	}

	writeAuthResponse(w, http.StatusCreated, client, user)
}

// Login handles user authentication.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	client, ok := clientFrom(w, r)
	if !ok {
		return
	}

	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.manager.Login(r.Context(), client, payload.Email, payload.Password)
	if err != nil {
		status, msg := authErrorStatus(err)
		if status == http.StatusUnauthorized {
			log.Warn().Msg("Failed authentication attempt")
		} else if status == http.StatusInternalServerError {
			log.Error().Err(err).Msg("Login failed")
		}
		http.Error(w, msg, status)
		return
	}

	writeAuthResponse(w, http.StatusOK, client, user)
}

// Logout revokes the caller's session. It always succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	client, ok := clientFrom(w, r)
	if !ok {
		return
	}
	h.manager.Logout(r.Context(), client)
	w.WriteHeader(http.StatusNoContent)
}

// Session reports whether the caller holds a live session.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	client, ok := clientFrom(w, r)
	if !ok {
		return
	}

	state := h.manager.CheckAuth(r.Context(), client)
	resp := SessionResponse{Status: state.Status.String()}
	status := http.StatusUnauthorized
	if state.Status == auth.StatusAuthenticated {
		resp.User = state.User
		resp.ExpiresAt = &state.ExpiresAt
		status = http.StatusOK
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func writeAuthResponse(w http.ResponseWriter, status int, client *auth.Client, user *models.UserView) {
	token, _ := client.Binding().Get()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(AuthResponse{
		User:      user,
		Token:     token,
		ExpiresAt: client.State().ExpiresAt,
	})
}

// authErrorStatus maps auth failures to an HTTP status and a message that
// is safe to show.
func authErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrDuplicateEmail):
		return http.StatusConflict, "An account with this email already exists"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, auth.ErrEmailRequired),
		errors.Is(err, auth.ErrPasswordRequired),
		errors.Is(err, auth.ErrPasswordTooLong):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "Something went wrong, please try again"
	}
}

func clientFrom(w http.ResponseWriter, r *http.Request) (*auth.Client, bool) {
	client, ok := auth.ClientFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve auth client from context")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
	return client, ok
}

func currentUser(w http.ResponseWriter, r *http.Request) (*models.UserView, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user from context")
		http.Error(w, "Could not retrieve user from session", http.StatusInternalServerError)
	}
	return user, ok
}
