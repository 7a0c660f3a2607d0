package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/isdelr/resumai-be/internal/models"
	"github.com/rs/zerolog/log"
)

type contextKey string

const clientKey = contextKey("authClient")

// WithClient returns a copy of ctx carrying c.
func WithClient(ctx context.Context, c *Client) context.Context {
	return context.WithValue(ctx, clientKey, c)
}

// ClientFromContext returns the Client stored by the middleware.
func ClientFromContext(ctx context.Context) (*Client, bool) {
	c, ok := ctx.Value(clientKey).(*Client)
	return c, ok
}

// UserFromContext returns the authenticated user for the request.
func UserFromContext(ctx context.Context) (*models.UserView, bool) {
	c, ok := ClientFromContext(ctx)
	if !ok {
		return nil, false
	}
	s := c.State()
	if s.Status != StatusAuthenticated || s.User == nil {
		return nil, false
	}
	return s.User, true
}

// Middleware builds a request-scoped Client for every request and stores it
// in the context. It does not resolve the session.
func Middleware(opts CookieOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := NewClient(NewCookieBinding(w, r, opts))
			next.ServeHTTP(w, r.WithContext(WithClient(r.Context(), c)))
		})
	}
}

// RequireAuth resolves the bound session and rejects the request with 401
// unless it is authenticated. It must run after Middleware.
func RequireAuth(m *Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := ClientFromContext(r.Context())
			if !ok {
				log.Error().Msg("RequireAuth used without auth middleware")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			if state := m.CheckAuth(r.Context(), c); state.Status != StatusAuthenticated {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"status": state.Status.String()})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
