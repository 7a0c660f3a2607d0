package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/isdelr/resumai-be/internal/auth"
	"github.com/isdelr/resumai-be/internal/models"
)

// ErrUnauthenticated is returned when the server holds no live session for
// the bound token.
var ErrUnauthenticated = errors.New("not logged in")

// APIError is a non-success reply from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Session is the server's view of the bound token.
type Session struct {
	User      models.UserView `json:"user"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

type authResponse struct {
	User      models.UserView `json:"user"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// Client talks to the auth endpoints and keeps the token in binding.
type Client struct {
	baseURL string
	binding auth.Binding
	http    *http.Client
}

// NewClient creates a Client for the server at baseURL. httpClient may be
// nil.
func NewClient(baseURL string, binding auth.Binding, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		binding: binding,
		http:    httpClient,
	}
}

// Signup creates an account and binds the new session.
func (c *Client) Signup(ctx context.Context, in auth.SignupInput) (*models.UserView, error) {
	return c.authenticate(ctx, "/api/v1/auth/signup", in)
}

// Login opens a session and binds it. On failure the existing binding is
// left untouched.
func (c *Client) Login(ctx context.Context, email, password string) (*models.UserView, error) {
	return c.authenticate(ctx, "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

// CheckAuth asks the server about the bound token. A rejected token is
// cleared locally.
func (c *Client) CheckAuth(ctx context.Context) (*Session, error) {
	if _, ok := c.binding.Get(); !ok {
		c.binding.Clear()
		return nil, ErrUnauthenticated
	}

	resp, err := c.do(ctx, http.MethodGet, "/api/v1/auth/session", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.binding.Clear()
		return nil, ErrUnauthenticated
	}
	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError(resp)
	}

	var s Session
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

// Logout revokes the session on the server and always clears the local
// binding. The returned error reports only the server call.
func (c *Client) Logout(ctx context.Context) error {
	defer c.binding.Clear()

	if _, ok := c.binding.Get(); !ok {
		return nil
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/auth/logout", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}
	return nil
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*models.UserView, error) {
	resp, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, readAPIError(resp)
	}

	var out authResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.Token == "" {
		return nil, errors.New("server returned no session token")
	}
	c.binding.Set(out.Token, out.ExpiresAt)
	return &out.User, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := c.binding.Get(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	return resp, nil
}

func readAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
}
