package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer mimics the auth endpoints with one account.
type fakeServer struct {
	mu       sync.Mutex
	sessions map[string]bool
	next     int
	logouts  int
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	switch r.URL.Path {
	case "/api/v1/auth/signup", "/api/v1/auth/login":
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "Secret123" {
			http.Error(w, "Invalid email or password", http.StatusUnauthorized)
			return
		}
		f.next++
		tok := "tok" + string(rune('0'+f.next))
		f.sessions[tok] = true
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"user":      map[string]string{"id": "u1", "email": body["email"], "firstName": body["firstName"]},
			"token":     tok,
			"expiresAt": time.Now().Add(time.Hour),
		})
	case "/api/v1/auth/session":
		if !f.sessions[token] {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"status": "unauthenticated"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "authenticated",
			"user":      map[string]string{"id": "u1", "email": "alice@example.com"},
			"expiresAt": time.Now().Add(time.Hour),
		})
	case "/api/v1/auth/logout":
		f.logouts++
		delete(f.sessions, token)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func stubPrompts(t *testing.T, answers map[string]string, password string) {
	t.Helper()
	origText, origPw := getSimpleText, getPassword
	t.Cleanup(func() { getSimpleText, getPassword = origText, origPw })
	getSimpleText = func(_ *bufio.Reader, prompt string, _ io.Writer) (string, error) {
		return answers[prompt], nil
	}
	getPassword = func(io.Writer) (string, error) { return password, nil }
}

func newTestApp(t *testing.T) (*App, *FileBinding, *fakeServer, *bytes.Buffer) {
	t.Helper()
	fake := &fakeServer{sessions: map[string]bool{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	binding := NewFileBinding(filepath.Join(t.TempDir(), "session.json"))
	out := &bytes.Buffer{}
	return NewApp(NewClient(srv.URL, binding, srv.Client()), strings.NewReader(""), out), binding, fake, out
}

func TestApp_LoginWhoamiLogout(t *testing.T) {
	app, binding, fake, out := newTestApp(t)
	ctx := context.Background()
	stubPrompts(t, map[string]string{"Email": "alice@example.com"}, "Secret123")

	assert.ErrorIs(t, app.Run(ctx, "whoami"), ErrUnauthenticated)

	require.NoError(t, app.Run(ctx, "login"))
	token, ok := binding.Get()
	require.True(t, ok)
	assert.Equal(t, "tok1", token)

	out.Reset()
	require.NoError(t, app.Run(ctx, "whoami"))
	assert.Contains(t, out.String(), "alice@example.com")

	require.NoError(t, app.Run(ctx, "logout"))
	assert.Equal(t, 1, fake.logouts)
	_, ok = binding.Get()
	assert.False(t, ok)
}

func TestApp_FailedLoginKeepsSession(t *testing.T) {
	app, binding, _, _ := newTestApp(t)
	ctx := context.Background()

	stubPrompts(t, map[string]string{"Email": "alice@example.com"}, "Secret123")
	require.NoError(t, app.Run(ctx, "signup"))
	before, _ := binding.Get()

	stubPrompts(t, map[string]string{"Email": "alice@example.com"}, "wrong")
	err := app.Run(ctx, "login")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	after, ok := binding.Get()
	require.True(t, ok)
	assert.Equal(t, before, after)
}

func TestApp_RevokedTokenCleared(t *testing.T) {
	app, binding, _, _ := newTestApp(t)
	binding.Set("revoked", time.Now().Add(time.Hour))

	assert.ErrorIs(t, app.Run(context.Background(), "whoami"), ErrUnauthenticated)
	_, ok := binding.Get()
	assert.False(t, ok)
}

func TestApp_LogoutClearsWhenServerDown(t *testing.T) {
	binding := NewFileBinding(filepath.Join(t.TempDir(), "session.json"))
	binding.Set("tok", time.Now().Add(time.Hour))

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var out, errOut bytes.Buffer
	app := NewApp(NewClient(url, binding, nil), strings.NewReader(""), &out)
	app.errOut = &errOut
	assert.NoError(t, app.Run(context.Background(), "logout"))
	_, ok := binding.Get()
	assert.False(t, ok)
	assert.Contains(t, out.String(), "Logged out.")
	assert.Contains(t, errOut.String(), "warning: server did not confirm logout")
}

func TestApp_UnknownCommand(t *testing.T) {
	app, _, _, _ := newTestApp(t)
	err := app.Run(context.Background(), "frobnicate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(bufio.NewReader(strings.NewReader("  bob@example.com \n")), "Email", &out)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", got)
	assert.Equal(t, "Email: ", out.String())
}

func TestGetPassword(t *testing.T) {
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })
	readPassword = func(int) ([]byte, error) { return []byte("Secret123"), nil }

	var out bytes.Buffer
	got, err := GetPassword(&out)
	require.NoError(t, err)
	assert.Equal(t, "Secret123", got)
}
