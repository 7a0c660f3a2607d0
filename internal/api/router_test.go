package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/isdelr/resumai-be/internal/auth"
	"github.com/isdelr/resumai-be/internal/database/dbtest"
	"github.com/isdelr/resumai-be/internal/services"
	"github.com/isdelr/resumai-be/internal/storage"
	"github.com/isdelr/resumai-be/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const sampleFeedback = `{"overallScore":72,"ATS":{"score":80,"tips":[]},"toneAndStyle":{"score":70,"tips":[]},"content":{"score":65,"tips":[]},"structure":{"score":75,"tips":[]},"skills":{"score":70,"tips":[]}}`

type stubAnalyzer struct{ err error }

func (s stubAnalyzer) Analyze(ctx context.Context, path, instructions string) (json.RawMessage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return json.RawMessage(sampleFeedback), nil
}

type fixture struct {
	srv *httptest.Server
}

func newFixture(t *testing.T, analyzer stubAnalyzer) *fixture {
	t.Helper()
	db := dbtest.NewSQLite(t)
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	users := services.NewUserService(db, hasher)
	sessions := services.NewSessionService(db)
	events := services.NewEventService(db)
	resumes := services.NewResumeService(db)

	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	uploader, err := storage.NewLocalUploader(t.TempDir())
	require.NoError(t, err)

	manager := auth.NewManager(users, sessions, hasher,
		auth.WithRegistrar(services.NewRegistrationService(db, hasher)),
		auth.WithEventRecorder(events),
		auth.WithNotifier(hub),
	)

	router := NewRouter(RouterOptions{
		Manager:        manager,
		Cookie:         auth.CookieOptions{Name: auth.DefaultCookieName},
		Resumes:        resumes,
		Analysis:       services.NewAnalysisService(uploader, analyzer, resumes, events, hub),
		Events:         events,
		Uploader:       uploader,
		Hub:            hub,
		Health:         db,
		AllowedOrigins: []string{"http://localhost:3000"},
		MaxUploadBytes: 1 << 20,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &fixture{srv: srv}
}

func (f *fixture) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func (f *fixture) postJSON(t *testing.T, c *http.Client, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := c.Post(f.srv.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) get(t *testing.T, c *http.Client, path string) *http.Response {
	t.Helper()
	resp, err := c.Get(f.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func (f *fixture) submit(t *testing.T, c *http.Client, filename string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("resume", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4 resume"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("company-name", "Acme"))
	require.NoError(t, mw.WriteField("job-title", "Backend Engineer"))
	require.NoError(t, mw.WriteField("job-description", "Go services"))
	require.NoError(t, mw.Close())

	resp, err := c.Post(f.srv.URL+"/api/v1/resumes/", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRouter_SessionLifecycle(t *testing.T) {
	f := newFixture(t, stubAnalyzer{})
	c := f.client(t)

	var session map[string]any
	resp := f.get(t, c, "/api/v1/auth/session")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	decode(t, resp, &session)
	assert.Equal(t, "unauthenticated", session["status"])

	resp = f.postJSON(t, c, "/api/v1/auth/signup", auth.SignupInput{Email: "alice@example.com", Password: "Secret123", FirstName: "Alice"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var signup struct {
		User  map[string]any `json:"user"`
		Token string         `json:"token"`
	}
	decode(t, resp, &signup)
	assert.Equal(t, "alice@example.com", signup.User["email"])
	assert.NotContains(t, signup.User, "passwordHash")
	assert.Len(t, signup.Token, 43)

	resp = f.get(t, c, "/api/v1/auth/session")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session = nil
	decode(t, resp, &session)
	assert.Equal(t, "authenticated", session["status"])

	// A failed login leaves the existing session in place.
	resp = f.postJSON(t, c, "/api/v1/auth/login", map[string]string{"email": "alice@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, http.StatusOK, f.get(t, c, "/api/v1/auth/session").StatusCode)

	// Another caller cannot reuse the email.
	resp = f.postJSON(t, f.client(t), "/api/v1/auth/signup", auth.SignupInput{Email: "alice@example.com", Password: "Other123"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// The token also works as a bearer credential.
	req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/api/v1/auth/session", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+signup.Token)
	bearer, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	bearer.Body.Close()
	assert.Equal(t, http.StatusOK, bearer.StatusCode)

	resp = f.postJSON(t, c, "/api/v1/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, f.get(t, c, "/api/v1/auth/session").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, f.get(t, c, "/api/v1/resumes/").StatusCode)

	// Logging out again is harmless.
	assert.Equal(t, http.StatusNoContent, f.postJSON(t, c, "/api/v1/auth/logout", nil).StatusCode)

	resp = f.postJSON(t, c, "/api/v1/auth/login", map[string]string{"email": "alice@example.com", "password": "Secret123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login struct {
		Token string `json:"token"`
	}
	decode(t, resp, &login)
	assert.NotEqual(t, signup.Token, login.Token)
	assert.Equal(t, http.StatusOK, f.get(t, c, "/api/v1/auth/session").StatusCode)
}

func TestRouter_SignupValidation(t *testing.T) {
	f := newFixture(t, stubAnalyzer{})
	c := f.client(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{`, http.StatusBadRequest},
		{"missing email", `{"password":"pw"}`, http.StatusBadRequest},
		{"missing password", `{"email":"a@example.com"}`, http.StatusBadRequest},
		{"password too long", `{"email":"a@example.com","password":"` + strings.Repeat("x", 73) + `"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := c.Post(f.srv.URL+"/api/v1/auth/signup", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
	assert.Equal(t, http.StatusUnauthorized, f.get(t, c, "/api/v1/auth/session").StatusCode)
}

func TestRouter_Resumes(t *testing.T) {
	f := newFixture(t, stubAnalyzer{})
	c := f.client(t)
	resp := f.postJSON(t, c, "/api/v1/auth/signup", auth.SignupInput{Email: "bo@example.com", Password: "Secret123"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.submit(t, c, "cv.pdf")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID       string          `json:"id"`
		JobTitle string          `json:"jobTitle"`
		Feedback json.RawMessage `json:"feedback"`
	}
	decode(t, resp, &created)
	assert.Equal(t, "Backend Engineer", created.JobTitle)
	assert.JSONEq(t, sampleFeedback, string(created.Feedback))

	resp = f.get(t, c, "/api/v1/resumes/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []map[string]any
	decode(t, resp, &list)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0]["id"])

	resp = f.get(t, c, "/api/v1/resumes/"+created.ID+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.get(t, c, "/api/v1/resumes/"+created.ID+"/files/resume")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 resume", string(body))

	// No preview image was uploaded.
	assert.Equal(t, http.StatusNotFound, f.get(t, c, "/api/v1/resumes/"+created.ID+"/files/image").StatusCode)

	// Other users cannot see it.
	other := f.client(t)
	f.postJSON(t, other, "/api/v1/auth/signup", auth.SignupInput{Email: "cy@example.com", Password: "Secret123"})
	assert.Equal(t, http.StatusNotFound, f.get(t, other, "/api/v1/resumes/"+created.ID+"/").StatusCode)

	assert.Equal(t, http.StatusBadRequest, f.submit(t, c, "cv.docx").StatusCode)

	resp = f.get(t, c, "/api/v1/events")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var events []struct {
		Type string `json:"type"`
	}
	decode(t, resp, &events)
	var types []string
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, "auth.signup")
	assert.Contains(t, types, "resume.analyze.success")
}

func TestRouter_ResumeAnalysisFailure(t *testing.T) {
	f := newFixture(t, stubAnalyzer{err: errors.New("model offline")})
	c := f.client(t)
	f.postJSON(t, c, "/api/v1/auth/signup", auth.SignupInput{Email: "di@example.com", Password: "Secret123"})

	resp := f.submit(t, c, "cv.pdf")
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	var body struct {
		Status string         `json:"status"`
		Resume map[string]any `json:"resume"`
	}
	decode(t, resp, &body)
	assert.Equal(t, services.StatusAnalyzeFailed, body.Status)
	assert.NotEmpty(t, body.Resume["id"], "record is kept without feedback")
}

func TestRouter_Health(t *testing.T) {
	f := newFixture(t, stubAnalyzer{})
	resp := f.get(t, http.DefaultClient, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
