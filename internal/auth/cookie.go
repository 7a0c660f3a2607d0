package auth

import (
	"net/http"
	"strings"
	"time"
)

// DefaultCookieName is the name of the session cookie.
const DefaultCookieName = "session"

// timeNow is a seam for tests.
var timeNow = time.Now

// CookieOptions configures the session cookie.
type CookieOptions struct {
	Name     string
	Secure   bool
	SameSite http.SameSite
}

// CookieBinding binds the session token to an HTTP exchange. Reads look at
// the Authorization header first and fall back to the cookie; writes always
// go to the cookie.
type CookieBinding struct {
	opts  CookieOptions
	w     http.ResponseWriter
	token string
}

// NewCookieBinding creates a binding for one request.
func NewCookieBinding(w http.ResponseWriter, r *http.Request, opts CookieOptions) *CookieBinding {
	if opts.Name == "" {
		opts.Name = DefaultCookieName
	}
	if opts.SameSite == 0 {
		opts.SameSite = http.SameSiteLaxMode
	}
	return &CookieBinding{
		opts:  opts,
		w:     w,
		token: TokenFromRequest(r, opts.Name),
	}
}

func (b *CookieBinding) Get() (string, bool) {
	return b.token, b.token != ""
}

func (b *CookieBinding) Set(token string, expiresAt time.Time) {
	b.token = token
	http.SetCookie(b.w, b.makeCookie(token, expiresAt))
}

func (b *CookieBinding) Clear() {
	b.token = ""
	c := b.makeCookie("", time.Unix(0, 0))
	c.MaxAge = -1
	http.SetCookie(b.w, c)
}

func (b *CookieBinding) makeCookie(value string, expiresAt time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     b.opts.Name,
		Value:    value,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   b.opts.Secure,
		SameSite: b.opts.SameSite,
	}
	if value != "" {
		if maxAge := int(expiresAt.Sub(timeNow()).Seconds()); maxAge > 0 {
			c.MaxAge = maxAge
		}
	}
	return c
}

// TokenFromRequest extracts a session token, trying the Authorization
// header before the named cookie.
func TokenFromRequest(r *http.Request, cookieName string) string {
	// 1. Try to get the token from the Authorization header
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
			if token = strings.TrimSpace(token); token != "" {
				return token
			}
		}
	}

	// 2. If not in header, fall back to the cookie
	if cookie, err := r.Cookie(cookieName); err == nil {
		return cookie.Value
	}
	return ""
}
