// Package session keeps per-client state in a signed cookie.
//
// The cookie holds an HS256 JWT carrying the logged-in user id and any
// pending flash messages. A cookie that is missing, expired, or fails
// verification loads as an empty session.
package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/flaskr-go/flaskr/config"
	"github.com/golang-jwt/jwt/v5"
)

// Session is the decoded state of one client's cookie.
type Session struct {
	userID   int
	flashes  []string
	modified bool
}

// UserID returns the stored user id, if any.
func (s *Session) UserID() (int, bool) {
	return s.userID, s.userID > 0
}

func (s *Session) SetUserID(id int) {
	s.userID = id
	s.modified = true
}

// Clear drops everything, including pending flashes.
func (s *Session) Clear() {
	s.userID = 0
	s.flashes = nil
	s.modified = true
}

// AddFlash queues msg for the next rendered page.
func (s *Session) AddFlash(msg string) {
	s.flashes = append(s.flashes, msg)
	s.modified = true
}

// Flashes returns the pending messages and removes them from the session.
func (s *Session) Flashes() []string {
	if len(s.flashes) == 0 {
		return nil
	}
	out := s.flashes
	s.flashes = nil
	s.modified = true
	return out
}

// Modified reports whether the session changed since it was loaded.
func (s *Session) Modified() bool {
	return s.modified
}

func (s *Session) empty() bool {
	return s.userID == 0 && len(s.flashes) == 0
}

type claims struct {
	jwt.RegisteredClaims
	UserID  int      `json:"uid,omitempty"`
	Flashes []string `json:"flashes,omitempty"`
}

// Manager loads and saves sessions.
type Manager struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
	secure     bool
}

func NewManager(secret string, cfg config.SessionConfig) *Manager {
	name := cfg.CookieName
	if name == "" {
		name = "session"
	}
	return &Manager{
		secret:     []byte(secret),
		cookieName: name,
		ttl:        cfg.TTL,
		secure:     cfg.Secure,
	}
}

// Load decodes the session cookie on r.
func (m *Manager) Load(r *http.Request) *Session {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return &Session{}
	}

	c, err := m.parse(cookie.Value)
	if err != nil {
		return &Session{}
	}
	return &Session{userID: c.UserID, flashes: c.Flashes}
}

// Save writes s back to the client. An empty session deletes the cookie.
func (m *Manager) Save(w http.ResponseWriter, s *Session) error {
	if s.empty() {
		http.SetCookie(w, &http.Cookie{
			Name:     m.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Secure:   m.secure,
			SameSite: http.SameSiteLaxMode,
		})
		s.modified = false
		return nil
	}

	now := time.Now()
	expires := now.Add(m.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		UserID:  s.userID,
		Flashes: s.flashes,
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    signed,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	s.modified = false
	return nil
}

// Middleware loads the session for every request.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), m.Load(r))))
	})
}

func (m *Manager) parse(tokenString string) (*claims, error) {
	c := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, c, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid session token")
	}
	return c, nil
}

type contextKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the request's session. Requests that did not pass
// through Middleware get a fresh empty session.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(contextKey{}).(*Session); ok && s != nil {
		return s
	}
	return &Session{}
}
