package db

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/flaskr-go/flaskr/config"
	"github.com/jmoiron/sqlx"
)

var (
	// ErrNoSession is returned when a request carries no database session.
	ErrNoSession = errors.New("no database session on request")
	// ErrReleased is returned when a connection is requested after release.
	ErrReleased = errors.New("database session already released")
)

// Opener opens a new database handle.
type Opener func(ctx context.Context) (*sqlx.DB, error)

type contextKey struct{}

// Provider hands every request its own lazily opened connection.
type Provider struct {
	open Opener
}

func NewProvider(open Opener) *Provider {
	return &Provider{open: open}
}

// NewFileProvider opens the configured database file on demand.
func NewFileProvider(cfg config.DatabaseConfig) *Provider {
	return NewProvider(func(ctx context.Context) (*sqlx.DB, error) {
		return Open(ctx, cfg)
	})
}

// NewSession returns a session that has not opened anything yet.
func (p *Provider) NewSession() *Session {
	return &Session{open: p.open}
}

// Middleware attaches a Session to the request and releases it once the
// downstream handler returns or panics.
func (p *Provider) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := p.NewSession()
		defer func() {
			_ = sess.Release()
		}()
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

// Session owns at most one connection for the lifetime of a request.
type Session struct {
	mu       sync.Mutex
	open     Opener
	conn     *sqlx.DB
	released bool
}

// Conn returns the session's connection, opening it on first use.
func (s *Session) Conn(ctx context.Context) (*sqlx.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return nil, ErrReleased
	}
	if s.conn != nil {
		return s.conn, nil
	}

	conn, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	s.conn = conn
	return conn, nil
}

// Opened reports whether a connection is currently held.
func (s *Session) Opened() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Release closes the connection if one was opened. Calling it again is a no-op.
func (s *Session) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return nil
	}
	s.released = true

	if s.conn == nil {
		return nil
	}
	conn := s.conn
	s.conn = nil
	return conn.Close()
}

func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

func SessionFromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(contextKey{}).(*Session)
	return sess, ok && sess != nil
}

// Conn returns the request-scoped connection carried by ctx.
func Conn(ctx context.Context) (*sqlx.DB, error) {
	sess, ok := SessionFromContext(ctx)
	if !ok {
		return nil, ErrNoSession
	}
	return sess.Conn(ctx)
}
