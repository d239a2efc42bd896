// Package session models the authenticated identity an operation acts on behalf of.
//
// Two flavours of Source exist: Mirror, a single-writer cell fed by a Notifier's
// change stream (used by the CLI), and ContextSource, which reads the identity the
// HTTP authentication middleware attached to the request context.
package session

import (
	"context"
	"time"
)

// Session is the identity resolved from an access token.
type Session struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	AccessToken string    `json:"access_token,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the session is past its expiry at now.
// A zero ExpiresAt never expires.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Valid reports whether s carries a usable identity at now.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.UserID != "" && !s.Expired(now)
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Source resolves the current session. A nil session with a nil error means
// nobody is signed in.
type Source interface {
	Session(ctx context.Context) (*Session, error)
}

// Listener receives the new session after every change; nil means signed out.
type Listener func(*Session)

// Notifier pushes session changes. Listeners are not replayed past events.
type Notifier interface {
	Subscribe(l Listener) (unsubscribe func())
}

type contextKey struct{ name string }

var sessionKey = contextKey{"session"}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s.clone())
}

// FromContext returns the session stored in ctx, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey).(*Session)
	return s, ok && s != nil
}

// ContextSource resolves the session from the request context.
type ContextSource struct{}

// Session implements Source.
func (ContextSource) Session(ctx context.Context) (*Session, error) {
	s, ok := FromContext(ctx)
	if !ok {
		return nil, nil
	}
	return s.clone(), nil
}
