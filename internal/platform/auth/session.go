package auth

import (
	"context"
	"strings"
	"time"
)

// Session captures the identity bridged from a WordPress JWT exchange.
//
// It is short-lived: created at login, carried for the browser session via the
// bearer token, and never persisted by this service.
type Session struct {
	Token       string    `json:"token"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// Valid reports whether the session carries a usable token.
func (s *Session) Valid() bool {
	return s != nil && strings.TrimSpace(s.Token) != ""
}

// Expired reports whether the session token's exp claim has elapsed.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt)
}

type contextKey string

const sessionContextKey contextKey = "github.com/strengthworks/storefront-api/internal/platform/auth/session"

// WithSession stores the session within the context for downstream handlers.
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFromContext retrieves the session previously stored in context.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(*Session)
	if !ok || session == nil {
		return nil, false
	}
	return session, true
}

// BearerToken extracts the token of the context session, if any.
func BearerToken(ctx context.Context) string {
	session, ok := SessionFromContext(ctx)
	if !ok {
		return ""
	}
	return session.Token
}
