// Package session holds the authenticated session context: who is signed
// in, their role and hospital. Handlers read it from the request context
// instead of from storage.
package session

import (
	"context"
	"errors"
	"time"
)

// Roles recognised by the dashboards.
const (
	RolePatient  = "patient"
	RoleDoctor   = "doctor"
	RoleHospital = "hospital"
)

// ErrNotFound is returned when a session id is unknown or expired.
var ErrNotFound = errors.New("session: not found")

// Session is the signed-in user's context.
type Session struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	HospitalID string    `json:"hospital_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || (!s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt))
}

// Identity is what a sign-in hands to the manager.
type Identity struct {
	UserID     string
	Email      string
	Role       string
	HospitalID string
}

type ctxKey string

const sessionKey ctxKey = "mediconnect.session"

// WithSession stores the session in context.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// FromContext extracts the session if present.
func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(sessionKey).(*Session)
	return sess, ok && sess != nil
}
