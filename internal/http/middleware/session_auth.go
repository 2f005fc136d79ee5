package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mediconnect/mediconnect-platform/internal/auth"
	"github.com/mediconnect/mediconnect-platform/internal/session"
)

// TokenParser verifies bearer tokens.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// SessionResolver maps a session id to a live session.
type SessionResolver interface {
	Lookup(ctx context.Context, id string) (*session.Session, error)
}

// SessionAuth requires a bearer token whose jti names a live session and
// puts that session on the request context.
func SessionAuth(tokens TokenParser, sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			claims, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			sess, err := sessions.Lookup(r.Context(), claims.ID)
			if err != nil {
				if errors.Is(err, session.ErrNotFound) {
					writeError(w, http.StatusUnauthorized, "session expired")
					return
				}
				writeError(w, http.StatusServiceUnavailable, "session lookup failed")
				return
			}
			next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
		})
	}
}

// RequireRole rejects sessions whose role differs from role with 403 and
// message.
func RequireRole(role, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := session.FromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "not signed in")
				return
			}
			if sess.Role != role {
				writeError(w, http.StatusForbidden, message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
