package router

import (
	"net/http"
	"strings"

	"github.com/mediconnect/mediconnect-platform/internal/session"
)

const accessTokenQuery = "access_token"

// bearerFromQuery lets websocket clients, which cannot set headers, pass
// their token as ?access_token=. An Authorization header always wins.
func bearerFromQuery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			if token := strings.TrimSpace(r.URL.Query().Get(accessTokenQuery)); token != "" {
				r.Header.Set("Authorization", "Bearer "+token)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// SessionForgetter drops per-session state held outside the session store.
type SessionForgetter interface {
	Forget(sessionID string)
}

// forgetOnSignOut clears per-session state once the sign-out handler ran.
func forgetOnSignOut(forgetters []SessionForgetter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			sess, ok := session.FromContext(r.Context())
			if !ok {
				return
			}
			for _, f := range forgetters {
				f.Forget(sess.ID)
			}
		})
	}
}
