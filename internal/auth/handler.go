package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/mediconnect/mediconnect-platform/internal/observability/metrics"
	"github.com/mediconnect/mediconnect-platform/internal/session"
	"github.com/mediconnect/mediconnect-platform/pkg/logging"
)

// SessionManager creates and revokes sessions.
type SessionManager interface {
	Create(ctx context.Context, id session.Identity) (*session.Session, error)
	Revoke(ctx context.Context, id string) error
}

// Auditor records authentication attempts.
type Auditor interface {
	LogSignIn(ctx context.Context, userID, email string, succeeded bool, reason string) error
	LogSignUp(ctx context.Context, userID, email string) error
}

// WelcomeSender delivers the sign-up welcome email.
type WelcomeSender interface {
	SendWelcome(ctx context.Context, email string) error
}

// HandlerConfig wires the auth HTTP handler.
type HandlerConfig struct {
	Provider Provider
	Sessions SessionManager
	Tokens   *TokenIssuer
	Audit    Auditor
	Welcome  WelcomeSender
	Metrics  *metrics.PlatformMetrics
	Logger   *logging.Logger
}

// Handler serves /auth endpoints.
type Handler struct {
	provider Provider
	sessions SessionManager
	tokens   *TokenIssuer
	audit    Auditor
	welcome  WelcomeSender
	metrics  *metrics.PlatformMetrics
	logger   *logging.Logger
}

// NewHandler creates an auth handler.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Provider == nil || cfg.Sessions == nil || cfg.Tokens == nil {
		panic("auth: provider, sessions and tokens are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Handler{
		provider: cfg.Provider,
		sessions: cfg.Sessions,
		tokens:   cfg.Tokens,
		audit:    cfg.Audit,
		welcome:  cfg.Welcome,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}
}

// CredentialsRequest is the body of sign-in and sign-up.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GateResponse reports the gate outcome. Token is set only on success.
type GateResponse struct {
	Mode      Mode       `json:"mode"`
	Status    Status     `json:"status"`
	Error     string     `json:"error,omitempty"`
	User      *User      `json:"user,omitempty"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// SignIn handles POST /auth/signin.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, ModeSignIn)
}

// SignUp handles POST /auth/signup.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, ModeSignUp)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, mode Mode) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	gate := NewGate(h.provider)
	gate.SetMode(mode)
	gate.SetCredentials(req.Email, req.Password)

	ctx := r.Context()
	user, err := gate.Submit(ctx)
	if err != nil {
		status := gate.Status()
		var perr *ProviderError
		code := http.StatusBadGateway
		outcome := "error"
		if errors.As(err, &perr) {
			outcome = "rejected"
			code = http.StatusBadRequest
			if mode == ModeSignIn {
				code = http.StatusUnauthorized
			}
		} else {
			h.logger.Error("auth provider call failed", "mode", mode, "error", err)
		}
		h.metrics.ObserveAuth(string(mode), outcome)
		if mode == ModeSignIn {
			h.logAudit(func() error { return h.audit.LogSignIn(ctx, "", req.Email, false, status.Error) })
		}
		writeJSON(w, code, GateResponse{Mode: mode, Status: status, Error: status.Error})
		return
	}

	sess, err := h.sessions.Create(ctx, session.Identity{
		UserID:     user.ID,
		Email:      user.Email,
		Role:       user.Role,
		HospitalID: user.HospitalID,
	})
	if err != nil {
		h.logger.Error("failed to create session", "user_id", user.ID, "error", err)
		h.metrics.ObserveAuth(string(mode), "error")
		writeJSON(w, http.StatusInternalServerError, GateResponse{Mode: mode, Status: Status{Error: FallbackMessage}, Error: FallbackMessage})
		return
	}
	token, err := h.tokens.Issue(sess)
	if err != nil {
		h.logger.Error("failed to issue token", "user_id", user.ID, "error", err)
		_ = h.sessions.Revoke(ctx, sess.ID)
		h.metrics.ObserveAuth(string(mode), "error")
		writeJSON(w, http.StatusInternalServerError, GateResponse{Mode: mode, Status: Status{Error: FallbackMessage}, Error: FallbackMessage})
		return
	}

	h.metrics.ObserveAuth(string(mode), "ok")
	code := http.StatusOK
	if mode == ModeSignUp {
		code = http.StatusCreated
		h.logAudit(func() error { return h.audit.LogSignUp(ctx, user.ID, user.Email) })
		if h.welcome != nil {
			if err := h.welcome.SendWelcome(ctx, user.Email); err != nil {
				h.logger.Warn("welcome email failed", "user_id", user.ID, "error", err)
			}
		}
	} else {
		h.logAudit(func() error { return h.audit.LogSignIn(ctx, user.ID, user.Email, true, "") })
	}

	h.logger.Info("session started", "user_id", user.ID, "role", user.Role, "mode", mode)
	expires := sess.ExpiresAt
	writeJSON(w, code, GateResponse{
		Mode:      mode,
		Status:    gate.Status(),
		User:      user,
		Token:     token,
		ExpiresAt: &expires,
	})
}

// Me handles GET /auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not signed in"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user": User{
			ID:         sess.UserID,
			Email:      sess.Email,
			Role:       sess.Role,
			HospitalID: sess.HospitalID,
		},
		"expires_at": sess.ExpiresAt,
	})
}

// SignOut handles POST /auth/signout.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not signed in"})
		return
	}
	if err := h.sessions.Revoke(r.Context(), sess.ID); err != nil {
		h.logger.Error("failed to revoke session", "session_id", sess.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": FallbackMessage})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logAudit(fn func() error) {
	if h.audit == nil {
		return
	}
	if err := fn(); err != nil {
		h.logger.Warn("audit write failed", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
