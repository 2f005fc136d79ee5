package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mediconnect/mediconnect-platform/internal/session"
)

// NavResponse is the body of the nav endpoints.
type NavResponse struct {
	Shell  string    `json:"shell"`
	Active string    `json:"active"`
	Items  []NavItem `json:"items"`
}

// SelectRequest is the body of PUT nav.
type SelectRequest struct {
	View string `json:"view"`
}

// Handler serves GET/PUT for one shell's nav.
type Handler struct {
	nav *Navigator
}

func NewHandler(nav *Navigator) *Handler {
	if nav == nil {
		panic("dashboard: navigator required")
	}
	return &Handler{nav: nav}
}

// Get returns the tabs and the active one.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Please sign in again.")
		return
	}
	writeJSON(w, http.StatusOK, h.response(sess.ID))
}

// Select switches the active tab.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Please sign in again.")
		return
	}
	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := h.nav.Select(sess.ID, req.View); errors.Is(err, ErrUnknownView) {
		writeError(w, http.StatusBadRequest, "Unknown view.")
		return
	}
	writeJSON(w, http.StatusOK, h.response(sess.ID))
}

func (h *Handler) response(sessionID string) NavResponse {
	shell := h.nav.Shell()
	return NavResponse{Shell: shell.Name, Active: h.nav.Active(sessionID), Items: shell.Items}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// Forget drops the session's tab when it signs out.
func (h *Handler) Forget(sessionID string) { h.nav.Forget(sessionID) }
