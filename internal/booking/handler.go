package booking

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mediconnect/mediconnect-platform/internal/session"
	"github.com/mediconnect/mediconnect-platform/pkg/logging"
)

// User-facing messages.
const (
	MsgStepIncomplete = "Complete this step before continuing."
	MsgNotReviewing   = "Review your booking before confirming."
	MsgUnknownSlot    = "Pick one of the available time slots."
	MsgInvalidDate    = "Pick a valid date."
	MsgOptionsFailed  = "Unable to load booking options. Please try again later."
	MsgConfirmFailed  = "Unable to book the appointment right now. Please try again."
	MsgInvalidBody    = "Invalid request body."
	MsgNoSession      = "Please sign in to book an appointment."
)

// NavTab is the patient dashboard tab holding the wizard.
const NavTab = "booking"

// Navigator switches a session's dashboard tab.
type Navigator interface {
	Select(sessionID, view string) error
}

// Handler serves /patient/booking.
type Handler struct {
	service *Service
	nav     Navigator
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("booking: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// WithNavigator makes Start open the booking tab of the patient dashboard.
func (h *Handler) WithNavigator(nav Navigator) *Handler {
	h.nav = nav
	return h
}

// StartRequest is the body of POST /patient/booking/start.
type StartRequest struct {
	Hospital string `json:"hospital"`
	Doctor   string `json:"doctor"`
}

// ConfirmResponse is the body of a successful confirm.
type ConfirmResponse struct {
	Confirmation *Confirmation `json:"confirmation"`
	Persisted    bool          `json:"persisted"`
	Wizard       *View         `json:"wizard,omitempty"`
}

// Get handles GET /patient/booking.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	view, err := h.service.State(r.Context(), sess)
	h.respond(w, view, err)
}

// UpdateDraft handles PATCH /patient/booking/draft.
func (h *Handler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	var patch DraftPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}
	sess, _ := session.FromContext(r.Context())
	view, err := h.service.Update(r.Context(), sess, patch)
	h.respond(w, view, err)
}

// Continue handles POST /patient/booking/continue.
func (h *Handler) Continue(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	view, err := h.service.Continue(r.Context(), sess)
	h.respond(w, view, err)
}

// Back handles POST /patient/booking/back.
func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	view, err := h.service.Back(r.Context(), sess)
	h.respond(w, view, err)
}

// Start handles POST /patient/booking/start.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}
	sess, _ := session.FromContext(r.Context())
	view, err := h.service.StartWithDoctor(r.Context(), sess, req.Hospital, req.Doctor)
	if err == nil && h.nav != nil {
		if navErr := h.nav.Select(sess.ID, NavTab); navErr != nil {
			h.logger.Warn("failed to open booking tab", "session_id", sess.ID, "error", navErr)
		}
	}
	h.respond(w, view, err)
}

// Confirm handles POST /patient/booking/confirm.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	confirmation, view, err := h.service.Confirm(r.Context(), sess)
	if err != nil && confirmation == nil {
		status, msg := statusFor(err)
		if status >= http.StatusInternalServerError {
			msg = MsgConfirmFailed
		}
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, ConfirmResponse{
		Confirmation: confirmation,
		Persisted:    h.service.Persists(),
		Wizard:       view,
	})
}

// Discard handles DELETE /patient/booking.
func (h *Handler) Discard(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	h.service.Discard(sess)
	w.WriteHeader(http.StatusNoContent)
}

// Forget discards the draft of a session that signed out.
func (h *Handler) Forget(sessionID string) {
	h.service.Discard(&session.Session{ID: sessionID})
}

func (h *Handler) respond(w http.ResponseWriter, view *View, err error) {
	if err != nil {
		status, msg := statusFor(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrNoSession):
		return http.StatusUnauthorized, MsgNoSession
	case errors.Is(err, ErrStepIncomplete):
		return http.StatusBadRequest, MsgStepIncomplete
	case errors.Is(err, ErrNotReviewing):
		return http.StatusBadRequest, MsgNotReviewing
	case errors.Is(err, ErrUnknownSlot):
		return http.StatusBadRequest, MsgUnknownSlot
	case errors.Is(err, ErrInvalidDate):
		return http.StatusBadRequest, MsgInvalidDate
	default:
		return http.StatusBadGateway, MsgOptionsFailed
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
