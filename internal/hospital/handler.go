package hospital

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mediconnect/mediconnect-platform/internal/appointments"
	"github.com/mediconnect/mediconnect-platform/internal/session"
	"github.com/mediconnect/mediconnect-platform/pkg/logging"
)

type workspaceKey struct{}

// WithWorkspace stores a resolved workspace in ctx.
func WithWorkspace(ctx context.Context, ws *Workspace) context.Context {
	return context.WithValue(ctx, workspaceKey{}, ws)
}

// WorkspaceFromContext returns the workspace stored by RequireWorkspace.
func WorkspaceFromContext(ctx context.Context) (*Workspace, bool) {
	ws, ok := ctx.Value(workspaceKey{}).(*Workspace)
	return ws, ok && ws != nil
}

// Handler serves the /admin endpoints.
type Handler struct {
	service *Service
	feed    *Feed
	logger  *logging.Logger
}

func NewHandler(service *Service, feed *Feed, logger *logging.Logger) *Handler {
	if service == nil {
		panic("hospital: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, feed: feed, logger: logger}
}

// RosterResponse is the body of GET /admin/doctors.
type RosterResponse struct {
	Doctors []Doctor `json:"doctors"`
	Count   int      `json:"count"`
	Total   int      `json:"total"`
	Saving  bool     `json:"saving"`
}

// RegistrationFailure is returned when a doctor could not be added.
type RegistrationFailure struct {
	Error string      `json:"error"`
	Form  *DoctorForm `json:"form,omitempty"`
}

// RequireWorkspace resolves the operator's hospital once per request.
func (h *Handler) RequireWorkspace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := session.FromContext(r.Context())
		ws, err := h.service.ResolveWorkspace(r.Context(), sess)
		switch {
		case errors.Is(err, ErrNoSession):
			writeError(w, http.StatusUnauthorized, MsgNoSession)
			return
		case errors.Is(err, ErrWorkspaceNotFound):
			writeError(w, http.StatusNotFound, MsgWorkspaceNotFound)
			return
		case err != nil:
			writeError(w, http.StatusBadGateway, MsgWorkspaceFailed)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithWorkspace(r.Context(), ws)))
	})
}

// Profile handles GET /admin/profile.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

// ListDoctors handles GET /admin/doctors?search=.
func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	roster, err := h.service.Roster(r.Context(), ws)
	if err != nil {
		writeError(w, http.StatusBadGateway, MsgRosterFailed)
		return
	}
	filtered := SearchRoster(roster, r.URL.Query().Get("search"))
	writeJSON(w, http.StatusOK, RosterResponse{
		Doctors: filtered,
		Count:   len(filtered),
		Total:   len(roster),
		Saving:  h.service.Saving(ws.ID),
	})
}

// RegisterDoctor handles POST /admin/doctors.
func (h *Handler) RegisterDoctor(w http.ResponseWriter, r *http.Request) {
	ws, _ := WorkspaceFromContext(r.Context())
	var form DoctorForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}
	sess, _ := session.FromContext(r.Context())

	reg, err := h.service.RegisterDoctor(r.Context(), ws, sess, form)
	var formErr *FormError
	var regErr *RegistrationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, reg)
	case errors.As(err, &formErr):
		writeJSON(w, http.StatusBadRequest, RegistrationFailure{Error: formErr.Message, Form: &form})
	case errors.Is(err, ErrSaveInProgress):
		writeError(w, http.StatusConflict, MsgSaveInProgress)
	case errors.As(err, &regErr):
		writeJSON(w, http.StatusBadGateway, RegistrationFailure{Error: regErr.Message, Form: &regErr.Form})
	default:
		writeJSON(w, http.StatusBadGateway, RegistrationFailure{Error: MsgAddDoctorFailed, Form: &form})
	}
}

// ListAnnouncements handles GET /admin/notifications.
func (h *Handler) ListAnnouncements(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"announcements": h.service.Announcements(ws)})
}

// PublishAnnouncement handles POST /admin/notifications.
func (h *Handler) PublishAnnouncement(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var form AnnouncementForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}
	a, err := h.service.PublishAnnouncement(r.Context(), ws, form)
	if errors.Is(err, ErrTitleRequired) {
		writeError(w, http.StatusBadRequest, MsgTitleRequired)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// Stream handles GET /admin/notifications/stream.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if h.feed == nil {
		writeError(w, http.StatusNotFound, "live updates are not enabled")
		return
	}
	h.feed.serve(w, r, ws.ID)
}

// Appointments handles GET /admin/appointments?doctor=&date=.
func (h *Handler) Appointments(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	doctor := q.Get("doctor")
	if doctor == "" {
		doctor = "all"
	}
	view, err := h.service.Appointments(r.Context(), ws, appointments.Filter{Doctor: doctor, Date: q.Get("date")})
	if errors.Is(err, appointments.ErrInvalidDate) {
		writeError(w, http.StatusBadRequest, MsgInvalidDate)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, MsgAppointmentsFailed)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) workspace(w http.ResponseWriter, r *http.Request) (*Workspace, bool) {
	ws, ok := WorkspaceFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, MsgNoSession)
		return nil, false
	}
	return ws, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
