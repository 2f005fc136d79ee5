package appointments

import (
	"encoding/json"
	"net/http"

	"github.com/mediconnect/mediconnect-platform/internal/session"
)

// MsgLoadFailed is shown when recorded appointments cannot be read.
const MsgLoadFailed = "Unable to load appointments right now. Please try again later."

// Handler serves the patient appointment history.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	if service == nil {
		panic("appointments: service required")
	}
	return &Handler{service: service}
}

// PatientHistory handles GET /patient/appointments.
func (h *Handler) PatientHistory(w http.ResponseWriter, r *http.Request) {
	viewer, _ := session.FromContext(r.Context())
	view, err := h.service.ForPatient(r.Context(), viewer)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": MsgLoadFailed})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
