package directory

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mediconnect/mediconnect-platform/internal/observability/metrics"
	"github.com/mediconnect/mediconnect-platform/internal/session"
	"github.com/mediconnect/mediconnect-platform/pkg/logging"
)

// Handler serves the patient directory endpoints.
type Handler struct {
	service *Service
	metrics *metrics.PlatformMetrics
	logger  *logging.Logger
}

// NewHandler creates a directory handler.
func NewHandler(service *Service, m *metrics.PlatformMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, metrics: m, logger: logger}
}

// HospitalsResponse is the body of GET /patient/hospitals.
type HospitalsResponse struct {
	Hospitals []Hospital     `json:"hospitals"`
	Count     int            `json:"count"`
	Total     int            `json:"total"`
	Facets    HospitalFacets `json:"facets"`
	Notice    string         `json:"notice,omitempty"`
}

// DoctorsResponse is the body of GET /patient/doctors.
type DoctorsResponse struct {
	Doctors []Doctor     `json:"doctors"`
	Count   int          `json:"count"`
	Total   int          `json:"total"`
	Facets  DoctorFacets `json:"facets"`
}

// ListHospitals handles GET /patient/hospitals.
func (h *Handler) ListHospitals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := HospitalFilter{
		Hospital:  q.Get("hospital"),
		Location:  q.Get("location"),
		Service:   q.Get("service"),
		MinRating: q.Get("rating"),
		Search:    q.Get("search"),
	}
	if _, _, err := ParseRating(filter.MinRating); err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidRating)
		return
	}

	listing, err := h.service.ListHospitals(r.Context())
	if err != nil {
		h.metrics.ObserveDirectory("hospitals", "error")
		writeError(w, http.StatusBadGateway, MsgHospitalsFailed)
		return
	}
	filtered, err := FilterHospitals(listing.Hospitals, filter)
	if err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidRating)
		return
	}

	h.metrics.ObserveDirectory("hospitals", "ok")
	writeJSON(w, http.StatusOK, HospitalsResponse{
		Hospitals: filtered,
		Count:     len(filtered),
		Total:     len(listing.Hospitals),
		Facets:    BuildHospitalFacets(listing.Hospitals),
		Notice:    listing.Notice,
	})
}

// GetHospital handles GET /patient/hospitals/{id}.
func (h *Handler) GetHospital(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	hospital, err := h.service.GetHospital(r.Context(), id)
	if errors.Is(err, ErrHospitalNotFound) {
		h.metrics.ObserveDirectory("hospital", "not_found")
		writeError(w, http.StatusNotFound, MsgHospitalNotFound)
		return
	}
	if err != nil {
		h.metrics.ObserveDirectory("hospital", "error")
		writeError(w, http.StatusBadGateway, MsgHospitalDetailFailed)
		return
	}
	h.metrics.ObserveDirectory("hospital", "ok")
	writeJSON(w, http.StatusOK, hospital)
}

// ListDoctors handles GET /patient/doctors.
func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := DoctorFilter{
		HospitalID:     q.Get("hospital_id"),
		Specialization: q.Get("specialization"),
		Availability:   q.Get("availability"),
		Search:         q.Get("search"),
	}

	viewer, _ := session.FromContext(r.Context())
	doctors, err := h.service.ListDoctors(r.Context(), viewer)
	if err != nil {
		h.metrics.ObserveDirectory("doctors", "error")
		writeError(w, http.StatusBadGateway, MsgDoctorsFailed)
		return
	}

	var hospitals []Hospital
	if listing, err := h.service.ListHospitals(r.Context()); err == nil && !listing.Sample {
		hospitals = listing.Hospitals
	}

	filtered := FilterDoctors(doctors, filter)
	h.metrics.ObserveDirectory("doctors", "ok")
	writeJSON(w, http.StatusOK, DoctorsResponse{
		Doctors: filtered,
		Count:   len(filtered),
		Total:   len(doctors),
		Facets:  BuildDoctorFacets(doctors, hospitals),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
