package appointments

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/mediconnect/mediconnect-platform/internal/docstore"
	"github.com/mediconnect/mediconnect-platform/internal/session"
	"github.com/mediconnect/mediconnect-platform/pkg/logging"
)

var appointmentsTracer = otel.Tracer("mediconnect.internal.appointments")

// PatientView is the history tab of the patient dashboard.
type PatientView struct {
	Appointments  []Appointment  `json:"appointments"`
	Notifications []Notification `json:"notifications"`
}

// HospitalView is the appointments tab of the hospital dashboard.
type HospitalView struct {
	Appointments []Appointment `json:"appointments"`
	Doctors      []string      `json:"doctors"`
	Total        int           `json:"total"`
}

// Service merges the sample lists with recorded bookings. Without a store
// only the samples are served.
type Service struct {
	store  docstore.Store
	logger *logging.Logger
}

// NewService creates an appointments service. store may be nil.
func NewService(store docstore.Store, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, logger: logger}
}

// ForPatient returns the viewer's history, recorded bookings first.
func (s *Service) ForPatient(ctx context.Context, viewer *session.Session) (*PatientView, error) {
	history := PatientHistorySamples()
	if s.store != nil && viewer != nil {
		recorded, err := s.recorded(ctx, "appointments.for_patient", docstore.Where("patientId", viewer.UserID))
		if err != nil {
			return nil, err
		}
		history = append(recorded, history...)
	}
	return &PatientView{Appointments: history, Notifications: PatientNotificationSamples()}, nil
}

// ForHospital returns the hospital's appointments narrowed by filter. The
// doctor facet is built from the unfiltered list.
func (s *Service) ForHospital(ctx context.Context, hospitalName string, filter Filter) (*HospitalView, error) {
	all := HospitalSamples()
	if s.store != nil && hospitalName != "" {
		recorded, err := s.recorded(ctx, "appointments.for_hospital", docstore.Where("hospital", hospitalName))
		if err != nil {
			return nil, err
		}
		all = append(recorded, all...)
	}
	filtered, err := filter.Apply(all)
	if err != nil {
		return nil, err
	}
	return &HospitalView{Appointments: filtered, Doctors: doctorNames(all), Total: len(all)}, nil
}

func (s *Service) recorded(ctx context.Context, spanName string, filter docstore.Filter) ([]Appointment, error) {
	ctx, span := appointmentsTracer.Start(ctx, spanName)
	defer span.End()

	docs, err := s.store.Query(ctx, docstore.CollectionAppointments, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("failed to load appointments", "collection", docstore.CollectionAppointments, "error", err)
		return nil, fmt.Errorf("appointments: query: %w", err)
	}
	span.SetAttributes(attribute.Int("mediconnect.appointment_count", len(docs)))

	out := make([]Appointment, 0, len(docs))
	for i := len(docs) - 1; i >= 0; i-- {
		out = append(out, FromDocument(&docs[i]))
	}
	return out, nil
}

func doctorNames(list []Appointment) []string {
	seen := map[string]bool{}
	var names []string
	for _, a := range list {
		if a.Doctor == "" || seen[a.Doctor] {
			continue
		}
		seen[a.Doctor] = true
		names = append(names, a.Doctor)
	}
	sort.Strings(names)
	return names
}
