package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/mediconnect/mediconnect-platform/internal/appointments"
	"github.com/mediconnect/mediconnect-platform/internal/directory"
	"github.com/mediconnect/mediconnect-platform/internal/observability/metrics"
	"github.com/mediconnect/mediconnect-platform/internal/session"
	"github.com/mediconnect/mediconnect-platform/pkg/logging"
)

var bookingTracer = otel.Tracer("mediconnect.internal.booking")

// ErrNoSession is returned when a call has no session to key the draft on.
var ErrNoSession = errors.New("booking: session required")

// Directory supplies the hospital and doctor options.
type Directory interface {
	ListHospitals(ctx context.Context) (*directory.HospitalListing, error)
	ListDoctors(ctx context.Context, viewer *session.Session) ([]directory.Doctor, error)
}

// Recorder persists a confirmed booking.
type Recorder interface {
	Record(ctx context.Context, in appointments.NewAppointment) (*appointments.Appointment, error)
}

// DoctorOption is a doctor selectable on step 2.
type DoctorOption struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization,omitempty"`
	Hospital       string `json:"hospital,omitempty"`
}

// View is the wizard state returned to the client.
type View struct {
	Step            Step           `json:"step"`
	StepName        string         `json:"step_name"`
	Draft           Draft          `json:"draft"`
	CanContinue     bool           `json:"can_continue"`
	Slots           []string       `json:"slots,omitempty"`
	HospitalOptions []string       `json:"hospital_options,omitempty"`
	DoctorOptions   []DoctorOption `json:"doctor_options,omitempty"`
	// OptionsError is set when the step's options could not be loaded. The
	// wizard state above is still the committed one.
	OptionsError string `json:"options_error,omitempty"`
}

// ServiceConfig wires the booking service.
type ServiceConfig struct {
	Drafts    *Drafts
	Directory Directory
	// Recorder is nil unless bookings are persisted.
	Recorder Recorder
	Metrics  *metrics.PlatformMetrics
	Logger   *logging.Logger
}

// Service drives each session's wizard.
type Service struct {
	drafts    *Drafts
	directory Directory
	recorder  Recorder
	metrics   *metrics.PlatformMetrics
	logger    *logging.Logger
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Directory == nil {
		panic("booking: directory required")
	}
	if cfg.Drafts == nil {
		cfg.Drafts = NewDrafts()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Service{
		drafts:    cfg.Drafts,
		directory: cfg.Directory,
		recorder:  cfg.Recorder,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
}

// Persists reports whether confirmations are stored.
func (s *Service) Persists() bool { return s.recorder != nil }

// State returns the session's wizard with options for the current step.
func (s *Service) State(ctx context.Context, sess *session.Session) (*View, error) {
	var snapshot Wizard
	if err := s.with(sess, func(w *Wizard) error {
		snapshot = *w
		return nil
	}); err != nil {
		return nil, err
	}
	return s.view(ctx, sess, &snapshot), nil
}

// Update applies a draft patch.
func (s *Service) Update(ctx context.Context, sess *session.Session, patch DraftPatch) (*View, error) {
	return s.mutate(ctx, sess, "update", func(w *Wizard) error { return w.Apply(patch) })
}

// Continue advances the wizard.
func (s *Service) Continue(ctx context.Context, sess *session.Session) (*View, error) {
	return s.mutate(ctx, sess, "continue", func(w *Wizard) error { return w.Continue() })
}

// Back steps the wizard back.
func (s *Service) Back(ctx context.Context, sess *session.Session) (*View, error) {
	return s.mutate(ctx, sess, "back", func(w *Wizard) error {
		w.Back()
		return nil
	})
}

// StartWithDoctor pre-fills the draft from the doctor directory.
func (s *Service) StartWithDoctor(ctx context.Context, sess *session.Session, hospital, doctor string) (*View, error) {
	return s.mutate(ctx, sess, "start", func(w *Wizard) error {
		w.StartWithDoctor(hospital, doctor)
		return nil
	})
}

// Discard drops the session's draft.
func (s *Service) Discard(sess *session.Session) {
	if sess == nil {
		return
	}
	s.drafts.Discard(sess.ID)
	s.metrics.ObserveWizard("discard", "ok")
}

// Confirm finishes the review step. With a recorder configured the booking
// is stored first; when that fails the wizard stays on review with the
// draft intact.
func (s *Service) Confirm(ctx context.Context, sess *session.Session) (*Confirmation, *View, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.confirm")
	defer span.End()
	span.SetAttributes(attribute.Bool("mediconnect.booking.persist", s.recorder != nil))

	var confirmation Confirmation
	var snapshot Wizard
	err := s.with(sess, func(w *Wizard) error {
		if w.Step() != StepReview {
			return ErrNotReviewing
		}
		var appointmentID string
		if s.recorder != nil {
			d := w.Draft()
			appt, err := s.recorder.Record(ctx, appointments.NewAppointment{
				PatientID:    sess.UserID,
				PatientEmail: sess.Email,
				Hospital:     d.Hospital,
				Doctor:       d.Doctor,
				Date:         d.Date,
				Slot:         d.Slot,
			})
			if err != nil {
				return fmt.Errorf("booking: record: %w", err)
			}
			appointmentID = appt.ID
		}
		c, err := w.Confirm()
		if err != nil {
			return err
		}
		c.AppointmentID = appointmentID
		confirmation = c
		snapshot = *w
		return nil
	})
	if err != nil {
		s.metrics.ObserveWizard("confirm", outcome(err))
		if !errors.Is(err, ErrNotReviewing) && !errors.Is(err, ErrNoSession) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.Error("failed to confirm booking", "session_id", sess.ID, "error", err)
		}
		return nil, nil, err
	}

	s.metrics.ObserveWizard("confirm", "ok")
	s.metrics.ObserveBookingConfirmed(s.recorder != nil)
	return &confirmation, s.view(ctx, sess, &snapshot), nil
}

func (s *Service) mutate(ctx context.Context, sess *session.Session, action string, fn func(w *Wizard) error) (*View, error) {
	var snapshot Wizard
	err := s.with(sess, func(w *Wizard) error {
		if err := fn(w); err != nil {
			return err
		}
		snapshot = *w
		return nil
	})
	s.metrics.ObserveWizard(action, outcome(err))
	if err != nil {
		return nil, err
	}
	return s.view(ctx, sess, &snapshot), nil
}

func (s *Service) with(sess *session.Session, fn func(w *Wizard) error) error {
	if sess == nil || sess.ID == "" {
		return ErrNoSession
	}
	return s.drafts.With(sess.ID, fn)
}

func (s *Service) view(ctx context.Context, sess *session.Session, w *Wizard) *View {
	v := &View{
		Step:        w.Step(),
		StepName:    w.Step().String(),
		Draft:       w.Draft(),
		CanContinue: w.CanContinue(),
	}
	switch w.Step() {
	case StepSelectHospital:
		listing, err := s.directory.ListHospitals(ctx)
		if err != nil {
			s.optionsFailed(v, sess, err)
			break
		}
		for _, h := range listing.Hospitals {
			v.HospitalOptions = append(v.HospitalOptions, h.Name)
		}
	case StepSelectDoctor:
		doctors, err := s.directory.ListDoctors(ctx, sess)
		if err != nil {
			s.optionsFailed(v, sess, err)
			break
		}
		v.DoctorOptions = DoctorOptions(doctors, v.Draft.Hospital)
	case StepSelectSlot:
		v.Slots = append([]string(nil), Slots...)
	}
	return v
}

func (s *Service) optionsFailed(v *View, sess *session.Session, err error) {
	s.logger.Warn("failed to load booking options", "session_id", sess.ID, "step", v.StepName, "error", err)
	v.OptionsError = MsgOptionsFailed
}

// DoctorOptions keeps doctors whose hospital name matches hospital, or all
// doctors when hospital is empty.
func DoctorOptions(doctors []directory.Doctor, hospital string) []DoctorOption {
	hospital = strings.TrimSpace(hospital)
	out := make([]DoctorOption, 0, len(doctors))
	for _, d := range doctors {
		if hospital != "" && !strings.EqualFold(strings.TrimSpace(d.HospitalName), hospital) {
			continue
		}
		out = append(out, DoctorOption{ID: d.ID, Name: d.Name, Specialization: d.Specialization, Hospital: d.HospitalName})
	}
	return out
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrStepIncomplete), errors.Is(err, ErrNotReviewing),
		errors.Is(err, ErrUnknownSlot), errors.Is(err, ErrInvalidDate):
		return "rejected"
	default:
		return "error"
	}
}
