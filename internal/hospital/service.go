package hospital

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mediconnect/mediconnect-platform/internal/appointments"
	"github.com/mediconnect/mediconnect-platform/internal/docstore"
	"github.com/mediconnect/mediconnect-platform/internal/events"
	"github.com/mediconnect/mediconnect-platform/internal/observability/metrics"
	"github.com/mediconnect/mediconnect-platform/internal/session"
	"github.com/mediconnect/mediconnect-platform/pkg/logging"
)

var hospitalTracer = otel.Tracer("mediconnect.internal.hospital")

// Auditor records doctor registrations.
type Auditor interface {
	LogDoctorRegistered(ctx context.Context, hospitalID, userID, doctorID, doctorName string) error
}

// AnnouncementMailer mails published announcements to the workspace.
type AnnouncementMailer interface {
	SendAnnouncement(ctx context.Context, to, hospitalName, title, body string) error
}

// Registration is the result of a successful doctor registration.
type Registration struct {
	Doctor Doctor   `json:"doctor"`
	Roster []Doctor `json:"roster"`
	// RosterPartial is set when the roster could not be reloaded after the
	// write and holds only the new doctor.
	RosterPartial bool `json:"roster_partial,omitempty"`
}

// RegistrationError is a failed write. The form is echoed back for retry.
type RegistrationError struct {
	Message string
	Form    DoctorForm
	Err     error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("hospital: register doctor: %v", e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// ServiceConfig wires the workspace service.
type ServiceConfig struct {
	Store        docstore.Store
	Appointments *appointments.Service
	Board        *Board
	Feed         *Feed
	Publisher    events.Publisher
	Auditor      Auditor
	Mailer       AnnouncementMailer
	Metrics      *metrics.PlatformMetrics
	Logger       *logging.Logger
}

// Service backs the hospital dashboard.
type Service struct {
	store        docstore.Store
	appointments *appointments.Service
	board        *Board
	feed         *Feed
	publisher    events.Publisher
	auditor      Auditor
	mailer       AnnouncementMailer
	metrics      *metrics.PlatformMetrics
	logger       *logging.Logger

	savingMu sync.Mutex
	saving   map[string]struct{}
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Store == nil {
		panic("hospital: document store required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Board == nil {
		cfg.Board = NewBoard()
	}
	if cfg.Appointments == nil {
		cfg.Appointments = appointments.NewService(nil, cfg.Logger)
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.NopPublisher{}
	}
	return &Service{
		store:        cfg.Store,
		appointments: cfg.Appointments,
		board:        cfg.Board,
		feed:         cfg.Feed,
		publisher:    cfg.Publisher,
		auditor:      cfg.Auditor,
		mailer:       cfg.Mailer,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		saving:       make(map[string]struct{}),
	}
}

// ResolveWorkspace finds the operator's hospital by the session's hospital
// id, falling back to the first hospital whose email matches the session.
func (s *Service) ResolveWorkspace(ctx context.Context, sess *session.Session) (*Workspace, error) {
	if sess == nil {
		return nil, ErrNoSession
	}
	ctx, span := hospitalTracer.Start(ctx, "hospital.resolve_workspace")
	defer span.End()

	var doc *docstore.Document
	if sess.HospitalID != "" {
		d, err := s.store.Get(ctx, docstore.CollectionAdminHospitals, sess.HospitalID)
		switch {
		case err == nil:
			doc = d
		case !errors.Is(err, docstore.ErrNotFound):
			return nil, s.backendError(span, "failed to load hospital workspace", err, "hospital_id", sess.HospitalID)
		}
	}
	if doc == nil && sess.Email != "" {
		docs, err := s.store.Query(ctx, docstore.CollectionAdminHospitals, docstore.Where("email", sess.Email))
		if err != nil {
			return nil, s.backendError(span, "failed to query hospital workspace", err, "user_id", sess.UserID)
		}
		if len(docs) > 0 {
			doc = &docs[0]
		}
	}
	if doc == nil {
		return nil, ErrWorkspaceNotFound
	}
	span.SetAttributes(attribute.String("mediconnect.hospital_id", doc.ID))
	return &Workspace{ID: doc.ID, Profile: profileFromDocument(doc, sess.Email)}, nil
}

// Roster lists the hospital's doctors in store order.
func (s *Service) Roster(ctx context.Context, ws *Workspace) ([]Doctor, error) {
	ctx, span := hospitalTracer.Start(ctx, "hospital.roster")
	defer span.End()
	span.SetAttributes(attribute.String("mediconnect.hospital_id", ws.ID))

	docs, err := s.store.Query(ctx, docstore.CollectionHospitalDoctors, docstore.Where("hospitalId", ws.ID))
	if err != nil {
		return nil, s.backendError(span, "failed to load doctors for hospital", err, "hospital_id", ws.ID)
	}
	roster := make([]Doctor, 0, len(docs))
	for i := range docs {
		roster = append(roster, doctorFromDocument(&docs[i]))
	}
	return roster, nil
}

// RegisterDoctor validates the form and issues exactly one create. Only one
// registration per hospital runs at a time. The create is the only call that
// can fail the request; the returned roster is reloaded afterwards and
// reduced with the new doctor.
func (s *Service) RegisterDoctor(ctx context.Context, ws *Workspace, actor *session.Session, form DoctorForm) (*Registration, error) {
	if ws == nil || ws.ID == "" {
		s.metrics.ObserveRegistration("rejected")
		return nil, &FormError{Message: MsgHospitalNotLoaded}
	}
	if err := form.Validate(); err != nil {
		s.metrics.ObserveRegistration("rejected")
		return nil, err
	}
	if !s.beginSave(ws.ID) {
		s.metrics.ObserveRegistration("busy")
		return nil, ErrSaveInProgress
	}
	defer s.endSave(ws.ID)

	ctx, span := hospitalTracer.Start(ctx, "hospital.register_doctor")
	defer span.End()
	span.SetAttributes(attribute.String("mediconnect.hospital_id", ws.ID))

	doc, err := s.store.Create(ctx, docstore.CollectionHospitalDoctors, form.fields(ws.ID))
	if err != nil {
		s.metrics.ObserveRegistration("error")
		_ = s.backendError(span, "failed to add doctor", err, "hospital_id", ws.ID)
		return nil, &RegistrationError{Message: MsgAddDoctorFailed, Form: form, Err: err}
	}
	doctor := doctorFromDocument(doc)
	s.metrics.ObserveRegistration("ok")

	reg := &Registration{Doctor: doctor}
	roster, err := s.Roster(ctx, ws)
	if err != nil {
		s.logger.Warn("roster reload failed after doctor registration", "hospital_id", ws.ID, "doctor_id", doctor.ID, "error", err)
		reg.RosterPartial = true
	}
	reg.Roster = ReduceRoster(roster, RosterEvent{Kind: DoctorAdded, Doctor: doctor})

	var actorID string
	if actor != nil {
		actorID = actor.UserID
	}
	s.afterRegistration(ctx, ws, actorID, doctor)
	return reg, nil
}

func (s *Service) afterRegistration(ctx context.Context, ws *Workspace, actorID string, doctor Doctor) {
	if s.auditor != nil {
		if err := s.auditor.LogDoctorRegistered(ctx, ws.ID, actorID, doctor.ID, doctor.Name); err != nil {
			s.logger.Warn("failed to audit doctor registration", "hospital_id", ws.ID, "error", err)
		}
	}
	event, err := events.New(events.TypeDoctorRegistered, events.DoctorRegisteredV1{
		HospitalID:     ws.ID,
		DoctorID:       doctor.ID,
		Name:           doctor.Name,
		Specialization: doctor.Specialization,
		RegisteredBy:   actorID,
	})
	if err == nil {
		err = s.publisher.Publish(ctx, event)
	}
	if err != nil {
		s.logger.Warn("failed to publish doctor registration", "hospital_id", ws.ID, "doctor_id", doctor.ID, "error", err)
	}
	d := doctor
	s.feed.Broadcast(FeedMessage{Type: FeedDoctorAdded, HospitalID: ws.ID, Doctor: &d})
}

func (s *Service) beginSave(hospitalID string) bool {
	s.savingMu.Lock()
	defer s.savingMu.Unlock()
	if _, busy := s.saving[hospitalID]; busy {
		return false
	}
	s.saving[hospitalID] = struct{}{}
	return true
}

func (s *Service) endSave(hospitalID string) {
	s.savingMu.Lock()
	delete(s.saving, hospitalID)
	s.savingMu.Unlock()
}

// Saving reports whether a registration is in flight for the hospital.
func (s *Service) Saving(hospitalID string) bool {
	s.savingMu.Lock()
	defer s.savingMu.Unlock()
	_, busy := s.saving[hospitalID]
	return busy
}

// Announcements lists the board, newest first.
func (s *Service) Announcements(ws *Workspace) []Announcement {
	return s.board.List(ws.ID)
}

// PublishAnnouncement adds to the board, pushes to the live feed and mails
// the workspace address. Delivery failures are logged only.
func (s *Service) PublishAnnouncement(ctx context.Context, ws *Workspace, form AnnouncementForm) (Announcement, error) {
	a, err := s.board.Publish(ws.ID, form)
	if err != nil {
		return Announcement{}, err
	}
	published := a
	s.feed.Broadcast(FeedMessage{Type: FeedAnnouncement, HospitalID: ws.ID, Announcement: &published})

	event, err := events.New(events.TypeAnnouncementPublished, events.AnnouncementPublishedV1{
		HospitalID:     ws.ID,
		AnnouncementID: a.ID,
		Title:          a.Title,
		Audience:       a.Audience,
		Schedule:       a.Schedule,
	})
	if err == nil {
		err = s.publisher.Publish(ctx, event)
	}
	if err != nil {
		s.logger.Warn("failed to publish announcement event", "hospital_id", ws.ID, "error", err)
	}

	if s.mailer != nil && strings.TrimSpace(ws.Profile.Email) != "" {
		if err := s.mailer.SendAnnouncement(ctx, ws.Profile.Email, ws.Profile.Name, a.Title, a.Description); err != nil {
			s.logger.Warn("failed to mail announcement", "hospital_id", ws.ID, "error", err)
		}
	}
	return a, nil
}

// Appointments lists the hospital's appointments.
func (s *Service) Appointments(ctx context.Context, ws *Workspace, filter appointments.Filter) (*appointments.HospitalView, error) {
	return s.appointments.ForHospital(ctx, ws.Profile.Name, filter)
}

func (s *Service) backendError(span trace.Span, msg string, err error, keyvals ...any) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.logger.Error(msg, append(keyvals, "error", err)...)
	return fmt.Errorf("hospital: %s: %w", msg, err)
}
