package directory

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mediconnect/mediconnect-platform/internal/docstore"
	"github.com/mediconnect/mediconnect-platform/internal/session"
	"github.com/mediconnect/mediconnect-platform/pkg/logging"
)

var directoryTracer = otel.Tracer("mediconnect.internal.directory")

// HospitalListing is the fetched hospital list. Sample is set when the
// collection was empty and the sample hospitals were substituted.
type HospitalListing struct {
	Hospitals []Hospital
	Sample    bool
	Notice    string
}

// Service reads hospitals and doctors from the document store. Every call
// fetches afresh.
type Service struct {
	store  docstore.Store
	logger *logging.Logger
}

// NewService constructs a directory service.
func NewService(store docstore.Store, logger *logging.Logger) *Service {
	if store == nil {
		panic("directory: document store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, logger: logger}
}

// ListHospitals returns every hospital in fetch order.
func (s *Service) ListHospitals(ctx context.Context) (*HospitalListing, error) {
	ctx, span := directoryTracer.Start(ctx, "directory.list_hospitals")
	defer span.End()

	docs, err := s.store.List(ctx, docstore.CollectionAdminHospitals)
	if err != nil {
		recordSpanError(span, err)
		s.logger.Error("failed to load hospitals", "collection", docstore.CollectionAdminHospitals, "error", err)
		return nil, fmt.Errorf("directory: list hospitals: %w", err)
	}
	span.SetAttributes(attribute.Int("mediconnect.hospital_count", len(docs)))

	if len(docs) == 0 {
		return &HospitalListing{Hospitals: SampleHospitals(), Sample: true, Notice: MsgSampleHospitals}, nil
	}
	hospitals := make([]Hospital, 0, len(docs))
	for i := range docs {
		hospitals = append(hospitals, HospitalFromDocument(&docs[i]))
	}
	return &HospitalListing{Hospitals: hospitals}, nil
}

// GetHospital loads one hospital; ErrHospitalNotFound when absent.
func (s *Service) GetHospital(ctx context.Context, id string) (*Hospital, error) {
	ctx, span := directoryTracer.Start(ctx, "directory.get_hospital")
	defer span.End()
	span.SetAttributes(attribute.String("mediconnect.hospital_id", id))

	doc, err := s.store.Get(ctx, docstore.CollectionAdminHospitals, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrHospitalNotFound
	}
	if err != nil {
		recordSpanError(span, err)
		s.logger.Error("failed to load hospital", "hospital_id", id, "error", err)
		return nil, fmt.Errorf("directory: get hospital: %w", err)
	}
	h := HospitalFromDocument(doc)
	return &h, nil
}

// ListDoctors returns doctors in fetch order with hospital names resolved.
// A doctor-role viewer sees only their own hospital's doctors.
func (s *Service) ListDoctors(ctx context.Context, viewer *session.Session) ([]Doctor, error) {
	ctx, span := directoryTracer.Start(ctx, "directory.list_doctors")
	defer span.End()

	var filters []docstore.Filter
	if viewer != nil && viewer.Role == session.RoleDoctor && viewer.HospitalID != "" {
		filters = append(filters, docstore.Where("hospitalId", viewer.HospitalID))
		span.SetAttributes(attribute.String("mediconnect.scope_hospital_id", viewer.HospitalID))
	}

	docs, err := s.store.Query(ctx, docstore.CollectionHospitalDoctors, filters...)
	if err != nil {
		recordSpanError(span, err)
		s.logger.Error("failed to load doctors", "collection", docstore.CollectionHospitalDoctors, "error", err)
		return nil, fmt.Errorf("directory: list doctors: %w", err)
	}

	names := map[string]string{}
	doctors := make([]Doctor, 0, len(docs))
	for i := range docs {
		d := DoctorFromDocument(&docs[i])
		if d.HospitalName == "" && d.HospitalID != "" {
			d.HospitalName = s.resolveHospitalName(ctx, d.HospitalID, names)
		}
		doctors = append(doctors, d)
	}
	return doctors, nil
}

// resolveHospitalName looks the name up in the hospitals collection. A
// failed lookup is logged and leaves the name empty.
func (s *Service) resolveHospitalName(ctx context.Context, hospitalID string, memo map[string]string) string {
	if name, ok := memo[hospitalID]; ok {
		return name
	}
	var name string
	doc, err := s.store.Get(ctx, docstore.CollectionHospitals, hospitalID)
	switch {
	case err == nil:
		name = doc.String("name")
	case errors.Is(err, docstore.ErrNotFound):
	default:
		s.logger.Warn("failed to resolve hospital for doctor", "hospital_id", hospitalID, "error", err)
	}
	memo[hospitalID] = name
	return name
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
