package appointments

import (
	"context"
	"errors"
	"fmt"

	"github.com/mediconnect/mediconnect-platform/internal/docstore"
	"github.com/mediconnect/mediconnect-platform/internal/events"
	"github.com/mediconnect/mediconnect-platform/pkg/logging"
)

var (
	// ErrInvalidDate is returned for a date filter not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("appointments: invalid date filter")
	// ErrIncomplete is returned when a booking lacks a required field.
	ErrIncomplete = errors.New("appointments: booking is incomplete")
)

// NewAppointment is a confirmed booking to persist.
type NewAppointment struct {
	PatientID    string
	PatientEmail string
	Hospital     string
	Doctor       string
	Date         string
	Slot         string
}

// Recorder stores confirmed bookings and announces them.
type Recorder struct {
	store     docstore.Store
	publisher events.Publisher
	logger    *logging.Logger
}

// NewRecorder creates a recorder. A nil publisher drops events.
func NewRecorder(store docstore.Store, publisher events.Publisher, logger *logging.Logger) *Recorder {
	if store == nil {
		panic("appointments: document store required")
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Recorder{store: store, publisher: publisher, logger: logger}
}

// Record writes one appointments document with status booked. A failed
// event publish is logged and does not fail the booking.
func (r *Recorder) Record(ctx context.Context, in NewAppointment) (*Appointment, error) {
	if in.Hospital == "" || in.Doctor == "" || in.Date == "" || in.Slot == "" {
		return nil, ErrIncomplete
	}
	doc, err := r.store.Create(ctx, docstore.CollectionAppointments, map[string]any{
		"patientId": in.PatientID,
		"patient":   in.PatientEmail,
		"hospital":  in.Hospital,
		"doctor":    in.Doctor,
		"date":      in.Date,
		"slot":      in.Slot,
		"status":    StatusBooked,
	})
	if err != nil {
		r.logger.Error("failed to record appointment", "collection", docstore.CollectionAppointments, "error", err)
		return nil, fmt.Errorf("appointments: record: %w", err)
	}

	appt := FromDocument(doc)
	event, err := events.New(events.TypeBookingConfirmed, events.BookingConfirmedV1{
		AppointmentID: doc.ID,
		PatientID:     in.PatientID,
		Hospital:      in.Hospital,
		Doctor:        in.Doctor,
		Date:          in.Date,
		Slot:          in.Slot,
	})
	if err == nil {
		err = r.publisher.Publish(ctx, event)
	}
	if err != nil {
		r.logger.Warn("failed to publish booking event", "appointment_id", doc.ID, "error", err)
	}
	return &appt, nil
}
