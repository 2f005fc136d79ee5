package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types published by the platform.
const (
	TypeDoctorRegistered      = "doctor.registered"
	TypeBookingConfirmed      = "booking.confirmed"
	TypeAnnouncementPublished = "announcement.published"
)

// Event is the envelope delivered to subscribers.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// New wraps payload in an envelope with a fresh id.
func New(eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("events: marshal payload: %w", err)
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    data,
	}, nil
}

// Decode unmarshals the payload into dst.
func (e Event) Decode(dst any) error {
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("events: decode %s: %w", e.Type, err)
	}
	return nil
}

type DoctorRegisteredV1 struct {
	HospitalID     string `json:"hospital_id"`
	DoctorID       string `json:"doctor_id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
	RegisteredBy   string `json:"registered_by,omitempty"`
}

type BookingConfirmedV1 struct {
	AppointmentID string `json:"appointment_id"`
	PatientID     string `json:"patient_id"`
	Hospital      string `json:"hospital"`
	Doctor        string `json:"doctor"`
	Date          string `json:"date"`
	Slot          string `json:"slot"`
}

type AnnouncementPublishedV1 struct {
	HospitalID     string `json:"hospital_id"`
	AnnouncementID string `json:"announcement_id"`
	Title          string `json:"title"`
	Audience       string `json:"audience,omitempty"`
	Schedule       string `json:"schedule,omitempty"`
}
