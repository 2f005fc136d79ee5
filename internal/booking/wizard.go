// Package booking implements the patient's four-step appointment wizard.
package booking

import (
	"errors"
	"strings"
	"time"
)

// Step is a wizard position, 1 through 4.
type Step int

const (
	StepSelectHospital Step = iota + 1
	StepSelectDoctor
	StepSelectSlot
	StepReview
)

func (s Step) String() string {
	switch s {
	case StepSelectHospital:
		return "select_hospital"
	case StepSelectDoctor:
		return "select_doctor"
	case StepSelectSlot:
		return "select_slot"
	case StepReview:
		return "review"
	default:
		return "unknown"
	}
}

// ConfirmedMessage acknowledges a confirmed booking.
const ConfirmedMessage = "Appointment booked!"

// DateLayout is the draft date format.
const DateLayout = "2006-01-02"

// Slots are the bookable times. They are not derived from availability.
var Slots = []string{"09:00 AM", "10:30 AM", "02:00 PM", "04:30 PM"}

var (
	// ErrStepIncomplete is returned by Continue when the step's fields are empty.
	ErrStepIncomplete = errors.New("booking: step incomplete")
	// ErrNotReviewing is returned by Confirm outside the review step.
	ErrNotReviewing = errors.New("booking: confirm is only available on the review step")
	// ErrUnknownSlot is returned when a draft names a slot outside Slots.
	ErrUnknownSlot = errors.New("booking: unknown time slot")
	// ErrInvalidDate is returned for a draft date not in DateLayout.
	ErrInvalidDate = errors.New("booking: invalid date")
)

// Draft is the in-progress booking.
type Draft struct {
	Hospital string `json:"hospital"`
	Doctor   string `json:"doctor"`
	Date     string `json:"date"`
	Slot     string `json:"slot"`
}

// DraftPatch changes the fields that are non-nil.
type DraftPatch struct {
	Hospital *string `json:"hospital,omitempty"`
	Doctor   *string `json:"doctor,omitempty"`
	Date     *string `json:"date,omitempty"`
	Slot     *string `json:"slot,omitempty"`
}

// Confirmation is returned by a successful Confirm.
type Confirmation struct {
	Draft         Draft  `json:"draft"`
	Message       string `json:"message"`
	AppointmentID string `json:"appointment_id,omitempty"`
}

// Wizard is the booking state machine. It is not safe for concurrent use;
// Drafts serialises access per session.
type Wizard struct {
	step  Step
	draft Draft
}

// NewWizard starts at step 1 with an empty draft.
func NewWizard() *Wizard {
	return &Wizard{step: StepSelectHospital}
}

func (w *Wizard) Step() Step   { return w.step }
func (w *Wizard) Draft() Draft { return w.draft }

// Apply updates draft fields without moving between steps.
func (w *Wizard) Apply(p DraftPatch) error {
	next := w.draft
	if p.Hospital != nil {
		next.Hospital = strings.TrimSpace(*p.Hospital)
	}
	if p.Doctor != nil {
		next.Doctor = strings.TrimSpace(*p.Doctor)
	}
	if p.Date != nil {
		date := strings.TrimSpace(*p.Date)
		if date != "" {
			if _, err := time.Parse(DateLayout, date); err != nil {
				return ErrInvalidDate
			}
		}
		next.Date = date
	}
	if p.Slot != nil {
		slot := strings.TrimSpace(*p.Slot)
		if slot != "" && !isSlot(slot) {
			return ErrUnknownSlot
		}
		next.Slot = slot
	}
	w.draft = next
	return nil
}

// CanContinue reports whether the current step's fields are filled.
func (w *Wizard) CanContinue() bool {
	switch w.step {
	case StepSelectHospital:
		return w.draft.Hospital != ""
	case StepSelectDoctor:
		return w.draft.Doctor != ""
	case StepSelectSlot:
		return w.draft.Date != "" && w.draft.Slot != ""
	default:
		return false
	}
}

// Continue advances one step when the guard holds.
func (w *Wizard) Continue() error {
	if !w.CanContinue() {
		return ErrStepIncomplete
	}
	w.step++
	return nil
}

// Back moves one step back, keeping every field. It is a no-op at step 1.
func (w *Wizard) Back() {
	if w.step > StepSelectHospital {
		w.step--
	}
}

// Confirm acknowledges the review and resets the wizard.
func (w *Wizard) Confirm() (Confirmation, error) {
	if w.step != StepReview {
		return Confirmation{}, ErrNotReviewing
	}
	c := Confirmation{Draft: w.draft, Message: ConfirmedMessage}
	w.Reset()
	return c, nil
}

// StartWithDoctor pre-fills hospital and doctor and jumps to doctor
// selection. Empty arguments keep the current values.
func (w *Wizard) StartWithDoctor(hospital, doctor string) {
	if h := strings.TrimSpace(hospital); h != "" {
		w.draft.Hospital = h
	}
	if d := strings.TrimSpace(doctor); d != "" {
		w.draft.Doctor = d
	}
	w.step = StepSelectDoctor
}

// Reset empties the draft and returns to step 1.
func (w *Wizard) Reset() {
	w.step = StepSelectHospital
	w.draft = Draft{}
}

func isSlot(slot string) bool {
	for _, s := range Slots {
		if s == slot {
			return true
		}
	}
	return false
}
