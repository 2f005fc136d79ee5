// Package appointments serves appointment lists for patients and hospital
// operators and records confirmed bookings when persistence is enabled.
package appointments

import (
	"strings"
	"time"

	"github.com/mediconnect/mediconnect-platform/internal/docstore"
)

// Appointment statuses.
const (
	StatusBooked    = "booked"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// DisplayDateLayout is how appointment dates are shown.
const DisplayDateLayout = "02 Jan 2006"

// Appointment is one scheduled consultation.
type Appointment struct {
	ID       string `json:"id"`
	Patient  string `json:"patient,omitempty"`
	Doctor   string `json:"doctor"`
	Hospital string `json:"hospital,omitempty"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Status   string `json:"status"`
}

// Notification is a patient-facing reminder.
type Notification struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Time   string `json:"time"`
}

// HospitalSamples are the appointments shown on the hospital dashboard.
func HospitalSamples() []Appointment {
	return []Appointment{
		{ID: "a-1", Patient: "Vishal Menon", Doctor: "Dr. Kavya Narayanan", Date: "13 Dec 2025", Time: "09:00 AM", Status: StatusBooked},
		{ID: "a-2", Patient: "Sahana Rao", Doctor: "Dr. Meera Rahul", Date: "13 Dec 2025", Time: "10:30 AM", Status: StatusCompleted},
		{ID: "a-3", Patient: "Farhan Sheikh", Doctor: "Dr. Shankar Iyer", Date: "13 Dec 2025", Time: "11:15 AM", Status: StatusBooked},
		{ID: "a-4", Patient: "Anjali Gupta", Doctor: "Dr. Kavya Narayanan", Date: "13 Dec 2025", Time: "14:00 PM", Status: StatusCancelled},
	}
}

// PatientHistorySamples are the appointments shown in a patient's history.
func PatientHistorySamples() []Appointment {
	return []Appointment{
		{ID: "ap-1", Doctor: "Dr. Kavya Narayanan", Hospital: "Lotus Care Hospital", Date: "15 Dec 2025", Time: "09:00 AM", Status: StatusBooked},
		{ID: "ap-2", Doctor: "Dr. Shankar Iyer", Hospital: "Sunrise Multispeciality", Date: "11 Dec 2025", Time: "01:00 PM", Status: StatusCompleted},
		{ID: "ap-3", Doctor: "Dr. Meera Rahul", Hospital: "Lotus Care Hospital", Date: "02 Dec 2025", Time: "10:30 AM", Status: StatusCancelled},
	}
}

// PatientNotificationSamples are the patient reminders.
func PatientNotificationSamples() []Notification {
	return []Notification{
		{ID: "n-1", Title: "Upcoming appointment", Detail: "Consult Dr. Kavya on 15 Dec 2025 · 09:00 AM", Time: "2 hours ago"},
		{ID: "n-2", Title: "Report uploaded", Detail: "Sunrise Lab shared your MRI reports", Time: "Yesterday"},
		{ID: "n-3", Title: "Feedback reminder", Detail: "Rate your experience with Dr. Meera Rahul", Time: "3 days ago"},
	}
}

// FromDocument decodes an appointments document. Stored dates use the
// booking layout and are shown in DisplayDateLayout.
func FromDocument(doc *docstore.Document) Appointment {
	a := Appointment{
		ID:       doc.ID,
		Patient:  doc.String("patient"),
		Doctor:   doc.String("doctor"),
		Hospital: doc.String("hospital"),
		Date:     doc.String("date"),
		Time:     doc.String("slot"),
		Status:   doc.String("status"),
	}
	if t, err := time.Parse("2006-01-02", a.Date); err == nil {
		a.Date = t.Format(DisplayDateLayout)
	}
	if a.Status == "" {
		a.Status = StatusBooked
	}
	return a
}

// Filter narrows the hospital appointment list.
type Filter struct {
	Doctor string
	Date   string
}

// Apply returns the appointments matching f, preserving order. Doctor "all"
// or empty matches everything; Date is YYYY-MM-DD and empty matches all.
func (f Filter) Apply(list []Appointment) ([]Appointment, error) {
	doctor := strings.TrimSpace(f.Doctor)
	if strings.EqualFold(doctor, "all") {
		doctor = ""
	}
	var date string
	if d := strings.TrimSpace(f.Date); d != "" {
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			return nil, ErrInvalidDate
		}
		date = t.Format(DisplayDateLayout)
	}

	out := make([]Appointment, 0, len(list))
	for _, a := range list {
		if doctor != "" && !strings.EqualFold(a.Doctor, doctor) {
			continue
		}
		if date != "" && a.Date != date {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
