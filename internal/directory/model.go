// Package directory serves the patient-facing hospital and doctor listings.
package directory

import (
	"errors"

	"github.com/mediconnect/mediconnect-platform/internal/docstore"
)

// Record defaults applied when a stored field is missing.
const (
	DefaultRating       = 4.5
	DefaultHospitalName = "Unnamed Hospital"
	DefaultLocation     = "Not specified"
	DefaultHours        = "Timings will be updated soon."
)

// User-facing messages.
const (
	MsgHospitalNotFound     = "Hospital not found."
	MsgHospitalDetailFailed = "Unable to load hospital details right now. Please try again later."
	MsgHospitalsFailed      = "Unable to load hospitals right now. Please try again later."
	MsgDoctorsFailed        = "Unable to load doctors. Please try again later."
	MsgSampleHospitals      = "No hospitals found yet. Showing sample hospitals."
	MsgInvalidRating        = "Rating filter must be a number."
)

var (
	// ErrHospitalNotFound is returned when a hospital id has no document.
	ErrHospitalNotFound = errors.New("directory: hospital not found")

	// ErrInvalidRating is returned for a non-numeric rating threshold.
	ErrInvalidRating = errors.New("directory: invalid rating threshold")
)

// Hospital is a directory listing.
type Hospital struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Location    string   `json:"location"`
	Services    []string `json:"services"`
	Rating      float64  `json:"rating"`
	Contact     string   `json:"contact,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Email       string   `json:"email,omitempty"`
	Address     string   `json:"address,omitempty"`
	MapLink     string   `json:"map_link,omitempty"`
	Hours       string   `json:"hours"`
	Description string   `json:"description,omitempty"`
}

// Doctor is a directory listing.
type Doctor struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Specialization      string `json:"specialization"`
	Qualification       string `json:"qualification,omitempty"`
	Experience          int    `json:"experience"`
	WorkingHours        string `json:"working_hours,omitempty"`
	HospitalID          string `json:"hospital_id,omitempty"`
	HospitalName        string `json:"hospital_name,omitempty"`
	Availability        string `json:"availability,omitempty"`
	ConsultationTimings string `json:"consultation_timings,omitempty"`
	AppointmentsToday   int    `json:"appointments_today"`
}

// HospitalFromDocument decodes an adminHospitals document.
func HospitalFromDocument(doc *docstore.Document) Hospital {
	h := Hospital{
		ID:          doc.ID,
		Name:        firstNonEmpty(doc.String("name"), DefaultHospitalName),
		Location:    firstNonEmpty(doc.String("location"), DefaultLocation),
		Services:    doc.Strings("services"),
		Rating:      DefaultRating,
		Phone:       doc.String("phone"),
		Email:       doc.String("email"),
		Address:     doc.String("address"),
		MapLink:     doc.String("mapLink"),
		Hours:       firstNonEmpty(doc.String("timings"), DefaultHours),
		Description: doc.String("description"),
	}
	if h.Services == nil {
		h.Services = []string{}
	}
	if rating, ok := doc.Float("rating"); ok {
		h.Rating = rating
	}
	h.Contact = firstNonEmpty(h.Phone, doc.String("contact"))
	return h
}

// DoctorFromDocument decodes a hospitalDoctors document. The hospital name
// may be empty; the service resolves it lazily.
func DoctorFromDocument(doc *docstore.Document) Doctor {
	d := Doctor{
		ID:                  doc.ID,
		Name:                doc.String("name"),
		Specialization:      doc.String("specialization"),
		Qualification:       doc.String("qualification"),
		WorkingHours:        doc.String("workingHours"),
		HospitalID:          doc.String("hospitalId"),
		HospitalName:        firstNonEmpty(doc.String("hospitalName"), doc.String("hospital")),
		Availability:        doc.String("availability"),
		ConsultationTimings: doc.String("consultationTimings"),
	}
	if years, ok := doc.Int("experience"); ok {
		d.Experience = years
	}
	if n, ok := doc.Int("appointmentsToday"); ok {
		d.AppointmentsToday = n
	}
	return d
}

// SampleHospitals is shown when the hospital collection is empty.
func SampleHospitals() []Hospital {
	return []Hospital{
		{ID: "h-1", Name: "Lotus Care Hospital", Location: "Chennai", Services: []string{"Cardiology", "Tele-ICU"}, Rating: 4.7, Contact: "+91 90234 12345", Hours: "Open · Closes 11 PM"},
		{ID: "h-2", Name: "Sunrise Multispeciality", Location: "Bengaluru", Services: []string{"Neurology", "Pediatrics", "Diagnostics"}, Rating: 4.8, Contact: "+91 99887 56231", Hours: "Open · Closes 10 PM"},
		{ID: "h-3", Name: "Riverfront Health", Location: "Pune", Services: []string{"Oncology", "Tele-OPD"}, Rating: 4.6, Contact: "+91 90000 45236", Hours: "Open · Closes 9 PM"},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
