// Package hospital implements the hospital operator workspace: profile,
// doctor roster, registration, announcements and the live dashboard feed.
package hospital

import (
	"errors"
	"strings"

	"github.com/mediconnect/mediconnect-platform/internal/docstore"
)

// User-facing messages.
const (
	MsgNoSession          = "No hospital workspace found. Please sign in again."
	MsgWorkspaceNotFound  = "Hospital workspace not found for this account."
	MsgWorkspaceFailed    = "Unable to load hospital workspace. Please refresh."
	MsgRestricted         = "This dashboard is reserved for hospital operations teams."
	MsgNameRequired       = "Full name and specialization are required."
	MsgHospitalNotLoaded  = "Hospital not loaded. Please try again in a moment."
	MsgAddDoctorFailed    = "Failed to add doctor. Please try again."
	MsgSaveInProgress     = "A doctor is already being saved. Please wait."
	MsgRosterFailed       = "Unable to load doctors. Please try again later."
	MsgTitleRequired      = "Announcement title is required."
	MsgAppointmentsFailed = "Unable to load appointments right now. Please try again later."
	MsgInvalidDate        = "Date filter must be in YYYY-MM-DD format."
	MsgInvalidBody        = "Invalid request body."
)

var (
	ErrNoSession         = errors.New("hospital: no session")
	ErrWorkspaceNotFound = errors.New("hospital: workspace not found")
	ErrSaveInProgress    = errors.New("hospital: save in progress")
	ErrTitleRequired     = errors.New("hospital: announcement title required")
)

// FormError is a local validation failure carrying its user-facing message.
type FormError struct {
	Message string
}

func (e *FormError) Error() string { return "hospital: " + e.Message }

// Profile is the hospital's public-facing details.
type Profile struct {
	Name     string   `json:"name"`
	Location string   `json:"location"`
	Contact  string   `json:"contact"`
	Email    string   `json:"email"`
	Services []string `json:"services"`
	Timings  string   `json:"timings"`
	Ratings  float64  `json:"ratings"`
	Address  string   `json:"address,omitempty"`
	MapLink  string   `json:"map_link,omitempty"`
}

// DefaultProfile fills the fields a workspace document leaves out.
func DefaultProfile() Profile {
	return Profile{
		Name:     "Lotus Care Hospital",
		Location: "Chennai, Tamil Nadu",
		Contact:  "+91 98450 12345",
		Email:    "ops@lotuscare.in",
		Services: []string{"Cardiology", "OB-GYN", "Tele-ICU", "Diagnostics"},
		Timings:  "Mon-Sat · 7:00 AM - 11:00 PM",
		Ratings:  4.6,
	}
}

// Workspace is a resolved hospital.
type Workspace struct {
	ID      string  `json:"id"`
	Profile Profile `json:"profile"`
}

// profileFromDocument merges the document over DefaultProfile. The email
// falls back to the signed-in operator's address.
func profileFromDocument(doc *docstore.Document, sessionEmail string) Profile {
	p := DefaultProfile()
	setString(&p.Name, doc.String("name"))
	setString(&p.Location, doc.String("location"))
	setString(&p.Contact, doc.String("contact"))
	setString(&p.Timings, doc.String("timings"))
	setString(&p.Address, doc.String("address"))
	setString(&p.MapLink, doc.String("mapLink"))
	if doc.Has("services") {
		p.Services = doc.Strings("services")
	}
	if r, ok := doc.Float("ratings"); ok {
		p.Ratings = r
	}
	switch {
	case doc.String("email") != "":
		p.Email = doc.String("email")
	case strings.TrimSpace(sessionEmail) != "":
		p.Email = strings.TrimSpace(sessionEmail)
	}
	return p
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
