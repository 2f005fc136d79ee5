package hospital

import (
	"strconv"
	"strings"

	"github.com/mediconnect/mediconnect-platform/internal/docstore"
)

// Doctor is a roster entry.
type Doctor struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Specialization    string `json:"specialization"`
	Qualification     string `json:"qualification"`
	Experience        int    `json:"experience"`
	WorkingHours      string `json:"working_hours"`
	AppointmentsToday int    `json:"appointments_today"`
}

func doctorFromDocument(doc *docstore.Document) Doctor {
	d := Doctor{
		ID:             doc.ID,
		Name:           doc.String("name"),
		Specialization: doc.String("specialization"),
		Qualification:  doc.String("qualification"),
		WorkingHours:   doc.String("workingHours"),
	}
	if n, ok := doc.Int("experience"); ok {
		d.Experience = n
	}
	if n, ok := doc.Int("appointmentsToday"); ok {
		d.AppointmentsToday = n
	}
	return d
}

// RosterEventKind names a roster change.
type RosterEventKind string

const DoctorAdded RosterEventKind = "doctor_added"

// RosterEvent is a confirmed change to the roster.
type RosterEvent struct {
	Kind   RosterEventKind
	Doctor Doctor
}

// ReduceRoster is the only way the roster changes after a write. It
// returns a new slice; the input is not modified.
func ReduceRoster(roster []Doctor, ev RosterEvent) []Doctor {
	switch ev.Kind {
	case DoctorAdded:
		out := make([]Doctor, 0, len(roster)+1)
		out = append(out, ev.Doctor)
		for _, d := range roster {
			if d.ID != ev.Doctor.ID {
				out = append(out, d)
			}
		}
		return out
	default:
		return append([]Doctor(nil), roster...)
	}
}

// SearchRoster keeps doctors whose name or specialization contains query,
// ignoring case.
func SearchRoster(roster []Doctor, query string) []Doctor {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return roster
	}
	out := make([]Doctor, 0, len(roster))
	for _, d := range roster {
		if strings.Contains(strings.ToLower(d.Name), q) || strings.Contains(strings.ToLower(d.Specialization), q) {
			out = append(out, d)
		}
	}
	return out
}

// DoctorForm is the registration input.
type DoctorForm struct {
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
	Qualification  string `json:"qualification"`
	Experience     string `json:"experience"`
	WorkingHours   string `json:"working_hours"`
}

// Validate checks the required fields.
func (f DoctorForm) Validate() error {
	if strings.TrimSpace(f.Name) == "" || strings.TrimSpace(f.Specialization) == "" {
		return &FormError{Message: MsgNameRequired}
	}
	return nil
}

// ExperienceYears parses the leading integer of Experience; anything else
// is 0.
func (f DoctorForm) ExperienceYears() int {
	s := strings.TrimSpace(f.Experience)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

func (f DoctorForm) fields(hospitalID string) map[string]any {
	return map[string]any{
		"hospitalId":        hospitalID,
		"name":              strings.TrimSpace(f.Name),
		"specialization":    strings.TrimSpace(f.Specialization),
		"qualification":     strings.TrimSpace(f.Qualification),
		"experience":        f.ExperienceYears(),
		"workingHours":      strings.TrimSpace(f.WorkingHours),
		"appointmentsToday": 0,
	}
}
