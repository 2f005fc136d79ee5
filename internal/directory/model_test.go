package directory

import (
	"testing"

	"github.com/mediconnect/mediconnect-platform/internal/docstore"
	"github.com/stretchr/testify/assert"
)

func TestHospitalFromDocumentDefaults(t *testing.T) {
	h := HospitalFromDocument(&docstore.Document{ID: "x", Fields: map[string]any{}})
	assert.Equal(t, DefaultHospitalName, h.Name)
	assert.Equal(t, DefaultLocation, h.Location)
	assert.Equal(t, DefaultRating, h.Rating)
	assert.Equal(t, DefaultHours, h.Hours)
	assert.Equal(t, []string{}, h.Services)
	assert.Empty(t, h.Contact)
}

func TestHospitalFromDocumentFields(t *testing.T) {
	h := HospitalFromDocument(&docstore.Document{ID: "x", Fields: map[string]any{
		"name":     "Lotus Care Hospital",
		"location": "Chennai",
		"services": "Cardiology, Tele-ICU,",
		"rating":   float64(0),
		"contact":  "desk@lotus",
		"timings":  "Mon-Sat",
		"mapLink":  "https://maps.example/lotus",
	}})
	assert.Equal(t, []string{"Cardiology", "Tele-ICU"}, h.Services)
	assert.Equal(t, float64(0), h.Rating)
	assert.Equal(t, "desk@lotus", h.Contact)
	assert.Equal(t, "Mon-Sat", h.Hours)
	assert.Equal(t, "https://maps.example/lotus", h.MapLink)

	withPhone := HospitalFromDocument(&docstore.Document{Fields: map[string]any{"phone": "+91 1", "contact": "desk"}})
	assert.Equal(t, "+91 1", withPhone.Contact)
}

func TestDoctorFromDocument(t *testing.T) {
	d := DoctorFromDocument(&docstore.Document{ID: "d1", Fields: map[string]any{
		"name":       "Dr. Kavya Narayanan",
		"experience": "12",
		"hospital":   "Lotus Care Hospital",
		"hospitalId": "h1",
	}})
	assert.Equal(t, 12, d.Experience)
	assert.Equal(t, "Lotus Care Hospital", d.HospitalName)
	assert.Equal(t, 0, d.AppointmentsToday)

	d = DoctorFromDocument(&docstore.Document{Fields: map[string]any{"experience": float64(8), "hospitalName": "Sunrise", "hospital": "Other"}})
	assert.Equal(t, 8, d.Experience)
	assert.Equal(t, "Sunrise", d.HospitalName)
}
