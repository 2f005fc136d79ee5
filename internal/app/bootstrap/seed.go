package bootstrap

import (
	"context"
	"fmt"

	"github.com/mediconnect/mediconnect-platform/internal/auth"
	"github.com/mediconnect/mediconnect-platform/internal/docstore"
	"github.com/mediconnect/mediconnect-platform/internal/session"
	"github.com/mediconnect/mediconnect-platform/pkg/logging"
)

// DemoOperatorEmail signs in to the seeded hospital workspace.
const DemoOperatorEmail = "ops@lotuscare.in"

// SeedSampleData populates an empty store with one hospital, its doctors
// and an operator account. A store that already has hospitals is left
// alone.
func SeedSampleData(ctx context.Context, store docstore.Store, operatorPassword string, logger *logging.Logger) error {
	if logger == nil {
		logger = logging.Default()
	}
	existing, err := store.List(ctx, docstore.CollectionAdminHospitals)
	if err != nil {
		return fmt.Errorf("bootstrap: check seed: %w", err)
	}
	if len(existing) > 0 {
		logger.Debug("sample data already present", "hospitals", len(existing))
		return nil
	}

	hospital, err := store.Create(ctx, docstore.CollectionAdminHospitals, map[string]any{
		"name":        "Lotus Care Hospital",
		"location":    "Chennai, Tamil Nadu",
		"contact":     "+91 98450 12345",
		"email":       DemoOperatorEmail,
		"services":    []any{"Cardiology", "OB-GYN", "Tele-ICU", "Diagnostics"},
		"timings":     "Mon-Sat · 7:00 AM - 11:00 PM",
		"hours":       "Open · Closes 11 PM",
		"rating":      4.6,
		"ratings":     4.6,
		"description": "Multi-speciality care with round-the-clock tele-ICU support.",
	})
	if err != nil {
		return fmt.Errorf("bootstrap: seed hospital: %w", err)
	}
	if _, err := store.Create(ctx, docstore.CollectionHospitals, map[string]any{"name": "Lotus Care Hospital", "adminHospitalId": hospital.ID}); err != nil {
		return fmt.Errorf("bootstrap: seed hospital name: %w", err)
	}

	doctors := []map[string]any{
		{"name": "Dr. Kavya Narayanan", "specialization": "Cardiology", "qualification": "MD, DM", "experience": 12, "workingHours": "09:00 - 17:00", "availability": "Mon-Fri"},
		{"name": "Dr. Shankar Iyer", "specialization": "Neurology", "qualification": "MD, DM", "experience": 10, "workingHours": "11:00 - 19:00", "availability": "Tue-Sat"},
		{"name": "Dr. Meera Rahul", "specialization": "OB-GYN", "qualification": "MS", "experience": 8, "workingHours": "08:00 - 14:00", "availability": "Mon-Sat"},
	}
	for _, d := range doctors {
		d["hospitalId"] = hospital.ID
		d["hospitalName"] = "Lotus Care Hospital"
		d["appointmentsToday"] = 0
		if _, err := store.Create(ctx, docstore.CollectionHospitalDoctors, d); err != nil {
			return fmt.Errorf("bootstrap: seed doctor: %w", err)
		}
	}

	hash, err := auth.HashPassword(operatorPassword)
	if err != nil {
		return fmt.Errorf("bootstrap: hash operator password: %w", err)
	}
	if _, err := docstore.CreateKeyed(ctx, store, docstore.CollectionUsers, auth.AccountID(DemoOperatorEmail), map[string]any{
		"email":        DemoOperatorEmail,
		"passwordHash": hash,
		"role":         session.RoleHospital,
		"hospitalId":   hospital.ID,
	}); err != nil {
		return fmt.Errorf("bootstrap: seed operator: %w", err)
	}

	logger.Info("seeded sample data", "hospital_id", hospital.ID, "operator", DemoOperatorEmail)
	return nil
}
