// Package compliance records an append-only audit trail of account and
// workspace activity.
package compliance

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditEventType represents the type of audited event.
type AuditEventType string

const (
	// EventSignInSucceeded is logged after a successful sign-in.
	EventSignInSucceeded AuditEventType = "auth.signin_succeeded"
	// EventSignInFailed is logged when the provider rejects credentials.
	EventSignInFailed AuditEventType = "auth.signin_failed"
	// EventSignUp is logged when a new account is created.
	EventSignUp AuditEventType = "auth.signup"
	// EventDoctorRegistered is logged when a hospital adds a doctor.
	EventDoctorRegistered AuditEventType = "hospital.doctor_registered"
)

// AuditEvent represents an immutable audit record.
type AuditEvent struct {
	ID         string          `json:"id"`
	EventType  AuditEventType  `json:"event_type"`
	HospitalID string          `json:"hospital_id,omitempty"`
	UserID     string          `json:"user_id,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// AuditDetails contains event-specific details.
type AuditDetails struct {
	Email    string `json:"email,omitempty"`
	Reason   string `json:"reason,omitempty"`
	DoctorID string `json:"doctor_id,omitempty"`
	Doctor   string `json:"doctor,omitempty"`
}

// AuditService writes audit events to Postgres.
type AuditService struct {
	db *sql.DB
}

// NewAuditService creates a new audit service. A nil db yields a service
// whose methods are no-ops.
func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{db: db}
}

// LogEvent records an audit event.
func (s *AuditService) LogEvent(ctx context.Context, event AuditEvent) error {
	if s == nil || s.db == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if len(event.Details) == 0 {
		event.Details = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO audit_events (
			id, event_type, hospital_id, user_id, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		nullString(event.HospitalID),
		nullString(event.UserID),
		[]byte(event.Details),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("compliance: failed to log audit event: %w", err)
	}

	return nil
}

// LogSignIn records a sign-in attempt. Failed attempts carry the
// provider's rejection message.
func (s *AuditService) LogSignIn(ctx context.Context, userID, email string, succeeded bool, reason string) error {
	eventType := EventSignInSucceeded
	if !succeeded {
		eventType = EventSignInFailed
	}
	detailsJSON, _ := json.Marshal(AuditDetails{Email: email, Reason: reason})

	return s.LogEvent(ctx, AuditEvent{
		EventType: eventType,
		UserID:    userID,
		Details:   detailsJSON,
	})
}

// LogSignUp records a new account.
func (s *AuditService) LogSignUp(ctx context.Context, userID, email string) error {
	detailsJSON, _ := json.Marshal(AuditDetails{Email: email})

	return s.LogEvent(ctx, AuditEvent{
		EventType: EventSignUp,
		UserID:    userID,
		Details:   detailsJSON,
	})
}

// LogDoctorRegistered records a roster addition.
func (s *AuditService) LogDoctorRegistered(ctx context.Context, hospitalID, userID, doctorID, doctorName string) error {
	detailsJSON, _ := json.Marshal(AuditDetails{DoctorID: doctorID, Doctor: doctorName})

	return s.LogEvent(ctx, AuditEvent{
		EventType:  EventDoctorRegistered,
		HospitalID: hospitalID,
		UserID:     userID,
		Details:    detailsJSON,
	})
}

// QueryEvents retrieves audit events with filters, newest first.
func (s *AuditService) QueryEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := `
		SELECT id, event_type, hospital_id, user_id, details, created_at
		FROM audit_events
		WHERE 1 = 1
	`
	var args []interface{}
	argIdx := 1

	if filter.HospitalID != "" {
		query += fmt.Sprintf(" AND hospital_id = $%d", argIdx)
		args = append(args, filter.HospitalID)
		argIdx++
	}
	if filter.UserID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}
	if filter.EventType != "" {
		query += fmt.Sprintf(" AND event_type = $%d", argIdx)
		args = append(args, filter.EventType)
		argIdx++
	}
	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.StartTime)
		argIdx++
	}
	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, filter.EndTime)
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("compliance: failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var e AuditEvent
		var hospitalID, userID sql.NullString
		var details []byte
		if err := rows.Scan(&e.ID, &e.EventType, &hospitalID, &userID, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("compliance: failed to scan audit event: %w", err)
		}
		e.HospitalID = hospitalID.String
		e.UserID = userID.String
		e.Details = json.RawMessage(details)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("compliance: failed to read audit events: %w", err)
	}

	return events, nil
}

// AuditFilter specifies criteria for querying audit events.
type AuditFilter struct {
	HospitalID string
	UserID     string
	EventType  AuditEventType
	StartTime  time.Time
	EndTime    time.Time
	Limit      int
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
