// Package waitlist manages standing appointment requests and matches them
// against future availability. The matcher only reports matches; booking or
// deactivating an entry stays with the caller.
package waitlist

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/practicahq/platform/internal/availability"
)

var (
	// ErrEntryNotFound is returned when an entry is missing or belongs to
	// another org.
	ErrEntryNotFound = errors.New("waitlist entry not found")

	// ErrMissingPatient is returned when the patient reference is absent.
	ErrMissingPatient = errors.New("patient id is required")

	// ErrMissingResources is returned when no resource filter is given.
	ErrMissingResources = errors.New("at least one resource is required")

	// ErrInvalidDuration is returned for non-positive appointment durations.
	ErrInvalidDuration = errors.New("duration must be positive")

	// ErrInvalidTimeBand is returned for unknown time-of-day bands.
	ErrInvalidTimeBand = errors.New("unknown time band")
)

// Entry is a standing request to be matched against future availability.
// The matcher never mutates Active; callers deactivate entries once booked,
// withdrawn, or expired.
type Entry struct {
	ID              uuid.UUID                  `json:"id"`
	OrgID           string                     `json:"org_id"`
	PatientID       uuid.UUID                  `json:"patient_id"`
	Resources       []availability.ResourceRef `json:"resources"`
	PreferredDays   []time.Weekday             `json:"preferred_days,omitempty"`
	TimeBand        availability.TimeBand      `json:"time_band,omitempty"`
	DurationMinutes int                        `json:"duration_minutes"`
	Priority        int                        `json:"priority"`
	Active          bool                       `json:"active"`
	CreatedAt       time.Time                  `json:"created_at"`
	UpdatedAt       time.Time                  `json:"updated_at"`
}

// Validate checks the entry before persistence.
func (e *Entry) Validate() error {
	if e.PatientID == uuid.Nil {
		return ErrMissingPatient
	}
	if len(e.Resources) == 0 {
		return ErrMissingResources
	}
	if e.DurationMinutes <= 0 {
		return ErrInvalidDuration
	}
	if !e.TimeBand.Valid() {
		return ErrInvalidTimeBand
	}
	return nil
}

// Result pairs an entry with the slots found for it.
type Result struct {
	Entry   Entry                        `json:"entry"`
	Matches []availability.CandidateSlot `json:"matches"`
}
