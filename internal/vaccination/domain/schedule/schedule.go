// Package schedule models a single vaccine-type administration event under a campaign.
package schedule

import (
	"strings"
	"time"

	"github.com/campushealth/immunize/internal/vaccination/domain/lifecycle"
)

// Status describes the schedule lifecycle label.
type Status string

const (
	StatusUnspecified Status = ""
	StatusPending     Status = "pending"
	StatusInProgress  Status = "in_progress"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
)

// Schedule is one vaccine-type administration event at a specific time.
// It is owned by its campaign but soft-deletes independently.
type Schedule struct {
	ID            string
	CampaignID    string
	VaccineTypeID string
	ScheduledAt   time.Time
	Status        Status
	Notes         string
	Lifecycle     lifecycle.State
	CreatedAt     time.Time
	CreatedBy     string
	UpdatedAt     time.Time
	UpdatedBy     string
}

// NormalizeStatusLabel canonicalizes status labels from storage or wire input.
func NormalizeStatusLabel(value string) (Status, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", false
	}
	switch strings.ToUpper(trimmed) {
	case "PENDING", "SCHEDULE_STATUS_PENDING":
		return StatusPending, true
	case "IN_PROGRESS", "INPROGRESS", "SCHEDULE_STATUS_IN_PROGRESS":
		return StatusInProgress, true
	case "COMPLETED", "SCHEDULE_STATUS_COMPLETED":
		return StatusCompleted, true
	case "CANCELLED", "CANCELED", "SCHEDULE_STATUS_CANCELLED":
		return StatusCancelled, true
	default:
		return "", false
	}
}

// IsTerminal reports whether a schedule status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsStatusTransitionAllowed enforces valid schedule lifecycle transitions.
func IsStatusTransitionAllowed(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusInProgress || to == StatusCancelled
	case StatusInProgress:
		return to == StatusCompleted || to == StatusCancelled
	default:
		return false
	}
}
