// Package campaign models the vaccination campaign entity and its status machine.
package campaign

import (
	"strings"
	"time"

	apperrors "github.com/campushealth/immunize/internal/platform/errors"
	"github.com/campushealth/immunize/internal/platform/id"
	"github.com/campushealth/immunize/internal/vaccination/actor"
	"github.com/campushealth/immunize/internal/vaccination/domain/lifecycle"
)

// Status describes the campaign lifecycle label used by domain decisions.
type Status string

const (
	StatusUnspecified Status = ""
	StatusPending     Status = "pending"
	StatusInProgress  Status = "in_progress"
	StatusResolved    Status = "resolved"
	StatusCancelled   Status = "cancelled"
)

// MinimumSpan is the shortest allowed campaign window.
const MinimumSpan = 24 * time.Hour

// Campaign is a named vaccination effort spanning a date range.
type Campaign struct {
	ID          string
	Name        string
	SchoolYear  string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	Status      Status
	Lifecycle   lifecycle.State
	CreatedAt   time.Time
	CreatedBy   string
	UpdatedAt   time.Time
	UpdatedBy   string
}

// NormalizeStatusLabel canonicalizes status labels from storage or wire input.
func NormalizeStatusLabel(value string) (Status, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", false
	}
	switch strings.ToUpper(trimmed) {
	case "PENDING", "CAMPAIGN_STATUS_PENDING":
		return StatusPending, true
	case "IN_PROGRESS", "INPROGRESS", "CAMPAIGN_STATUS_IN_PROGRESS":
		return StatusInProgress, true
	case "RESOLVED", "CAMPAIGN_STATUS_RESOLVED":
		return StatusResolved, true
	case "CANCELLED", "CANCELED", "CAMPAIGN_STATUS_CANCELLED":
		return StatusCancelled, true
	default:
		return "", false
	}
}

// IsTerminal reports whether a campaign status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusResolved || s == StatusCancelled
}

// IsStatusTransitionAllowed enforces valid campaign lifecycle transitions:
// pending moves to in_progress when work begins, resolved closes an
// in_progress campaign, and cancellation is allowed from any non-terminal
// state.
func IsStatusTransitionAllowed(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusInProgress || to == StatusCancelled
	case StatusInProgress:
		return to == StatusResolved || to == StatusCancelled
	default:
		return false
	}
}

// CreateInput describes the metadata needed to create a campaign.
type CreateInput struct {
	Name        string
	SchoolYear  string
	Description string
	StartDate   time.Time
	EndDate     time.Time
}

// Create builds a new pending campaign with a generated ID and audit stamps.
func Create(input CreateInput, by actor.Actor, now func() time.Time, idGenerator func() (string, error)) (Campaign, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	if err := by.Validate(); err != nil {
		return Campaign{}, err
	}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return Campaign{}, apperrors.New(apperrors.CodeCampaignNameEmpty, "campaign name is required")
	}
	if err := ValidateDateRange(input.StartDate, input.EndDate); err != nil {
		return Campaign{}, err
	}

	campaignID, err := idGenerator()
	if err != nil {
		return Campaign{}, apperrors.Wrap(apperrors.CodeUnknown, "generate campaign id", err)
	}

	createdAt := now().UTC()
	return Campaign{
		ID:          campaignID,
		Name:        input.Name,
		SchoolYear:  strings.TrimSpace(input.SchoolYear),
		Description: strings.TrimSpace(input.Description),
		StartDate:   input.StartDate.UTC(),
		EndDate:     input.EndDate.UTC(),
		Status:      StatusPending,
		Lifecycle:   lifecycle.StateActive,
		CreatedAt:   createdAt,
		CreatedBy:   by.UserID,
		UpdatedAt:   createdAt,
		UpdatedBy:   by.UserID,
	}, nil
}

// ValidateDateRange rejects campaign windows shorter than MinimumSpan.
func ValidateDateRange(start, end time.Time) error {
	if end.Before(start.Add(MinimumSpan)) {
		return apperrors.WithMetadata(apperrors.CodeCampaignInvalidDateRange,
			"campaign end date must be at least one day after start date",
			map[string]string{
				"start_date": start.UTC().Format(time.RFC3339),
				"end_date":   end.UTC().Format(time.RFC3339),
			})
	}
	return nil
}
