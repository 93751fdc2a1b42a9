// Package validate holds the pure date and status guards shared by every
// mutation path. No function here has side effects; callers run them before
// touching storage.
package validate

import (
	"time"

	apperrors "github.com/campushealth/immunize/internal/platform/errors"
	"github.com/campushealth/immunize/internal/vaccination/domain/campaign"
)

// EnsureDateRange rejects campaign windows where the end is less than one day
// after the start.
func EnsureDateRange(start, end time.Time) error {
	return campaign.ValidateDateRange(start, end)
}

// EnsureNotPast rejects dates before the provided reference day. The check is
// day-granular: scheduling later today is allowed.
func EnsureNotPast(date, today time.Time) error {
	dayStart := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if date.UTC().Before(dayStart) {
		return apperrors.WithMetadata(apperrors.CodeDateInPast,
			"date is in the past",
			map[string]string{"date": date.UTC().Format(time.RFC3339)})
	}
	return nil
}

// EnsureWithinCampaign rejects a scheduled time outside the owning campaign's
// [start, end] window.
func EnsureWithinCampaign(scheduledAt, campaignStart, campaignEnd time.Time) error {
	at := scheduledAt.UTC()
	if at.Before(campaignStart.UTC()) || at.After(campaignEnd.UTC()) {
		return apperrors.WithMetadata(apperrors.CodeOutOfCampaignWindow,
			"scheduled time is outside the campaign window",
			map[string]string{
				"scheduled_at":   at.Format(time.RFC3339),
				"campaign_start": campaignStart.UTC().Format(time.RFC3339),
				"campaign_end":   campaignEnd.UTC().Format(time.RFC3339),
			})
	}
	return nil
}

// EnsureCampaignMutable rejects mutations under a resolved or cancelled campaign.
func EnsureCampaignMutable(status campaign.Status) error {
	if status.IsTerminal() {
		return apperrors.WithMetadata(apperrors.CodeCampaignTerminal,
			"campaign is in a terminal state",
			map[string]string{"status": string(status)})
	}
	return nil
}
