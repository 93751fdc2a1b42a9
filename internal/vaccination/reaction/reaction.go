// Package reaction annotates administration records with post-vaccination
// reaction outcomes and surfaces the follow-up signal the counseling side
// consumes.
package reaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/campushealth/immunize/internal/platform/errors"
	"github.com/campushealth/immunize/internal/vaccination/actor"
	"github.com/campushealth/immunize/internal/vaccination/domain/lifecycle"
	"github.com/campushealth/immunize/internal/vaccination/domain/record"
	"github.com/campushealth/immunize/internal/vaccination/storage"
)

// Tracker records reaction severity against administration records.
type Tracker struct {
	store storage.RecordStore
	clock func() time.Time
}

// NewTracker constructs the reaction tracker.
func NewTracker(store storage.RecordStore, clock func() time.Time) *Tracker {
	if clock == nil {
		clock = time.Now
	}
	return &Tracker{store: store, clock: clock}
}

// RecordReactionInput is one observed reaction report.
type RecordReactionInput struct {
	Severity    string
	FollowUp24h bool
	FollowUp72h bool
	Notes       string
}

// RecordReaction updates severity, follow-up flags, and notes on a record.
// Severity accepts the none/mild/moderate/severe labels. The follow-up
// requirement is derived from severity, never stored independently.
func (t *Tracker) RecordReaction(ctx context.Context, by actor.Actor, recordID string, input RecordReactionInput) (record.Record, error) {
	if t == nil || t.store == nil {
		return record.Record{}, fmt.Errorf("reaction store is not configured")
	}
	if err := by.Validate(); err != nil {
		return record.Record{}, err
	}
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return record.Record{}, apperrors.New(apperrors.CodeFieldRequired, "record id is required")
	}
	severity, ok := record.NormalizeSeverityLabel(input.Severity)
	if !ok {
		return record.Record{}, apperrors.WithMetadata(apperrors.CodeInvalidSeverity,
			"severity must be none, mild, moderate, or severe",
			map[string]string{"severity": input.Severity})
	}

	r, err := t.store.GetRecord(ctx, recordID)
	if err != nil {
		return record.Record{}, err
	}
	if r.Lifecycle != lifecycle.StateActive {
		return record.Record{}, storage.ErrNotFound
	}

	now := t.clock().UTC()
	r.ReactionSeverity = severity
	r.FollowUp24h = input.FollowUp24h
	r.FollowUp72h = input.FollowUp72h
	if notes := strings.TrimSpace(input.Notes); notes != "" {
		r.ReactionNotes = notes
	}
	r.UpdatedAt = now
	r.UpdatedBy = by.UserID

	if err := t.store.UpdateRecord(ctx, r); err != nil {
		return record.Record{}, fmt.Errorf("update record: %w", err)
	}
	return r, nil
}

// ListFollowUpsDue returns active records whose reaction severity requires
// follow-up, for the external counseling module to poll.
func (t *Tracker) ListFollowUpsDue(ctx context.Context) ([]record.Record, error) {
	if t == nil || t.store == nil {
		return nil, fmt.Errorf("reaction store is not configured")
	}
	records, err := t.store.ListRecordsRequiringFollowUp(ctx)
	if err != nil {
		return nil, fmt.Errorf("list follow-ups: %w", err)
	}
	return records, nil
}
