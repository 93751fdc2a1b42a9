// Package administer creates the vaccination record for a consented,
// checked-in session. The at-most-one-record-per-session guarantee lives
// here; it is the engine's proxy for "never vaccinate twice or without
// permission".
package administer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/campushealth/immunize/internal/platform/errors"
	"github.com/campushealth/immunize/internal/platform/id"
	"github.com/campushealth/immunize/internal/vaccination/actor"
	"github.com/campushealth/immunize/internal/vaccination/domain/lifecycle"
	"github.com/campushealth/immunize/internal/vaccination/domain/record"
	"github.com/campushealth/immunize/internal/vaccination/domain/session"
	"github.com/campushealth/immunize/internal/vaccination/storage"
)

// Store is the persistence surface the recorder needs.
type Store interface {
	storage.SessionStore
	storage.RecordStore
	storage.TxRunner
}

// Recorder creates administration records.
type Recorder struct {
	store Store
	clock func() time.Time
	newID func() (string, error)
}

// NewRecorder constructs the administration recorder.
func NewRecorder(store Store, clock func() time.Time, newID func() (string, error)) *Recorder {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return &Recorder{store: store, clock: clock, newID: newID}
}

// CreateRecordInput describes one administration event.
type CreateRecordInput struct {
	SessionStudentID string
	AdministeredAt   time.Time
	StaffID          string
}

// CreateRecord persists the administration record and completes the session's
// attendance in one transaction. The session must be active, its effective
// consent signed, and the student present; a session that already owns an
// active record fails with a duplicate, including the loser of a concurrent
// write race.
func (r *Recorder) CreateRecord(ctx context.Context, by actor.Actor, input CreateRecordInput) (record.Record, error) {
	if r == nil || r.store == nil {
		return record.Record{}, fmt.Errorf("administer store is not configured")
	}
	if err := by.Validate(); err != nil {
		return record.Record{}, err
	}
	sessionID := strings.TrimSpace(input.SessionStudentID)
	if sessionID == "" {
		return record.Record{}, apperrors.New(apperrors.CodeFieldRequired, "session id is required")
	}
	staffID := strings.TrimSpace(input.StaffID)
	if staffID == "" {
		return record.Record{}, apperrors.New(apperrors.CodeFieldRequired, "administering staff id is required")
	}

	s, err := r.store.GetSession(ctx, sessionID)
	if err != nil {
		return record.Record{}, err
	}
	if s.Lifecycle != lifecycle.StateActive {
		return record.Record{}, storage.ErrNotFound
	}

	// The duplicate check runs before eligibility: completing attendance on
	// the first administration would otherwise mask a repeat as not eligible.
	if _, err := r.store.GetRecordBySession(ctx, sessionID); err == nil {
		return record.Record{}, apperrors.WithMetadata(apperrors.CodeDuplicateRecord,
			"session already has an administration record",
			map[string]string{"session_id": sessionID})
	} else if !errors.Is(err, storage.ErrNotFound) {
		return record.Record{}, fmt.Errorf("load record for session: %w", err)
	}

	now := r.clock().UTC()
	if !s.ReadyForAdministration(now) {
		return record.Record{}, apperrors.WithMetadata(apperrors.CodeNotEligible,
			"session requires signed consent and a present student",
			map[string]string{
				"consent":    string(s.EffectiveConsent(now)),
				"attendance": string(s.Attendance),
			})
	}

	recordID, err := r.newID()
	if err != nil {
		return record.Record{}, fmt.Errorf("generate record id: %w", err)
	}
	administeredAt := input.AdministeredAt.UTC()
	if input.AdministeredAt.IsZero() {
		administeredAt = now
	}
	created := record.Record{
		ID:               recordID,
		SessionStudentID: sessionID,
		AdministeredAt:   administeredAt,
		StaffID:          staffID,
		ReactionSeverity: record.SeverityNone,
		Lifecycle:        lifecycle.StateActive,
		CreatedAt:        now,
		CreatedBy:        by.UserID,
		UpdatedAt:        now,
		UpdatedBy:        by.UserID,
	}

	err = r.store.InTx(ctx, func(ctx context.Context) error {
		if err := r.store.CreateRecord(ctx, created); err != nil {
			return err
		}
		s.Attendance = session.AttendanceCompleted
		s.UpdatedAt = now
		s.UpdatedBy = by.UserID
		if err := r.store.UpdateSession(ctx, s); err != nil {
			return fmt.Errorf("complete session attendance: %w", err)
		}
		return nil
	})
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeDuplicateRecord {
			return record.Record{}, err
		}
		return record.Record{}, fmt.Errorf("persist administration record: %w", err)
	}
	return created, nil
}
