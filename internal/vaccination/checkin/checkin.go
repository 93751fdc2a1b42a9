// Package checkin tracks per-session attendance on administration day.
package checkin

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/campushealth/immunize/internal/platform/errors"
	"github.com/campushealth/immunize/internal/vaccination/actor"
	"github.com/campushealth/immunize/internal/vaccination/batch"
	"github.com/campushealth/immunize/internal/vaccination/domain/lifecycle"
	"github.com/campushealth/immunize/internal/vaccination/domain/session"
	"github.com/campushealth/immunize/internal/vaccination/storage"
)

// Tracker applies attendance updates, singly or in bulk.
type Tracker struct {
	store   storage.SessionStore
	batches *batch.Coordinator
	clock   func() time.Time
}

// NewTracker constructs the attendance tracker.
func NewTracker(store storage.SessionStore, batches *batch.Coordinator, clock func() time.Time) *Tracker {
	if clock == nil {
		clock = time.Now
	}
	if batches == nil {
		batches = batch.New(nil)
	}
	return &Tracker{store: store, batches: batches, clock: clock}
}

// CheckIn marks each session present and stamps the check-in time. Checking
// in an already-present session is a no-op success so double scans on
// administration day stay harmless. Missing ids fail per item.
func (t *Tracker) CheckIn(ctx context.Context, by actor.Actor, sessionIDs []string, note string) (batch.Result, error) {
	if t == nil || t.store == nil {
		return batch.Result{}, fmt.Errorf("checkin store is not configured")
	}
	if err := by.Validate(); err != nil {
		return batch.Result{}, err
	}
	note = strings.TrimSpace(note)
	return t.batches.Run(ctx, sessionIDs, func(ctx context.Context, id string) error {
		s, err := t.store.GetSession(ctx, id)
		if err != nil {
			return err
		}
		if s.Lifecycle != lifecycle.StateActive {
			return storage.ErrNotFound
		}
		if s.Attendance == session.AttendanceCompleted {
			return apperrors.New(apperrors.CodeAttendanceFinal, "attendance is final")
		}
		if s.Attendance == session.AttendancePresent {
			return nil
		}
		now := t.clock().UTC()
		s.Attendance = session.AttendancePresent
		checkInAt := now
		s.CheckInAt = &checkInAt
		if note != "" {
			s.CheckInNote = note
		}
		s.UpdatedAt = now
		s.UpdatedBy = by.UserID
		if err := t.store.UpdateSession(ctx, s); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		return nil
	})
}

// UpdateAttendance bulk-sets attendance across sessions. The target label is
// validated once for the whole call; per-session existence and finality are
// per-item failures. Completed sessions reject every change.
func (t *Tracker) UpdateAttendance(ctx context.Context, by actor.Actor, sessionIDs []string, status string) (batch.Result, error) {
	if t == nil || t.store == nil {
		return batch.Result{}, fmt.Errorf("checkin store is not configured")
	}
	if err := by.Validate(); err != nil {
		return batch.Result{}, err
	}
	target, ok := session.NormalizeAttendanceLabel(status)
	if !ok || target == session.AttendanceRegistered {
		return batch.Result{}, apperrors.WithMetadata(apperrors.CodeInvalidAttendanceStatus,
			"attendance updates must target present, absent, excused, or completed",
			map[string]string{"status": status})
	}
	return t.batches.Run(ctx, sessionIDs, func(ctx context.Context, id string) error {
		s, err := t.store.GetSession(ctx, id)
		if err != nil {
			return err
		}
		if s.Lifecycle != lifecycle.StateActive {
			return storage.ErrNotFound
		}
		if s.Attendance == session.AttendanceCompleted {
			return apperrors.New(apperrors.CodeAttendanceFinal, "attendance is final")
		}
		if s.Attendance == target {
			return nil
		}
		now := t.clock().UTC()
		s.Attendance = target
		s.UpdatedAt = now
		s.UpdatedBy = by.UserID
		if err := t.store.UpdateSession(ctx, s); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		return nil
	})
}
