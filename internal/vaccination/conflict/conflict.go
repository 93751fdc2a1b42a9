// Package conflict checks schedule-time and per-student scheduling collisions
// before the assigner writes anything.
package conflict

import (
	"context"
	"fmt"
	"time"

	"github.com/campushealth/immunize/internal/vaccination/storage"
)

// DefaultSlot is the administration slot length assumed when none is configured.
const DefaultSlot = time.Hour

// Detector scans active schedules and sessions for overlapping slots.
// Two events overlap when their start times are less than one slot apart.
type Detector struct {
	schedules storage.ScheduleStore
	sessions  storage.SessionStore
	slot      time.Duration
}

// NewDetector creates a detector over the provided stores.
func NewDetector(schedules storage.ScheduleStore, sessions storage.SessionStore, slot time.Duration) *Detector {
	if slot <= 0 {
		slot = DefaultSlot
	}
	return &Detector{schedules: schedules, sessions: sessions, slot: slot}
}

// Slot returns the configured slot length.
func (d *Detector) Slot() time.Duration { return d.slot }

// ScheduleConflict reports whether another active schedule on the same
// campaign for the same vaccine type occupies an overlapping slot. excludeID
// skips the schedule being updated.
func (d *Detector) ScheduleConflict(ctx context.Context, campaignID, vaccineTypeID string, scheduledAt time.Time, excludeID string) (bool, error) {
	if d == nil || d.schedules == nil {
		return false, fmt.Errorf("schedule store is not configured")
	}
	from, to := d.window(scheduledAt)
	conflicting, err := d.schedules.HasScheduleOverlap(ctx, campaignID, vaccineTypeID, from, to, excludeID)
	if err != nil {
		return false, fmt.Errorf("scan schedule overlap: %w", err)
	}
	return conflicting, nil
}

// StudentConflict reports whether the student already has an active session on
// a different schedule in an overlapping slot.
func (d *Detector) StudentConflict(ctx context.Context, studentID string, scheduledAt time.Time, excludeScheduleID string) (bool, error) {
	if d == nil || d.sessions == nil {
		return false, fmt.Errorf("session store is not configured")
	}
	from, to := d.window(scheduledAt)
	conflicting, err := d.sessions.HasStudentOverlap(ctx, studentID, from, to, excludeScheduleID)
	if err != nil {
		return false, fmt.Errorf("scan student overlap: %w", err)
	}
	return conflicting, nil
}

// window converts a start time into the exclusive scan range (at-slot, at+slot).
// Events exactly one slot apart do not overlap.
func (d *Detector) window(at time.Time) (time.Time, time.Time) {
	utc := at.UTC()
	return utc.Add(-d.slot), utc.Add(d.slot)
}
