// Package assign creates schedules under a campaign and populates their
// per-student sessions from a roster selection.
package assign

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/campushealth/immunize/internal/platform/errors"
	"github.com/campushealth/immunize/internal/platform/id"
	"github.com/campushealth/immunize/internal/vaccination/actor"
	"github.com/campushealth/immunize/internal/vaccination/conflict"
	"github.com/campushealth/immunize/internal/vaccination/domain/lifecycle"
	"github.com/campushealth/immunize/internal/vaccination/domain/schedule"
	"github.com/campushealth/immunize/internal/vaccination/domain/session"
	"github.com/campushealth/immunize/internal/vaccination/storage"
	"github.com/campushealth/immunize/internal/vaccination/validate"
)

// DefaultConsentLeadDays is the consent deadline lead applied when the
// assigner is constructed without one.
const DefaultConsentLeadDays = 5

// Store is the persistence surface the assigner needs.
type Store interface {
	storage.CampaignStore
	storage.ScheduleStore
	storage.SessionStore
	storage.RosterStore
}

// Assigner creates schedules and bulk-assigns students to them.
type Assigner struct {
	store    Store
	detector *conflict.Detector
	leadDays int
	clock    func() time.Time
	newID    func() (string, error)
}

// NewAssigner constructs the assigner. leadDays below zero falls back to the
// default consent lead.
func NewAssigner(store Store, detector *conflict.Detector, leadDays int, clock func() time.Time, newID func() (string, error)) *Assigner {
	if leadDays < 0 {
		leadDays = DefaultConsentLeadDays
	}
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return &Assigner{
		store:    store,
		detector: detector,
		leadDays: leadDays,
		clock:    clock,
		newID:    newID,
	}
}

// CreateScheduleInput describes one administration event to create.
type CreateScheduleInput struct {
	CampaignID    string
	VaccineTypeID string
	ScheduledAt   time.Time
	Notes         string
}

// CreateSchedule validates and persists a pending schedule under a mutable
// campaign. The scheduled time must not be in the past, must fall inside the
// campaign window, and must not collide with another active schedule for the
// same vaccine type.
func (a *Assigner) CreateSchedule(ctx context.Context, by actor.Actor, input CreateScheduleInput) (schedule.Schedule, error) {
	if a == nil || a.store == nil {
		return schedule.Schedule{}, fmt.Errorf("assigner store is not configured")
	}
	if err := by.Validate(); err != nil {
		return schedule.Schedule{}, err
	}
	campaignID := strings.TrimSpace(input.CampaignID)
	if campaignID == "" {
		return schedule.Schedule{}, apperrors.New(apperrors.CodeFieldRequired, "campaign id is required")
	}
	vaccineTypeID := strings.TrimSpace(input.VaccineTypeID)
	if vaccineTypeID == "" {
		return schedule.Schedule{}, apperrors.New(apperrors.CodeFieldRequired, "vaccine type id is required")
	}
	if input.ScheduledAt.IsZero() {
		return schedule.Schedule{}, apperrors.New(apperrors.CodeFieldRequired, "scheduled time is required")
	}

	owner, err := a.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return schedule.Schedule{}, err
	}
	if owner.Lifecycle != lifecycle.StateActive {
		return schedule.Schedule{}, storage.ErrNotFound
	}
	if err := validate.EnsureCampaignMutable(owner.Status); err != nil {
		return schedule.Schedule{}, err
	}

	now := a.clock().UTC()
	scheduledAt := input.ScheduledAt.UTC()
	if err := validate.EnsureNotPast(scheduledAt, now); err != nil {
		return schedule.Schedule{}, err
	}
	if err := validate.EnsureWithinCampaign(scheduledAt, owner.StartDate, owner.EndDate); err != nil {
		return schedule.Schedule{}, err
	}

	if a.detector != nil {
		conflicting, err := a.detector.ScheduleConflict(ctx, campaignID, vaccineTypeID, scheduledAt, "")
		if err != nil {
			return schedule.Schedule{}, fmt.Errorf("detect schedule conflict: %w", err)
		}
		if conflicting {
			return schedule.Schedule{}, apperrors.WithMetadata(apperrors.CodeSchedulingConflict,
				"another schedule for this vaccine type occupies an overlapping slot",
				map[string]string{
					"campaign_id":     campaignID,
					"vaccine_type_id": vaccineTypeID,
					"scheduled_at":    scheduledAt.Format(time.RFC3339),
				})
		}
	}

	scheduleID, err := a.newID()
	if err != nil {
		return schedule.Schedule{}, fmt.Errorf("generate schedule id: %w", err)
	}
	created := schedule.Schedule{
		ID:            scheduleID,
		CampaignID:    campaignID,
		VaccineTypeID: vaccineTypeID,
		ScheduledAt:   scheduledAt,
		Status:        schedule.StatusPending,
		Notes:         strings.TrimSpace(input.Notes),
		Lifecycle:     lifecycle.StateActive,
		CreatedAt:     now,
		CreatedBy:     by.UserID,
		UpdatedAt:     now,
		UpdatedBy:     by.UserID,
	}
	if err := a.store.PutSchedule(ctx, created); err != nil {
		return schedule.Schedule{}, fmt.Errorf("put schedule: %w", err)
	}
	return created, nil
}

// SkippedStudent reports one student excluded from an assignment and why.
type SkippedStudent struct {
	StudentID string
	Code      apperrors.Code
	Reason    string
}

// AssignResult is the partial-success outcome of one bulk assignment.
type AssignResult struct {
	Created []session.Session
	Skipped []SkippedStudent
}

// AssignStudents expands a selection into concrete students and creates one
// registered, consent-pending session per student under the schedule.
// Students with a conflicting session elsewhere are skipped with a reason
// instead of failing the whole assignment.
func (a *Assigner) AssignStudents(ctx context.Context, by actor.Actor, scheduleID string, sel storage.Selection) (AssignResult, error) {
	if a == nil || a.store == nil {
		return AssignResult{}, fmt.Errorf("assigner store is not configured")
	}
	if err := by.Validate(); err != nil {
		return AssignResult{}, err
	}
	scheduleID = strings.TrimSpace(scheduleID)
	if scheduleID == "" {
		return AssignResult{}, apperrors.New(apperrors.CodeFieldRequired, "schedule id is required")
	}
	if sel.IsEmpty() {
		return AssignResult{}, apperrors.New(apperrors.CodeSelectionRequired, "at least one selection mode is required")
	}

	sched, err := a.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return AssignResult{}, err
	}
	if sched.Lifecycle != lifecycle.StateActive {
		return AssignResult{}, storage.ErrNotFound
	}
	owner, err := a.store.GetCampaign(ctx, sched.CampaignID)
	if err != nil {
		return AssignResult{}, err
	}
	if err := validate.EnsureCampaignMutable(owner.Status); err != nil {
		return AssignResult{}, err
	}

	students, err := a.store.ResolveStudents(ctx, sel)
	if err != nil {
		return AssignResult{}, fmt.Errorf("resolve students: %w", err)
	}

	now := a.clock().UTC()
	deadline := session.ConsentDeadlineFor(sched.ScheduledAt, a.leadDays)
	var result AssignResult
	for _, student := range students {
		if a.detector != nil {
			conflicting, err := a.detector.StudentConflict(ctx, student.ID, sched.ScheduledAt, scheduleID)
			if err != nil {
				return AssignResult{}, fmt.Errorf("detect student conflict: %w", err)
			}
			if conflicting {
				result.Skipped = append(result.Skipped, SkippedStudent{
					StudentID: student.ID,
					Code:      apperrors.CodeSchedulingConflict,
					Reason:    "student has a conflicting session in an overlapping slot",
				})
				continue
			}
		}

		sessionID, err := a.newID()
		if err != nil {
			return AssignResult{}, fmt.Errorf("generate session id: %w", err)
		}
		created := session.Session{
			ID:              sessionID,
			ScheduleID:      scheduleID,
			StudentID:       student.ID,
			Attendance:      session.AttendanceRegistered,
			Consent:         session.ConsentPending,
			ConsentDeadline: deadline,
			Lifecycle:       lifecycle.StateActive,
			CreatedAt:       now,
			CreatedBy:       by.UserID,
			UpdatedAt:       now,
			UpdatedBy:       by.UserID,
		}
		if err := a.store.CreateSession(ctx, created); err != nil {
			if apperrors.CodeOf(err) == apperrors.CodeDuplicateSession {
				result.Skipped = append(result.Skipped, SkippedStudent{
					StudentID: student.ID,
					Code:      apperrors.CodeDuplicateSession,
					Reason:    "student is already assigned to this schedule",
				})
				continue
			}
			return AssignResult{}, fmt.Errorf("create session: %w", err)
		}
		result.Created = append(result.Created, created)
	}
	return result, nil
}
