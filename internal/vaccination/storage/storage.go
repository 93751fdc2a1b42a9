// Package storage defines the persistence boundary consumed by the
// vaccination engine. The engine expresses intent ("find conflicting
// schedule", "load session") and leaves indexing and querying to the
// implementation.
package storage

import (
	"context"
	"time"

	apperrors "github.com/campushealth/immunize/internal/platform/errors"
	"github.com/campushealth/immunize/internal/vaccination/domain/campaign"
	"github.com/campushealth/immunize/internal/vaccination/domain/lifecycle"
	"github.com/campushealth/immunize/internal/vaccination/domain/record"
	"github.com/campushealth/immunize/internal/vaccination/domain/schedule"
	"github.com/campushealth/immunize/internal/vaccination/domain/session"
)

// ErrNotFound indicates a requested persistence row is missing. Soft-deleted
// rows are still loadable by id; callers decide whether deleted rows count.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrDuplicateSession indicates a write would create a second active session
// for the same (schedule, student) pair. Surfaced to the losing writer of a
// race, never resolved by silently overwriting.
var ErrDuplicateSession = apperrors.New(apperrors.CodeDuplicateSession, "active session already exists for schedule and student")

// ErrDuplicateRecord indicates a write would create a second active
// administration record for the same session.
var ErrDuplicateRecord = apperrors.New(apperrors.CodeDuplicateRecord, "active record already exists for session")

// CampaignPage describes a page of campaigns ordered newest-first.
type CampaignPage struct {
	Campaigns     []campaign.Campaign
	NextPageToken string
}

// CampaignStore owns campaign rows.
type CampaignStore interface {
	// PutCampaign inserts or fully replaces a campaign by id.
	PutCampaign(ctx context.Context, c campaign.Campaign) error
	GetCampaign(ctx context.Context, id string) (campaign.Campaign, error)
	// ListCampaigns returns a page of active campaigns starting after the page token.
	ListCampaigns(ctx context.Context, pageSize int, pageToken string) (CampaignPage, error)
}

// ScheduleStore owns schedule rows and the conflict scan the detector relies on.
type ScheduleStore interface {
	PutSchedule(ctx context.Context, s schedule.Schedule) error
	GetSchedule(ctx context.Context, id string) (schedule.Schedule, error)
	ListSchedulesByCampaign(ctx context.Context, campaignID string) ([]schedule.Schedule, error)
	// HasScheduleOverlap reports whether another active schedule for the same
	// campaign and vaccine type starts strictly inside (from, to). excludeID
	// skips the schedule being updated.
	HasScheduleOverlap(ctx context.Context, campaignID, vaccineTypeID string, from, to time.Time, excludeID string) (bool, error)
	// HasActiveSchedules reports whether a campaign still owns active schedules.
	HasActiveSchedules(ctx context.Context, campaignID string) (bool, error)
}

// SessionStore owns per-student session rows.
//
// CreateSession is insert-only so the unique active (schedule, student)
// constraint surfaces ErrDuplicateSession to the loser of a concurrent write.
type SessionStore interface {
	CreateSession(ctx context.Context, s session.Session) error
	UpdateSession(ctx context.Context, s session.Session) error
	GetSession(ctx context.Context, id string) (session.Session, error)
	ListSessionsBySchedule(ctx context.Context, scheduleID string) ([]session.Session, error)
	// HasStudentOverlap reports whether the student already has an active
	// session on another schedule starting strictly inside (from, to).
	HasStudentOverlap(ctx context.Context, studentID string, from, to time.Time, excludeScheduleID string) (bool, error)
	// HasActiveSessions reports whether a schedule still owns active sessions.
	HasActiveSessions(ctx context.Context, scheduleID string) (bool, error)
	// ExpireOverdueConsents flips active pending/sent sessions whose deadline
	// passed to expired, stamping the sweep actor, and returns the flip count.
	ExpireOverdueConsents(ctx context.Context, now time.Time, by string) (int, error)
}

// RecordStore owns administration record rows. CreateRecord is insert-only so
// the unique active session constraint surfaces ErrDuplicateRecord.
type RecordStore interface {
	CreateRecord(ctx context.Context, r record.Record) error
	UpdateRecord(ctx context.Context, r record.Record) error
	GetRecord(ctx context.Context, id string) (record.Record, error)
	// GetRecordBySession loads the active record for a session, or ErrNotFound.
	GetRecordBySession(ctx context.Context, sessionStudentID string) (record.Record, error)
	// ListRecordsRequiringFollowUp returns active records with severity above
	// none and an unresolved follow-up window.
	ListRecordsRequiringFollowUp(ctx context.Context) ([]record.Record, error)
}

// Student is the roster view the engine reads when expanding a target population.
type Student struct {
	ID      string
	Name    string
	Grade   string
	Section string
	Active  bool
}

// GradeSection addresses one homeroom.
type GradeSection struct {
	Grade   string
	Section string
}

// Selection describes a schedule's target population. Modes are unioned and
// the resolved set is de-duplicated.
type Selection struct {
	StudentIDs    []string
	GradeSections []GradeSection
	Grades        []string
}

// IsEmpty reports whether no selection mode was provided.
func (s Selection) IsEmpty() bool {
	return len(s.StudentIDs) == 0 && len(s.GradeSections) == 0 && len(s.Grades) == 0
}

// RosterStore is the read-mostly student directory collaborator.
type RosterStore interface {
	PutStudent(ctx context.Context, s Student) error
	// ResolveStudents expands a selection into a de-duplicated list of active
	// students, ordered by id. Unknown explicit ids resolve to nothing.
	ResolveStudents(ctx context.Context, sel Selection) ([]Student, error)
}

// AuditEvent is one logged lifecycle or status transition.
type AuditEvent struct {
	Timestamp time.Time
	EventName string
	Scope     lifecycle.Scope
	EntityID  string
	ActorID   string
	Detail    string
}

// AuditStore records lifecycle transitions so restores and deletes are
// attributable operations, not anonymous flag flips.
type AuditStore interface {
	AppendAuditEvent(ctx context.Context, evt AuditEvent) error
	ListAuditEventsByEntity(ctx context.Context, scope lifecycle.Scope, entityID string) ([]AuditEvent, error)
}

// TxRunner scopes a function to one storage transaction. Store calls made with
// the callback context join the transaction; the transaction commits when fn
// returns nil and rolls back otherwise.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Engine aggregates every store the vaccination engine consumes.
type Engine interface {
	CampaignStore
	ScheduleStore
	SessionStore
	RecordStore
	RosterStore
	AuditStore
	TxRunner
}
