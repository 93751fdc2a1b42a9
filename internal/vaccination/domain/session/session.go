// Package session models the per-student session record that tracks consent
// and attendance for one schedule.
package session

import (
	"strings"
	"time"

	"github.com/campushealth/immunize/internal/vaccination/domain/lifecycle"
)

// AttendanceStatus describes a student's check-in state for a session.
type AttendanceStatus string

const (
	AttendanceUnspecified AttendanceStatus = ""
	AttendanceRegistered  AttendanceStatus = "registered"
	AttendancePresent     AttendanceStatus = "present"
	AttendanceAbsent      AttendanceStatus = "absent"
	AttendanceExcused     AttendanceStatus = "excused"
	AttendanceCompleted   AttendanceStatus = "completed"
)

// ConsentStatus describes the parent-consent state for a session.
//
// Canonical labels are signed/declined; the boundary vocabulary
// APPROVED/REJECTED is accepted as a parse alias and never stored.
type ConsentStatus string

const (
	ConsentUnspecified ConsentStatus = ""
	ConsentPending     ConsentStatus = "pending"
	ConsentSent        ConsentStatus = "sent"
	ConsentSigned      ConsentStatus = "signed"
	ConsentDeclined    ConsentStatus = "declined"
	ConsentExpired     ConsentStatus = "expired"
)

// Session links one student to one schedule and tracks consent and attendance
// independently. (schedule, student) is unique among active sessions.
type Session struct {
	ID              string
	ScheduleID      string
	StudentID       string
	Attendance      AttendanceStatus
	Consent         ConsentStatus
	ParentNotes     string
	ParentSignature string
	NotifiedAt      *time.Time
	SignedAt        *time.Time
	ConsentDeadline time.Time
	CheckInAt       *time.Time
	CheckInNote     string
	Lifecycle       lifecycle.State
	CreatedAt       time.Time
	CreatedBy       string
	UpdatedAt       time.Time
	UpdatedBy       string
}

// NormalizeAttendanceLabel canonicalizes attendance labels from storage or wire input.
func NormalizeAttendanceLabel(value string) (AttendanceStatus, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", false
	}
	switch strings.ToUpper(trimmed) {
	case "REGISTERED", "ATTENDANCE_STATUS_REGISTERED":
		return AttendanceRegistered, true
	case "PRESENT", "ATTENDANCE_STATUS_PRESENT":
		return AttendancePresent, true
	case "ABSENT", "ATTENDANCE_STATUS_ABSENT":
		return AttendanceAbsent, true
	case "EXCUSED", "ATTENDANCE_STATUS_EXCUSED":
		return AttendanceExcused, true
	case "COMPLETED", "ATTENDANCE_STATUS_COMPLETED":
		return AttendanceCompleted, true
	default:
		return "", false
	}
}

// NormalizeConsentLabel canonicalizes consent labels. APPROVED and REJECTED are
// accepted as aliases for the canonical signed/declined vocabulary.
func NormalizeConsentLabel(value string) (ConsentStatus, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", false
	}
	switch strings.ToUpper(trimmed) {
	case "PENDING", "CONSENT_STATUS_PENDING":
		return ConsentPending, true
	case "SENT", "CONSENT_STATUS_SENT":
		return ConsentSent, true
	case "SIGNED", "APPROVED", "CONSENT_STATUS_SIGNED":
		return ConsentSigned, true
	case "DECLINED", "REJECTED", "CONSENT_STATUS_DECLINED":
		return ConsentDeclined, true
	case "EXPIRED", "CONSENT_STATUS_EXPIRED":
		return ConsentExpired, true
	default:
		return "", false
	}
}

// IsFinal reports whether a consent status admits no further submissions.
func (s ConsentStatus) IsFinal() bool {
	return s == ConsentSigned || s == ConsentDeclined || s == ConsentExpired
}

// IsConsentTransitionAllowed enforces the consent state machine. Expiry is not
// listed here because it is a deadline effect, not a submission.
func IsConsentTransitionAllowed(from, to ConsentStatus) bool {
	switch from {
	case ConsentPending:
		return to == ConsentSent || to == ConsentSigned || to == ConsentDeclined
	case ConsentSent:
		return to == ConsentSigned || to == ConsentDeclined
	default:
		return false
	}
}

// EffectiveConsent returns the consent status as of now, lazily expiring
// pending and sent sessions whose deadline has passed. Reads must never
// observe a stale non-expired status past the deadline.
func (s Session) EffectiveConsent(now time.Time) ConsentStatus {
	if s.Consent != ConsentPending && s.Consent != ConsentSent {
		return s.Consent
	}
	if !s.ConsentDeadline.IsZero() && now.After(s.ConsentDeadline) {
		return ConsentExpired
	}
	return s.Consent
}

// ConsentDeadlineFor derives the consent deadline from the schedule time and
// the configured lead.
func ConsentDeadlineFor(scheduledAt time.Time, leadDays int) time.Time {
	if leadDays < 0 {
		leadDays = 0
	}
	return scheduledAt.UTC().AddDate(0, 0, -leadDays)
}

// ReadyForAdministration reports whether a session satisfies the
// administration preconditions: consent signed and student present.
func (s Session) ReadyForAdministration(now time.Time) bool {
	return s.EffectiveConsent(now) == ConsentSigned && s.Attendance == AttendancePresent
}
