package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campushealth/immunize/internal/vaccination/domain/lifecycle"
	"github.com/campushealth/immunize/internal/vaccination/domain/session"
	"github.com/campushealth/immunize/internal/vaccination/storage"
)

const sessionColumns = `id, schedule_id, student_id, attendance, consent, parent_notes, parent_signature, notified_at, signed_at, consent_deadline, check_in_at, check_in_note, lifecycle, created_at, created_by, updated_at, updated_by`

// CreateSession inserts one session row. The partial unique index over active
// (schedule_id, student_id) pairs turns a concurrent duplicate into
// ErrDuplicateSession for the losing writer.
func (s *Store) CreateSession(ctx context.Context, sess session.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	sess.ID = strings.TrimSpace(sess.ID)
	sess.ScheduleID = strings.TrimSpace(sess.ScheduleID)
	sess.StudentID = strings.TrimSpace(sess.StudentID)
	if sess.ID == "" {
		return fmt.Errorf("session id is required")
	}
	if sess.ScheduleID == "" || sess.StudentID == "" {
		return fmt.Errorf("schedule id and student id are required")
	}

	_, err := s.db(ctx).ExecContext(ctx, `
INSERT INTO session_students (
	id, schedule_id, student_id, attendance, consent, parent_notes, parent_signature, notified_at, signed_at, consent_deadline, check_in_at, check_in_note, lifecycle, created_at, created_by, updated_at, updated_by
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, sessionArgs(sess)...)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrDuplicateSession
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// UpdateSession fully replaces one existing session row by id.
func (s *Store) UpdateSession(ctx context.Context, sess session.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	sess.ID = strings.TrimSpace(sess.ID)
	if sess.ID == "" {
		return fmt.Errorf("session id is required")
	}

	args := sessionArgs(sess)[1:]
	args = append(args, sess.ID)
	result, err := s.db(ctx).ExecContext(ctx, `
UPDATE session_students
SET schedule_id = ?, student_id = ?, attendance = ?, consent = ?, parent_notes = ?, parent_signature = ?, notified_at = ?, signed_at = ?, consent_deadline = ?, check_in_at = ?, check_in_note = ?, lifecycle = ?, created_at = ?, created_by = ?, updated_at = ?, updated_by = ?
WHERE id = ?
`, args...)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrDuplicateSession
		}
		return fmt.Errorf("update session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetSession loads one session by id regardless of lifecycle state.
func (s *Store) GetSession(ctx context.Context, id string) (session.Session, error) {
	if err := ctx.Err(); err != nil {
		return session.Session{}, err
	}
	if s == nil || s.sqlDB == nil {
		return session.Session{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return session.Session{}, storage.ErrNotFound
	}

	row := s.db(ctx).QueryRowContext(ctx, `
SELECT `+sessionColumns+`
FROM session_students
WHERE id = ?
`, id)
	sess, err := scanSession(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.Session{}, storage.ErrNotFound
		}
		return session.Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// ListSessionsBySchedule lists a schedule's active sessions ordered by student.
func (s *Store) ListSessionsBySchedule(ctx context.Context, scheduleID string) ([]session.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	scheduleID = strings.TrimSpace(scheduleID)
	if scheduleID == "" {
		return nil, fmt.Errorf("schedule id is required")
	}

	rows, err := s.db(ctx).QueryContext(ctx, `
SELECT `+sessionColumns+`
FROM session_students
WHERE schedule_id = ? AND lifecycle = ?
ORDER BY student_id ASC, id ASC
`, scheduleID, string(lifecycle.StateActive))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var results []session.Session
	for rows.Next() {
		sess, scanErr := scanSession(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan session row: %w", scanErr)
		}
		results = append(results, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return results, nil
}

// HasStudentOverlap reports whether the student has an active session on
// another schedule that starts strictly inside (from, to).
func (s *Store) HasStudentOverlap(ctx context.Context, studentID string, from, to time.Time, excludeScheduleID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}

	var found int
	err := s.db(ctx).QueryRowContext(ctx, `
SELECT EXISTS (
	SELECT 1
	FROM session_students ss
	JOIN schedules sch ON sch.id = ss.schedule_id
	WHERE ss.student_id = ?
	  AND ss.lifecycle = ?
	  AND sch.lifecycle = ?
	  AND sch.scheduled_at > ?
	  AND sch.scheduled_at < ?
	  AND ss.schedule_id != ?
)
`, strings.TrimSpace(studentID), string(lifecycle.StateActive), string(lifecycle.StateActive),
		toMillis(from), toMillis(to), strings.TrimSpace(excludeScheduleID)).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("scan student overlap: %w", err)
	}
	return found == 1, nil
}

// HasActiveSessions reports whether a schedule still owns active sessions.
func (s *Store) HasActiveSessions(ctx context.Context, scheduleID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}

	var found int
	err := s.db(ctx).QueryRowContext(ctx, `
SELECT EXISTS (
	SELECT 1 FROM session_students WHERE schedule_id = ? AND lifecycle = ?
)
`, strings.TrimSpace(scheduleID), string(lifecycle.StateActive)).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("scan active sessions: %w", err)
	}
	return found == 1, nil
}

// ExpireOverdueConsents flips active pending/sent sessions whose deadline is
// strictly before now to expired and returns the flip count.
func (s *Store) ExpireOverdueConsents(ctx context.Context, now time.Time, by string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	by = strings.TrimSpace(by)
	if by == "" {
		return 0, fmt.Errorf("acting user id is required")
	}
	if now.IsZero() {
		return 0, fmt.Errorf("now is required")
	}

	result, err := s.db(ctx).ExecContext(ctx, `
UPDATE session_students
SET consent = ?, updated_at = ?, updated_by = ?
WHERE lifecycle = ?
  AND consent IN (?, ?)
  AND consent_deadline > 0
  AND consent_deadline < ?
`, string(session.ConsentExpired), toMillis(now), by, string(lifecycle.StateActive),
		string(session.ConsentPending), string(session.ConsentSent), toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("expire overdue consents: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire overdue consents rows affected: %w", err)
	}
	return int(affected), nil
}

func sessionArgs(sess session.Session) []any {
	return []any{
		sess.ID,
		sess.ScheduleID,
		sess.StudentID,
		string(sess.Attendance),
		string(sess.Consent),
		sess.ParentNotes,
		sess.ParentSignature,
		toNullMillis(sess.NotifiedAt),
		toNullMillis(sess.SignedAt),
		toMillis(sess.ConsentDeadline),
		toNullMillis(sess.CheckInAt),
		sess.CheckInNote,
		string(sess.Lifecycle),
		toMillis(sess.CreatedAt),
		sess.CreatedBy,
		toMillis(sess.UpdatedAt),
		sess.UpdatedBy,
	}
}

func scanSession(scan scanner) (session.Session, error) {
	var sess session.Session
	var attendance, consent, state string
	var notifiedAt, signedAt, checkInAt sql.NullInt64
	var consentDeadline, createdAt, updatedAt int64
	if err := scan(
		&sess.ID,
		&sess.ScheduleID,
		&sess.StudentID,
		&attendance,
		&consent,
		&sess.ParentNotes,
		&sess.ParentSignature,
		&notifiedAt,
		&signedAt,
		&consentDeadline,
		&checkInAt,
		&sess.CheckInNote,
		&state,
		&createdAt,
		&sess.CreatedBy,
		&updatedAt,
		&sess.UpdatedBy,
	); err != nil {
		return session.Session{}, err
	}
	sess.Attendance = session.AttendanceStatus(attendance)
	sess.Consent = session.ConsentStatus(consent)
	sess.NotifiedAt = fromNullMillis(notifiedAt)
	sess.SignedAt = fromNullMillis(signedAt)
	sess.ConsentDeadline = fromMillis(consentDeadline)
	sess.CheckInAt = fromNullMillis(checkInAt)
	sess.Lifecycle = lifecycle.State(state)
	sess.CreatedAt = fromMillis(createdAt)
	sess.UpdatedAt = fromMillis(updatedAt)
	return sess, nil
}
