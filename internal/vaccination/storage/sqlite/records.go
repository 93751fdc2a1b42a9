package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/campushealth/immunize/internal/vaccination/domain/lifecycle"
	"github.com/campushealth/immunize/internal/vaccination/domain/record"
	"github.com/campushealth/immunize/internal/vaccination/storage"
)

const recordColumns = `id, session_student_id, administered_at, staff_id, follow_up_24h, follow_up_72h, reaction_severity, reaction_notes, lifecycle, created_at, created_by, updated_at, updated_by`

// CreateRecord inserts one administration record. The partial unique index
// over active session ids surfaces ErrDuplicateRecord to the losing writer of
// a concurrent administration.
func (s *Store) CreateRecord(ctx context.Context, r record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	r.ID = strings.TrimSpace(r.ID)
	r.SessionStudentID = strings.TrimSpace(r.SessionStudentID)
	if r.ID == "" {
		return fmt.Errorf("record id is required")
	}
	if r.SessionStudentID == "" {
		return fmt.Errorf("session id is required")
	}

	_, err := s.db(ctx).ExecContext(ctx, `
INSERT INTO vaccination_records (
	id, session_student_id, administered_at, staff_id, follow_up_24h, follow_up_72h, reaction_severity, reaction_notes, lifecycle, created_at, created_by, updated_at, updated_by
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, recordArgs(r)...)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrDuplicateRecord
		}
		return fmt.Errorf("create record: %w", err)
	}
	return nil
}

// UpdateRecord fully replaces one existing record row by id.
func (s *Store) UpdateRecord(ctx context.Context, r record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	r.ID = strings.TrimSpace(r.ID)
	if r.ID == "" {
		return fmt.Errorf("record id is required")
	}

	args := recordArgs(r)[1:]
	args = append(args, r.ID)
	result, err := s.db(ctx).ExecContext(ctx, `
UPDATE vaccination_records
SET session_student_id = ?, administered_at = ?, staff_id = ?, follow_up_24h = ?, follow_up_72h = ?, reaction_severity = ?, reaction_notes = ?, lifecycle = ?, created_at = ?, created_by = ?, updated_at = ?, updated_by = ?
WHERE id = ?
`, args...)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrDuplicateRecord
		}
		return fmt.Errorf("update record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update record rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetRecord loads one record by id regardless of lifecycle state.
func (s *Store) GetRecord(ctx context.Context, id string) (record.Record, error) {
	if err := ctx.Err(); err != nil {
		return record.Record{}, err
	}
	if s == nil || s.sqlDB == nil {
		return record.Record{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return record.Record{}, storage.ErrNotFound
	}

	row := s.db(ctx).QueryRowContext(ctx, `
SELECT `+recordColumns+`
FROM vaccination_records
WHERE id = ?
`, id)
	r, err := scanRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return record.Record{}, storage.ErrNotFound
		}
		return record.Record{}, fmt.Errorf("get record: %w", err)
	}
	return r, nil
}

// GetRecordBySession loads the active record for one session.
func (s *Store) GetRecordBySession(ctx context.Context, sessionStudentID string) (record.Record, error) {
	if err := ctx.Err(); err != nil {
		return record.Record{}, err
	}
	if s == nil || s.sqlDB == nil {
		return record.Record{}, fmt.Errorf("storage is not configured")
	}
	sessionStudentID = strings.TrimSpace(sessionStudentID)
	if sessionStudentID == "" {
		return record.Record{}, storage.ErrNotFound
	}

	row := s.db(ctx).QueryRowContext(ctx, `
SELECT `+recordColumns+`
FROM vaccination_records
WHERE session_student_id = ? AND lifecycle = ?
`, sessionStudentID, string(lifecycle.StateActive))
	r, err := scanRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return record.Record{}, storage.ErrNotFound
		}
		return record.Record{}, fmt.Errorf("get record by session: %w", err)
	}
	return r, nil
}

// ListRecordsRequiringFollowUp lists active records whose severity is above
// none, ordered oldest administration first.
func (s *Store) ListRecordsRequiringFollowUp(ctx context.Context) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.db(ctx).QueryContext(ctx, `
SELECT `+recordColumns+`
FROM vaccination_records
WHERE lifecycle = ? AND reaction_severity != ?
ORDER BY administered_at ASC, id ASC
`, string(lifecycle.StateActive), record.SeverityNone.String())
	if err != nil {
		return nil, fmt.Errorf("list follow-up records: %w", err)
	}
	defer rows.Close()

	var results []record.Record
	for rows.Next() {
		r, scanErr := scanRecord(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan record row: %w", scanErr)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record rows: %w", err)
	}
	return results, nil
}

func recordArgs(r record.Record) []any {
	return []any{
		r.ID,
		r.SessionStudentID,
		toMillis(r.AdministeredAt),
		r.StaffID,
		boolToInt(r.FollowUp24h),
		boolToInt(r.FollowUp72h),
		r.ReactionSeverity.String(),
		r.ReactionNotes,
		string(r.Lifecycle),
		toMillis(r.CreatedAt),
		r.CreatedBy,
		toMillis(r.UpdatedAt),
		r.UpdatedBy,
	}
}

func scanRecord(scan scanner) (record.Record, error) {
	var r record.Record
	var administeredAt, createdAt, updatedAt int64
	var followUp24h, followUp72h int
	var severity, state string
	if err := scan(
		&r.ID,
		&r.SessionStudentID,
		&administeredAt,
		&r.StaffID,
		&followUp24h,
		&followUp72h,
		&severity,
		&r.ReactionNotes,
		&state,
		&createdAt,
		&r.CreatedBy,
		&updatedAt,
		&r.UpdatedBy,
	); err != nil {
		return record.Record{}, err
	}
	r.AdministeredAt = fromMillis(administeredAt)
	r.FollowUp24h = followUp24h == 1
	r.FollowUp72h = followUp72h == 1
	if normalized, ok := record.NormalizeSeverityLabel(severity); ok {
		r.ReactionSeverity = normalized
	}
	r.Lifecycle = lifecycle.State(state)
	r.CreatedAt = fromMillis(createdAt)
	r.UpdatedAt = fromMillis(updatedAt)
	return r, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
