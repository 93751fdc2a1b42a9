package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campushealth/immunize/internal/vaccination/domain/lifecycle"
	"github.com/campushealth/immunize/internal/vaccination/domain/schedule"
	"github.com/campushealth/immunize/internal/vaccination/storage"
)

const scheduleColumns = `id, campaign_id, vaccine_type_id, scheduled_at, status, notes, lifecycle, created_at, created_by, updated_at, updated_by`

// PutSchedule inserts or fully replaces one schedule row.
func (s *Store) PutSchedule(ctx context.Context, sched schedule.Schedule) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	sched.ID = strings.TrimSpace(sched.ID)
	sched.CampaignID = strings.TrimSpace(sched.CampaignID)
	if sched.ID == "" {
		return fmt.Errorf("schedule id is required")
	}
	if sched.CampaignID == "" {
		return fmt.Errorf("campaign id is required")
	}

	_, err := s.db(ctx).ExecContext(ctx, `
INSERT INTO schedules (
	id, campaign_id, vaccine_type_id, scheduled_at, status, notes, lifecycle, created_at, created_by, updated_at, updated_by
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	campaign_id = excluded.campaign_id,
	vaccine_type_id = excluded.vaccine_type_id,
	scheduled_at = excluded.scheduled_at,
	status = excluded.status,
	notes = excluded.notes,
	lifecycle = excluded.lifecycle,
	updated_at = excluded.updated_at,
	updated_by = excluded.updated_by
`,
		sched.ID,
		sched.CampaignID,
		sched.VaccineTypeID,
		toMillis(sched.ScheduledAt),
		string(sched.Status),
		sched.Notes,
		string(sched.Lifecycle),
		toMillis(sched.CreatedAt),
		sched.CreatedBy,
		toMillis(sched.UpdatedAt),
		sched.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("put schedule: %w", err)
	}
	return nil
}

// GetSchedule loads one schedule by id regardless of lifecycle state.
func (s *Store) GetSchedule(ctx context.Context, id string) (schedule.Schedule, error) {
	if err := ctx.Err(); err != nil {
		return schedule.Schedule{}, err
	}
	if s == nil || s.sqlDB == nil {
		return schedule.Schedule{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return schedule.Schedule{}, storage.ErrNotFound
	}

	row := s.db(ctx).QueryRowContext(ctx, `
SELECT `+scheduleColumns+`
FROM schedules
WHERE id = ?
`, id)
	sched, err := scanSchedule(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return schedule.Schedule{}, storage.ErrNotFound
		}
		return schedule.Schedule{}, fmt.Errorf("get schedule: %w", err)
	}
	return sched, nil
}

// ListSchedulesByCampaign lists a campaign's active schedules ordered by time.
func (s *Store) ListSchedulesByCampaign(ctx context.Context, campaignID string) ([]schedule.Schedule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return nil, fmt.Errorf("campaign id is required")
	}

	rows, err := s.db(ctx).QueryContext(ctx, `
SELECT `+scheduleColumns+`
FROM schedules
WHERE campaign_id = ? AND lifecycle = ?
ORDER BY scheduled_at ASC, id ASC
`, campaignID, string(lifecycle.StateActive))
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var results []schedule.Schedule
	for rows.Next() {
		sched, scanErr := scanSchedule(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan schedule row: %w", scanErr)
		}
		results = append(results, sched)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedule rows: %w", err)
	}
	return results, nil
}

// HasScheduleOverlap reports whether another active schedule for the campaign
// and vaccine type starts strictly inside (from, to).
func (s *Store) HasScheduleOverlap(ctx context.Context, campaignID, vaccineTypeID string, from, to time.Time, excludeID string) (bool, error) {
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
	FROM schedules
	WHERE campaign_id = ?
	  AND vaccine_type_id = ?
	  AND lifecycle = ?
	  AND scheduled_at > ?
	  AND scheduled_at < ?
	  AND id != ?
)
`, strings.TrimSpace(campaignID), strings.TrimSpace(vaccineTypeID), string(lifecycle.StateActive),
		toMillis(from), toMillis(to), strings.TrimSpace(excludeID)).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("scan schedule overlap: %w", err)
	}
	return found == 1, nil
}

// HasActiveSchedules reports whether a campaign still owns active schedules.
func (s *Store) HasActiveSchedules(ctx context.Context, campaignID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}

	var found int
	err := s.db(ctx).QueryRowContext(ctx, `
SELECT EXISTS (
	SELECT 1 FROM schedules WHERE campaign_id = ? AND lifecycle = ?
)
`, strings.TrimSpace(campaignID), string(lifecycle.StateActive)).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("scan active schedules: %w", err)
	}
	return found == 1, nil
}

func scanSchedule(scan scanner) (schedule.Schedule, error) {
	var sched schedule.Schedule
	var scheduledAt, createdAt, updatedAt int64
	var status, state string
	if err := scan(
		&sched.ID,
		&sched.CampaignID,
		&sched.VaccineTypeID,
		&scheduledAt,
		&status,
		&sched.Notes,
		&state,
		&createdAt,
		&sched.CreatedBy,
		&updatedAt,
		&sched.UpdatedBy,
	); err != nil {
		return schedule.Schedule{}, err
	}
	sched.ScheduledAt = fromMillis(scheduledAt)
	sched.Status = schedule.Status(status)
	sched.Lifecycle = lifecycle.State(state)
	sched.CreatedAt = fromMillis(createdAt)
	sched.UpdatedAt = fromMillis(updatedAt)
	return sched, nil
}
