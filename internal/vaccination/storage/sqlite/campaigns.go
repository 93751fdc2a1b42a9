package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/campushealth/immunize/internal/vaccination/domain/campaign"
	"github.com/campushealth/immunize/internal/vaccination/domain/lifecycle"
	"github.com/campushealth/immunize/internal/vaccination/storage"
)

const campaignColumns = `id, name, school_year, description, start_date, end_date, status, lifecycle, created_at, created_by, updated_at, updated_by`

// PutCampaign inserts or fully replaces one campaign row.
func (s *Store) PutCampaign(ctx context.Context, c campaign.Campaign) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	c.ID = strings.TrimSpace(c.ID)
	if c.ID == "" {
		return fmt.Errorf("campaign id is required")
	}
	if c.CreatedAt.IsZero() || c.UpdatedAt.IsZero() {
		return fmt.Errorf("campaign audit timestamps are required")
	}

	_, err := s.db(ctx).ExecContext(ctx, `
INSERT INTO campaigns (
	id, name, school_year, description, start_date, end_date, status, lifecycle, created_at, created_by, updated_at, updated_by
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	school_year = excluded.school_year,
	description = excluded.description,
	start_date = excluded.start_date,
	end_date = excluded.end_date,
	status = excluded.status,
	lifecycle = excluded.lifecycle,
	updated_at = excluded.updated_at,
	updated_by = excluded.updated_by
`,
		c.ID,
		c.Name,
		c.SchoolYear,
		c.Description,
		toMillis(c.StartDate),
		toMillis(c.EndDate),
		string(c.Status),
		string(c.Lifecycle),
		toMillis(c.CreatedAt),
		c.CreatedBy,
		toMillis(c.UpdatedAt),
		c.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("put campaign: %w", err)
	}
	return nil
}

// GetCampaign loads one campaign by id regardless of lifecycle state.
func (s *Store) GetCampaign(ctx context.Context, id string) (campaign.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return campaign.Campaign{}, err
	}
	if s == nil || s.sqlDB == nil {
		return campaign.Campaign{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return campaign.Campaign{}, storage.ErrNotFound
	}

	row := s.db(ctx).QueryRowContext(ctx, `
SELECT `+campaignColumns+`
FROM campaigns
WHERE id = ?
`, id)
	c, err := scanCampaign(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return campaign.Campaign{}, storage.ErrNotFound
		}
		return campaign.Campaign{}, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

// ListCampaigns pages active campaigns newest-first with cursor pagination.
func (s *Store) ListCampaigns(ctx context.Context, pageSize int, pageToken string) (storage.CampaignPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.CampaignPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.CampaignPage{}, fmt.Errorf("storage is not configured")
	}
	if pageSize <= 0 {
		return storage.CampaignPage{}, fmt.Errorf("page size must be greater than zero")
	}
	pageToken = strings.TrimSpace(pageToken)

	limit := pageSize + 1
	var rows *sql.Rows
	var err error
	if pageToken == "" {
		rows, err = s.db(ctx).QueryContext(ctx, `
SELECT `+campaignColumns+`
FROM campaigns
WHERE lifecycle = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`, string(lifecycle.StateActive), limit)
	} else {
		var tokenCreatedAt int64
		tokenRow := s.db(ctx).QueryRowContext(ctx,
			`SELECT created_at FROM campaigns WHERE id = ?`, pageToken)
		if scanErr := tokenRow.Scan(&tokenCreatedAt); scanErr != nil {
			if errors.Is(scanErr, sql.ErrNoRows) {
				return storage.CampaignPage{}, nil
			}
			return storage.CampaignPage{}, fmt.Errorf("lookup campaign cursor: %w", scanErr)
		}
		rows, err = s.db(ctx).QueryContext(ctx, `
SELECT `+campaignColumns+`
FROM campaigns
WHERE lifecycle = ?
  AND (created_at < ? OR (created_at = ? AND id < ?))
ORDER BY created_at DESC, id DESC
LIMIT ?
`, string(lifecycle.StateActive), tokenCreatedAt, tokenCreatedAt, pageToken, limit)
	}
	if err != nil {
		return storage.CampaignPage{}, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	page := storage.CampaignPage{Campaigns: make([]campaign.Campaign, 0, pageSize)}
	for rows.Next() {
		c, scanErr := scanCampaign(rows.Scan)
		if scanErr != nil {
			return storage.CampaignPage{}, fmt.Errorf("scan campaign row: %w", scanErr)
		}
		page.Campaigns = append(page.Campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return storage.CampaignPage{}, fmt.Errorf("iterate campaign rows: %w", err)
	}
	if len(page.Campaigns) > pageSize {
		page.NextPageToken = page.Campaigns[pageSize-1].ID
		page.Campaigns = page.Campaigns[:pageSize]
	}
	return page, nil
}

func scanCampaign(scan scanner) (campaign.Campaign, error) {
	var c campaign.Campaign
	var startDate, endDate, createdAt, updatedAt int64
	var status, state string
	if err := scan(
		&c.ID,
		&c.Name,
		&c.SchoolYear,
		&c.Description,
		&startDate,
		&endDate,
		&status,
		&state,
		&createdAt,
		&c.CreatedBy,
		&updatedAt,
		&c.UpdatedBy,
	); err != nil {
		return campaign.Campaign{}, err
	}
	c.StartDate = fromMillis(startDate)
	c.EndDate = fromMillis(endDate)
	c.Status = campaign.Status(status)
	c.Lifecycle = lifecycle.State(state)
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return c, nil
}
