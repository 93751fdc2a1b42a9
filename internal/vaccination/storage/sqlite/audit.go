package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/campushealth/immunize/internal/vaccination/domain/lifecycle"
	"github.com/campushealth/immunize/internal/vaccination/storage"
)

// AppendAuditEvent records one lifecycle or status transition. Events are
// append-only and ordered by insertion.
func (s *Store) AppendAuditEvent(ctx context.Context, evt storage.AuditEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	evt.EntityID = strings.TrimSpace(evt.EntityID)
	if evt.EntityID == "" {
		return fmt.Errorf("audit entity id is required")
	}
	if strings.TrimSpace(evt.EventName) == "" {
		return fmt.Errorf("audit event name is required")
	}

	_, err := s.db(ctx).ExecContext(ctx, `
INSERT INTO audit_events (ts, event_name, scope, entity_id, actor_id, detail)
VALUES (?, ?, ?, ?, ?, ?)
`, toMillis(evt.Timestamp), evt.EventName, string(evt.Scope), evt.EntityID, evt.ActorID, evt.Detail)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListAuditEventsByEntity returns the trail for one entity in insertion order.
func (s *Store) ListAuditEventsByEntity(ctx context.Context, scope lifecycle.Scope, entityID string) ([]storage.AuditEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return nil, nil
	}

	rows, err := s.db(ctx).QueryContext(ctx, `
SELECT ts, event_name, scope, entity_id, actor_id, detail
FROM audit_events
WHERE scope = ? AND entity_id = ?
ORDER BY seq ASC
`, string(scope), entityID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var results []storage.AuditEvent
	for rows.Next() {
		var evt storage.AuditEvent
		var ts int64
		var scopeLabel string
		if scanErr := rows.Scan(&ts, &evt.EventName, &scopeLabel, &evt.EntityID, &evt.ActorID, &evt.Detail); scanErr != nil {
			return nil, fmt.Errorf("scan audit row: %w", scanErr)
		}
		evt.Timestamp = fromMillis(ts)
		evt.Scope = lifecycle.Scope(scopeLabel)
		results = append(results, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit rows: %w", err)
	}
	return results, nil
}
