// Package lifecycle applies batch status transitions and soft-delete/restore
// operations across campaigns, schedules, sessions, and records. Every
// soft-delete and restore is a logged transition with an audit row, not an
// anonymous flag flip.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/campushealth/immunize/internal/platform/errors"
	"github.com/campushealth/immunize/internal/vaccination/actor"
	"github.com/campushealth/immunize/internal/vaccination/batch"
	"github.com/campushealth/immunize/internal/vaccination/domain/campaign"
	domlifecycle "github.com/campushealth/immunize/internal/vaccination/domain/lifecycle"
	"github.com/campushealth/immunize/internal/vaccination/domain/schedule"
	"github.com/campushealth/immunize/internal/vaccination/storage"
)

// Store is the persistence surface lifecycle operations need.
type Store interface {
	storage.CampaignStore
	storage.ScheduleStore
	storage.SessionStore
	storage.RecordStore
	storage.AuditStore
}

// Service runs batch lifecycle operations.
type Service struct {
	store   Store
	batches *batch.Coordinator
	clock   func() time.Time
}

// NewService constructs the lifecycle service. The coordinator decides the
// batch atomicity: per-item by default, whole-batch when built with
// batch.NewAtomic.
func NewService(store Store, batches *batch.Coordinator, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	if batches == nil {
		batches = batch.New(nil)
	}
	return &Service{store: store, batches: batches, clock: clock}
}

// UpdateCampaignStatus transitions each campaign to the target status.
// Terminal campaigns and disallowed transitions fail per item.
func (s *Service) UpdateCampaignStatus(ctx context.Context, by actor.Actor, campaignIDs []string, status string) (batch.Result, error) {
	if s == nil || s.store == nil {
		return batch.Result{}, fmt.Errorf("lifecycle store is not configured")
	}
	if err := by.Validate(); err != nil {
		return batch.Result{}, err
	}
	target, ok := campaign.NormalizeStatusLabel(status)
	if !ok {
		return batch.Result{}, apperrors.WithMetadata(apperrors.CodeCampaignInvalidStatusTransition,
			"unknown campaign status", map[string]string{"status": status})
	}
	return s.batches.Run(ctx, campaignIDs, func(ctx context.Context, id string) error {
		c, err := s.store.GetCampaign(ctx, id)
		if err != nil {
			return err
		}
		if c.Lifecycle != domlifecycle.StateActive {
			return storage.ErrNotFound
		}
		if c.Status.IsTerminal() {
			return apperrors.WithMetadata(apperrors.CodeCampaignTerminal,
				"campaign is in a terminal state", map[string]string{"status": string(c.Status)})
		}
		if !campaign.IsStatusTransitionAllowed(c.Status, target) {
			return apperrors.WithMetadata(apperrors.CodeCampaignInvalidStatusTransition,
				"campaign status transition is not allowed",
				map[string]string{"from": string(c.Status), "to": string(target)})
		}
		now := s.clock().UTC()
		detail := string(c.Status) + " -> " + string(target)
		c.Status = target
		c.UpdatedAt = now
		c.UpdatedBy = by.UserID
		if err := s.store.PutCampaign(ctx, c); err != nil {
			return fmt.Errorf("put campaign: %w", err)
		}
		return s.appendAudit(ctx, "status_update", domlifecycle.ScopeCampaign, c.ID, by, now, detail)
	})
}

// UpdateScheduleStatus transitions each schedule to the target status.
func (s *Service) UpdateScheduleStatus(ctx context.Context, by actor.Actor, scheduleIDs []string, status string) (batch.Result, error) {
	if s == nil || s.store == nil {
		return batch.Result{}, fmt.Errorf("lifecycle store is not configured")
	}
	if err := by.Validate(); err != nil {
		return batch.Result{}, err
	}
	target, ok := schedule.NormalizeStatusLabel(status)
	if !ok {
		return batch.Result{}, apperrors.WithMetadata(apperrors.CodeScheduleInvalidStatusTransition,
			"unknown schedule status", map[string]string{"status": status})
	}
	return s.batches.Run(ctx, scheduleIDs, func(ctx context.Context, id string) error {
		sched, err := s.store.GetSchedule(ctx, id)
		if err != nil {
			return err
		}
		if sched.Lifecycle != domlifecycle.StateActive {
			return storage.ErrNotFound
		}
		if !schedule.IsStatusTransitionAllowed(sched.Status, target) {
			return apperrors.WithMetadata(apperrors.CodeScheduleInvalidStatusTransition,
				"schedule status transition is not allowed",
				map[string]string{"from": string(sched.Status), "to": string(target)})
		}
		now := s.clock().UTC()
		detail := string(sched.Status) + " -> " + string(target)
		sched.Status = target
		sched.UpdatedAt = now
		sched.UpdatedBy = by.UserID
		if err := s.store.PutSchedule(ctx, sched); err != nil {
			return fmt.Errorf("put schedule: %w", err)
		}
		return s.appendAudit(ctx, "status_update", domlifecycle.ScopeSchedule, sched.ID, by, now, detail)
	})
}

// SoftDelete marks each entity deleted. Deleting an entity that still owns
// active children is restricted so data never silently disappears; callers
// delete bottom-up.
func (s *Service) SoftDelete(ctx context.Context, by actor.Actor, scope domlifecycle.Scope, ids []string) (batch.Result, error) {
	if s == nil || s.store == nil {
		return batch.Result{}, fmt.Errorf("lifecycle store is not configured")
	}
	if err := by.Validate(); err != nil {
		return batch.Result{}, err
	}
	return s.batches.Run(ctx, ids, func(ctx context.Context, id string) error {
		return s.transition(ctx, by, scope, id, domlifecycle.StateDeleted)
	})
}

// Restore flips each soft-deleted entity back to active.
func (s *Service) Restore(ctx context.Context, by actor.Actor, scope domlifecycle.Scope, ids []string) (batch.Result, error) {
	if s == nil || s.store == nil {
		return batch.Result{}, fmt.Errorf("lifecycle store is not configured")
	}
	if err := by.Validate(); err != nil {
		return batch.Result{}, err
	}
	return s.batches.Run(ctx, ids, func(ctx context.Context, id string) error {
		return s.transition(ctx, by, scope, id, domlifecycle.StateActive)
	})
}

// AuditTrail lists the logged lifecycle transitions for one entity.
func (s *Service) AuditTrail(ctx context.Context, scope domlifecycle.Scope, entityID string) ([]storage.AuditEvent, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("lifecycle store is not configured")
	}
	return s.store.ListAuditEventsByEntity(ctx, scope, entityID)
}

func (s *Service) transition(ctx context.Context, by actor.Actor, scope domlifecycle.Scope, id string, target domlifecycle.State) error {
	current, err := s.loadState(ctx, scope, id)
	if err != nil {
		return err
	}
	if current == target {
		if target == domlifecycle.StateDeleted {
			return apperrors.New(apperrors.CodeLifecycleAlreadyDeleted, "entity is already deleted")
		}
		return apperrors.New(apperrors.CodeLifecycleNotDeleted, "entity is not deleted")
	}
	if target == domlifecycle.StateDeleted {
		if err := s.ensureNoActiveChildren(ctx, scope, id); err != nil {
			return err
		}
	}

	now := s.clock().UTC()
	if err := s.saveState(ctx, by, scope, id, target, now); err != nil {
		return err
	}
	event := "soft_delete"
	if target == domlifecycle.StateActive {
		event = "restore"
	}
	return s.appendAudit(ctx, event, scope, id, by, now, string(current)+" -> "+string(target))
}

func (s *Service) loadState(ctx context.Context, scope domlifecycle.Scope, id string) (domlifecycle.State, error) {
	switch scope {
	case domlifecycle.ScopeCampaign:
		c, err := s.store.GetCampaign(ctx, id)
		if err != nil {
			return "", err
		}
		return c.Lifecycle, nil
	case domlifecycle.ScopeSchedule:
		sched, err := s.store.GetSchedule(ctx, id)
		if err != nil {
			return "", err
		}
		return sched.Lifecycle, nil
	case domlifecycle.ScopeSession:
		sess, err := s.store.GetSession(ctx, id)
		if err != nil {
			return "", err
		}
		return sess.Lifecycle, nil
	case domlifecycle.ScopeRecord:
		r, err := s.store.GetRecord(ctx, id)
		if err != nil {
			return "", err
		}
		return r.Lifecycle, nil
	default:
		return "", fmt.Errorf("unknown lifecycle scope %q", scope)
	}
}

func (s *Service) ensureNoActiveChildren(ctx context.Context, scope domlifecycle.Scope, id string) error {
	switch scope {
	case domlifecycle.ScopeCampaign:
		owned, err := s.store.HasActiveSchedules(ctx, id)
		if err != nil {
			return fmt.Errorf("scan active schedules: %w", err)
		}
		if owned {
			return apperrors.New(apperrors.CodeOwnedRowsActive, "campaign still owns active schedules")
		}
	case domlifecycle.ScopeSchedule:
		owned, err := s.store.HasActiveSessions(ctx, id)
		if err != nil {
			return fmt.Errorf("scan active sessions: %w", err)
		}
		if owned {
			return apperrors.New(apperrors.CodeOwnedRowsActive, "schedule still owns active sessions")
		}
	case domlifecycle.ScopeSession:
		_, err := s.store.GetRecordBySession(ctx, id)
		if err == nil {
			return apperrors.New(apperrors.CodeOwnedRowsActive, "session still owns an active record")
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("scan active record: %w", err)
		}
	}
	return nil
}

func (s *Service) saveState(ctx context.Context, by actor.Actor, scope domlifecycle.Scope, id string, target domlifecycle.State, now time.Time) error {
	switch scope {
	case domlifecycle.ScopeCampaign:
		c, err := s.store.GetCampaign(ctx, id)
		if err != nil {
			return err
		}
		c.Lifecycle = target
		c.UpdatedAt = now
		c.UpdatedBy = by.UserID
		return s.store.PutCampaign(ctx, c)
	case domlifecycle.ScopeSchedule:
		sched, err := s.store.GetSchedule(ctx, id)
		if err != nil {
			return err
		}
		sched.Lifecycle = target
		sched.UpdatedAt = now
		sched.UpdatedBy = by.UserID
		return s.store.PutSchedule(ctx, sched)
	case domlifecycle.ScopeSession:
		sess, err := s.store.GetSession(ctx, id)
		if err != nil {
			return err
		}
		sess.Lifecycle = target
		sess.UpdatedAt = now
		sess.UpdatedBy = by.UserID
		return s.store.UpdateSession(ctx, sess)
	case domlifecycle.ScopeRecord:
		r, err := s.store.GetRecord(ctx, id)
		if err != nil {
			return err
		}
		r.Lifecycle = target
		r.UpdatedAt = now
		r.UpdatedBy = by.UserID
		return s.store.UpdateRecord(ctx, r)
	default:
		return fmt.Errorf("unknown lifecycle scope %q", scope)
	}
}

func (s *Service) appendAudit(ctx context.Context, event string, scope domlifecycle.Scope, entityID string, by actor.Actor, now time.Time, detail string) error {
	err := s.store.AppendAuditEvent(ctx, storage.AuditEvent{
		Timestamp: now,
		EventName: event,
		Scope:     scope,
		EntityID:  entityID,
		ActorID:   by.UserID,
		Detail:    detail,
	})
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}
