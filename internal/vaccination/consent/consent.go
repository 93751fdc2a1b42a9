// Package consent runs the parent-consent workflow: soliciting signatures,
// recording submissions, and expiring overdue requests.
package consent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	apperrors "github.com/campushealth/immunize/internal/platform/errors"
	"github.com/campushealth/immunize/internal/vaccination/actor"
	"github.com/campushealth/immunize/internal/vaccination/batch"
	"github.com/campushealth/immunize/internal/vaccination/domain/lifecycle"
	"github.com/campushealth/immunize/internal/vaccination/domain/session"
	"github.com/campushealth/immunize/internal/vaccination/notify"
	"github.com/campushealth/immunize/internal/vaccination/storage"
)

// Store is the persistence surface the workflow needs.
type Store interface {
	storage.SessionStore
	storage.ScheduleStore
}

// Workflow orchestrates consent lifecycle transitions for sessions.
type Workflow struct {
	store    Store
	notifier notify.Notifier
	batches  *batch.Coordinator
	clock    func() time.Time
}

// NewWorkflow constructs the consent workflow. A nil notifier disables
// solicitation delivery but never blocks transitions.
func NewWorkflow(store Store, notifier notify.Notifier, batches *batch.Coordinator, clock func() time.Time) *Workflow {
	if clock == nil {
		clock = time.Now
	}
	if batches == nil {
		batches = batch.New(nil)
	}
	return &Workflow{
		store:    store,
		notifier: notifier,
		batches:  batches,
		clock:    clock,
	}
}

// SubmitInput is one consent decision from a parent or front-office staff.
// Status accepts the canonical signed/declined labels and their
// APPROVED/REJECTED aliases.
type SubmitInput struct {
	Status    string
	Signature string
	Notes     string
}

// SubmitConsent records one consent decision against a session. The decision
// is checked against the effective status, so a submission after the deadline
// fails as already final even before any sweep has run.
func (w *Workflow) SubmitConsent(ctx context.Context, by actor.Actor, sessionID string, input SubmitInput) (session.Session, error) {
	if w == nil || w.store == nil {
		return session.Session{}, fmt.Errorf("consent store is not configured")
	}
	if err := by.Validate(); err != nil {
		return session.Session{}, err
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return session.Session{}, apperrors.New(apperrors.CodeFieldRequired, "session id is required")
	}

	target, ok := session.NormalizeConsentLabel(input.Status)
	if !ok || (target != session.ConsentSigned && target != session.ConsentDeclined) {
		return session.Session{}, apperrors.WithMetadata(apperrors.CodeInvalidConsentStatus,
			"consent submissions must be signed or declined",
			map[string]string{"status": input.Status})
	}

	s, err := w.store.GetSession(ctx, sessionID)
	if err != nil {
		return session.Session{}, err
	}
	if s.Lifecycle != lifecycle.StateActive {
		return session.Session{}, storage.ErrNotFound
	}

	now := w.clock().UTC()
	effective := s.EffectiveConsent(now)
	if effective.IsFinal() {
		return session.Session{}, apperrors.WithMetadata(apperrors.CodeConsentAlreadyFinal,
			"consent is already final",
			map[string]string{"status": string(effective)})
	}
	if !session.IsConsentTransitionAllowed(effective, target) {
		return session.Session{}, apperrors.WithMetadata(apperrors.CodeConsentAlreadyFinal,
			"consent transition is not allowed",
			map[string]string{"from": string(effective), "to": string(target)})
	}

	if target == session.ConsentSigned {
		if strings.TrimSpace(input.Signature) == "" {
			return session.Session{}, apperrors.New(apperrors.CodeSignatureRequired,
				"a signature is required to sign consent")
		}
		s.ParentSignature = strings.TrimSpace(input.Signature)
		signedAt := now
		s.SignedAt = &signedAt
	}
	if notes := strings.TrimSpace(input.Notes); notes != "" {
		s.ParentNotes = notes
	}
	s.Consent = target
	s.UpdatedAt = now
	s.UpdatedBy = by.UserID

	if err := w.store.UpdateSession(ctx, s); err != nil {
		return session.Session{}, fmt.Errorf("update session: %w", err)
	}
	return s, nil
}

// SubmitBatchConsent applies one consent decision across many sessions. Items
// fail independently; one expired or missing session never blocks the rest.
func (w *Workflow) SubmitBatchConsent(ctx context.Context, by actor.Actor, sessionIDs []string, input SubmitInput) (batch.Result, error) {
	if err := by.Validate(); err != nil {
		return batch.Result{}, err
	}
	return w.batches.Run(ctx, sessionIDs, func(ctx context.Context, id string) error {
		_, err := w.SubmitConsent(ctx, by, id, input)
		return err
	})
}

// SendConsentRequests flips every pending session under a schedule to sent,
// stamps NotifiedAt, and hands each request to the notifier. Delivery is best
// effort: a notifier failure is logged and never rolls back the transition.
// Returns the number of sessions transitioned.
func (w *Workflow) SendConsentRequests(ctx context.Context, by actor.Actor, scheduleID string) (int, error) {
	if w == nil || w.store == nil {
		return 0, fmt.Errorf("consent store is not configured")
	}
	if err := by.Validate(); err != nil {
		return 0, err
	}
	scheduleID = strings.TrimSpace(scheduleID)
	if scheduleID == "" {
		return 0, apperrors.New(apperrors.CodeFieldRequired, "schedule id is required")
	}

	sched, err := w.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return 0, err
	}
	if sched.Lifecycle != lifecycle.StateActive {
		return 0, storage.ErrNotFound
	}
	sessions, err := w.store.ListSessionsBySchedule(ctx, scheduleID)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	now := w.clock().UTC()
	sent := 0
	for _, s := range sessions {
		if s.Lifecycle != lifecycle.StateActive {
			continue
		}
		if s.EffectiveConsent(now) != session.ConsentPending {
			continue
		}
		s.Consent = session.ConsentSent
		notifiedAt := now
		s.NotifiedAt = &notifiedAt
		s.UpdatedAt = now
		s.UpdatedBy = by.UserID
		if err := w.store.UpdateSession(ctx, s); err != nil {
			return sent, fmt.Errorf("update session %s: %w", s.ID, err)
		}
		sent++

		if w.notifier == nil {
			continue
		}
		request := notify.ConsentRequest{
			SessionID:     s.ID,
			ScheduleID:    sched.ID,
			CampaignID:    sched.CampaignID,
			StudentID:     s.StudentID,
			VaccineTypeID: sched.VaccineTypeID,
			ScheduledAt:   sched.ScheduledAt,
			Deadline:      s.ConsentDeadline,
		}
		if err := w.notifier.SendConsentRequest(ctx, request); err != nil {
			log.Printf("send consent request for session %s: %v", s.ID, err)
		}
	}
	return sent, nil
}

// ExpireOverdue flips every active pending or sent session whose deadline has
// passed to expired and returns the flip count. Safe to run repeatedly; an
// already-expired session is never flipped twice.
func (w *Workflow) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	if w == nil || w.store == nil {
		return 0, fmt.Errorf("consent store is not configured")
	}
	count, err := w.store.ExpireOverdueConsents(ctx, now.UTC(), actor.System.UserID)
	if err != nil {
		return 0, fmt.Errorf("expire overdue consents: %w", err)
	}
	return count, nil
}

// EffectiveConsentStatus exposes the lazily-expired consent view used by all
// reads, so callers outside this package never branch on a stale status.
func EffectiveConsentStatus(s session.Session, now time.Time) session.ConsentStatus {
	return s.EffectiveConsent(now)
}
