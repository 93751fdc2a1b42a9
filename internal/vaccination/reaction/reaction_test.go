package reaction

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/campushealth/immunize/internal/platform/errors"
	"github.com/campushealth/immunize/internal/vaccination/actor"
	"github.com/campushealth/immunize/internal/vaccination/domain/lifecycle"
	"github.com/campushealth/immunize/internal/vaccination/domain/record"
	"github.com/campushealth/immunize/internal/vaccination/storage"
)

type fakeRecordStore struct {
	records map[string]record.Record
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{records: make(map[string]record.Record)}
}

func (f *fakeRecordStore) CreateRecord(_ context.Context, r record.Record) error {
	f.records[r.ID] = r
	return nil
}

func (f *fakeRecordStore) UpdateRecord(_ context.Context, r record.Record) error {
	f.records[r.ID] = r
	return nil
}

func (f *fakeRecordStore) GetRecord(_ context.Context, id string) (record.Record, error) {
	r, ok := f.records[id]
	if !ok {
		return record.Record{}, storage.ErrNotFound
	}
	return r, nil
}

func (f *fakeRecordStore) GetRecordBySession(context.Context, string) (record.Record, error) {
	return record.Record{}, storage.ErrNotFound
}

func (f *fakeRecordStore) ListRecordsRequiringFollowUp(context.Context) ([]record.Record, error) {
	var out []record.Record
	for _, r := range f.records {
		if r.Lifecycle == lifecycle.StateActive && r.RequiresFollowUp() {
			out = append(out, r)
		}
	}
	return out, nil
}

var testNow = time.Date(2026, time.September, 15, 14, 0, 0, 0, time.UTC)

func newTestTracker(store *fakeRecordStore) *Tracker {
	return NewTracker(store, func() time.Time { return testNow })
}

func seedRecord(store *fakeRecordStore, id string) {
	store.records[id] = record.Record{
		ID:               id,
		SessionStudentID: "sess-" + id,
		ReactionSeverity: record.SeverityNone,
		Lifecycle:        lifecycle.StateActive,
	}
}

func TestRecordReaction(t *testing.T) {
	store := newFakeRecordStore()
	seedRecord(store, "record-1")
	tracker := newTestTracker(store)

	updated, err := tracker.RecordReaction(context.Background(), actor.Actor{UserID: "nurse-1"}, "record-1", RecordReactionInput{
		Severity:    "moderate",
		FollowUp24h: true,
		Notes:       "localized swelling",
	})
	if err != nil {
		t.Fatalf("RecordReaction() error = %v", err)
	}
	if updated.ReactionSeverity != record.SeverityModerate {
		t.Fatalf("ReactionSeverity = %v, want moderate", updated.ReactionSeverity)
	}
	if !updated.FollowUp24h || updated.FollowUp72h {
		t.Fatalf("follow-up flags = %v/%v", updated.FollowUp24h, updated.FollowUp72h)
	}
	if updated.ReactionNotes != "localized swelling" {
		t.Fatalf("ReactionNotes = %q", updated.ReactionNotes)
	}
	if !updated.RequiresFollowUp() {
		t.Fatal("moderate severity must require follow-up")
	}
	if updated.UpdatedBy != "nurse-1" {
		t.Fatalf("UpdatedBy = %q", updated.UpdatedBy)
	}
}

func TestRecordReactionNoneClearsFollowUpSignal(t *testing.T) {
	store := newFakeRecordStore()
	seedRecord(store, "record-1")
	tracker := newTestTracker(store)

	updated, err := tracker.RecordReaction(context.Background(), actor.Actor{UserID: "nurse-1"}, "record-1", RecordReactionInput{Severity: "none"})
	if err != nil {
		t.Fatalf("RecordReaction() error = %v", err)
	}
	if updated.RequiresFollowUp() {
		t.Fatal("severity none must not require follow-up")
	}
}

func TestRecordReactionGuards(t *testing.T) {
	store := newFakeRecordStore()
	seedRecord(store, "record-1")
	deleted := store.records["record-1"]
	deleted.ID = "record-2"
	deleted.Lifecycle = lifecycle.StateDeleted
	store.records["record-2"] = deleted
	tracker := newTestTracker(store)
	by := actor.Actor{UserID: "nurse-1"}

	if _, err := tracker.RecordReaction(context.Background(), by, "record-1", RecordReactionInput{Severity: "catastrophic"}); apperrors.CodeOf(err) != apperrors.CodeInvalidSeverity {
		t.Fatalf("bad severity error = %v, want INVALID_SEVERITY", err)
	}
	if _, err := tracker.RecordReaction(context.Background(), by, "missing", RecordReactionInput{Severity: "mild"}); apperrors.CodeOf(err) != apperrors.CodeNotFound {
		t.Fatalf("missing record error = %v, want NOT_FOUND", err)
	}
	if _, err := tracker.RecordReaction(context.Background(), by, "record-2", RecordReactionInput{Severity: "mild"}); apperrors.CodeOf(err) != apperrors.CodeNotFound {
		t.Fatalf("deleted record error = %v, want NOT_FOUND", err)
	}
	if _, err := tracker.RecordReaction(context.Background(), actor.Actor{}, "record-1", RecordReactionInput{Severity: "mild"}); apperrors.CodeOf(err) != apperrors.CodeActorRequired {
		t.Fatalf("missing actor error = %v, want ACTOR_REQUIRED", err)
	}
}

func TestListFollowUpsDue(t *testing.T) {
	store := newFakeRecordStore()
	seedRecord(store, "record-1")
	seedRecord(store, "record-2")
	tracker := newTestTracker(store)
	by := actor.Actor{UserID: "nurse-1"}

	if _, err := tracker.RecordReaction(context.Background(), by, "record-1", RecordReactionInput{Severity: "severe", FollowUp24h: true, FollowUp72h: true}); err != nil {
		t.Fatalf("RecordReaction() error = %v", err)
	}

	due, err := tracker.ListFollowUpsDue(context.Background())
	if err != nil {
		t.Fatalf("ListFollowUpsDue() error = %v", err)
	}
	if len(due) != 1 || due[0].ID != "record-1" {
		t.Fatalf("due = %+v, want only record-1", due)
	}
}
