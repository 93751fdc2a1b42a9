package consent

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/campushealth/immunize/internal/platform/errors"
	"github.com/campushealth/immunize/internal/vaccination/actor"
	"github.com/campushealth/immunize/internal/vaccination/batch"
	"github.com/campushealth/immunize/internal/vaccination/domain/lifecycle"
	"github.com/campushealth/immunize/internal/vaccination/domain/schedule"
	"github.com/campushealth/immunize/internal/vaccination/domain/session"
	"github.com/campushealth/immunize/internal/vaccination/notify"
	"github.com/campushealth/immunize/internal/vaccination/storage"
)

type fakeStore struct {
	schedules map[string]schedule.Schedule
	sessions  map[string]session.Session
	expired   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		schedules: make(map[string]schedule.Schedule),
		sessions:  make(map[string]session.Session),
	}
}

func (f *fakeStore) PutSchedule(_ context.Context, s schedule.Schedule) error {
	f.schedules[s.ID] = s
	return nil
}

func (f *fakeStore) GetSchedule(_ context.Context, id string) (schedule.Schedule, error) {
	s, ok := f.schedules[id]
	if !ok {
		return schedule.Schedule{}, storage.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) ListSchedulesByCampaign(context.Context, string) ([]schedule.Schedule, error) {
	return nil, nil
}

func (f *fakeStore) HasScheduleOverlap(context.Context, string, string, time.Time, time.Time, string) (bool, error) {
	return false, nil
}

func (f *fakeStore) HasActiveSchedules(context.Context, string) (bool, error) {
	return false, nil
}

func (f *fakeStore) CreateSession(_ context.Context, s session.Session) error {
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeStore) UpdateSession(_ context.Context, s session.Session) error {
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeStore) GetSession(_ context.Context, id string) (session.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return session.Session{}, storage.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) ListSessionsBySchedule(_ context.Context, scheduleID string) ([]session.Session, error) {
	var out []session.Session
	for _, s := range f.sessions {
		if s.ScheduleID == scheduleID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) HasStudentOverlap(context.Context, string, time.Time, time.Time, string) (bool, error) {
	return false, nil
}

func (f *fakeStore) HasActiveSessions(context.Context, string) (bool, error) {
	return false, nil
}

func (f *fakeStore) ExpireOverdueConsents(_ context.Context, now time.Time, by string) (int, error) {
	count := 0
	for id, s := range f.sessions {
		if s.Lifecycle != lifecycle.StateActive {
			continue
		}
		if s.Consent != session.ConsentPending && s.Consent != session.ConsentSent {
			continue
		}
		if s.ConsentDeadline.IsZero() || !now.After(s.ConsentDeadline) {
			continue
		}
		s.Consent = session.ConsentExpired
		s.UpdatedAt = now
		s.UpdatedBy = by
		f.sessions[id] = s
		count++
	}
	f.expired += count
	return count, nil
}

type recordingNotifier struct {
	requests []notify.ConsentRequest
	err      error
}

func (n *recordingNotifier) SendConsentRequest(_ context.Context, request notify.ConsentRequest) error {
	n.requests = append(n.requests, request)
	return n.err
}

var testNow = time.Date(2026, time.September, 5, 10, 0, 0, 0, time.UTC)

func seedSession(store *fakeStore, id string, consent session.ConsentStatus, deadline time.Time) session.Session {
	s := session.Session{
		ID:              id,
		ScheduleID:      "schedule-1",
		StudentID:       "student-" + id,
		Attendance:      session.AttendanceRegistered,
		Consent:         consent,
		ConsentDeadline: deadline,
		Lifecycle:       lifecycle.StateActive,
	}
	store.sessions[id] = s
	return s
}

func newTestWorkflow(store *fakeStore, notifier notify.Notifier) *Workflow {
	return NewWorkflow(store, notifier, batch.New(nil), func() time.Time { return testNow })
}

func TestSubmitConsentSigned(t *testing.T) {
	store := newFakeStore()
	seedSession(store, "sess-1", session.ConsentSent, testNow.AddDate(0, 0, 5))
	w := newTestWorkflow(store, nil)

	updated, err := w.SubmitConsent(context.Background(), actor.Actor{UserID: "office-1"}, "sess-1", SubmitInput{
		Status:    "APPROVED",
		Signature: "parent-ok",
		Notes:     "no allergies",
	})
	if err != nil {
		t.Fatalf("SubmitConsent() error = %v", err)
	}
	if updated.Consent != session.ConsentSigned {
		t.Fatalf("Consent = %q, want signed", updated.Consent)
	}
	if updated.ParentSignature != "parent-ok" || updated.ParentNotes != "no allergies" {
		t.Fatalf("signature/notes = %q/%q", updated.ParentSignature, updated.ParentNotes)
	}
	if updated.SignedAt == nil || !updated.SignedAt.Equal(testNow) {
		t.Fatalf("SignedAt = %v, want %v", updated.SignedAt, testNow)
	}
	if updated.UpdatedBy != "office-1" {
		t.Fatalf("UpdatedBy = %q", updated.UpdatedBy)
	}
}

func TestSubmitConsentDeclinedAlias(t *testing.T) {
	store := newFakeStore()
	seedSession(store, "sess-1", session.ConsentPending, testNow.AddDate(0, 0, 5))
	w := newTestWorkflow(store, nil)

	updated, err := w.SubmitConsent(context.Background(), actor.Actor{UserID: "office-1"}, "sess-1", SubmitInput{Status: "REJECTED"})
	if err != nil {
		t.Fatalf("SubmitConsent() error = %v", err)
	}
	if updated.Consent != session.ConsentDeclined {
		t.Fatalf("Consent = %q, want declined", updated.Consent)
	}
	if updated.SignedAt != nil {
		t.Fatal("SignedAt should stay unset on decline")
	}
}

func TestSubmitConsentGuards(t *testing.T) {
	future := testNow.AddDate(0, 0, 5)
	tests := []struct {
		name     string
		seed     func(store *fakeStore)
		id       string
		input    SubmitInput
		wantCode apperrors.Code
	}{
		{
			name:     "signed requires signature",
			seed:     func(store *fakeStore) { seedSession(store, "sess-1", session.ConsentSent, future) },
			id:       "sess-1",
			input:    SubmitInput{Status: "signed"},
			wantCode: apperrors.CodeSignatureRequired,
		},
		{
			name:     "already signed",
			seed:     func(store *fakeStore) { seedSession(store, "sess-1", session.ConsentSigned, future) },
			id:       "sess-1",
			input:    SubmitInput{Status: "declined"},
			wantCode: apperrors.CodeConsentAlreadyFinal,
		},
		{
			name:     "past deadline",
			seed:     func(store *fakeStore) { seedSession(store, "sess-1", session.ConsentSent, testNow.AddDate(0, 0, -1)) },
			id:       "sess-1",
			input:    SubmitInput{Status: "signed", Signature: "parent-ok"},
			wantCode: apperrors.CodeConsentAlreadyFinal,
		},
		{
			name:     "invalid status",
			seed:     func(store *fakeStore) { seedSession(store, "sess-1", session.ConsentSent, future) },
			id:       "sess-1",
			input:    SubmitInput{Status: "maybe"},
			wantCode: apperrors.CodeInvalidConsentStatus,
		},
		{
			name:     "sent is not submittable",
			seed:     func(store *fakeStore) { seedSession(store, "sess-1", session.ConsentPending, future) },
			id:       "sess-1",
			input:    SubmitInput{Status: "sent"},
			wantCode: apperrors.CodeInvalidConsentStatus,
		},
		{
			name:     "missing session",
			seed:     func(*fakeStore) {},
			id:       "missing",
			input:    SubmitInput{Status: "declined"},
			wantCode: apperrors.CodeNotFound,
		},
		{
			name: "soft deleted session",
			seed: func(store *fakeStore) {
				s := seedSession(store, "sess-1", session.ConsentSent, future)
				s.Lifecycle = lifecycle.StateDeleted
				store.sessions[s.ID] = s
			},
			id:       "sess-1",
			input:    SubmitInput{Status: "declined"},
			wantCode: apperrors.CodeNotFound,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			tc.seed(store)
			_, err := newTestWorkflow(store, nil).SubmitConsent(context.Background(), actor.Actor{UserID: "office-1"}, tc.id, tc.input)
			if got := apperrors.CodeOf(err); got != tc.wantCode {
				t.Fatalf("SubmitConsent() code = %q, want %q (err %v)", got, tc.wantCode, err)
			}
		})
	}
}

func TestSubmitBatchConsentPartialSuccess(t *testing.T) {
	store := newFakeStore()
	future := testNow.AddDate(0, 0, 5)
	seedSession(store, "sess-1", session.ConsentSent, future)
	seedSession(store, "sess-2", session.ConsentDeclined, future)
	seedSession(store, "sess-3", session.ConsentPending, future)
	w := newTestWorkflow(store, nil)

	result, err := w.SubmitBatchConsent(context.Background(), actor.Actor{UserID: "office-1"},
		[]string{"sess-1", "sess-2", "sess-3", "missing"}, SubmitInput{Status: "signed", Signature: "parent-ok"})
	if err != nil {
		t.Fatalf("SubmitBatchConsent() error = %v", err)
	}
	if result.TotalRequested != 4 || result.SuccessCount() != 2 || result.FailureCount() != 2 {
		t.Fatalf("result = %+v", result)
	}
	if !result.IsPartialSuccess() {
		t.Fatal("expected partial success")
	}
	codes := map[string]apperrors.Code{}
	for _, f := range result.Failures {
		codes[f.ID] = f.Code
	}
	if codes["sess-2"] != apperrors.CodeConsentAlreadyFinal {
		t.Fatalf("sess-2 code = %q, want CONSENT_ALREADY_FINAL", codes["sess-2"])
	}
	if codes["missing"] != apperrors.CodeNotFound {
		t.Fatalf("missing code = %q, want NOT_FOUND", codes["missing"])
	}
}

func TestSendConsentRequests(t *testing.T) {
	store := newFakeStore()
	store.schedules["schedule-1"] = schedule.Schedule{
		ID:            "schedule-1",
		CampaignID:    "campaign-1",
		VaccineTypeID: "vaccine-1",
		ScheduledAt:   testNow.AddDate(0, 0, 10),
		Lifecycle:     lifecycle.StateActive,
	}
	future := testNow.AddDate(0, 0, 5)
	seedSession(store, "sess-1", session.ConsentPending, future)
	seedSession(store, "sess-2", session.ConsentSigned, future)
	seedSession(store, "sess-3", session.ConsentPending, testNow.AddDate(0, 0, -1))
	notifier := &recordingNotifier{}
	w := newTestWorkflow(store, notifier)

	sent, err := w.SendConsentRequests(context.Background(), actor.Actor{UserID: "nurse-1"}, "schedule-1")
	if err != nil {
		t.Fatalf("SendConsentRequests() error = %v", err)
	}
	if sent != 1 {
		t.Fatalf("sent = %d, want 1 (only the pending, unexpired session)", sent)
	}
	got := store.sessions["sess-1"]
	if got.Consent != session.ConsentSent {
		t.Fatalf("Consent = %q, want sent", got.Consent)
	}
	if got.NotifiedAt == nil || !got.NotifiedAt.Equal(testNow) {
		t.Fatalf("NotifiedAt = %v, want %v", got.NotifiedAt, testNow)
	}
	if len(notifier.requests) != 1 || notifier.requests[0].SessionID != "sess-1" {
		t.Fatalf("notifier requests = %+v", notifier.requests)
	}
	if notifier.requests[0].CampaignID != "campaign-1" {
		t.Fatalf("CampaignID = %q", notifier.requests[0].CampaignID)
	}
}

func TestSendConsentRequestsNotifierFailureDoesNotBlock(t *testing.T) {
	store := newFakeStore()
	store.schedules["schedule-1"] = schedule.Schedule{ID: "schedule-1", Lifecycle: lifecycle.StateActive}
	seedSession(store, "sess-1", session.ConsentPending, testNow.AddDate(0, 0, 5))
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	w := newTestWorkflow(store, notifier)

	sent, err := w.SendConsentRequests(context.Background(), actor.Actor{UserID: "nurse-1"}, "schedule-1")
	if err != nil {
		t.Fatalf("SendConsentRequests() error = %v", err)
	}
	if sent != 1 {
		t.Fatalf("sent = %d, want 1", sent)
	}
	if store.sessions["sess-1"].Consent != session.ConsentSent {
		t.Fatal("transition must survive a notifier failure")
	}
}

func TestExpireOverdueIsIdempotent(t *testing.T) {
	store := newFakeStore()
	seedSession(store, "sess-1", session.ConsentPending, testNow.AddDate(0, 0, -1))
	seedSession(store, "sess-2", session.ConsentSent, testNow.AddDate(0, 0, -2))
	seedSession(store, "sess-3", session.ConsentPending, testNow.AddDate(0, 0, 3))
	w := newTestWorkflow(store, nil)

	count, err := w.ExpireOverdue(context.Background(), testNow)
	if err != nil {
		t.Fatalf("ExpireOverdue() error = %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
	again, err := w.ExpireOverdue(context.Background(), testNow)
	if err != nil {
		t.Fatalf("ExpireOverdue() second run error = %v", err)
	}
	if again != 0 {
		t.Fatalf("second sweep count = %d, want 0", again)
	}
	if store.sessions["sess-3"].Consent != session.ConsentPending {
		t.Fatal("future-deadline session must stay pending")
	}
}

func TestEffectiveConsentStatus(t *testing.T) {
	s := session.Session{Consent: session.ConsentSent, ConsentDeadline: testNow.AddDate(0, 0, -1)}
	if got := EffectiveConsentStatus(s, testNow); got != session.ConsentExpired {
		t.Fatalf("EffectiveConsentStatus() = %q, want expired", got)
	}
}
