package conflict

import (
	"context"
	"testing"
	"time"

	"github.com/campushealth/immunize/internal/vaccination/storage"
)

type fakeScheduleStore struct {
	storage.ScheduleStore

	overlap    bool
	err        error
	campaignID string
	vaccineID  string
	from       time.Time
	to         time.Time
	excludeID  string
}

func (f *fakeScheduleStore) HasScheduleOverlap(ctx context.Context, campaignID, vaccineTypeID string, from, to time.Time, excludeID string) (bool, error) {
	f.campaignID = campaignID
	f.vaccineID = vaccineTypeID
	f.from = from
	f.to = to
	f.excludeID = excludeID
	return f.overlap, f.err
}

type fakeSessionStore struct {
	storage.SessionStore

	overlap   bool
	studentID string
	from      time.Time
	to        time.Time
	excludeID string
}

func (f *fakeSessionStore) HasStudentOverlap(ctx context.Context, studentID string, from, to time.Time, excludeScheduleID string) (bool, error) {
	f.studentID = studentID
	f.from = from
	f.to = to
	f.excludeID = excludeScheduleID
	return f.overlap, nil
}

func TestNewDetectorDefaultsSlot(t *testing.T) {
	d := NewDetector(&fakeScheduleStore{}, &fakeSessionStore{}, 0)
	if d.Slot() != DefaultSlot {
		t.Fatalf("Slot() = %v, want %v", d.Slot(), DefaultSlot)
	}
	d = NewDetector(&fakeScheduleStore{}, &fakeSessionStore{}, -time.Minute)
	if d.Slot() != DefaultSlot {
		t.Fatalf("Slot() = %v, want %v", d.Slot(), DefaultSlot)
	}
	d = NewDetector(&fakeScheduleStore{}, &fakeSessionStore{}, 30*time.Minute)
	if d.Slot() != 30*time.Minute {
		t.Fatalf("Slot() = %v, want 30m", d.Slot())
	}
}

func TestScheduleConflictWindow(t *testing.T) {
	schedules := &fakeScheduleStore{overlap: true}
	d := NewDetector(schedules, &fakeSessionStore{}, time.Hour)

	at := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	conflicting, err := d.ScheduleConflict(context.Background(), "campaign-1", "vaccine-1", at, "schedule-9")
	if err != nil {
		t.Fatalf("ScheduleConflict() error = %v", err)
	}
	if !conflicting {
		t.Fatal("ScheduleConflict() = false, want true")
	}
	if schedules.campaignID != "campaign-1" || schedules.vaccineID != "vaccine-1" || schedules.excludeID != "schedule-9" {
		t.Fatalf("scan args = %q %q %q", schedules.campaignID, schedules.vaccineID, schedules.excludeID)
	}
	wantFrom := at.Add(-time.Hour)
	wantTo := at.Add(time.Hour)
	if !schedules.from.Equal(wantFrom) || !schedules.to.Equal(wantTo) {
		t.Fatalf("window = (%v, %v), want (%v, %v)", schedules.from, schedules.to, wantFrom, wantTo)
	}
}

func TestScheduleConflictNormalizesToUTC(t *testing.T) {
	schedules := &fakeScheduleStore{}
	d := NewDetector(schedules, &fakeSessionStore{}, time.Hour)

	loc := time.FixedZone("UTC+2", 2*60*60)
	at := time.Date(2026, time.March, 10, 11, 0, 0, 0, loc)
	if _, err := d.ScheduleConflict(context.Background(), "campaign-1", "vaccine-1", at, ""); err != nil {
		t.Fatalf("ScheduleConflict() error = %v", err)
	}
	if schedules.from.Location() != time.UTC || schedules.to.Location() != time.UTC {
		t.Fatalf("window locations = %v, %v, want UTC", schedules.from.Location(), schedules.to.Location())
	}
	want := time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)
	if !schedules.from.Equal(want) {
		t.Fatalf("from = %v, want %v", schedules.from, want)
	}
}

func TestStudentConflictWindow(t *testing.T) {
	sessions := &fakeSessionStore{overlap: true}
	d := NewDetector(&fakeScheduleStore{}, sessions, 45*time.Minute)

	at := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	conflicting, err := d.StudentConflict(context.Background(), "student-1", at, "schedule-2")
	if err != nil {
		t.Fatalf("StudentConflict() error = %v", err)
	}
	if !conflicting {
		t.Fatal("StudentConflict() = false, want true")
	}
	if sessions.studentID != "student-1" || sessions.excludeID != "schedule-2" {
		t.Fatalf("scan args = %q %q", sessions.studentID, sessions.excludeID)
	}
	if !sessions.from.Equal(at.Add(-45*time.Minute)) || !sessions.to.Equal(at.Add(45*time.Minute)) {
		t.Fatalf("window = (%v, %v)", sessions.from, sessions.to)
	}
}

func TestDetectorRequiresStores(t *testing.T) {
	d := NewDetector(nil, nil, time.Hour)
	if _, err := d.ScheduleConflict(context.Background(), "c", "v", time.Now(), ""); err == nil {
		t.Fatal("ScheduleConflict() expected error without schedule store")
	}
	if _, err := d.StudentConflict(context.Background(), "s", time.Now(), ""); err == nil {
		t.Fatal("StudentConflict() expected error without session store")
	}
}
