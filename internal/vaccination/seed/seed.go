// Package seed fills a local database with demo data by exercising the
// engine itself, so every seeded row passed the same guards production
// writes do.
package seed

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/campushealth/immunize/internal/vaccination/actor"
	"github.com/campushealth/immunize/internal/vaccination/administer"
	"github.com/campushealth/immunize/internal/vaccination/assign"
	"github.com/campushealth/immunize/internal/vaccination/batch"
	"github.com/campushealth/immunize/internal/vaccination/checkin"
	"github.com/campushealth/immunize/internal/vaccination/conflict"
	"github.com/campushealth/immunize/internal/vaccination/consent"
	"github.com/campushealth/immunize/internal/vaccination/domain/campaign"
	"github.com/campushealth/immunize/internal/vaccination/domain/session"
	"github.com/campushealth/immunize/internal/vaccination/notify"
	"github.com/campushealth/immunize/internal/vaccination/reaction"
	"github.com/campushealth/immunize/internal/vaccination/storage"
)

// Summary reports what one seeding run created.
type Summary struct {
	CampaignID string
	ScheduleID string
	Students   int
	Sessions   int
	Records    int
}

var roster = []storage.Student{
	{ID: "stu-amara", Name: "Amara Okafor", Grade: "5", Section: "A", Active: true},
	{ID: "stu-bruno", Name: "Bruno Costa", Grade: "5", Section: "A", Active: true},
	{ID: "stu-chen", Name: "Chen Wei", Grade: "5", Section: "B", Active: true},
	{ID: "stu-dalia", Name: "Dalia Haddad", Grade: "5", Section: "B", Active: true},
	{ID: "stu-emil", Name: "Emil Novak", Grade: "6", Section: "A", Active: true},
	{ID: "stu-fatima", Name: "Fatima Rahman", Grade: "6", Section: "A", Active: true},
}

// Apply seeds a roster, one campaign with a flu schedule, and a partial
// consent/check-in/administration trail. It is idempotent only against an
// empty database; re-running against seeded data fails on duplicates.
func Apply(ctx context.Context, store storage.Engine, clock func() time.Time) (Summary, error) {
	if clock == nil {
		clock = time.Now
	}
	by := actor.System
	now := clock().UTC()
	newID := sequenceIDs("seed")

	for _, student := range roster {
		if err := store.PutStudent(ctx, student); err != nil {
			return Summary{}, fmt.Errorf("seed student %s: %w", student.ID, err)
		}
	}

	camp, err := campaign.Create(campaign.CreateInput{
		Name:        "Fall Flu Campaign",
		SchoolYear:  "2026-2027",
		Description: "Seasonal influenza round for grades 5 and 6",
		StartDate:   now,
		EndDate:     now.AddDate(0, 1, 0),
	}, by, clock, newID)
	if err != nil {
		return Summary{}, fmt.Errorf("seed campaign: %w", err)
	}
	if err := store.PutCampaign(ctx, camp); err != nil {
		return Summary{}, fmt.Errorf("persist seed campaign: %w", err)
	}

	detector := conflict.NewDetector(store, store, 0)
	assigner := assign.NewAssigner(store, detector, assign.DefaultConsentLeadDays, clock, newID)
	workflow := consent.NewWorkflow(store, notify.LogNotifier{}, batch.New(store), clock)
	attendance := checkin.NewTracker(store, batch.New(store), clock)
	recorder := administer.NewRecorder(store, clock, newID)
	reactions := reaction.NewTracker(store, clock)

	sched, err := assigner.CreateSchedule(ctx, by, assign.CreateScheduleInput{
		CampaignID:    camp.ID,
		VaccineTypeID: "vt-flu",
		ScheduledAt:   now.AddDate(0, 0, 10),
		Notes:         "gymnasium, morning block",
	})
	if err != nil {
		return Summary{}, fmt.Errorf("seed schedule: %w", err)
	}

	assigned, err := assigner.AssignStudents(ctx, by, sched.ID, storage.Selection{
		Grades: []string{"5", "6"},
	})
	if err != nil {
		return Summary{}, fmt.Errorf("seed assignment: %w", err)
	}
	for _, skipped := range assigned.Skipped {
		log.Printf("seed skipped student %s: %s", skipped.StudentID, skipped.Reason)
	}

	sent, err := workflow.SendConsentRequests(ctx, by, sched.ID)
	if err != nil {
		return Summary{}, fmt.Errorf("seed consent requests: %w", err)
	}
	log.Printf("seed sent %d consent requests", sent)

	summary := Summary{
		CampaignID: camp.ID,
		ScheduleID: sched.ID,
		Students:   len(roster),
		Sessions:   len(assigned.Created),
	}
	if len(assigned.Created) < 2 {
		return summary, nil
	}

	// Walk the first session through the full happy path and leave the second
	// signed but not yet present, so local UIs have both states to render.
	first, second := assigned.Created[0], assigned.Created[1]
	for _, sess := range []session.Session{first, second} {
		if _, err := workflow.SubmitConsent(ctx, by, sess.ID, consent.SubmitInput{
			Status:    "signed",
			Signature: "guardian-on-file",
		}); err != nil {
			return summary, fmt.Errorf("seed consent for %s: %w", sess.ID, err)
		}
	}
	if result, err := attendance.CheckIn(ctx, by, []string{first.ID}, "arrived with homeroom"); err != nil {
		return summary, fmt.Errorf("seed check-in: %w", err)
	} else if len(result.Failures) > 0 {
		return summary, fmt.Errorf("seed check-in failed: %s", result.Failures[0].Reason)
	}

	rec, err := recorder.CreateRecord(ctx, by, administer.CreateRecordInput{
		SessionStudentID: first.ID,
		StaffID:          "nurse-rivera",
	})
	if err != nil {
		return summary, fmt.Errorf("seed administration: %w", err)
	}
	summary.Records = 1

	if _, err := reactions.RecordReaction(ctx, by, rec.ID, reaction.RecordReactionInput{
		Severity: "mild",
		Notes:    "localized soreness, observed 15 minutes",
	}); err != nil {
		return summary, fmt.Errorf("seed reaction: %w", err)
	}
	return summary, nil
}

// sequenceIDs yields deterministic ids like seed-1, seed-2 for reproducible
// local fixtures.
func sequenceIDs(prefix string) func() (string, error) {
	var n int
	return func() (string, error) {
		n++
		return fmt.Sprintf("%s-%d", prefix, n), nil
	}
}
