// Package notify delivers consent requests to guardians. The engine treats
// delivery as best effort; a failed send never blocks a consent transition.
package notify

import (
	"context"
	"log"
	"time"
)

// ConsentRequest describes one guardian-facing consent solicitation.
type ConsentRequest struct {
	SessionID     string
	ScheduleID    string
	CampaignID    string
	StudentID     string
	GuardianName  string
	VaccineTypeID string
	ScheduledAt   time.Time
	Deadline      time.Time
}

// Notifier sends consent requests to guardians.
type Notifier interface {
	SendConsentRequest(ctx context.Context, request ConsentRequest) error
}

// LogNotifier records consent requests on the process log. It stands in for a
// real delivery channel in the sweeper and in development setups.
type LogNotifier struct{}

// SendConsentRequest logs the request and always succeeds.
func (LogNotifier) SendConsentRequest(_ context.Context, request ConsentRequest) error {
	log.Printf("consent request for student %s session %s due %s",
		request.StudentID, request.SessionID, request.Deadline.UTC().Format(time.RFC3339))
	return nil
}
