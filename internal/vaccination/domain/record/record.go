// Package record models the administration record and its reaction scale.
package record

import (
	"strings"
	"time"

	"github.com/campushealth/immunize/internal/vaccination/domain/lifecycle"
)

// Severity is the ordered post-administration reaction scale.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityMild
	SeverityModerate
	SeveritySevere
)

// Record is the fact of administration for one session, at most one active
// record per session.
type Record struct {
	ID               string
	SessionStudentID string
	AdministeredAt   time.Time
	StaffID          string
	FollowUp24h      bool
	FollowUp72h      bool
	ReactionSeverity Severity
	ReactionNotes    string
	Lifecycle        lifecycle.State
	CreatedAt        time.Time
	CreatedBy        string
	UpdatedAt        time.Time
	UpdatedBy        string
}

// String returns the storage label for a severity value.
func (s Severity) String() string {
	switch s {
	case SeverityNone:
		return "none"
	case SeverityMild:
		return "mild"
	case SeverityModerate:
		return "moderate"
	case SeveritySevere:
		return "severe"
	default:
		return "unknown"
	}
}

// Valid reports whether the severity is on the known scale.
func (s Severity) Valid() bool {
	return s >= SeverityNone && s <= SeveritySevere
}

// NormalizeSeverityLabel canonicalizes severity labels from storage or wire input.
func NormalizeSeverityLabel(value string) (Severity, bool) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "NONE", "REACTION_SEVERITY_NONE":
		return SeverityNone, true
	case "MILD", "REACTION_SEVERITY_MILD":
		return SeverityMild, true
	case "MODERATE", "REACTION_SEVERITY_MODERATE":
		return SeverityModerate, true
	case "SEVERE", "REACTION_SEVERITY_SEVERE":
		return SeveritySevere, true
	default:
		return SeverityNone, false
	}
}

// RequiresFollowUp reports whether the recorded reaction should surface a
// follow-up signal to the counseling module.
func (r Record) RequiresFollowUp() bool {
	return r.ReactionSeverity > SeverityNone
}
