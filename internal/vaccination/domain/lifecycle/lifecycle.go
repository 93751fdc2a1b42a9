// Package lifecycle models the soft-delete state shared by every engine entity.
//
// Deletion is an explicit lifecycle transition with a restore counterpart, not
// a flag flip: both directions are guarded and both are recorded as audit
// events by the storage layer.
package lifecycle

import "strings"

// State is the soft-delete lifecycle label carried by every entity.
type State string

const (
	StateUnspecified State = ""
	StateActive      State = "active"
	StateDeleted     State = "deleted"
)

// Scope names the entity kind a lifecycle operation acts on.
type Scope string

const (
	ScopeCampaign Scope = "campaign"
	ScopeSchedule Scope = "schedule"
	ScopeSession  Scope = "session"
	ScopeRecord   Scope = "record"
)

// NormalizeStateLabel canonicalizes lifecycle labels from storage or wire input.
func NormalizeStateLabel(value string) (State, bool) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "ACTIVE":
		return StateActive, true
	case "DELETED":
		return StateDeleted, true
	default:
		return "", false
	}
}

// IsTransitionAllowed reports whether a lifecycle flip is permitted.
// Active rows may be deleted; deleted rows may be restored. Repeating a
// transition is rejected so callers surface already-deleted/not-deleted
// per-item failures instead of silently succeeding.
func IsTransitionAllowed(from, to State) bool {
	switch from {
	case StateActive:
		return to == StateDeleted
	case StateDeleted:
		return to == StateActive
	default:
		return false
	}
}
