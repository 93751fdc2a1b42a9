// Package actor carries the acting-user identity through mutating engine calls.
//
// The engine never resolves permissions itself; callers authenticate upstream
// and pass an explicit Actor so every write can stamp created_by/updated_by
// without an implicit global identity.
package actor

import (
	"strings"

	apperrors "github.com/campushealth/immunize/internal/platform/errors"
)

// Actor identifies who is performing a mutation, for audit stamps.
type Actor struct {
	UserID string
}

// System is the well-known actor used by seeding and scheduled sweeps.
// It is an explicit parameter at call sites, never an ambient default.
var System = Actor{UserID: "system"}

// Validate reports whether the actor carries a usable identity.
func (a Actor) Validate() error {
	if strings.TrimSpace(a.UserID) == "" {
		return apperrors.New(apperrors.CodeActorRequired, "acting user id is required")
	}
	return nil
}
