package actor

import (
	"testing"

	apperrors "github.com/campushealth/immunize/internal/platform/errors"
)

func TestValidate(t *testing.T) {
	if err := (Actor{UserID: "nurse-1"}).Validate(); err != nil {
		t.Fatalf("expected valid actor: %v", err)
	}
	if err := System.Validate(); err != nil {
		t.Fatalf("system actor must be valid: %v", err)
	}

	for _, userID := range []string{"", "   "} {
		err := (Actor{UserID: userID}).Validate()
		if apperrors.CodeOf(err) != apperrors.CodeActorRequired {
			t.Fatalf("Validate(%q) = %v, want ACTOR_REQUIRED", userID, err)
		}
	}
}
