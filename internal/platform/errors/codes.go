// Package errors provides structured error handling for the vaccination engine.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Campaign errors
	CodeCampaignNameEmpty               Code = "CAMPAIGN_NAME_EMPTY"
	CodeCampaignInvalidDateRange        Code = "CAMPAIGN_INVALID_DATE_RANGE"
	CodeCampaignTerminal                Code = "CAMPAIGN_TERMINAL"
	CodeCampaignInvalidStatusTransition Code = "CAMPAIGN_INVALID_STATUS_TRANSITION"

	// Schedule errors
	CodeDateInPast                      Code = "DATE_IN_PAST"
	CodeOutOfCampaignWindow             Code = "OUT_OF_CAMPAIGN_WINDOW"
	CodeSchedulingConflict              Code = "SCHEDULING_CONFLICT"
	CodeScheduleInvalidStatusTransition Code = "SCHEDULE_INVALID_STATUS_TRANSITION"

	// Session errors
	CodeDuplicateSession        Code = "DUPLICATE_SESSION"
	CodeConsentAlreadyFinal     Code = "CONSENT_ALREADY_FINAL"
	CodeSignatureRequired       Code = "SIGNATURE_REQUIRED"
	CodeAttendanceFinal         Code = "ATTENDANCE_FINAL"
	CodeInvalidConsentStatus    Code = "INVALID_CONSENT_STATUS"
	CodeInvalidAttendanceStatus Code = "INVALID_ATTENDANCE_STATUS"

	// Administration errors
	CodeNotEligible     Code = "NOT_ELIGIBLE"
	CodeDuplicateRecord Code = "DUPLICATE_RECORD"
	CodeInvalidSeverity Code = "INVALID_SEVERITY"

	// Lifecycle errors
	CodeLifecycleAlreadyDeleted Code = "LIFECYCLE_ALREADY_DELETED"
	CodeLifecycleNotDeleted     Code = "LIFECYCLE_NOT_DELETED"
	CodeOwnedRowsActive         Code = "OWNED_ROWS_ACTIVE"

	// Batch errors
	CodeBatchAborted Code = "BATCH_ABORTED"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"

	// Input errors
	CodeActorRequired     Code = "ACTOR_REQUIRED"
	CodeSelectionRequired Code = "SELECTION_REQUIRED"
	CodeFieldRequired     Code = "FIELD_REQUIRED"
)

// Class is the coarse failure taxonomy callers branch on.
type Class string

const (
	// ClassValidation covers bad input detected before any write.
	ClassValidation Class = "validation"
	// ClassState covers operations disallowed by current lifecycle state.
	ClassState Class = "state"
	// ClassConflict covers uniqueness and scheduling collisions.
	ClassConflict Class = "conflict"
	// ClassNotFound covers missing or soft-deleted entities.
	ClassNotFound Class = "not_found"
	// ClassNotEligible covers unmet administration preconditions.
	ClassNotEligible Class = "not_eligible"
	// ClassInternal covers unexpected infrastructure failures.
	ClassInternal Class = "internal"
)

// Class maps an error code onto the engine's failure taxonomy.
func (c Code) Class() Class {
	switch c {
	case CodeCampaignNameEmpty,
		CodeCampaignInvalidDateRange,
		CodeDateInPast,
		CodeOutOfCampaignWindow,
		CodeInvalidConsentStatus,
		CodeInvalidAttendanceStatus,
		CodeInvalidSeverity,
		CodeSignatureRequired,
		CodeActorRequired,
		CodeSelectionRequired,
		CodeFieldRequired:
		return ClassValidation

	case CodeCampaignTerminal,
		CodeCampaignInvalidStatusTransition,
		CodeScheduleInvalidStatusTransition,
		CodeConsentAlreadyFinal,
		CodeAttendanceFinal,
		CodeLifecycleAlreadyDeleted,
		CodeLifecycleNotDeleted,
		CodeOwnedRowsActive,
		CodeBatchAborted:
		return ClassState

	case CodeSchedulingConflict,
		CodeDuplicateSession,
		CodeDuplicateRecord:
		return ClassConflict

	case CodeNotFound:
		return ClassNotFound

	case CodeNotEligible:
		return ClassNotEligible

	default:
		return ClassInternal
	}
}

// GRPCCode maps domain codes to gRPC status codes for the transport layer.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeCampaignNameEmpty,
		CodeCampaignInvalidDateRange,
		CodeDateInPast,
		CodeOutOfCampaignWindow,
		CodeInvalidConsentStatus,
		CodeInvalidAttendanceStatus,
		CodeInvalidSeverity,
		CodeSignatureRequired,
		CodeActorRequired,
		CodeSelectionRequired,
		CodeFieldRequired:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeCampaignTerminal,
		CodeCampaignInvalidStatusTransition,
		CodeScheduleInvalidStatusTransition,
		CodeConsentAlreadyFinal,
		CodeAttendanceFinal,
		CodeNotEligible,
		CodeLifecycleAlreadyDeleted,
		CodeLifecycleNotDeleted,
		CodeOwnedRowsActive,
		CodeBatchAborted:
		return codes.FailedPrecondition

	// AlreadyExists - unique resource constraint
	case CodeDuplicateSession,
		CodeDuplicateRecord:
		return codes.AlreadyExists

	// Aborted - write-time collision surfaced to the loser
	case CodeSchedulingConflict:
		return codes.Aborted

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	default:
		return codes.Internal
	}
}
