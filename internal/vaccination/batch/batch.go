// Package batch provides the coordinator every bulk entry point runs through.
// It guarantees the partial-result contract: the caller always learns the
// total requested, which ids succeeded, and why each failure failed.
package batch

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/campushealth/immunize/internal/platform/errors"
	"github.com/campushealth/immunize/internal/vaccination/storage"
)

// Atomicity selects how a batch relates to storage transactions.
type Atomicity int

const (
	// PerItem treats each id independently: one bad item never aborts its
	// siblings. This is the default contract.
	PerItem Atomicity = iota
	// WholeBatch runs every item inside one transaction. Any failure rolls
	// the whole batch back; siblings are reported as aborted with the
	// triggering reason preserved per item.
	WholeBatch
)

// Failure describes one id that could not be processed.
type Failure struct {
	ID     string
	Code   apperrors.Code
	Reason string
}

// Result is the aggregate outcome of one batch request. Success and failure
// predicates are derived from the counts, never stored.
type Result struct {
	TotalRequested int
	SucceededIDs   []string
	Failures       []Failure
}

// SuccessCount returns the number of ids processed successfully.
func (r Result) SuccessCount() int { return len(r.SucceededIDs) }

// FailureCount returns the number of ids that failed.
func (r Result) FailureCount() int { return len(r.Failures) }

// IsCompleteSuccess reports whether every requested id succeeded.
func (r Result) IsCompleteSuccess() bool {
	return r.TotalRequested > 0 && r.FailureCount() == 0
}

// IsCompleteFailure reports whether every requested id failed.
func (r Result) IsCompleteFailure() bool {
	return r.TotalRequested > 0 && r.SuccessCount() == 0
}

// IsPartialSuccess reports whether the batch mixed successes and failures.
func (r Result) IsPartialSuccess() bool {
	return r.SuccessCount() > 0 && r.FailureCount() > 0
}

// Op applies one operation to one id. A returned domain error is a business
// failure recorded against that id; any other error is treated the same way
// so a storage fault on one row cannot poison unrelated siblings in per-item
// mode.
type Op func(ctx context.Context, id string) error

// Coordinator runs an Op across a list of ids under the configured atomicity.
type Coordinator struct {
	runner    storage.TxRunner
	atomicity Atomicity
}

// New creates a per-item coordinator. The runner may be nil in per-item mode.
func New(runner storage.TxRunner) *Coordinator {
	return &Coordinator{runner: runner, atomicity: PerItem}
}

// NewAtomic creates a whole-batch coordinator; it requires a transaction runner.
func NewAtomic(runner storage.TxRunner) *Coordinator {
	return &Coordinator{runner: runner, atomicity: WholeBatch}
}

// Run applies op to each id and aggregates the outcome. Ids are trimmed;
// blank ids fail with NOT_FOUND rather than silently disappearing from the
// requested total.
func (c *Coordinator) Run(ctx context.Context, ids []string, op Op) (Result, error) {
	if op == nil {
		return Result{}, fmt.Errorf("batch operation is required")
	}
	result := Result{TotalRequested: len(ids)}
	if len(ids) == 0 {
		return result, nil
	}

	if c.atomicity == WholeBatch {
		return c.runAtomic(ctx, ids, op)
	}

	for _, rawID := range ids {
		id := strings.TrimSpace(rawID)
		if id == "" {
			result.Failures = append(result.Failures, Failure{
				ID:     rawID,
				Code:   apperrors.CodeNotFound,
				Reason: "id is required",
			})
			continue
		}
		if err := op(ctx, id); err != nil {
			result.Failures = append(result.Failures, failureFor(id, err))
			continue
		}
		result.SucceededIDs = append(result.SucceededIDs, id)
	}
	return result, nil
}

// runAtomic wraps the loop in one transaction. A single failure rolls back
// every write; the result still enumerates the concrete failure and marks the
// rolled-back siblings as aborted so the caller can resubmit precisely.
func (c *Coordinator) runAtomic(ctx context.Context, ids []string, op Op) (Result, error) {
	if c.runner == nil {
		return Result{}, fmt.Errorf("whole-batch atomicity requires a transaction runner")
	}

	result := Result{TotalRequested: len(ids)}
	var applied []string
	var failed []Failure

	txErr := c.runner.InTx(ctx, func(txCtx context.Context) error {
		for _, rawID := range ids {
			id := strings.TrimSpace(rawID)
			if id == "" {
				failed = append(failed, Failure{ID: rawID, Code: apperrors.CodeNotFound, Reason: "id is required"})
				continue
			}
			if err := op(txCtx, id); err != nil {
				failed = append(failed, failureFor(id, err))
				continue
			}
			applied = append(applied, id)
		}
		if len(failed) > 0 {
			return apperrors.New(apperrors.CodeBatchAborted, "batch aborted by item failure")
		}
		return nil
	})

	if txErr == nil {
		result.SucceededIDs = applied
		return result, nil
	}
	if apperrors.CodeOf(txErr) != apperrors.CodeBatchAborted {
		return Result{}, fmt.Errorf("run atomic batch: %w", txErr)
	}

	result.Failures = failed
	for _, id := range applied {
		result.Failures = append(result.Failures, Failure{
			ID:     id,
			Code:   apperrors.CodeBatchAborted,
			Reason: "rolled back: sibling item failed",
		})
	}
	return result, nil
}

func failureFor(id string, err error) Failure {
	return Failure{
		ID:     id,
		Code:   apperrors.CodeOf(err),
		Reason: err.Error(),
	}
}
