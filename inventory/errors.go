/*
errors.go - Error types for the mutation core

PURPOSE:
  Structural failures (lock, unknown operation, store I/O) are Go
  errors; per-item rejections are FailedItem values in the Result and
  never cross the boundary as errors. Callers outside the package see
  structured Result values - the dispatcher converts every structural
  error into one.

SEE ALSO:
  - dispatcher.go: converts these into failure Results
*/
package inventory

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrLockTimeout means another submission held the mutation lock
	// for the whole bounded wait. Nothing was read or written.
	ErrLockTimeout = errors.New("mutation lock wait timed out")

	// ErrUnknownOperation means the requested action is not in the
	// rule table. The whole batch fails; there is no handler for it.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrEmptyBatch means the submission carried no items.
	ErrEmptyBatch = errors.New("empty submission")

	// ErrMissingDestination means a lend was submitted without a
	// destination to lend to.
	ErrMissingDestination = errors.New("lend requires a destination")

	// ErrSnapshotStale guards the writer against a snapshot that was
	// not produced by LoadSnapshot. Should not occur in practice.
	ErrSnapshotStale = errors.New("snapshot missing row map")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// StatusMismatchError reports an inadmissible transition for one item.
// Carried inside FailedItem as data; exported for tests and direct
// validator callers.
type StatusMismatchError struct {
	ID       string
	Op       Operation
	Observed Status
}

func (e *StatusMismatchError) Error() string {
	return fmt.Sprintf("status mismatch for %s: %s not admissible from %q", e.ID, e.Op, e.Observed)
}

// UnknownOperationError wraps ErrUnknownOperation with the label the
// client sent.
type UnknownOperationError struct {
	Action Operation
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown operation %q", e.Action)
}

func (e *UnknownOperationError) Unwrap() error { return ErrUnknownOperation }
