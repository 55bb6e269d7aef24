package votes

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated      = errors.New("voter not authenticated")
	ErrNotFound             = errors.New("entity not found")
	ErrConflict             = errors.New("concurrent vote mutation")
	ErrTransientStorage     = errors.New("transient storage failure")
	ErrInvalidVote          = errors.New("invalid vote")
	ErrReconciliationFailed = errors.New("counter reconciliation failed")
)

// ReconciliationError is returned once the reconciler has used up its retry
// budget. The ledger write that preceded it is still committed.
type ReconciliationError struct {
	Entity   EntityRef
	Attempts int
	Err      error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconcile %s: gave up after %d attempt(s): %v", e.Entity, e.Attempts, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }

func (e *ReconciliationError) Is(target error) bool {
	return target == ErrReconciliationFailed
}

// Transient marks err as a retryable storage fault.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransientStorage, err)
}

// Retryable reports whether a ledger call that failed with err may be
// attempted again.
func Retryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrTransientStorage)
}
