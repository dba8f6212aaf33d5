package inventory

import "time"

// =============================================================================
// NAMED MUTATION LOCK - Bounded-wait mutual exclusion
// =============================================================================

// MutationLock serializes the mutation path. Acquisition blocks up to a
// bounded wait; on timeout the caller gets an immediate "busy, retry"
// failure rather than queueing. There is one lock for the whole status
// table - contention is low enough that sharding has not been worth it.
type MutationLock struct {
	sem chan struct{}
}

func NewMutationLock() *MutationLock {
	l := &MutationLock{sem: make(chan struct{}, 1)}
	l.sem <- struct{}{}
	return l
}

// Acquire takes the lock, waiting at most wait. Returns false on
// timeout with no state changed.
func (l *MutationLock) Acquire(wait time.Duration) bool {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-l.sem:
		return true
	case <-timer.C:
		return false
	}
}

// Release returns the lock. Must be called exactly once per successful
// Acquire; the dispatcher defers it so an error mid-mutation cannot
// leave the table locked.
func (l *MutationLock) Release() {
	select {
	case l.sem <- struct{}{}:
	default:
		// Double release indicates a dispatcher bug; dropping the
		// token here would deadlock every later caller, so keep the
		// semaphore full instead.
	}
}
