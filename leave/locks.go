package leave

import (
	"sync"
	"time"
)

// =============================================================================
// KEYED LOCK - Per-employee critical section with bounded wait
// =============================================================================

// keyedLock serializes mutations to one employee's ledger. Grant,
// consumption and expiry all read the lot list, decide, and write; those
// steps must not interleave for the same employee. Waits are bounded:
// acquisition past the timeout fails with LockTimeoutError.
type keyedLock struct {
	mu    sync.Mutex
	slots map[EmployeeID]chan struct{}
}

func newKeyedLock() *keyedLock {
	return &keyedLock{slots: make(map[EmployeeID]chan struct{})}
}

func (k *keyedLock) slot(id EmployeeID) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	ch, ok := k.slots[id]
	if !ok {
		ch = make(chan struct{}, 1)
		k.slots[id] = ch
	}
	return ch
}

// Acquire takes the employee's lock, waiting at most wait.
func (k *keyedLock) Acquire(id EmployeeID, wait time.Duration) error {
	ch := k.slot(id)

	select {
	case ch <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return nil
	case <-timer.C:
		return &LockTimeoutError{EmployeeID: id, Waited: wait}
	}
}

// Release frees the employee's lock. Releasing an unheld lock is a no-op.
func (k *keyedLock) Release(id EmployeeID) {
	ch := k.slot(id)
	select {
	case <-ch:
	default:
	}
}
