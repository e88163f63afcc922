package leave

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLock_AcquireRelease(t *testing.T) {
	k := newKeyedLock()

	require.NoError(t, k.Acquire("emp-1", 10*time.Millisecond))
	k.Release("emp-1")
	require.NoError(t, k.Acquire("emp-1", 10*time.Millisecond))
	k.Release("emp-1")
}

func TestKeyedLock_HeldLock_TimesOut(t *testing.T) {
	// GIVEN: emp-1's lock is held
	// WHEN: A second acquirer waits past the bound
	// THEN: It fails with LockTimeoutError instead of blocking forever

	k := newKeyedLock()
	require.NoError(t, k.Acquire("emp-1", 10*time.Millisecond))

	err := k.Acquire("emp-1", 20*time.Millisecond)
	require.Error(t, err)

	var timeout *LockTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, EmployeeID("emp-1"), timeout.EmployeeID)
	assert.True(t, errors.Is(err, ErrLockTimeout))
}

func TestKeyedLock_IndependentKeys(t *testing.T) {
	// Holding emp-1 must not block emp-2.
	k := newKeyedLock()
	require.NoError(t, k.Acquire("emp-1", 10*time.Millisecond))
	require.NoError(t, k.Acquire("emp-2", 10*time.Millisecond))
}

func TestKeyedLock_WaiterProceedsAfterRelease(t *testing.T) {
	k := newKeyedLock()
	require.NoError(t, k.Acquire("emp-1", 10*time.Millisecond))

	done := make(chan error, 1)
	go func() {
		done <- k.Acquire("emp-1", time.Second)
	}()

	time.Sleep(10 * time.Millisecond)
	k.Release("emp-1")

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the lock")
	}
}

func TestKeyedLock_ReleaseUnheld_NoOp(t *testing.T) {
	k := newKeyedLock()
	k.Release("emp-1")
	require.NoError(t, k.Acquire("emp-1", 10*time.Millisecond))
}
