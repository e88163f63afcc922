/*
errors.go - Centralized error types for the leave engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Callers classify with errors.Is / errors.As; the structured types
  carry the details.

ERROR CATEGORIES:
  1. Validation errors  - malformed or non-positive quantities
  2. Not-found errors   - unknown employee or lot
  3. Balance errors     - consumption exceeds available days
  4. Lock errors        - per-employee critical section unavailable

PROPAGATION POLICY:
  Single-employee operations return these errors directly. Batch
  operations (sweep, six-month check, annual process) never let one
  employee's failure abort the loop: the error is recorded in the batch
  summary and the loop continues. Lock-acquisition failures are the one
  case that propagates as a hard failure of the single operation that
  requested the lock.

SEE ALSO:
  - ledger.go, consume.go: produce these errors
  - api/handlers.go: maps them to HTTP status codes
*/
package leave

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed input, e.g. a non-positive
	// consumption or grant quantity.
	ErrValidation = errors.New("validation failed")

	// ErrEmployeeNotFound is returned when a referenced employee is not
	// in the roster.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrLotNotFound is returned when a referenced lot doesn't exist.
	ErrLotNotFound = errors.New("lot not found")

	// ErrInsufficientBalance is returned when consumption exceeds the
	// total remaining days across the employee's lots.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrLockTimeout is returned when the per-employee critical section
	// could not be acquired within the configured bound.
	ErrLockTimeout = errors.New("ledger lock timeout")

	// ErrUsageUnavailable signals that the attendance usage source could
	// not be reached. The attendance gate treats this as fail-open.
	ErrUsageUnavailable = errors.New("usage source unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes a rejected input value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError identifies the missing record.
type NotFoundError struct {
	Kind string // "employee" or "lot"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	if e.Kind == "lot" {
		return ErrLotNotFound
	}
	return ErrEmployeeNotFound
}

// InsufficientBalanceError provides details about a balance shortage.
// When returned, no lot has been mutated: the FIFO engine buffers its
// decrements and commits only when the full request is satisfiable.
type InsufficientBalanceError struct {
	EmployeeID EmployeeID
	Available  Days
	Requested  Days
	Shortfall  Days
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s: available %v, requested %v, shortfall %v",
		e.EmployeeID, e.Available, e.Requested, e.Shortfall)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// LockTimeoutError reports a critical section that stayed busy past the
// configured wait bound.
type LockTimeoutError struct {
	EmployeeID EmployeeID
	Waited     time.Duration
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("ledger lock timeout for %s after %v", e.EmployeeID, e.Waited)
}

func (e *LockTimeoutError) Unwrap() error { return ErrLockTimeout }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) || errors.Is(err, ErrLotNotFound)
}

// IsClientError reports whether the error is due to invalid client input
// rather than an engine failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInsufficientBalance)
}

// IsRetryable reports whether the operation might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}
