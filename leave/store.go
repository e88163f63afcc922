/*
store.go - Persistence interfaces for the leave ledger

PURPOSE:
  Defines the boundary between the engine and its storage. Two logical
  tables back the engine: the employee roster and the grant-lot ledger.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  EmployeeStore: Roster reads plus the three fields this engine owns
                 (balance cache, initial/annual grant dates)
  LotStore:      Append-only lot creation, in-place remaining mutation
  UsageSource:   Approved leave-days in a window, for the attendance gate

LEDGER CONTRACT:
  - Lots are created once and never deleted; the audit trail is the rows.
  - Only RemainingDays is mutated, and only downward (consumption,
    expiry). The engine enforces 0 <= remaining <= granted.
  - LotsByEmployee returns lots in insertion order. Consumption sorts by
    grant date with a stable sort, so insertion order is the
    deterministic tie-break for equal grant dates.

IMPLEMENTATIONS:
  - store/sqlite: production store
  - store/memory: in-memory store for tests and development

SEE ALSO:
  - ledger.go: the service built on these interfaces
*/
package leave

import "context"

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

type EmployeeStore interface {
	// GetEmployee returns nil, nil when the employee is not in the roster.
	GetEmployee(ctx context.Context, id EmployeeID) (*Employee, error)

	// ListEmployees returns the whole roster in a deterministic order.
	ListEmployees(ctx context.Context) ([]Employee, error)

	// SetBalance writes the denormalized balance cache. The only caller
	// is Ledger.Resync.
	SetBalance(ctx context.Context, id EmployeeID, balance Days) error

	// SetInitialGrantDate records the one-time initial grant date.
	SetInitialGrantDate(ctx context.Context, id EmployeeID, d Date) error

	// SetAnnualGrantDate records the latest annual grant date.
	SetAnnualGrantDate(ctx context.Context, id EmployeeID, d Date) error
}

// =============================================================================
// LOT STORE
// =============================================================================

type LotStore interface {
	// AppendLot persists a new lot. Lots are never updated except via
	// SetRemaining, and never deleted.
	AppendLot(ctx context.Context, lot Lot) error

	// LotsByEmployee returns all lots for one employee in insertion order.
	LotsByEmployee(ctx context.Context, id EmployeeID) ([]Lot, error)

	// AllLots returns every lot in the ledger (used by the sweeper and
	// expiry queries).
	AllLots(ctx context.Context) ([]Lot, error)

	// SetRemaining updates one lot's remaining days in place. The caller
	// guarantees 0 <= remaining <= granted.
	SetRemaining(ctx context.Context, lotID string, remaining Days) error
}

// Store combines the two logical tables the engine persists to.
type Store interface {
	EmployeeStore
	LotStore
}

// =============================================================================
// USAGE SOURCE - Attendance collaborator boundary
// =============================================================================

// UsageSource exposes the HR attendance system's aggregate: approved
// leave-days for an employee within a window. The engine performs no
// independent validation of this number. Implementations may return
// ErrUsageUnavailable; the attendance gate treats that as fail-open.
type UsageSource interface {
	ApprovedLeaveDays(ctx context.Context, id EmployeeID, from, to Date) (Days, error)
}
