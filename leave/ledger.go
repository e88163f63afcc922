/*
ledger.go - Grant lot ledger service

PURPOSE:
  The Ledger owns every mutation of the grant-lot collection: lot
  creation, FIFO consumption (consume.go), expiry sweeping (expiry.go),
  and the balance cache resynchronization that follows each of them.

CRITICAL INVARIANTS:
  1. 0 <= remaining <= granted for every lot, always.
  2. Lots are never deleted; expiry zeroes remaining and keeps the row.
  3. Employee.Balance is a cache. Resync is its only writer, and runs
     after every lot mutation. The lot collection is authoritative.
  4. Mutations to one employee's ledger are serialized through a
     per-employee lock with a bounded wait.

SEE ALSO:
  - store.go:   persistence interfaces
  - consume.go: FIFO consumption engine
  - expiry.go:  sweeper and integrity check
*/
package leave

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/warp/leave-engine/notify"
)

// =============================================================================
// CONFIG - Immutable rules threaded at construction
// =============================================================================

// Config carries the policy constants. It is set once at construction
// and never mutated; there is no global configuration.
type Config struct {
	// AttendanceThreshold is the minimum approval rate for a grant (0.8).
	AttendanceThreshold float64

	// ExpiryYears is the lot expiry horizon from the grant date.
	ExpiryYears int

	// DefaultWeeklyWorkDays substitutes for a missing weekly schedule in
	// the roster.
	DefaultWeeklyWorkDays int

	// LockWait bounds the wait for the per-employee critical section.
	LockWait time.Duration

	// IntegrityEpsilon is the tolerated divergence between the cached
	// balance and the recomputed ledger value.
	IntegrityEpsilon float64

	// LowBalanceThreshold marks employees for the low-balance alert
	// (0 < balance <= threshold).
	LowBalanceThreshold float64
}

func DefaultConfig() Config {
	return Config{
		AttendanceThreshold:   0.8,
		ExpiryYears:           2,
		DefaultWeeklyWorkDays: 5,
		LockWait:              3 * time.Second,
		IntegrityEpsilon:      0.01,
		LowBalanceThreshold:   5,
	}
}

// =============================================================================
// LEDGER
// =============================================================================

type Ledger struct {
	store    Store
	notifier notify.Notifier
	cfg      Config
	locks    *keyedLock
}

func NewLedger(store Store, notifier notify.Notifier, cfg Config) *Ledger {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Ledger{
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		locks:    newKeyedLock(),
	}
}

func (l *Ledger) Config() Config { return l.cfg }

// =============================================================================
// GRANT - Lot creation
// =============================================================================

// Grant creates a new lot for the employee, computes its expiry date
// from the configured horizon, resynchronizes the balance cache, and
// emits a GrantOccurred event.
func (l *Ledger) Grant(ctx context.Context, id EmployeeID, grantDate Date, days Days, gt GrantType, tenureAtGrant float64) (*GrantResult, error) {
	if !days.IsPositive() {
		return nil, &ValidationError{Field: "days", Message: "must be positive"}
	}
	if !gt.Valid() {
		return nil, &ValidationError{Field: "type", Message: "unknown grant type"}
	}

	if err := l.locks.Acquire(id, l.cfg.LockWait); err != nil {
		return nil, err
	}
	defer l.locks.Release(id)

	emp, err := l.store.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, &NotFoundError{Kind: "employee", ID: string(id)}
	}

	lot := Lot{
		ID:            uuid.NewString(),
		EmployeeID:    id,
		GrantDate:     grantDate,
		GrantedDays:   days,
		ExpiryDate:    grantDate.AddYears(l.cfg.ExpiryYears),
		RemainingDays: days,
		Type:          gt,
		TenureAtGrant: tenureAtGrant,
		CreatedAt:     time.Now().UTC(),
	}

	if err := l.store.AppendLot(ctx, lot); err != nil {
		return nil, err
	}

	previous := emp.Balance
	newBalance, err := l.resyncLocked(ctx, id, grantDate)
	if err != nil {
		return nil, err
	}

	l.notifier.Publish(ctx, notify.GrantOccurred{
		EmployeeID:        string(id),
		EmployeeName:      emp.Name,
		Days:              days.Float64(),
		Date:              grantDate.Time(),
		GrantType:         string(gt),
		FiveDayObligation: lot.FiveDayObligation(),
	})

	return &GrantResult{
		LotID:             lot.ID,
		EmployeeID:        id,
		GrantDate:         grantDate,
		ExpiryDate:        lot.ExpiryDate,
		Days:              days,
		Type:              gt,
		PreviousBalance:   previous,
		NewBalance:        newBalance,
		FiveDayObligation: lot.FiveDayObligation(),
	}, nil
}

// GrantHistory returns the employee's lots newest grant first.
func (l *Ledger) GrantHistory(ctx context.Context, id EmployeeID) ([]Lot, error) {
	emp, err := l.store.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, &NotFoundError{Kind: "employee", ID: string(id)}
	}

	lots, err := l.store.LotsByEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(lots, func(i, j int) bool {
		return lots[j].GrantDate.Before(lots[i].GrantDate)
	})
	return lots, nil
}

// =============================================================================
// BALANCE - Effective remaining and cache resync
// =============================================================================

// EffectiveRemaining sums remaining days over the employee's valid lots
// at asOf. An employee with zero lots has a balance of 0.
func (l *Ledger) EffectiveRemaining(ctx context.Context, id EmployeeID, asOf Date) (Days, error) {
	emp, err := l.store.GetEmployee(ctx, id)
	if err != nil {
		return ZeroDays(), err
	}
	if emp == nil {
		return ZeroDays(), &NotFoundError{Kind: "employee", ID: string(id)}
	}
	return l.effectiveRemaining(ctx, id, asOf)
}

func (l *Ledger) effectiveRemaining(ctx context.Context, id EmployeeID, asOf Date) (Days, error) {
	lots, err := l.store.LotsByEmployee(ctx, id)
	if err != nil {
		return ZeroDays(), err
	}
	total := ZeroDays()
	for i := range lots {
		if lots[i].ValidAt(asOf) {
			total = total.Add(lots[i].RemainingDays)
		}
	}
	return total, nil
}

// Resync recomputes the effective remaining balance and writes it to the
// employee record. Idempotent; safe to call repeatedly.
func (l *Ledger) Resync(ctx context.Context, id EmployeeID, asOf Date) (Days, error) {
	if err := l.locks.Acquire(id, l.cfg.LockWait); err != nil {
		return ZeroDays(), err
	}
	defer l.locks.Release(id)
	return l.resyncLocked(ctx, id, asOf)
}

// resyncLocked assumes the employee's lock is held.
func (l *Ledger) resyncLocked(ctx context.Context, id EmployeeID, asOf Date) (Days, error) {
	balance, err := l.effectiveRemaining(ctx, id, asOf)
	if err != nil {
		return ZeroDays(), err
	}
	if err := l.store.SetBalance(ctx, id, balance); err != nil {
		return ZeroDays(), err
	}
	return balance, nil
}

// LowBalanceEmployees returns roster entries whose cached balance is in
// (0, threshold], for the daily alert run.
func (l *Ledger) LowBalanceEmployees(ctx context.Context) ([]Employee, error) {
	employees, err := l.store.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}
	threshold := NewDays(l.cfg.LowBalanceThreshold)
	var out []Employee
	for _, emp := range employees {
		if emp.Balance.IsPositive() && !emp.Balance.GreaterThan(threshold) {
			out = append(out, emp)
		}
	}
	return out, nil
}
