/*
expiry.go - Expiry sweeper, warning queries, integrity check

PURPOSE:
  Sweep zeroes the remaining days on every lot whose expiry date has
  passed, then resynchronizes the balance cache for each affected
  employee and emits one LeavesExpired event per employee. Lots are
  never removed; the audit trail stays.

IDEMPOTENCY:
  A swept lot has zero remaining days, so a second sweep at the same
  reference date finds nothing to expire.

BATCH ISOLATION:
  One employee's failure is recorded in the summary and the sweep
  continues with the next employee.
*/
package leave

import (
	"context"
	"fmt"
	"sort"

	"github.com/warp/leave-engine/notify"
)

// =============================================================================
// SWEEP
// =============================================================================

// Sweep expires every lot with expiryDate <= asOf and remaining days,
// grouped and locked per employee.
func (l *Ledger) Sweep(ctx context.Context, asOf Date) (*ExpirySummary, error) {
	lots, err := l.store.AllLots(ctx)
	if err != nil {
		return nil, err
	}

	affected := make(map[EmployeeID]bool)
	var order []EmployeeID
	for i := range lots {
		if lots[i].ExpiredAt(asOf) && lots[i].RemainingDays.IsPositive() {
			if !affected[lots[i].EmployeeID] {
				affected[lots[i].EmployeeID] = true
				order = append(order, lots[i].EmployeeID)
			}
		}
	}

	summary := &ExpirySummary{SweptAt: asOf, TotalExpired: ZeroDays()}

	for _, id := range order {
		expired, err := l.sweepEmployee(ctx, id, asOf)
		if err != nil {
			summary.Failures = append(summary.Failures, EmployeeFailure{
				EmployeeID: id,
				Err:        err.Error(),
			})
			continue
		}
		if len(expired) == 0 {
			continue
		}

		summary.AffectedEmployees++
		employeeTotal := ZeroDays()
		for _, e := range expired {
			summary.Expired = append(summary.Expired, e)
			summary.TotalExpired = summary.TotalExpired.Add(e.ExpiredDays)
			employeeTotal = employeeTotal.Add(e.ExpiredDays)
		}

		l.notifier.Publish(ctx, notify.LeavesExpired{
			EmployeeID: string(id),
			Days:       employeeTotal.Float64(),
			Date:       asOf.Time(),
		})
	}

	return summary, nil
}

// sweepEmployee re-reads the employee's lots under the lock so the
// decision and the write cannot interleave with a concurrent grant or
// consumption.
func (l *Ledger) sweepEmployee(ctx context.Context, id EmployeeID, asOf Date) ([]ExpiredLeave, error) {
	if err := l.locks.Acquire(id, l.cfg.LockWait); err != nil {
		return nil, err
	}
	defer l.locks.Release(id)

	lots, err := l.store.LotsByEmployee(ctx, id)
	if err != nil {
		return nil, err
	}

	var expired []ExpiredLeave
	for i := range lots {
		if !lots[i].ExpiredAt(asOf) || !lots[i].RemainingDays.IsPositive() {
			continue
		}
		if err := l.store.SetRemaining(ctx, lots[i].ID, ZeroDays()); err != nil {
			return nil, fmt.Errorf("zero lot %s: %w", lots[i].ID, err)
		}
		expired = append(expired, ExpiredLeave{
			EmployeeID:  id,
			LotID:       lots[i].ID,
			ExpiredDays: lots[i].RemainingDays,
			ExpiryDate:  lots[i].ExpiryDate,
		})
	}

	if len(expired) > 0 {
		if _, err := l.resyncLocked(ctx, id, asOf); err != nil {
			return nil, fmt.Errorf("resync after expiry: %w", err)
		}
	}
	return expired, nil
}

// =============================================================================
// EXPIRING-SOON QUERY
// =============================================================================

// ExpiringWithin returns lots that are still valid at asOf but will
// expire within the next `days` calendar days, nearest expiry first.
func (l *Ledger) ExpiringWithin(ctx context.Context, asOf Date, days int) ([]ExpiringLot, error) {
	if days <= 0 {
		return nil, &ValidationError{Field: "days", Message: "must be positive"}
	}

	lots, err := l.store.AllLots(ctx)
	if err != nil {
		return nil, err
	}
	employees, err := l.store.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[EmployeeID]string, len(employees))
	for _, emp := range employees {
		names[emp.ID] = emp.Name
	}

	horizon := asOf.AddDays(days)
	var out []ExpiringLot
	for i := range lots {
		lot := &lots[i]
		if !lot.ValidAt(asOf) || lot.ExpiryDate.After(horizon) {
			continue
		}
		out = append(out, ExpiringLot{
			EmployeeID:      lot.EmployeeID,
			EmployeeName:    names[lot.EmployeeID],
			LotID:           lot.ID,
			GrantDate:       lot.GrantDate,
			ExpiryDate:      lot.ExpiryDate,
			RemainingDays:   lot.RemainingDays,
			DaysUntilExpiry: DaysBetween(asOf, lot.ExpiryDate),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ExpiryDate.Before(out[j].ExpiryDate)
	})
	return out, nil
}

// =============================================================================
// INTEGRITY CHECK
// =============================================================================

// CheckIntegrity compares every employee's cached balance against the
// recomputed ledger value. Divergence beyond the configured epsilon is
// reported, not repaired; operators repair with Resync.
func (l *Ledger) CheckIntegrity(ctx context.Context, asOf Date) (*IntegrityReport, error) {
	employees, err := l.store.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}

	report := &IntegrityReport{CheckedAt: asOf}
	epsilon := NewDays(l.cfg.IntegrityEpsilon)

	for _, emp := range employees {
		computed, err := l.effectiveRemaining(ctx, emp.ID, asOf)
		if err != nil {
			return nil, err
		}
		report.Checked++

		issue := IntegrityIssue{EmployeeID: emp.ID, Stored: emp.Balance, Computed: computed}
		if issue.Drift().GreaterThan(epsilon) {
			report.Issues = append(report.Issues, issue)
		}
	}
	return report, nil
}
