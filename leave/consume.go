/*
consume.go - FIFO consumption engine

PURPOSE:
  Consumes N days from an employee's lots strictly oldest-grant-date
  first. Ties in grant date fall back to insertion order (stable sort
  over the store's insertion-ordered lot list).

ATOMICITY:
  Decrements are buffered during the walk and committed only when the
  full requested amount is satisfiable. On shortfall the operation fails
  with InsufficientBalanceError and no lot is mutated.

EXPIRY:
  The walk does not filter on expiry; any lot with remaining days is
  eligible. Expired lots are zeroed by the sweeper, so under the normal
  daily cadence nothing expired is left to consume. Between sweeps an
  expired-but-unswept lot is consumed like any other.
*/
package leave

import (
	"context"
	"sort"
)

// plannedDecrement is one buffered lot mutation awaiting commit.
type plannedDecrement struct {
	lot       Lot
	consumed  Days
	remaining Days
}

// Consume takes requested days from the employee's lots in FIFO order.
// All-or-nothing: either the whole request is applied and the balance
// cache resynced as of asOf, or nothing is mutated.
func (l *Ledger) Consume(ctx context.Context, id EmployeeID, requested Days, asOf Date) (*ConsumptionResult, error) {
	if !requested.IsPositive() {
		return nil, &ValidationError{Field: "days", Message: "must be positive"}
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

	lots, err := l.store.LotsByEmployee(ctx, id)
	if err != nil {
		return nil, err
	}

	// Oldest grant first; stable keeps insertion order for equal dates.
	sort.SliceStable(lots, func(i, j int) bool {
		return lots[i].GrantDate.Before(lots[j].GrantDate)
	})

	toConsume := requested
	available := ZeroDays()
	var planned []plannedDecrement

	for i := range lots {
		if !lots[i].RemainingDays.IsPositive() {
			continue
		}
		available = available.Add(lots[i].RemainingDays)
		if !toConsume.IsPositive() {
			continue
		}

		take := toConsume.Min(lots[i].RemainingDays)
		planned = append(planned, plannedDecrement{
			lot:       lots[i],
			consumed:  take,
			remaining: lots[i].RemainingDays.Sub(take),
		})
		toConsume = toConsume.Sub(take)
	}

	if toConsume.IsPositive() {
		return nil, &InsufficientBalanceError{
			EmployeeID: id,
			Available:  available,
			Requested:  requested,
			Shortfall:  toConsume,
		}
	}

	records := make([]LotConsumption, 0, len(planned))
	for _, p := range planned {
		if err := l.store.SetRemaining(ctx, p.lot.ID, p.remaining); err != nil {
			return nil, err
		}
		records = append(records, LotConsumption{
			LotID:          p.lot.ID,
			GrantDate:      p.lot.GrantDate,
			Consumed:       p.consumed,
			RemainingAfter: p.remaining,
		})
	}

	newBalance, err := l.resyncLocked(ctx, id, asOf)
	if err != nil {
		return nil, err
	}

	return &ConsumptionResult{
		EmployeeID:    id,
		Requested:     requested,
		TotalConsumed: requested,
		Lots:          records,
		NewBalance:    newBalance,
	}, nil
}
