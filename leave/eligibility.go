/*
eligibility.go - Grant eligibility evaluators

PURPOSE:
  Decides which employees are due a grant and creates the lots.

  Initial grant:  NotYetDue -> Due -> Granted (terminal).
    Due when today >= hireDate + 6 months and no initial grant is
    recorded. Gated on the attendance rate over the trailing six months.
    The lot is dated to the qualifying date (hire + 6 months), not the
    processing day, and InitialGrantDate is set to it.

  Annual grant:   Waiting -> Due -> Granted(cycle), repeating.
    The next due date is latestAnnualGrantDate + 1 year when set, else
    initialGrantDate + 1 year. Gated on the attendance rate over
    [previous grant date, today]. The lot is dated to the processing
    day, which becomes the new latestAnnualGrantDate.

  An employee failing the attendance gate stays Due and is retried on
  the next scheduled run; nothing is recorded on the employee.

BATCH SEMANTICS:
  Both evaluators iterate the whole roster, evaluate each employee
  independently, and continue past per-employee failures. The summary
  carries a per-employee granted/skipped/failed record.
*/
package leave

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Evaluator struct {
	ledger    *Ledger
	employees EmployeeStore
	gate      *AttendanceGate
	cfg       Config
}

func NewEvaluator(ledger *Ledger, employees EmployeeStore, usage UsageSource, cfg Config) *Evaluator {
	return &Evaluator{
		ledger:    ledger,
		employees: employees,
		gate:      NewAttendanceGate(usage),
		cfg:       cfg,
	}
}

// =============================================================================
// SIX-MONTH (INITIAL) GRANT
// =============================================================================

// RunSixMonthCheck evaluates the initial grant for every employee due
// one as of today.
func (e *Evaluator) RunSixMonthCheck(ctx context.Context, today Date) (*BatchSummary, error) {
	summary := newBatchSummary("six_month_grant")
	defer summary.finish()

	employees, err := e.employees.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}

	for _, emp := range employees {
		if emp.HireDate.IsZero() || emp.InitialGrantDate != nil {
			continue
		}
		qualifying := emp.HireDate.AddMonths(6)
		if today.Before(qualifying) {
			continue
		}
		summary.Targets++
		summary.record(e.evaluateInitial(ctx, emp, qualifying, today))
	}
	return summary, nil
}

func (e *Evaluator) evaluateInitial(ctx context.Context, emp Employee, qualifying, today Date) EmployeeEvaluation {
	eval := EmployeeEvaluation{EmployeeID: emp.ID, Name: emp.Name}

	windowStart := MaxDate(emp.HireDate, today.AddMonths(-6))
	rate, err := e.gate.Rate(ctx, emp.ID, windowStart, today)
	if err != nil {
		eval.Outcome = OutcomeFailed
		eval.Reason = err.Error()
		return eval
	}
	eval.AttendanceRate = rate

	if rate < e.cfg.AttendanceThreshold {
		eval.Outcome = OutcomeSkipped
		eval.Reason = SkipAttendanceBelowThreshold
		return eval
	}

	days := GrantDays(0.5, e.weeklyDays(emp), true)
	if days <= 0 {
		eval.Outcome = OutcomeSkipped
		eval.Reason = SkipNoEntitlement
		return eval
	}

	result, err := e.ledger.Grant(ctx, emp.ID, qualifying, DaysFromInt(days), GrantInitial, 0.5)
	if err != nil {
		eval.Outcome = OutcomeFailed
		eval.Reason = err.Error()
		return eval
	}

	if err := e.employees.SetInitialGrantDate(ctx, emp.ID, qualifying); err != nil {
		eval.Outcome = OutcomeFailed
		eval.Reason = err.Error()
		return eval
	}

	eval.Outcome = OutcomeGranted
	eval.Days = result.Days
	eval.GrantDate = &qualifying
	return eval
}

// =============================================================================
// ANNUAL GRANT
// =============================================================================

// RunAnnualProcess evaluates the recurring annual grant for every
// employee whose next due date has arrived.
func (e *Evaluator) RunAnnualProcess(ctx context.Context, today Date) (*BatchSummary, error) {
	summary := newBatchSummary("annual_grant")
	defer summary.finish()

	employees, err := e.employees.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}

	for _, emp := range employees {
		if emp.HireDate.IsZero() || emp.InitialGrantDate == nil {
			continue // annual cycle starts after the initial grant
		}
		anchor := *emp.InitialGrantDate
		if emp.LatestAnnualGrantDate != nil {
			anchor = *emp.LatestAnnualGrantDate
		}
		if today.Before(anchor.AddYears(1)) {
			continue
		}
		summary.Targets++
		summary.record(e.evaluateAnnual(ctx, emp, anchor, today))
	}
	return summary, nil
}

func (e *Evaluator) evaluateAnnual(ctx context.Context, emp Employee, anchor, today Date) EmployeeEvaluation {
	eval := EmployeeEvaluation{EmployeeID: emp.ID, Name: emp.Name}

	rate, err := e.gate.Rate(ctx, emp.ID, anchor, today)
	if err != nil {
		eval.Outcome = OutcomeFailed
		eval.Reason = err.Error()
		return eval
	}
	eval.AttendanceRate = rate

	if rate < e.cfg.AttendanceThreshold {
		eval.Outcome = OutcomeSkipped
		eval.Reason = SkipAttendanceBelowThreshold
		return eval
	}

	tenure := YearsBetween(emp.HireDate, today)
	days := GrantDays(tenure, e.weeklyDays(emp), false)
	if days <= 0 {
		eval.Outcome = OutcomeSkipped
		eval.Reason = SkipNoEntitlement
		return eval
	}

	result, err := e.ledger.Grant(ctx, emp.ID, today, DaysFromInt(days), GrantAnnual, tenure)
	if err != nil {
		eval.Outcome = OutcomeFailed
		eval.Reason = err.Error()
		return eval
	}

	if err := e.employees.SetAnnualGrantDate(ctx, emp.ID, today); err != nil {
		eval.Outcome = OutcomeFailed
		eval.Reason = err.Error()
		return eval
	}

	eval.Outcome = OutcomeGranted
	eval.Days = result.Days
	grantDate := today
	eval.GrantDate = &grantDate
	return eval
}

// =============================================================================
// HELPERS
// =============================================================================

func (e *Evaluator) weeklyDays(emp Employee) int {
	if emp.WeeklyWorkDays <= 0 {
		return e.cfg.DefaultWeeklyWorkDays
	}
	return emp.WeeklyWorkDays
}

func newBatchSummary(job string) *BatchSummary {
	return &BatchSummary{
		RunID:     uuid.NewString(),
		Job:       job,
		StartedAt: time.Now().UTC(),
	}
}

func (s *BatchSummary) record(eval EmployeeEvaluation) {
	s.Results = append(s.Results, eval)
	switch eval.Outcome {
	case OutcomeGranted:
		s.Granted++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
}

func (s *BatchSummary) finish() {
	s.CompletedAt = time.Now().UTC()
}
