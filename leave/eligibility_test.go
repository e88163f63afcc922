package leave_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestEvaluator(t *testing.T) (*leave.Evaluator, *leave.Ledger, *memory.Memory) {
	t.Helper()
	store := memory.New()
	ledger := leave.NewLedger(store, nil, leave.DefaultConfig())
	evaluator := leave.NewEvaluator(ledger, store, store, leave.DefaultConfig())
	return evaluator, ledger, store
}

// flakyUsage fails hard for one employee and delegates the rest.
type flakyUsage struct {
	inner    leave.UsageSource
	failFor  leave.EmployeeID
	failWith error
}

func (f *flakyUsage) ApprovedLeaveDays(ctx context.Context, id leave.EmployeeID, from, to leave.Date) (leave.Days, error) {
	if id == f.failFor {
		return leave.ZeroDays(), f.failWith
	}
	return f.inner.ApprovedLeaveDays(ctx, id, from, to)
}

// =============================================================================
// SIX-MONTH CHECK
// =============================================================================

func TestSixMonthCheck_GrantsAtQualifyingDate(t *testing.T) {
	// GIVEN: Hired 2024-01-10 on a five-day schedule, no initial grant
	// WHEN: The check runs on 2024-08-01, past the six-month mark
	// THEN: A 10-day lot backdated to 2024-07-10 and the initial grant
	//       date recorded as 2024-07-10

	evaluator, ledger, store := newTestEvaluator(t)
	ctx := context.Background()
	seedEmployee(t, store, "emp-1", date(2024, time.January, 10), 5)

	summary, err := evaluator.RunSixMonthCheck(ctx, date(2024, time.August, 1))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Targets)
	assert.Equal(t, 1, summary.Granted)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, leave.OutcomeGranted, summary.Results[0].Outcome)
	assert.Equal(t, 10.0, summary.Results[0].Days.Float64())
	require.NotNil(t, summary.Results[0].GrantDate)
	assert.Equal(t, "2024-07-10", summary.Results[0].GrantDate.String())

	emp, err := store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	require.NotNil(t, emp.InitialGrantDate)
	assert.Equal(t, "2024-07-10", emp.InitialGrantDate.String())

	history, err := ledger.GrantHistory(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "2024-07-10", history[0].GrantDate.String())
	assert.Equal(t, "2026-07-10", history[0].ExpiryDate.String())
	assert.Equal(t, leave.GrantInitial, history[0].Type)
	assert.Equal(t, 0.5, history[0].TenureAtGrant)
}

func TestSixMonthCheck_NotYetDue_Skipped(t *testing.T) {
	evaluator, _, store := newTestEvaluator(t)
	seedEmployee(t, store, "emp-1", date(2024, time.March, 1), 5)

	summary, err := evaluator.RunSixMonthCheck(context.Background(), date(2024, time.August, 31))
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Targets, "not due before hire + 6 months")
}

func TestSixMonthCheck_AlreadyGranted_NotTargeted(t *testing.T) {
	// The initial grant is one-time; once recorded the employee drops
	// out of the six-month scan entirely.

	evaluator, _, store := newTestEvaluator(t)
	ctx := context.Background()
	seedEmployee(t, store, "emp-1", date(2024, time.January, 10), 5)

	_, err := evaluator.RunSixMonthCheck(ctx, date(2024, time.August, 1))
	require.NoError(t, err)

	again, err := evaluator.RunSixMonthCheck(ctx, date(2024, time.September, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, again.Targets)
}

func TestSixMonthCheck_LowAttendance_SkippedAndStaysDue(t *testing.T) {
	// GIVEN: Approved usage covering more than 20% of the window's
	//        workdays
	// WHEN: The check runs
	// THEN: Skipped, nothing recorded, and the employee is targeted
	//       again on the next run

	evaluator, _, store := newTestEvaluator(t)
	ctx := context.Background()
	hire := date(2024, time.January, 10)
	today := date(2024, time.July, 15)
	seedEmployee(t, store, "emp-1", hire, 5)

	// Window is [hire, today] here; bury it in approved leave.
	store.AddUsage("emp-1", hire.AddDays(30), hire.AddDays(30), leave.DaysFromInt(60))

	summary, err := evaluator.RunSixMonthCheck(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Targets)
	assert.Equal(t, 1, summary.Skipped)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, leave.OutcomeSkipped, summary.Results[0].Outcome)
	assert.Equal(t, leave.SkipAttendanceBelowThreshold, summary.Results[0].Reason)
	assert.Less(t, summary.Results[0].AttendanceRate, 0.8)

	emp, err := store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Nil(t, emp.InitialGrantDate, "a skipped employee stays due")

	retry, err := evaluator.RunSixMonthCheck(ctx, today.AddDays(7))
	require.NoError(t, err)
	assert.Equal(t, 1, retry.Targets, "retried on the next run")
}

func TestSixMonthCheck_UsageUnavailable_GrantsAnyway(t *testing.T) {
	// Fail-open: missing attendance data must not withhold the grant.

	evaluator, _, store := newTestEvaluator(t)
	store.SetUsageUnavailable(true)
	seedEmployee(t, store, "emp-1", date(2024, time.January, 10), 5)

	summary, err := evaluator.RunSixMonthCheck(context.Background(), date(2024, time.August, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Granted)
	assert.Equal(t, 1.0, summary.Results[0].AttendanceRate)
}

func TestSixMonthCheck_ScheduleOutsideTable_SkippedNoEntitlement(t *testing.T) {
	evaluator, _, store := newTestEvaluator(t)
	seedEmployee(t, store, "emp-1", date(2024, time.January, 10), 6)

	summary, err := evaluator.RunSixMonthCheck(context.Background(), date(2024, time.August, 1))
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, leave.OutcomeSkipped, summary.Results[0].Outcome)
	assert.Equal(t, leave.SkipNoEntitlement, summary.Results[0].Reason)
}

func TestSixMonthCheck_PartTimeEntitlement(t *testing.T) {
	evaluator, _, store := newTestEvaluator(t)
	seedEmployee(t, store, "emp-1", date(2024, time.January, 10), 3)

	summary, err := evaluator.RunSixMonthCheck(context.Background(), date(2024, time.August, 1))
	require.NoError(t, err)
	require.Equal(t, 1, summary.Granted)
	assert.Equal(t, 5.0, summary.Results[0].Days.Float64())
}

// =============================================================================
// ANNUAL PROCESS
// =============================================================================

func seedGrantedEmployee(t *testing.T, evaluator *leave.Evaluator, store *memory.Memory, id string, hire leave.Date, weekly int) {
	t.Helper()
	seedEmployee(t, store, id, hire, weekly)
	summary, err := evaluator.RunSixMonthCheck(context.Background(), hire.AddMonths(6))
	require.NoError(t, err)
	require.Equal(t, leave.OutcomeGranted, summary.Results[len(summary.Results)-1].Outcome)
}

func TestAnnualProcess_GrantsOneYearAfterInitial(t *testing.T) {
	// GIVEN: Initial grant on 2023-07-10 (hired 2023-01-10)
	// WHEN: The process runs on 2024-07-10
	// THEN: An annual lot dated 2024-07-10 using the 1-year tenure
	//       bucket, and the latest annual date recorded

	evaluator, ledger, store := newTestEvaluator(t)
	ctx := context.Background()
	seedGrantedEmployee(t, evaluator, store, "emp-1", date(2023, time.January, 10), 5)

	summary, err := evaluator.RunAnnualProcess(ctx, date(2024, time.July, 10))
	require.NoError(t, err)
	require.Equal(t, 1, summary.Granted)
	assert.Equal(t, 11.0, summary.Results[0].Days.Float64(), "1-year bucket of the five-day row")

	emp, err := store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	require.NotNil(t, emp.LatestAnnualGrantDate)
	assert.Equal(t, "2024-07-10", emp.LatestAnnualGrantDate.String())

	history, err := ledger.GrantHistory(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, leave.GrantAnnual, history[0].Type)
	assert.Equal(t, "2024-07-10", history[0].GrantDate.String())
}

func TestAnnualProcess_NotDueBeforeAnniversary(t *testing.T) {
	evaluator, _, store := newTestEvaluator(t)
	seedGrantedEmployee(t, evaluator, store, "emp-1", date(2023, time.January, 10), 5)

	summary, err := evaluator.RunAnnualProcess(context.Background(), date(2024, time.July, 9))
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Targets)
}

func TestAnnualProcess_CycleAdvancesFromLatestGrant(t *testing.T) {
	// After one annual grant the next due date moves a year past it;
	// running again the same day targets nobody.

	evaluator, _, store := newTestEvaluator(t)
	ctx := context.Background()
	seedGrantedEmployee(t, evaluator, store, "emp-1", date(2023, time.January, 10), 5)

	_, err := evaluator.RunAnnualProcess(ctx, date(2024, time.July, 10))
	require.NoError(t, err)

	again, err := evaluator.RunAnnualProcess(ctx, date(2024, time.August, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, again.Targets)

	nextYear, err := evaluator.RunAnnualProcess(ctx, date(2025, time.July, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, nextYear.Granted)
}

func TestAnnualProcess_NoInitialGrant_NotTargeted(t *testing.T) {
	// The annual cycle is anchored to the initial grant; without one
	// the employee is not scanned.

	evaluator, _, store := newTestEvaluator(t)
	seedEmployee(t, store, "emp-1", date(2020, time.January, 1), 5)

	summary, err := evaluator.RunAnnualProcess(context.Background(), date(2024, time.July, 10))
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Targets)
}

func TestAnnualProcess_LowAttendance_SkippedAndStaysDue(t *testing.T) {
	evaluator, _, store := newTestEvaluator(t)
	ctx := context.Background()
	seedGrantedEmployee(t, evaluator, store, "emp-1", date(2023, time.January, 10), 5)

	// Bury the [initial grant, today] window in approved leave.
	store.AddUsage("emp-1", date(2023, time.September, 1), date(2023, time.September, 1), leave.DaysFromInt(300))

	summary, err := evaluator.RunAnnualProcess(ctx, date(2024, time.July, 10))
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, leave.OutcomeSkipped, summary.Results[0].Outcome)

	emp, err := store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Nil(t, emp.LatestAnnualGrantDate)

	retry, err := evaluator.RunAnnualProcess(ctx, date(2024, time.August, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, retry.Targets, "skipped employees stay due")
}

func TestAnnualProcess_SeniorTenureBucket(t *testing.T) {
	// An employee past six years of tenure draws from the capped
	// bucket.

	evaluator, _, store := newTestEvaluator(t)
	ctx := context.Background()
	seedGrantedEmployee(t, evaluator, store, "emp-1", date(2017, time.April, 1), 5)

	summary, err := evaluator.RunAnnualProcess(ctx, date(2024, time.April, 1))
	require.NoError(t, err)
	require.Equal(t, 1, summary.Granted)
	assert.Equal(t, 20.0, summary.Results[0].Days.Float64())
}

// =============================================================================
// BATCH ISOLATION
// =============================================================================

func TestSixMonthCheck_OneFailureDoesNotAbortBatch(t *testing.T) {
	// GIVEN: Two due employees; the usage source fails hard for one
	// WHEN: The batch runs
	// THEN: The failure is recorded and the other employee is granted

	store := memory.New()
	ledger := leave.NewLedger(store, nil, leave.DefaultConfig())
	usage := &flakyUsage{
		inner:    store,
		failFor:  "emp-bad",
		failWith: errors.New("usage backend 500"),
	}
	evaluator := leave.NewEvaluator(ledger, store, usage, leave.DefaultConfig())

	seedEmployee(t, store, "emp-bad", date(2024, time.January, 10), 5)
	seedEmployee(t, store, "emp-good", date(2024, time.January, 10), 5)

	summary, err := evaluator.RunSixMonthCheck(context.Background(), date(2024, time.August, 1))
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Targets)
	assert.Equal(t, 1, summary.Granted)
	assert.Equal(t, 1, summary.Failed)

	byID := make(map[string]leave.EmployeeEvaluation)
	for _, ev := range summary.Results {
		byID[string(ev.EmployeeID)] = ev
	}
	assert.Equal(t, leave.OutcomeFailed, byID["emp-bad"].Outcome)
	assert.Contains(t, byID["emp-bad"].Reason, "usage backend 500")
	assert.Equal(t, leave.OutcomeGranted, byID["emp-good"].Outcome)
}
