package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func date(y int, m time.Month, d int) leave.Date {
	return leave.NewDate(y, m, d)
}

func saveEmployee(t *testing.T, store *sqlite.Store, id string, hire leave.Date) {
	t.Helper()
	err := store.SaveEmployee(context.Background(), leave.Employee{
		ID:             leave.EmployeeID(id),
		Name:           "Employee " + id,
		HireDate:       hire,
		WeeklyWorkDays: 5,
	})
	require.NoError(t, err)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestEmployeeRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	initial := date(2024, time.July, 10)
	err := store.SaveEmployee(ctx, leave.Employee{
		ID:               "emp-1",
		Name:             "Asha Rao",
		HireDate:         date(2024, time.January, 10),
		WeeklyWorkDays:   4,
		InitialGrantDate: &initial,
	})
	require.NoError(t, err)

	emp, err := store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	require.NotNil(t, emp)
	assert.Equal(t, "Asha Rao", emp.Name)
	assert.Equal(t, "2024-01-10", emp.HireDate.String())
	assert.Equal(t, 4, emp.WeeklyWorkDays)
	require.NotNil(t, emp.InitialGrantDate)
	assert.Equal(t, "2024-07-10", emp.InitialGrantDate.String())
	assert.Nil(t, emp.LatestAnnualGrantDate)
	assert.True(t, emp.Balance.IsZero())
	assert.False(t, emp.CreatedAt.IsZero())
}

func TestGetEmployee_Missing_ReturnsNilNil(t *testing.T) {
	store := newTestStore(t)

	emp, err := store.GetEmployee(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, emp)
}

func TestSaveEmployee_UpsertPreservesBalance(t *testing.T) {
	// The roster sync may re-save an employee at any time; the
	// engine-owned balance cache must survive it.

	store := newTestStore(t)
	ctx := context.Background()
	saveEmployee(t, store, "emp-1", date(2024, time.January, 10))

	require.NoError(t, store.SetBalance(ctx, "emp-1", leave.NewDays(7.5)))

	err := store.SaveEmployee(ctx, leave.Employee{
		ID:             "emp-1",
		Name:           "Renamed",
		HireDate:       date(2024, time.January, 10),
		WeeklyWorkDays: 5,
	})
	require.NoError(t, err)

	emp, err := store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", emp.Name)
	assert.Equal(t, 7.5, emp.Balance.Float64())
}

func TestListEmployees_OrderedByCreation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"emp-b", "emp-a", "emp-c"} {
		err := store.SaveEmployee(ctx, leave.Employee{
			ID:             leave.EmployeeID(id),
			Name:           id,
			HireDate:       date(2024, time.January, 10),
			WeeklyWorkDays: 5,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	employees, err := store.ListEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, employees, 3)
	assert.Equal(t, leave.EmployeeID("emp-b"), employees[0].ID)
	assert.Equal(t, leave.EmployeeID("emp-a"), employees[1].ID)
	assert.Equal(t, leave.EmployeeID("emp-c"), employees[2].ID)
}

func TestGrantDateSetters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveEmployee(t, store, "emp-1", date(2023, time.January, 10))

	require.NoError(t, store.SetInitialGrantDate(ctx, "emp-1", date(2023, time.July, 10)))
	require.NoError(t, store.SetAnnualGrantDate(ctx, "emp-1", date(2024, time.July, 10)))

	emp, err := store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	require.NotNil(t, emp.InitialGrantDate)
	require.NotNil(t, emp.LatestAnnualGrantDate)
	assert.Equal(t, "2023-07-10", emp.InitialGrantDate.String())
	assert.Equal(t, "2024-07-10", emp.LatestAnnualGrantDate.String())
}

func TestEmployeeUpdates_MissingEmployee_NotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.SetBalance(ctx, "nobody", leave.NewDays(1))
	assert.True(t, leave.IsNotFound(err))

	err = store.SetInitialGrantDate(ctx, "nobody", date(2024, time.July, 10))
	assert.True(t, leave.IsNotFound(err))
}

// =============================================================================
// LOTS
// =============================================================================

func TestLots_AppendAndReadBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveEmployee(t, store, "emp-1", date(2022, time.January, 10))

	lot := leave.Lot{
		ID:            "lot-1",
		EmployeeID:    "emp-1",
		GrantDate:     date(2024, time.April, 1),
		GrantedDays:   leave.NewDays(10.5),
		ExpiryDate:    date(2026, time.April, 1),
		RemainingDays: leave.NewDays(10.5),
		Type:          leave.GrantAnnual,
		TenureAtGrant: 2.2,
	}
	require.NoError(t, store.AppendLot(ctx, lot))

	lots, err := store.LotsByEmployee(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, lots, 1)
	got := lots[0]
	assert.Equal(t, "lot-1", got.ID)
	assert.Equal(t, "2024-04-01", got.GrantDate.String())
	assert.Equal(t, "2026-04-01", got.ExpiryDate.String())
	assert.Equal(t, "10.5", got.GrantedDays.String())
	assert.Equal(t, "10.5", got.RemainingDays.String())
	assert.Equal(t, leave.GrantAnnual, got.Type)
	assert.InDelta(t, 2.2, got.TenureAtGrant, 1e-9)
}

func TestLots_InsertionOrderPreserved(t *testing.T) {
	// The consumption engine relies on insertion order as the FIFO
	// tie-break for equal grant dates.

	store := newTestStore(t)
	ctx := context.Background()
	saveEmployee(t, store, "emp-1", date(2022, time.January, 10))

	grant := date(2024, time.April, 1)
	for _, id := range []string{"lot-z", "lot-a", "lot-m"} {
		require.NoError(t, store.AppendLot(ctx, leave.Lot{
			ID:            id,
			EmployeeID:    "emp-1",
			GrantDate:     grant,
			GrantedDays:   leave.DaysFromInt(5),
			ExpiryDate:    grant.AddYears(2),
			RemainingDays: leave.DaysFromInt(5),
			Type:          leave.GrantManual,
		}))
	}

	lots, err := store.LotsByEmployee(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, lots, 3)
	assert.Equal(t, "lot-z", lots[0].ID)
	assert.Equal(t, "lot-a", lots[1].ID)
	assert.Equal(t, "lot-m", lots[2].ID)
}

func TestSetRemaining(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveEmployee(t, store, "emp-1", date(2022, time.January, 10))

	require.NoError(t, store.AppendLot(ctx, leave.Lot{
		ID:            "lot-1",
		EmployeeID:    "emp-1",
		GrantDate:     date(2024, time.April, 1),
		GrantedDays:   leave.DaysFromInt(10),
		ExpiryDate:    date(2026, time.April, 1),
		RemainingDays: leave.DaysFromInt(10),
		Type:          leave.GrantInitial,
	}))

	require.NoError(t, store.SetRemaining(ctx, "lot-1", leave.NewDays(3.5)))

	lots, err := store.AllLots(ctx)
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, "3.5", lots[0].RemainingDays.String())
	assert.Equal(t, "10", lots[0].GrantedDays.String(), "granted amount is immutable")

	err = store.SetRemaining(ctx, "lot-missing", leave.ZeroDays())
	assert.True(t, leave.IsNotFound(err))
}

// =============================================================================
// USAGE
// =============================================================================

func TestApprovedLeaveDays_WindowAndStatusFiltering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveEmployee(t, store, "emp-1", date(2022, time.January, 10))

	add := func(id string, usedOn leave.Date, days float64, status string) {
		require.NoError(t, store.AddUsage(ctx, id, "emp-1", usedOn, leave.NewDays(days), status))
	}
	add("u1", date(2024, time.March, 31), 1, "approved") // before window
	add("u2", date(2024, time.April, 1), 1, "approved")  // window start, inclusive
	add("u3", date(2024, time.April, 15), 0.5, "approved")
	add("u4", date(2024, time.April, 20), 2, "pending") // not approved
	add("u5", date(2024, time.April, 30), 1, "approved") // window end, inclusive
	add("u6", date(2024, time.May, 1), 1, "approved")    // after window

	total, err := store.ApprovedLeaveDays(ctx, "emp-1",
		date(2024, time.April, 1), date(2024, time.April, 30))
	require.NoError(t, err)
	assert.Equal(t, "2.5", total.String())
}

func TestApprovedLeaveDays_NoRecords_Zero(t *testing.T) {
	store := newTestStore(t)
	saveEmployee(t, store, "emp-1", date(2022, time.January, 10))

	total, err := store.ApprovedLeaveDays(context.Background(), "emp-1",
		date(2024, time.April, 1), date(2024, time.April, 30))
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

// =============================================================================
// ENGINE INTEGRATION
// =============================================================================

func TestLedgerAgainstSQLite(t *testing.T) {
	// Run a grant-consume-sweep cycle through the real store to catch
	// serialization mismatches the in-memory store would hide.

	store := newTestStore(t)
	ctx := context.Background()
	saveEmployee(t, store, "emp-1", date(2022, time.January, 10))

	ledger := leave.NewLedger(store, nil, leave.DefaultConfig())

	_, err := ledger.Grant(ctx, "emp-1", date(2022, time.July, 10), leave.DaysFromInt(10), leave.GrantInitial, 0.5)
	require.NoError(t, err)
	_, err = ledger.Grant(ctx, "emp-1", date(2023, time.July, 10), leave.DaysFromInt(11), leave.GrantAnnual, 1.5)
	require.NoError(t, err)

	result, err := ledger.Consume(ctx, "emp-1", leave.NewDays(10.5), date(2024, time.April, 1))
	require.NoError(t, err)
	assert.Equal(t, "10.5", result.TotalConsumed.String())
	assert.Equal(t, "10.5", result.NewBalance.String())

	// The 2022 lot expires on 2024-07-10; sweep past it.
	summary, err := ledger.Sweep(ctx, date(2024, time.July, 10))
	require.NoError(t, err)
	assert.Equal(t, 0, len(summary.Failures))

	remaining, err := ledger.EffectiveRemaining(ctx, "emp-1", date(2024, time.July, 10))
	require.NoError(t, err)
	assert.Equal(t, "10.5", remaining.String())

	emp, err := store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "10.5", emp.Balance.String())
}
