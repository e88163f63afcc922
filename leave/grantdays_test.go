package leave_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// INITIAL GRANT TABLE
// =============================================================================

func TestInitialGrantDays_FullTimeSchedule(t *testing.T) {
	// GIVEN: An employee working five days a week
	// WHEN: Looking up the six-month grant
	// THEN: Ten days

	assert.Equal(t, 10, leave.InitialGrantDays(5))
}

func TestInitialGrantDays_PartTimeSchedules(t *testing.T) {
	assert.Equal(t, 7, leave.InitialGrantDays(4))
	assert.Equal(t, 5, leave.InitialGrantDays(3))
	assert.Equal(t, 3, leave.InitialGrantDays(2))
	assert.Equal(t, 1, leave.InitialGrantDays(1))
}

func TestInitialGrantDays_OutsideSchedule_Zero(t *testing.T) {
	// Weekly schedules outside 1-5 have no entitlement row.
	assert.Equal(t, 0, leave.InitialGrantDays(0))
	assert.Equal(t, 0, leave.InitialGrantDays(6))
	assert.Equal(t, 0, leave.InitialGrantDays(-1))
}

// =============================================================================
// ANNUAL GRANT TABLE
// =============================================================================

func TestAnnualGrantDays_FullTimeProgression(t *testing.T) {
	// The five-day row steps up every year and caps at 20 from six
	// years of tenure.
	expected := []int{10, 11, 12, 14, 16, 18, 20}
	for tenure, want := range expected {
		assert.Equal(t, want, leave.AnnualGrantDays(tenure, 5), "tenure %d", tenure)
	}
}

func TestAnnualGrantDays_TenureClamping(t *testing.T) {
	// GIVEN: Tenure beyond the last bucket or before the first
	// THEN: The lookup clamps instead of failing

	assert.Equal(t, 20, leave.AnnualGrantDays(15, 5))
	assert.Equal(t, 10, leave.AnnualGrantDays(-3, 5))
}

func TestAnnualGrantDays_PartTimeRows(t *testing.T) {
	assert.Equal(t, 7, leave.AnnualGrantDays(0, 4))
	assert.Equal(t, 15, leave.AnnualGrantDays(6, 4))
	assert.Equal(t, 5, leave.AnnualGrantDays(0, 3))
	assert.Equal(t, 3, leave.AnnualGrantDays(0, 2))
	assert.Equal(t, 1, leave.AnnualGrantDays(0, 1))
	assert.Equal(t, 3, leave.AnnualGrantDays(6, 1))
}

func TestAnnualGrantDays_OutsideSchedule_Zero(t *testing.T) {
	assert.Equal(t, 0, leave.AnnualGrantDays(2, 0))
	assert.Equal(t, 0, leave.AnnualGrantDays(2, 7))
}

// =============================================================================
// COMBINED LOOKUP
// =============================================================================

func TestGrantDays_FloorsFractionalTenure(t *testing.T) {
	// GIVEN: 1.9 years of tenure on a five-day schedule
	// WHEN: Looking up the annual grant
	// THEN: The 1-year bucket applies, not the 2-year one

	assert.Equal(t, 11, leave.GrantDays(1.9, 5, false))
	assert.Equal(t, 11, leave.GrantDays(6.5, 3, false))
}

func TestGrantDays_InitialIgnoresTenure(t *testing.T) {
	assert.Equal(t, 7, leave.GrantDays(0.5, 4, true))
	assert.Equal(t, 7, leave.GrantDays(3.2, 4, true))
}
