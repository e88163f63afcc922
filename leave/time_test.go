package leave_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
)

func TestParseDate_RoundTrip(t *testing.T) {
	d, err := leave.ParseDate("2024-04-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-04-01", d.String())
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, time.April, d.Month())
}

func TestParseDate_Invalid(t *testing.T) {
	_, err := leave.ParseDate("01/04/2024")
	assert.Error(t, err)
}

func TestDate_AddMonths_EndOfMonthNormalization(t *testing.T) {
	// time.AddDate semantics: Aug 31 + 6 months normalizes into March.
	d := leave.NewDate(2024, time.August, 31).AddMonths(6)
	assert.Equal(t, "2025-03-03", d.String())
}

func TestDaysBetween(t *testing.T) {
	a := leave.NewDate(2024, time.January, 1)
	b := leave.NewDate(2024, time.January, 31)
	assert.Equal(t, 30, leave.DaysBetween(a, b))
	assert.Equal(t, -30, leave.DaysBetween(b, a))
}

func TestYearsBetween_Convention(t *testing.T) {
	// GIVEN: Exactly 730 calendar days of tenure
	// THEN: 730 / 365.25 years, just under two

	from := leave.NewDate(2022, time.April, 1)
	to := from.AddDays(730)
	assert.InDelta(t, 1.9986, leave.YearsBetween(from, to), 0.001)
}

func TestYearsBetween_NeverNegative(t *testing.T) {
	from := leave.NewDate(2024, time.June, 1)
	to := leave.NewDate(2024, time.January, 1)
	assert.Equal(t, 0.0, leave.YearsBetween(from, to))
}

func TestWorkdaysBetween_ExcludesWeekends(t *testing.T) {
	// 2024-04-01 is a Monday; one full week has five workdays.
	mon := leave.NewDate(2024, time.April, 1)
	sun := leave.NewDate(2024, time.April, 7)
	assert.Equal(t, 5, leave.WorkdaysBetween(mon, sun))

	// Inclusive on both ends.
	assert.Equal(t, 1, leave.WorkdaysBetween(mon, mon))

	// Empty window.
	assert.Equal(t, 0, leave.WorkdaysBetween(sun, mon))
}

func TestDate_WeekendDetection(t *testing.T) {
	sat := leave.NewDate(2024, time.April, 6)
	assert.True(t, sat.IsWeekend())
	assert.False(t, sat.IsWorkday())

	mon := leave.NewDate(2024, time.April, 8)
	assert.True(t, mon.IsWorkday())
}

func TestMaxDate(t *testing.T) {
	a := leave.NewDate(2024, time.January, 1)
	b := leave.NewDate(2024, time.June, 1)
	assert.Equal(t, b, leave.MaxDate(a, b))
	assert.Equal(t, b, leave.MaxDate(b, a))
}
