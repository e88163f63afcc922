/*
grantdays.go - Statutory grant day tables

PURPOSE:
  Pure lookup from (tenure years, weekly scheduled work days) to the
  number of leave days to grant. Two independent step tables: one for
  the initial grant at six months, one for the recurring annual grant.

TOTALITY:
  Lookup never errors. Weekly-day values outside 1-5 yield 0, and the
  caller treats 0 as "no entitlement", not a failure.
*/
package leave

// initialDayTable maps weekly scheduled work days to the one-time grant
// at six months of tenure. Tenure is ignored for the initial grant.
var initialDayTable = map[int]int{
	5: 10,
	4: 7,
	3: 5,
	2: 3,
	1: 1,
}

// annualDayTable maps weekly scheduled work days to day counts by tenure
// bucket: floor(tenure years) of 0,1,2,3,4,5 and >=6.
var annualDayTable = map[int][7]int{
	5: {10, 11, 12, 14, 16, 18, 20},
	4: {7, 8, 9, 10, 12, 13, 15},
	3: {5, 6, 6, 8, 9, 10, 11},
	2: {3, 4, 4, 5, 6, 6, 7},
	1: {1, 2, 2, 2, 3, 3, 3},
}

// InitialGrantDays returns the six-month grant for the given weekly
// schedule, or 0 when the schedule is outside the table.
func InitialGrantDays(weeklyWorkDays int) int {
	return initialDayTable[weeklyWorkDays]
}

// AnnualGrantDays returns the annual grant for floored tenure years and
// weekly schedule, or 0 when the schedule is outside the table.
func AnnualGrantDays(tenureYears, weeklyWorkDays int) int {
	row, ok := annualDayTable[weeklyWorkDays]
	if !ok {
		return 0
	}
	if tenureYears < 0 {
		tenureYears = 0
	}
	if tenureYears > 6 {
		tenureYears = 6
	}
	return row[tenureYears]
}

// GrantDays is the combined lookup. Tenure and weekly days are floored
// to integers before the table lookup.
func GrantDays(tenureYears float64, weeklyWorkDays int, initial bool) int {
	if initial {
		return InitialGrantDays(weeklyWorkDays)
	}
	return AnnualGrantDays(int(tenureYears), weeklyWorkDays)
}
