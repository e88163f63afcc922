/*
attendance.go - Attendance gate

PURPOSE:
  Computes the approval rate the eligibility policies gate on: the
  fraction of working days in a lookback window not covered by approved
  leave usage.

FAIL-OPEN:
  When the usage source is unavailable the gate returns 1.0 (vacuously
  compliant) rather than blocking the grant. This mirrors the upstream
  HR policy: missing attendance data must not withhold a statutory
  entitlement.
*/
package leave

import (
	"context"
	"errors"
)

type AttendanceGate struct {
	usage UsageSource
}

func NewAttendanceGate(usage UsageSource) *AttendanceGate {
	return &AttendanceGate{usage: usage}
}

// Rate returns the attendance rate over [from, to], clamped to [0, 1].
// A window with zero working days, or an unavailable usage source,
// yields 1.
func (g *AttendanceGate) Rate(ctx context.Context, id EmployeeID, from, to Date) (float64, error) {
	workingDays := WorkdaysBetween(from, to)
	if workingDays == 0 {
		return 1, nil
	}

	used, err := g.usage.ApprovedLeaveDays(ctx, id, from, to)
	if err != nil {
		if errors.Is(err, ErrUsageUnavailable) {
			return 1, nil
		}
		return 0, err
	}

	rate := (float64(workingDays) - used.Float64()) / float64(workingDays)
	if rate < 0 {
		return 0, nil
	}
	if rate > 1 {
		return 1, nil
	}
	return rate, nil
}
