/*
Package leave implements the paid-leave grant ledger engine.

PURPOSE:
  This package contains the core types and algorithms for tracking an
  employee's paid-leave entitlement as a ledger of dated, expiring grant
  lots. Lots are consumed strictly oldest-first, swept when they pass
  their expiry date, and created by the statutory eligibility policies
  (the one-time six-month grant and the recurring annual grant).

KEY CONCEPTS IN THIS FILE (types.go):
  - Days: A day quantity (may include halves), backed by decimal.Decimal
  - Employee: Roster record with the denormalized balance cache
  - Lot: One grant of leave days with its own expiry and remaining balance
  - Result/summary types returned by the engine's operations

DESIGN PRINCIPLES:
  1. The lot collection is the source of truth; Employee.Balance is a
     cache maintained by Resync after every mutation.
  2. Lots are never deleted. Expiry zeroes the remaining days and the
     row stays behind as the audit trail.
  3. Precision: decimal.Decimal for all day arithmetic, no floats in
     balance math.

SEE ALSO:
  - ledger.go:      Grant creation, history, balance, resync
  - consume.go:     FIFO consumption engine
  - expiry.go:      Expiry sweeping and integrity checking
  - eligibility.go: Six-month and annual grant evaluators
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DAYS - Day quantity (may include halves)
// =============================================================================

type Days struct {
	Value decimal.Decimal
}

func NewDays(value float64) Days    { return Days{Value: decimal.NewFromFloat(value)} }
func DaysFromInt(value int) Days    { return Days{Value: decimal.NewFromInt(int64(value))} }
func ZeroDays() Days                { return Days{Value: decimal.Zero} }

func MustParseDays(s string) Days {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroDays()
	}
	return Days{Value: d}
}

func (d Days) Add(o Days) Days          { return Days{Value: d.Value.Add(o.Value)} }
func (d Days) Sub(o Days) Days          { return Days{Value: d.Value.Sub(o.Value)} }
func (d Days) Min(o Days) Days          { if d.LessThan(o) { return d }; return o }
func (d Days) IsZero() bool             { return d.Value.IsZero() }
func (d Days) IsPositive() bool         { return d.Value.IsPositive() }
func (d Days) IsNegative() bool         { return d.Value.IsNegative() }
func (d Days) GreaterThan(o Days) bool  { return d.Value.GreaterThan(o.Value) }
func (d Days) LessThan(o Days) bool     { return d.Value.LessThan(o.Value) }
func (d Days) Equal(o Days) bool        { return d.Value.Equal(o.Value) }
func (d Days) Float64() float64         { f, _ := d.Value.Float64(); return f }
func (d Days) String() string           { return d.Value.String() }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string

// =============================================================================
// GRANT TYPE
// =============================================================================

type GrantType string

const (
	GrantInitial GrantType = "initial" // One-time grant at six months of tenure
	GrantAnnual  GrantType = "annual"  // Recurring yearly grant
	GrantManual  GrantType = "manual"  // Admin correction
	GrantSpecial GrantType = "special" // Out-of-cycle grant (e.g. retention bonus)
)

func (g GrantType) Valid() bool {
	switch g {
	case GrantInitial, GrantAnnual, GrantManual, GrantSpecial:
		return true
	}
	return false
}

// =============================================================================
// EMPLOYEE - Roster record
// =============================================================================

// Employee is a roster record. The roster itself is maintained by an
// external process; this engine mutates only the grant-date fields and
// the denormalized balance.
type Employee struct {
	ID             EmployeeID
	Name           string
	HireDate       Date
	WeeklyWorkDays int // scheduled work days per week, 1-5

	// Set once by the six-month evaluator; nil until the initial grant.
	InitialGrantDate *Date

	// Updated by the annual evaluator on every cycle; nil before the
	// first annual grant.
	LatestAnnualGrantDate *Date

	// Balance is a cache of the sum of remaining days over valid lots.
	// The lot ledger is authoritative; see Ledger.Resync.
	Balance Days

	CreatedAt time.Time
}

// =============================================================================
// LOT - One grant of leave days
// =============================================================================

type Lot struct {
	ID            string
	EmployeeID    EmployeeID
	GrantDate     Date
	GrantedDays   Days
	ExpiryDate    Date // GrantDate + expiry horizon (2 years by default)
	RemainingDays Days // 0 <= RemainingDays <= GrantedDays
	Type          GrantType
	TenureAtGrant float64 // years at grant time, informational
	CreatedAt     time.Time
}

// ValidAt reports whether the lot counts toward the balance at ref.
// The expiry boundary is strict: a lot expiring today is no longer valid.
func (l *Lot) ValidAt(ref Date) bool {
	return l.ExpiryDate.After(ref) && l.RemainingDays.IsPositive()
}

// ExpiredAt reports whether the lot has passed its expiry date.
func (l *Lot) ExpiredAt(ref Date) bool {
	return !l.ExpiryDate.After(ref)
}

// FiveDayObligation reports whether this lot puts the employee under the
// statutory obligation to use at least five days within the year.
// Applies to grants of ten days or more.
func (l *Lot) FiveDayObligation() bool {
	return !l.GrantedDays.LessThan(DaysFromInt(10))
}

// =============================================================================
// OPERATION RESULTS
// =============================================================================

// GrantResult reports a single lot creation.
type GrantResult struct {
	LotID             string
	EmployeeID        EmployeeID
	GrantDate         Date
	ExpiryDate        Date
	Days              Days
	Type              GrantType
	PreviousBalance   Days
	NewBalance        Days
	FiveDayObligation bool
}

// LotConsumption records how much was taken from one lot during a
// consumption, in FIFO order.
type LotConsumption struct {
	LotID          string
	GrantDate      Date
	Consumed       Days
	RemainingAfter Days
}

// ConsumptionResult reports a completed FIFO consumption.
type ConsumptionResult struct {
	EmployeeID    EmployeeID
	Requested     Days
	TotalConsumed Days
	Lots          []LotConsumption
	NewBalance    Days
}

// ExpiredLeave records one lot zeroed by the sweeper.
type ExpiredLeave struct {
	EmployeeID  EmployeeID
	LotID       string
	ExpiredDays Days
	ExpiryDate  Date
}

// ExpirySummary reports one sweep run. A second sweep at the same
// reference date finds nothing and reports zero expired days.
type ExpirySummary struct {
	SweptAt           Date
	TotalExpired      Days
	Expired           []ExpiredLeave
	AffectedEmployees int
	Failures          []EmployeeFailure
}

// EmployeeFailure records a per-employee error inside a batch that
// continued past it.
type EmployeeFailure struct {
	EmployeeID EmployeeID
	Err        string
}

// ExpiringLot is a lot approaching its expiry date, for warning queries.
type ExpiringLot struct {
	EmployeeID      EmployeeID
	EmployeeName    string
	LotID           string
	GrantDate       Date
	ExpiryDate      Date
	RemainingDays   Days
	DaysUntilExpiry int
}

// =============================================================================
// BATCH EVALUATION RESULTS
// =============================================================================

type EvaluationOutcome string

const (
	OutcomeGranted EvaluationOutcome = "granted"
	OutcomeSkipped EvaluationOutcome = "skipped"
	OutcomeFailed  EvaluationOutcome = "failed"
)

// Skip reasons reported by the evaluators.
const (
	SkipAttendanceBelowThreshold = "attendance below threshold"
	SkipNoEntitlement            = "no entitlement for weekly schedule"
)

// EmployeeEvaluation is the per-employee record of a batch run.
type EmployeeEvaluation struct {
	EmployeeID     EmployeeID
	Name           string
	Outcome        EvaluationOutcome
	Reason         string // skip reason or error message
	Days           Days
	AttendanceRate float64
	GrantDate      *Date
}

// BatchSummary reports one evaluator run over the whole roster.
type BatchSummary struct {
	RunID       string
	Job         string
	StartedAt   time.Time
	CompletedAt time.Time
	Targets     int
	Granted     int
	Skipped     int
	Failed      int
	Results     []EmployeeEvaluation
}

// =============================================================================
// INTEGRITY CHECK RESULTS
// =============================================================================

// IntegrityIssue reports one employee whose cached balance diverged from
// the recomputed ledger value by more than the configured epsilon.
type IntegrityIssue struct {
	EmployeeID EmployeeID
	Stored     Days
	Computed   Days
}

func (i IntegrityIssue) Drift() Days {
	return Days{Value: i.Stored.Value.Sub(i.Computed.Value).Abs()}
}

type IntegrityReport struct {
	CheckedAt Date
	Checked   int
	Issues    []IntegrityIssue
}

func (r *IntegrityReport) Clean() bool { return len(r.Issues) == 0 }
