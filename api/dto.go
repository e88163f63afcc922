/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// EMPLOYEE TYPES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID                    string  `json:"id"`
	Name                  string  `json:"name"`
	HireDate              string  `json:"hire_date"`
	WeeklyWorkDays        int     `json:"weekly_work_days"`
	InitialGrantDate      *string `json:"initial_grant_date,omitempty"`
	LatestAnnualGrantDate *string `json:"latest_annual_grant_date,omitempty"`
	Balance               float64 `json:"balance"`
	CreatedAt             string  `json:"created_at,omitempty"`
}

// CreateEmployeeRequest is the body for POST /api/employees.
type CreateEmployeeRequest struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	HireDate       string `json:"hire_date"` // YYYY-MM-DD
	WeeklyWorkDays int    `json:"weekly_work_days"`
}

// =============================================================================
// LEDGER TYPES
// =============================================================================

// LotDTO represents one grant lot in API responses.
type LotDTO struct {
	ID                string  `json:"id"`
	GrantDate         string  `json:"grant_date"`
	GrantedDays       float64 `json:"granted_days"`
	ExpiryDate        string  `json:"expiry_date"`
	RemainingDays     float64 `json:"remaining_days"`
	Type              string  `json:"type"`
	TenureAtGrant     float64 `json:"tenure_at_grant"`
	FiveDayObligation bool    `json:"five_day_obligation"`
	Expired           bool    `json:"expired"`
}

// BalanceDTO is the response for GET /api/employees/{id}/balance.
type BalanceDTO struct {
	EmployeeID string   `json:"employee_id"`
	AsOf       string   `json:"as_of"`
	Effective  float64  `json:"effective_balance"`
	Cached     float64  `json:"cached_balance"`
	ValidLots  []LotDTO `json:"valid_lots"`
}

// GrantRequest is the body for POST /api/employees/{id}/grants.
type GrantRequest struct {
	GrantDate string  `json:"grant_date"` // YYYY-MM-DD, defaults to today
	Days      float64 `json:"days"`
	Type      string  `json:"type"` // manual or special
}

// GrantResultDTO reports a created lot.
type GrantResultDTO struct {
	LotID             string  `json:"lot_id"`
	EmployeeID        string  `json:"employee_id"`
	GrantDate         string  `json:"grant_date"`
	ExpiryDate        string  `json:"expiry_date"`
	Days              float64 `json:"days"`
	Type              string  `json:"type"`
	PreviousBalance   float64 `json:"previous_balance"`
	NewBalance        float64 `json:"new_balance"`
	FiveDayObligation bool    `json:"five_day_obligation"`
}

// ConsumeRequest is the body for POST /api/employees/{id}/consume.
type ConsumeRequest struct {
	Days float64 `json:"days"`
}

// LotConsumptionDTO records the draw-down of one lot, in FIFO order.
type LotConsumptionDTO struct {
	LotID          string  `json:"lot_id"`
	GrantDate      string  `json:"grant_date"`
	Consumed       float64 `json:"consumed"`
	RemainingAfter float64 `json:"remaining_after"`
}

// ConsumptionDTO is the response for a successful consumption.
type ConsumptionDTO struct {
	EmployeeID    string              `json:"employee_id"`
	Requested     float64             `json:"requested"`
	TotalConsumed float64             `json:"total_consumed"`
	Lots          []LotConsumptionDTO `json:"lots"`
	NewBalance    float64             `json:"new_balance"`
}

// ResyncDTO is the response for POST /api/employees/{id}/resync.
type ResyncDTO struct {
	EmployeeID string  `json:"employee_id"`
	Balance    float64 `json:"balance"`
}

// =============================================================================
// ADMIN / BATCH TYPES
// =============================================================================

// SweepDTO reports one expiry sweep.
type SweepDTO struct {
	SweptAt           string            `json:"swept_at"`
	TotalExpired      float64           `json:"total_expired"`
	AffectedEmployees int               `json:"affected_employees"`
	Expired           []ExpiredLotDTO   `json:"expired"`
	Failures          []BatchFailureDTO `json:"failures,omitempty"`
}

type ExpiredLotDTO struct {
	EmployeeID  string  `json:"employee_id"`
	LotID       string  `json:"lot_id"`
	ExpiredDays float64 `json:"expired_days"`
	ExpiryDate  string  `json:"expiry_date"`
}

type BatchFailureDTO struct {
	EmployeeID string `json:"employee_id"`
	Error      string `json:"error"`
}

// BatchSummaryDTO reports one evaluator run.
type BatchSummaryDTO struct {
	RunID       string          `json:"run_id"`
	Job         string          `json:"job"`
	StartedAt   string          `json:"started_at"`
	CompletedAt string          `json:"completed_at"`
	Targets     int             `json:"targets"`
	Granted     int             `json:"granted"`
	Skipped     int             `json:"skipped"`
	Failed      int             `json:"failed"`
	Results     []EvaluationDTO `json:"results"`
}

type EvaluationDTO struct {
	EmployeeID     string  `json:"employee_id"`
	Name           string  `json:"name"`
	Outcome        string  `json:"outcome"`
	Reason         string  `json:"reason,omitempty"`
	Days           float64 `json:"days,omitempty"`
	AttendanceRate float64 `json:"attendance_rate"`
	GrantDate      *string `json:"grant_date,omitempty"`
}

// ExpiringLotDTO is one row of GET /api/lots/expiring.
type ExpiringLotDTO struct {
	EmployeeID      string  `json:"employee_id"`
	EmployeeName    string  `json:"employee_name"`
	LotID           string  `json:"lot_id"`
	GrantDate       string  `json:"grant_date"`
	ExpiryDate      string  `json:"expiry_date"`
	RemainingDays   float64 `json:"remaining_days"`
	DaysUntilExpiry int     `json:"days_until_expiry"`
}

// IntegrityDTO is the response for GET /api/admin/integrity.
type IntegrityDTO struct {
	CheckedAt string              `json:"checked_at"`
	Checked   int                 `json:"checked"`
	Clean     bool                `json:"clean"`
	Issues    []IntegrityIssueDTO `json:"issues,omitempty"`
}

type IntegrityIssueDTO struct {
	EmployeeID string  `json:"employee_id"`
	Stored     float64 `json:"stored"`
	Computed   float64 `json:"computed"`
	Drift      float64 `json:"drift"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toEmployeeDTO(e leave.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:                    string(e.ID),
		Name:                  e.Name,
		HireDate:              e.HireDate.String(),
		WeeklyWorkDays:        e.WeeklyWorkDays,
		InitialGrantDate:      dateStr(e.InitialGrantDate),
		LatestAnnualGrantDate: dateStr(e.LatestAnnualGrantDate),
		Balance:               e.Balance.Float64(),
		CreatedAt:             formatTime(e.CreatedAt),
	}
}

func toLotDTO(l leave.Lot, asOf leave.Date) LotDTO {
	return LotDTO{
		ID:                l.ID,
		GrantDate:         l.GrantDate.String(),
		GrantedDays:       l.GrantedDays.Float64(),
		ExpiryDate:        l.ExpiryDate.String(),
		RemainingDays:     l.RemainingDays.Float64(),
		Type:              string(l.Type),
		TenureAtGrant:     l.TenureAtGrant,
		FiveDayObligation: l.FiveDayObligation(),
		Expired:           l.ExpiredAt(asOf),
	}
}

func toGrantResultDTO(r *leave.GrantResult) GrantResultDTO {
	return GrantResultDTO{
		LotID:             r.LotID,
		EmployeeID:        string(r.EmployeeID),
		GrantDate:         r.GrantDate.String(),
		ExpiryDate:        r.ExpiryDate.String(),
		Days:              r.Days.Float64(),
		Type:              string(r.Type),
		PreviousBalance:   r.PreviousBalance.Float64(),
		NewBalance:        r.NewBalance.Float64(),
		FiveDayObligation: r.FiveDayObligation,
	}
}

func toConsumptionDTO(r *leave.ConsumptionResult) ConsumptionDTO {
	lots := make([]LotConsumptionDTO, len(r.Lots))
	for i, lc := range r.Lots {
		lots[i] = LotConsumptionDTO{
			LotID:          lc.LotID,
			GrantDate:      lc.GrantDate.String(),
			Consumed:       lc.Consumed.Float64(),
			RemainingAfter: lc.RemainingAfter.Float64(),
		}
	}
	return ConsumptionDTO{
		EmployeeID:    string(r.EmployeeID),
		Requested:     r.Requested.Float64(),
		TotalConsumed: r.TotalConsumed.Float64(),
		Lots:          lots,
		NewBalance:    r.NewBalance.Float64(),
	}
}

func toSweepDTO(s *leave.ExpirySummary) SweepDTO {
	expired := make([]ExpiredLotDTO, len(s.Expired))
	for i, e := range s.Expired {
		expired[i] = ExpiredLotDTO{
			EmployeeID:  string(e.EmployeeID),
			LotID:       e.LotID,
			ExpiredDays: e.ExpiredDays.Float64(),
			ExpiryDate:  e.ExpiryDate.String(),
		}
	}
	var failures []BatchFailureDTO
	for _, f := range s.Failures {
		failures = append(failures, BatchFailureDTO{EmployeeID: string(f.EmployeeID), Error: f.Err})
	}
	return SweepDTO{
		SweptAt:           s.SweptAt.String(),
		TotalExpired:      s.TotalExpired.Float64(),
		AffectedEmployees: s.AffectedEmployees,
		Expired:           expired,
		Failures:          failures,
	}
}

func toBatchSummaryDTO(s *leave.BatchSummary) BatchSummaryDTO {
	results := make([]EvaluationDTO, len(s.Results))
	for i, ev := range s.Results {
		results[i] = EvaluationDTO{
			EmployeeID:     string(ev.EmployeeID),
			Name:           ev.Name,
			Outcome:        string(ev.Outcome),
			Reason:         ev.Reason,
			Days:           ev.Days.Float64(),
			AttendanceRate: ev.AttendanceRate,
			GrantDate:      dateStr(ev.GrantDate),
		}
	}
	return BatchSummaryDTO{
		RunID:       s.RunID,
		Job:         s.Job,
		StartedAt:   formatTime(s.StartedAt),
		CompletedAt: formatTime(s.CompletedAt),
		Targets:     s.Targets,
		Granted:     s.Granted,
		Skipped:     s.Skipped,
		Failed:      s.Failed,
		Results:     results,
	}
}

func toIntegrityDTO(r *leave.IntegrityReport) IntegrityDTO {
	var issues []IntegrityIssueDTO
	for _, i := range r.Issues {
		issues = append(issues, IntegrityIssueDTO{
			EmployeeID: string(i.EmployeeID),
			Stored:     i.Stored.Float64(),
			Computed:   i.Computed.Float64(),
			Drift:      i.Drift().Float64(),
		})
	}
	return IntegrityDTO{
		CheckedAt: r.CheckedAt.String(),
		Checked:   r.Checked,
		Clean:     r.Clean(),
		Issues:    issues,
	}
}

func dateStr(d *leave.Date) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
