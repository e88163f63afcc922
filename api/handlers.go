/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:
  Exposes the grant-lot ledger via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Employees:
    GET    /api/employees                 List all employees
    POST   /api/employees                 Create employee
    GET    /api/employees/{id}            Get employee details
    GET    /api/employees/{id}/balance    Effective balance and valid lots
    GET    /api/employees/{id}/lots       Full grant history
    POST   /api/employees/{id}/grants     Manual/special grant
    POST   /api/employees/{id}/consume    FIFO consumption
    POST   /api/employees/{id}/resync     Rebuild the balance cache

  Admin:
    POST   /api/admin/sweep               Expiry sweep
    POST   /api/admin/run/six-month       Six-month grant batch
    POST   /api/admin/run/annual          Annual grant batch
    GET    /api/admin/integrity           Balance cache integrity check
    GET    /api/admin/low-balance         Employees at or below the threshold

  Lots:
    GET    /api/lots/expiring?days=90     Lots nearing expiry

ERROR HANDLING:
  Domain errors map to HTTP status via writeDomainError:
  - validation errors            -> 400
  - unknown employee or lot      -> 404
  - insufficient balance         -> 409
  - lock wait timeout            -> 503 (retryable)
  - anything else                -> 500

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/metrics"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// RosterStore is the persistence surface the handlers need beyond the
// engine itself: full store access plus roster writes.
type RosterStore interface {
	leave.Store
	SaveEmployee(ctx context.Context, emp leave.Employee) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     RosterStore
	Ledger    *leave.Ledger
	Evaluator *leave.Evaluator
	Metrics   *metrics.Metrics
	Logger    *zap.Logger

	// now is swapped in tests to pin the reference date.
	now func() leave.Date
}

// NewHandler creates a new handler with the given dependencies.
func NewHandler(store RosterStore, ledger *leave.Ledger, evaluator *leave.Evaluator, m *metrics.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:     store,
		Ledger:    ledger,
		Evaluator: evaluator,
		Metrics:   m,
		Logger:    logger,
		now:       leave.Today,
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := leave.EmployeeID(chi.URLParam(r, "id"))

	emp, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// CreateEmployee creates a new employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	hireDate, err := leave.ParseDate(req.HireDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hire_date format (use YYYY-MM-DD)", err)
		return
	}

	weekly := req.WeeklyWorkDays
	if weekly == 0 {
		weekly = h.Ledger.Config().DefaultWeeklyWorkDays
	}
	if weekly < 1 || weekly > 5 {
		writeError(w, http.StatusBadRequest, "weekly_work_days must be within [1, 5]", nil)
		return
	}

	emp := leave.Employee{
		ID:             leave.EmployeeID(req.ID),
		Name:           req.Name,
		HireDate:       hireDate,
		WeeklyWorkDays: weekly,
		Balance:        leave.ZeroDays(),
		CreatedAt:      time.Now().UTC(),
	}

	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// GetBalance returns the effective balance and the lots backing it.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := leave.EmployeeID(chi.URLParam(r, "id"))
	asOf := h.now()

	effective, err := h.Ledger.EffectiveRemaining(r.Context(), id, asOf)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	emp, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil || emp == nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}

	lots, err := h.Ledger.GrantHistory(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	var valid []LotDTO
	for _, lot := range lots {
		if lot.ValidAt(asOf) {
			valid = append(valid, toLotDTO(lot, asOf))
		}
	}

	writeJSON(w, http.StatusOK, BalanceDTO{
		EmployeeID: string(id),
		AsOf:       asOf.String(),
		Effective:  effective.Float64(),
		Cached:     emp.Balance.Float64(),
		ValidLots:  valid,
	})
}

// GetLots returns the full grant history, newest grant first.
func (h *Handler) GetLots(w http.ResponseWriter, r *http.Request) {
	id := leave.EmployeeID(chi.URLParam(r, "id"))
	asOf := h.now()

	lots, err := h.Ledger.GrantHistory(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]LotDTO, len(lots))
	for i, lot := range lots {
		dtos[i] = toLotDTO(lot, asOf)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateGrant creates a manual or special grant lot.
func (h *Handler) CreateGrant(w http.ResponseWriter, r *http.Request) {
	id := leave.EmployeeID(chi.URLParam(r, "id"))

	var req GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	grantDate := h.now()
	if req.GrantDate != "" {
		var err error
		if grantDate, err = leave.ParseDate(req.GrantDate); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid grant_date format (use YYYY-MM-DD)", err)
			return
		}
	}

	gt := leave.GrantType(req.Type)
	if req.Type == "" {
		gt = leave.GrantManual
	}
	// The scheduled evaluators own initial and annual grants.
	if gt != leave.GrantManual && gt != leave.GrantSpecial {
		writeError(w, http.StatusBadRequest, "type must be manual or special", nil)
		return
	}

	emp, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	var tenure float64
	if emp != nil {
		tenure = leave.YearsBetween(emp.HireDate, grantDate)
	}

	result, err := h.Ledger.Grant(r.Context(), id, grantDate, leave.NewDays(req.Days), gt, tenure)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	if h.Metrics != nil {
		h.Metrics.GrantsTotal.WithLabelValues(string(gt)).Inc()
	}
	writeJSON(w, http.StatusCreated, toGrantResultDTO(result))
}

// Consume draws down the requested days oldest lot first.
func (h *Handler) Consume(w http.ResponseWriter, r *http.Request) {
	id := leave.EmployeeID(chi.URLParam(r, "id"))

	var req ConsumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Ledger.Consume(r.Context(), id, leave.NewDays(req.Days), h.now())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	if h.Metrics != nil {
		h.Metrics.ConsumedDaysTotal.Add(result.TotalConsumed.Float64())
	}
	writeJSON(w, http.StatusOK, toConsumptionDTO(result))
}

// Resync rebuilds the balance cache from the lot ledger.
func (h *Handler) Resync(w http.ResponseWriter, r *http.Request) {
	id := leave.EmployeeID(chi.URLParam(r, "id"))

	balance, err := h.Ledger.Resync(r.Context(), id, h.now())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ResyncDTO{EmployeeID: string(id), Balance: balance.Float64()})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// TriggerSweep runs an expiry sweep at today's date.
func (h *Handler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Ledger.Sweep(r.Context(), h.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Sweep failed", err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.SweepsTotal.Inc()
		h.Metrics.ExpiredDaysTotal.Add(summary.TotalExpired.Float64())
	}
	writeJSON(w, http.StatusOK, toSweepDTO(summary))
}

// RunSixMonth runs the six-month grant batch.
func (h *Handler) RunSixMonth(w http.ResponseWriter, r *http.Request) {
	h.runBatch(w, r, h.Evaluator.RunSixMonthCheck)
}

// RunAnnual runs the annual grant batch.
func (h *Handler) RunAnnual(w http.ResponseWriter, r *http.Request) {
	h.runBatch(w, r, h.Evaluator.RunAnnualProcess)
}

func (h *Handler) runBatch(w http.ResponseWriter, r *http.Request, run func(context.Context, leave.Date) (*leave.BatchSummary, error)) {
	summary, err := run(r.Context(), h.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Batch run failed", err)
		return
	}
	h.recordBatch(summary)
	writeJSON(w, http.StatusOK, toBatchSummaryDTO(summary))
}

func (h *Handler) recordBatch(summary *leave.BatchSummary) {
	if h.Metrics == nil {
		return
	}
	h.Metrics.BatchDuration.WithLabelValues(summary.Job).
		Observe(summary.CompletedAt.Sub(summary.StartedAt).Seconds())

	grantType := leave.GrantAnnual
	if summary.Job == "six_month_grant" {
		grantType = leave.GrantInitial
	}
	for _, ev := range summary.Results {
		switch ev.Outcome {
		case leave.OutcomeGranted:
			h.Metrics.GrantsTotal.WithLabelValues(string(grantType)).Inc()
		case leave.OutcomeSkipped:
			h.Metrics.GrantSkipsTotal.WithLabelValues(ev.Reason).Inc()
		}
	}
}

// CheckIntegrity compares cached balances against the lot ledger.
func (h *Handler) CheckIntegrity(w http.ResponseWriter, r *http.Request) {
	report, err := h.Ledger.CheckIntegrity(r.Context(), h.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Integrity check failed", err)
		return
	}
	if h.Metrics != nil && !report.Clean() {
		h.Metrics.IntegrityWarnings.Add(float64(len(report.Issues)))
	}
	writeJSON(w, http.StatusOK, toIntegrityDTO(report))
}

// ListLowBalance returns employees with a positive balance at or below
// the configured threshold.
func (h *Handler) ListLowBalance(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Ledger.LowBalanceEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list low balances", err)
		return
	}
	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListExpiring returns lots expiring within ?days (default 90).
func (h *Handler) ListExpiring(w http.ResponseWriter, r *http.Request) {
	days := 90
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer", err)
			return
		}
		days = parsed
	}

	lots, err := h.Ledger.ExpiringWithin(r.Context(), h.now(), days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list expiring lots", err)
		return
	}

	dtos := make([]ExpiringLotDTO, len(lots))
	for i, lot := range lots {
		dtos[i] = ExpiringLotDTO{
			EmployeeID:      string(lot.EmployeeID),
			EmployeeName:    lot.EmployeeName,
			LotID:           lot.LotID,
			GrantDate:       lot.GrantDate.String(),
			ExpiryDate:      lot.ExpiryDate.String(),
			RemainingDays:   lot.RemainingDays.Float64(),
			DaysUntilExpiry: lot.DaysUntilExpiry,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var insufficient *leave.InsufficientBalanceError
	var lockTimeout *leave.LockTimeoutError

	switch {
	case leave.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, leave.ErrValidation):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	case errors.As(err, &insufficient):
		writeError(w, http.StatusConflict, "Insufficient balance", err)
	case errors.As(err, &lockTimeout):
		if h.Metrics != nil {
			h.Metrics.LockTimeoutsTotal.Inc()
		}
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "Employee ledger busy, retry", err)
	default:
		h.Logger.Error("unhandled domain error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
