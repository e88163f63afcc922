/*
scheduler.go - Scheduled batch jobs

PURPOSE:
  Runs the engine's recurring work on background tickers:
  - Expiry sweep: zero out lots past their expiry date
  - Six-month check: initial grants for employees passing six months
  - Annual process: recurring yearly grants
  - Daily maintenance: integrity check, expiry warnings, low-balance
    alerts

DESIGN:
  - One goroutine per job, each on its own ticker
  - Every job also fires once at startup
  - Expiry warnings are deduplicated per (lot, lead) so each lot warns
    once per configured lead, not once per day

USAGE:
  scheduler := NewBatchScheduler(ledger, evaluator, notifier, m, logger, opts)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: The same operations exposed for manual triggering
  - leave/expiry.go: Sweep, ExpiringWithin, CheckIntegrity
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/metrics"
	"github.com/warp/leave-engine/notify"
)

// SchedulerOptions sets the cadence of each background job. Zero
// intervals disable the corresponding job.
type SchedulerOptions struct {
	SweepInterval       time.Duration
	SixMonthInterval    time.Duration
	AnnualInterval      time.Duration
	MaintenanceInterval time.Duration
	WarningLeadDays     []int
}

// DefaultSchedulerOptions runs everything daily with 90- and 30-day
// expiry warnings.
func DefaultSchedulerOptions() SchedulerOptions {
	return SchedulerOptions{
		SweepInterval:       24 * time.Hour,
		SixMonthInterval:    24 * time.Hour,
		AnnualInterval:      24 * time.Hour,
		MaintenanceInterval: 24 * time.Hour,
		WarningLeadDays:     []int{90, 30},
	}
}

// BatchScheduler owns the background jobs.
type BatchScheduler struct {
	Ledger    *leave.Ledger
	Evaluator *leave.Evaluator
	Notifier  notify.Notifier
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	Options   SchedulerOptions

	// now is swapped in tests to pin the reference date.
	now func() leave.Date

	mu     sync.Mutex
	warned map[string]bool // (lotID, lead) pairs already warned
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewBatchScheduler creates a scheduler. A nil notifier discards events.
func NewBatchScheduler(ledger *leave.Ledger, evaluator *leave.Evaluator, notifier notify.Notifier, m *metrics.Metrics, logger *zap.Logger, opts SchedulerOptions) *BatchScheduler {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchScheduler{
		Ledger:    ledger,
		Evaluator: evaluator,
		Notifier:  notifier,
		Metrics:   m,
		Logger:    logger,
		Options:   opts,
		now:       leave.Today,
		warned:    make(map[string]bool),
		stop:      make(chan struct{}),
	}
}

// Start launches the background jobs.
func (s *BatchScheduler) Start() {
	s.launch("sweep", s.Options.SweepInterval, s.runSweep)
	s.launch("six_month_grant", s.Options.SixMonthInterval, s.runSixMonth)
	s.launch("annual_grant", s.Options.AnnualInterval, s.runAnnual)
	s.launch("maintenance", s.Options.MaintenanceInterval, s.runMaintenance)
}

// Stop stops all jobs and waits for in-flight runs to finish.
func (s *BatchScheduler) Stop() {
	close(s.stop)
	s.wg.Wait()
	s.Logger.Info("scheduler stopped")
}

func (s *BatchScheduler) launch(name string, interval time.Duration, job func(context.Context)) {
	if interval <= 0 {
		s.Logger.Info("scheduled job disabled", zap.String("job", name))
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.Logger.Info("scheduled job started",
			zap.String("job", name), zap.Duration("interval", interval))

		// Run immediately on start
		job(context.Background())

		for {
			select {
			case <-ticker.C:
				job(context.Background())
			case <-s.stop:
				return
			}
		}
	}()
}

// =============================================================================
// JOBS
// =============================================================================

func (s *BatchScheduler) runSweep(ctx context.Context) {
	summary, err := s.Ledger.Sweep(ctx, s.now())
	if err != nil {
		s.Logger.Error("expiry sweep failed", zap.Error(err))
		return
	}
	if s.Metrics != nil {
		s.Metrics.SweepsTotal.Inc()
		s.Metrics.ExpiredDaysTotal.Add(summary.TotalExpired.Float64())
	}
	if summary.TotalExpired.IsPositive() || len(summary.Failures) > 0 {
		s.Logger.Info("expiry sweep completed",
			zap.String("expired_days", summary.TotalExpired.String()),
			zap.Int("affected_employees", summary.AffectedEmployees),
			zap.Int("failures", len(summary.Failures)))
	}
}

func (s *BatchScheduler) runSixMonth(ctx context.Context) {
	s.runEvaluator(ctx, "six_month_grant", s.Evaluator.RunSixMonthCheck)
}

func (s *BatchScheduler) runAnnual(ctx context.Context) {
	s.runEvaluator(ctx, "annual_grant", s.Evaluator.RunAnnualProcess)
}

func (s *BatchScheduler) runEvaluator(ctx context.Context, name string, run func(context.Context, leave.Date) (*leave.BatchSummary, error)) {
	summary, err := run(ctx, s.now())
	if err != nil {
		s.Logger.Error("grant batch failed", zap.String("job", name), zap.Error(err))
		return
	}
	if s.Metrics != nil {
		s.Metrics.BatchDuration.WithLabelValues(summary.Job).
			Observe(summary.CompletedAt.Sub(summary.StartedAt).Seconds())
		for _, ev := range summary.Results {
			if ev.Outcome == leave.OutcomeSkipped {
				s.Metrics.GrantSkipsTotal.WithLabelValues(ev.Reason).Inc()
			}
		}
	}
	if summary.Targets > 0 {
		s.Logger.Info("grant batch completed",
			zap.String("job", name),
			zap.String("run_id", summary.RunID),
			zap.Int("targets", summary.Targets),
			zap.Int("granted", summary.Granted),
			zap.Int("skipped", summary.Skipped),
			zap.Int("failed", summary.Failed))
	}
}

// runMaintenance performs the daily housekeeping pass: balance cache
// integrity, expiry warnings, and low-balance alerts.
func (s *BatchScheduler) runMaintenance(ctx context.Context) {
	today := s.now()

	report, err := s.Ledger.CheckIntegrity(ctx, today)
	if err != nil {
		s.Logger.Error("integrity check failed", zap.Error(err))
	} else if !report.Clean() {
		if s.Metrics != nil {
			s.Metrics.IntegrityWarnings.Add(float64(len(report.Issues)))
		}
		for _, issue := range report.Issues {
			s.Logger.Warn("balance cache drift",
				zap.String("employee_id", string(issue.EmployeeID)),
				zap.String("stored", issue.Stored.String()),
				zap.String("computed", issue.Computed.String()))
		}
	}

	s.sendExpiryWarnings(ctx, today)
	s.sendLowBalanceAlerts(ctx)
}

func (s *BatchScheduler) sendExpiryWarnings(ctx context.Context, today leave.Date) {
	leads := s.Options.WarningLeadDays
	if len(leads) == 0 {
		return
	}

	maxLead := leads[0]
	for _, lead := range leads[1:] {
		if lead > maxLead {
			maxLead = lead
		}
	}

	lots, err := s.Ledger.ExpiringWithin(ctx, today, maxLead)
	if err != nil {
		s.Logger.Error("expiry warning query failed", zap.Error(err))
		return
	}

	for _, lot := range lots {
		for _, lead := range leads {
			if lot.DaysUntilExpiry > lead {
				continue
			}
			key := fmt.Sprintf("%s:%d", lot.LotID, lead)
			s.mu.Lock()
			seen := s.warned[key]
			if !seen {
				s.warned[key] = true
			}
			s.mu.Unlock()
			if seen {
				continue
			}
			s.Notifier.Publish(ctx, notify.ExpiryWarning{
				EmployeeID:    string(lot.EmployeeID),
				EmployeeName:  lot.EmployeeName,
				LotID:         lot.LotID,
				RemainingDays: lot.RemainingDays.Float64(),
				ExpiryDate:    lot.ExpiryDate.Time(),
				LeadDays:      lead,
			})
		}
	}
}

func (s *BatchScheduler) sendLowBalanceAlerts(ctx context.Context) {
	employees, err := s.Ledger.LowBalanceEmployees(ctx)
	if err != nil {
		s.Logger.Error("low balance query failed", zap.Error(err))
		return
	}
	for _, emp := range employees {
		s.Notifier.Publish(ctx, notify.LowBalanceAlert{
			EmployeeID:   string(emp.ID),
			EmployeeName: emp.Name,
			Remaining:    emp.Balance.Float64(),
		})
	}
}
