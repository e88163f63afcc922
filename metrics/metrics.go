/*
Package metrics defines the Prometheus instrumentation for the leave engine.

PURPOSE:
  One Metrics struct owns every collector so wiring stays explicit:
  construct it once in main with the default registerer, or per-test
  with a fresh registry to avoid duplicate-registration panics.

SEE ALSO:
  - api/scheduler.go: batch jobs record durations and counters here
  - api/handlers.go:  consumption and grant endpoints record outcomes
*/
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	GrantsTotal        *prometheus.CounterVec
	GrantSkipsTotal    *prometheus.CounterVec
	ConsumedDaysTotal  prometheus.Counter
	ExpiredDaysTotal   prometheus.Counter
	SweepsTotal        prometheus.Counter
	IntegrityWarnings  prometheus.Counter
	LockTimeoutsTotal  prometheus.Counter
	BatchDuration      *prometheus.HistogramVec
}

// New registers all collectors with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		GrantsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "leave_grants_total",
			Help: "Grant lots created, by grant type.",
		}, []string{"type"}),

		GrantSkipsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "leave_grant_skips_total",
			Help: "Employees skipped during a grant run, by reason.",
		}, []string{"reason"}),

		ConsumedDaysTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "leave_consumed_days_total",
			Help: "Leave days consumed across all employees.",
		}),

		ExpiredDaysTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "leave_expired_days_total",
			Help: "Leave days forfeited by the expiry sweeper.",
		}),

		SweepsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "leave_sweeps_total",
			Help: "Expiry sweeps completed.",
		}),

		IntegrityWarnings: f.NewCounter(prometheus.CounterOpts{
			Name: "leave_integrity_warnings_total",
			Help: "Balance cache drifts detected by the integrity check.",
		}),

		LockTimeoutsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "leave_lock_timeouts_total",
			Help: "Operations that gave up waiting for an employee lock.",
		}),

		BatchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "leave_batch_duration_seconds",
			Help:    "Wall-clock duration of scheduled batch jobs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
	}
}
