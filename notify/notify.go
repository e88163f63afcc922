/*
Package notify defines the outbound notification boundary.

PURPOSE:
  The engine emits plain structured events when something an employee
  cares about happens (a grant, an expiry, an approaching expiry, a low
  balance). Delivery - email templates, retry, batching - is the
  collaborator's concern; the engine never blocks on delivery success
  and never observes delivery failures.

EVENTS:
  GrantOccurred   - a lot was created
  LeavesExpired   - the sweeper zeroed remaining days
  ExpiryWarning   - a lot enters a warning lead window (90/30 days)
  LowBalanceAlert - an employee's balance dropped to the alert threshold

IMPLEMENTATIONS:
  ZapNotifier - logs events; the default sink when no mail gateway is wired
  Recorder    - captures events for tests
*/
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// EVENTS
// =============================================================================

type Event interface {
	Kind() string
}

type GrantOccurred struct {
	EmployeeID        string
	EmployeeName      string
	Days              float64
	Date              time.Time
	GrantType         string
	FiveDayObligation bool
}

func (GrantOccurred) Kind() string { return "grant_occurred" }

type LeavesExpired struct {
	EmployeeID string
	Days       float64
	Date       time.Time
}

func (LeavesExpired) Kind() string { return "leaves_expired" }

type ExpiryWarning struct {
	EmployeeID    string
	EmployeeName  string
	LotID         string
	RemainingDays float64
	ExpiryDate    time.Time
	LeadDays      int
}

func (ExpiryWarning) Kind() string { return "expiry_warning" }

type LowBalanceAlert struct {
	EmployeeID   string
	EmployeeName string
	Remaining    float64
}

func (LowBalanceAlert) Kind() string { return "low_balance_alert" }

// =============================================================================
// NOTIFIER
// =============================================================================

// Notifier receives events fire-and-forget. Implementations must not
// block the caller and must not panic; a lost notification is preferable
// to a stalled ledger mutation.
type Notifier interface {
	Publish(ctx context.Context, e Event)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) {}

// =============================================================================
// ZAP NOTIFIER - Structured log sink
// =============================================================================

type ZapNotifier struct {
	log *zap.Logger
}

func NewZapNotifier(log *zap.Logger) *ZapNotifier {
	return &ZapNotifier{log: log}
}

func (n *ZapNotifier) Publish(_ context.Context, e Event) {
	switch ev := e.(type) {
	case GrantOccurred:
		n.log.Info("notification",
			zap.String("kind", ev.Kind()),
			zap.String("employee_id", ev.EmployeeID),
			zap.String("grant_type", ev.GrantType),
			zap.Float64("days", ev.Days),
			zap.Time("date", ev.Date),
			zap.Bool("five_day_obligation", ev.FiveDayObligation),
		)
	case LeavesExpired:
		n.log.Info("notification",
			zap.String("kind", ev.Kind()),
			zap.String("employee_id", ev.EmployeeID),
			zap.Float64("days", ev.Days),
			zap.Time("date", ev.Date),
		)
	case ExpiryWarning:
		n.log.Info("notification",
			zap.String("kind", ev.Kind()),
			zap.String("employee_id", ev.EmployeeID),
			zap.String("lot_id", ev.LotID),
			zap.Float64("remaining_days", ev.RemainingDays),
			zap.Time("expiry_date", ev.ExpiryDate),
			zap.Int("lead_days", ev.LeadDays),
		)
	case LowBalanceAlert:
		n.log.Info("notification",
			zap.String("kind", ev.Kind()),
			zap.String("employee_id", ev.EmployeeID),
			zap.Float64("remaining", ev.Remaining),
		)
	default:
		n.log.Info("notification", zap.String("kind", e.Kind()))
	}
}

// =============================================================================
// RECORDER - Test sink
// =============================================================================

type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Publish(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfKind filters recorded events by kind.
func (r *Recorder) OfKind(kind string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Kind() == kind {
			out = append(out, e)
		}
	}
	return out
}
