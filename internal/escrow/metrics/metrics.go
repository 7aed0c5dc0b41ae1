package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the escrow module.
type Metrics struct {
	EscrowsCreated       prometheus.Counter
	PaymentsDeposited    prometheus.Counter
	SettlementsCompleted prometheus.Counter
	SettlementDuration   prometheus.Histogram
	SettledAmount        prometheus.Counter
}

// New creates a new Metrics instance with all escrow module metrics registered.
func New() *Metrics {
	return &Metrics{
		EscrowsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "landlock_escrows_created_total",
			Help: "Total number of escrows opened",
		}),
		PaymentsDeposited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "landlock_escrow_payments_deposited_total",
			Help: "Total number of buyer payments deposited into escrow",
		}),
		SettlementsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "landlock_settlements_completed_total",
			Help: "Total number of sales settled by a registrar",
		}),
		SettlementDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "landlock_settlement_duration_seconds",
			Help:    "Duration of Authorize operations (full re-validation plus transfer)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		SettledAmount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "landlock_settled_amount_total",
			Help: "Cumulative amount released to sellers at settlement",
		}),
	}
}

// IncrementEscrowsCreated records a new escrow.
func (m *Metrics) IncrementEscrowsCreated() {
	m.EscrowsCreated.Inc()
}

// IncrementPaymentsDeposited records a buyer deposit.
func (m *Metrics) IncrementPaymentsDeposited() {
	m.PaymentsDeposited.Inc()
}

// ObserveSettlement records a completed settlement and its duration and amount.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveSettlement(start time.Time, amount uint64) {
	m.SettlementsCompleted.Inc()
	m.SettlementDuration.Observe(time.Since(start).Seconds())
	m.SettledAmount.Add(float64(amount))
}
