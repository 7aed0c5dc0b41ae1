package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the agreement module.
type Metrics struct {
	AgreementsDrafted   prometheus.Counter
	AgreementsSigned    prometheus.Counter
	AgreementsCancelled prometheus.Counter
	DraftDuration       prometheus.Histogram
}

// New creates a new Metrics instance with all agreement module metrics registered.
func New() *Metrics {
	return &Metrics{
		AgreementsDrafted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "landlock_agreements_drafted_total",
			Help: "Total number of sale agreements drafted",
		}),
		AgreementsSigned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "landlock_agreements_signed_total",
			Help: "Total number of sale agreements signed by buyers",
		}),
		AgreementsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "landlock_agreements_cancelled_total",
			Help: "Total number of sale agreements cancelled",
		}),
		DraftDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "landlock_agreement_draft_duration_seconds",
			Help:    "Duration of Draft operations (precondition checks plus ledger tx)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementDrafted records a successful draft.
func (m *Metrics) IncrementDrafted() {
	m.AgreementsDrafted.Inc()
}

// IncrementSigned records a successful buyer signature.
func (m *Metrics) IncrementSigned() {
	m.AgreementsSigned.Inc()
}

// IncrementCancelled records a cancellation.
func (m *Metrics) IncrementCancelled() {
	m.AgreementsCancelled.Inc()
}

// ObserveDraft records the duration of a Draft operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveDraft(start time.Time) {
	m.DraftDuration.Observe(time.Since(start).Seconds())
}
