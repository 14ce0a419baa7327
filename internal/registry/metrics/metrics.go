package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the charity registry.
type Metrics struct {
	ProjectsRegistered prometheus.Counter
	ProjectsVerified   prometheus.Counter
	Donations          prometheus.Counter
	DonatedAmount      prometheus.Counter
	OperationFailures  *prometheus.CounterVec
	TxDuration         *prometheus.HistogramVec
	ReconcileRuns      prometheus.Counter
	ReconcileDrift     prometheus.Gauge
}

// New registers the registry metrics on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProjectsRegistered: factory.NewCounter(prometheus.CounterOpts{
			Name: "charity_projects_registered_total",
			Help: "Total number of projects registered",
		}),
		ProjectsVerified: factory.NewCounter(prometheus.CounterOpts{
			Name: "charity_projects_verified_total",
			Help: "Total number of projects verified",
		}),
		Donations: factory.NewCounter(prometheus.CounterOpts{
			Name: "charity_donations_total",
			Help: "Total number of accepted donations",
		}),
		DonatedAmount: factory.NewCounter(prometheus.CounterOpts{
			Name: "charity_donated_amount_total",
			Help: "Sum of accepted donation amounts",
		}),
		OperationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "charity_operation_failures_total",
			Help: "Failed registry operations by operation and error code",
		}, []string{"operation", "code"}),
		TxDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "charity_tx_duration_seconds",
			Help:    "Duration of registry transactions",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
		}, []string{"operation"}),
		ReconcileRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "charity_reconcile_runs_total",
			Help: "Completed aggregate reconciliation runs",
		}),
		ReconcileDrift: factory.NewGauge(prometheus.GaugeOpts{
			Name: "charity_reconcile_drift",
			Help: "1 when the last reconciliation found the stored aggregate out of step with records",
		}),
	}
}

func (m *Metrics) IncrementRegistered() {
	m.ProjectsRegistered.Inc()
}

func (m *Metrics) IncrementVerified() {
	m.ProjectsVerified.Inc()
}

// RecordDonation counts one donation of amount units.
func (m *Metrics) RecordDonation(amount uint64) {
	m.Donations.Inc()
	m.DonatedAmount.Add(float64(amount))
}

func (m *Metrics) IncrementFailure(operation, code string) {
	m.OperationFailures.WithLabelValues(operation, code).Inc()
}

// ObserveTx records the duration of a transaction started at start.
func (m *Metrics) ObserveTx(operation string, start time.Time) {
	m.TxDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) RecordReconcile(drifted bool) {
	m.ReconcileRuns.Inc()
	if drifted {
		m.ReconcileDrift.Set(1)
		return
	}
	m.ReconcileDrift.Set(0)
}
