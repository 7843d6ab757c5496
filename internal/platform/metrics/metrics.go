package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors a verification run updates.
type Metrics struct {
	registry *prometheus.Registry

	RequestDuration  *prometheus.HistogramVec
	RequestRetries   *prometheus.CounterVec
	StepOutcomes     *prometheus.CounterVec
	ValidationChecks *prometheus.CounterVec
	OrdersCreated    prometheus.Counter
	PaymentsVerified prometheus.Counter
}

// New creates the collectors on a private registry so that repeated runs in
// one process never collide on the default registerer.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "diagflow_backend_request_duration_seconds",
			Help:    "Latency of calls made against the backend under test",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint", "status"}),
		RequestRetries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "diagflow_backend_request_retries_total",
			Help: "Retried backend calls by endpoint",
		}, []string{"endpoint"}),
		StepOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "diagflow_step_outcomes_total",
			Help: "Flow step results by persona, step and outcome",
		}, []string{"persona", "step", "outcome"}),
		ValidationChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "diagflow_validation_checks_total",
			Help: "Consistency checks evaluated by step and result",
		}, []string{"step", "result"}),
		OrdersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "diagflow_orders_created_total",
			Help: "Orders created during verification runs",
		}),
		PaymentsVerified: f.NewCounter(prometheus.CounterOpts{
			Name: "diagflow_payments_verified_total",
			Help: "Payments verified during verification runs",
		}),
	}
}

// Registry exposes the private registry for exporters and tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records the latency of a single backend call.
func (m *Metrics) ObserveRequest(endpoint, status string, seconds float64) {
	m.RequestDuration.WithLabelValues(endpoint, status).Observe(seconds)
}

// IncrementRetries counts one retried backend call.
func (m *Metrics) IncrementRetries(endpoint string) {
	m.RequestRetries.WithLabelValues(endpoint).Inc()
}

// RecordStep counts a persona step outcome (passed, failed, skipped).
func (m *Metrics) RecordStep(persona, step, outcome string) {
	m.StepOutcomes.WithLabelValues(persona, step, outcome).Inc()
}

// RecordCheck counts one validation check result.
func (m *Metrics) RecordCheck(step string, passed bool) {
	result := "fail"
	if passed {
		result = "pass"
	}
	m.ValidationChecks.WithLabelValues(step, result).Inc()
}

// IncrementOrdersCreated increments the orders created counter by 1.
func (m *Metrics) IncrementOrdersCreated() {
	m.OrdersCreated.Inc()
}

// IncrementPaymentsVerified increments the payments verified counter by 1.
func (m *Metrics) IncrementPaymentsVerified() {
	m.PaymentsVerified.Inc()
}

// WriteTextfile dumps the current values in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
