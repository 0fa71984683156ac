package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the wizard service
type Metrics struct {
	SessionsCreated prometheus.Counter
	ActiveSessions  prometheus.Gauge
	SearchRequests  prometheus.Counter
	SearchFailures  prometheus.Counter
	PassportLookups *prometheus.CounterVec
	PoliciesIssued  prometheus.Counter
	IssueFailures   prometheus.Counter
	PaymentChecks   prometheus.Counter
	PaymentsPaid    prometheus.Counter
	EndpointLatency *prometheus.HistogramVec
}

var (
	instance *Metrics
	once     sync.Once
)

// New creates and registers all Prometheus metrics. Collectors register
// against the default registry, so the instance is a process-wide singleton.
func New() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
				Name: "wizard_sessions_created_total",
				Help: "Total number of wizard sessions created",
			}),
			ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "wizard_active_sessions",
				Help: "Current number of wizard sessions held in memory",
			}),
			SearchRequests: promauto.NewCounter(prometheus.CounterOpts{
				Name: "wizard_search_requests_total",
				Help: "Total number of quote searches started",
			}),
			SearchFailures: promauto.NewCounter(prometheus.CounterOpts{
				Name: "wizard_search_failures_total",
				Help: "Total number of quote searches that ended in an error",
			}),
			PassportLookups: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "wizard_passport_lookups_total",
				Help: "Total number of passport lookups, labeled by outcome",
			}, []string{"outcome"}),
			PoliciesIssued: promauto.NewCounter(prometheus.CounterOpts{
				Name: "wizard_policies_issued_total",
				Help: "Total number of policies issued successfully",
			}),
			IssueFailures: promauto.NewCounter(prometheus.CounterOpts{
				Name: "wizard_issue_failures_total",
				Help: "Total number of failed issuance attempts",
			}),
			PaymentChecks: promauto.NewCounter(prometheus.CounterOpts{
				Name: "wizard_payment_checks_total",
				Help: "Total number of payment status polls",
			}),
			PaymentsPaid: promauto.NewCounter(prometheus.CounterOpts{
				Name: "wizard_payments_paid_total",
				Help: "Total number of policies confirmed paid",
			}),
			EndpointLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "wizard_endpoint_latency_seconds",
				Help:    "Latency of endpoints in seconds",
				Buckets: prometheus.DefBuckets,
			}, []string{"endpoint"}),
		}
	})
	return instance
}

func (m *Metrics) IncrementSessionsCreated() {
	m.SessionsCreated.Inc()
}

func (m *Metrics) IncrementActiveSessions(count int) {
	m.ActiveSessions.Add(float64(count))
}

func (m *Metrics) DecrementActiveSessions(count int) {
	m.ActiveSessions.Sub(float64(count))
}

func (m *Metrics) IncrementSearchRequests() {
	m.SearchRequests.Inc()
}

func (m *Metrics) IncrementSearchFailures() {
	m.SearchFailures.Inc()
}

// IncrementPassportLookups records one lookup with its outcome label
// ("applied", "rejected" or "error").
func (m *Metrics) IncrementPassportLookups(outcome string) {
	m.PassportLookups.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementPoliciesIssued() {
	m.PoliciesIssued.Inc()
}

func (m *Metrics) IncrementIssueFailures() {
	m.IssueFailures.Inc()
}

func (m *Metrics) IncrementPaymentChecks() {
	m.PaymentChecks.Inc()
}

func (m *Metrics) IncrementPaymentsPaid() {
	m.PaymentsPaid.Inc()
}

// ObserveEndpointLatency records the latency for a given endpoint
func (m *Metrics) ObserveEndpointLatency(endpoint string, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(endpoint).Observe(durationSeconds)
}
