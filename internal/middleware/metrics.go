package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricHTTPRequestDuration = "http_request_duration_seconds"
	MetricHTTPRequestsTotal   = "http_requests_total"
	MetricAuthFailures        = "auth_failures_total"
	MetricPromptsBlocked      = "prompts_blocked_total"
	MetricAuthzDenials        = "authz_denials_total"
	MetricFieldsMasked        = "fields_masked_total"
	MetricConfirmations       = "confirmations_total"
	MetricRateLimitBlocked    = "rate_limit_blocked_total"
)

// Metrics contains Prometheus metrics for the governance pipeline.
// All operations are thread-safe.
type Metrics struct {
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
	authFailures        *prometheus.CounterVec
	promptsBlocked      *prometheus.CounterVec
	authzDenials        *prometheus.CounterVec
	fieldsMasked        *prometheus.CounterVec
	confirmations       *prometheus.CounterVec
	rateLimitBlocked    *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricHTTPRequestDuration,
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"method", "path", "status"},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricHTTPRequestsTotal,
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		authFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricAuthFailures,
				Help: "Total number of rejected bearer tokens by reason",
			},
			[]string{"reason"},
		),
		promptsBlocked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricPromptsBlocked,
				Help: "Total number of prompts rejected by the input guard, by flag",
			},
			[]string{"flag"},
		),
		authzDenials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricAuthzDenials,
				Help: "Total number of tool invocations denied, by tool",
			},
			[]string{"tool"},
		),
		fieldsMasked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFieldsMasked,
				Help: "Total number of sensitive fields masked, by field",
			},
			[]string{"field"},
		),
		confirmations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricConfirmations,
				Help: "Total number of confirmation decisions, by outcome (approved, declined, expired)",
			},
			[]string{"outcome"},
		),
		rateLimitBlocked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRateLimitBlocked,
				Help: "Total number of rate limited requests by endpoint",
			},
			[]string{"endpoint"},
		),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveHTTPRequest records request duration and count.
func (m *Metrics) ObserveHTTPRequest(method, path, status string, duration float64) {
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": status,
	}
	m.httpRequestDuration.With(labels).Observe(duration)
	m.httpRequestsTotal.With(labels).Inc()
}

// IncAuthFailure increments the auth failure counter for a rejection reason.
func (m *Metrics) IncAuthFailure(reason string) {
	m.authFailures.WithLabelValues(reason).Inc()
}

// IncPromptBlocked increments the blocked prompt counter for each flag raised.
func (m *Metrics) IncPromptBlocked(flags []string) {
	for _, flag := range flags {
		m.promptsBlocked.WithLabelValues(flag).Inc()
	}
}

// IncAuthzDenial increments the denial counter for a tool.
func (m *Metrics) IncAuthzDenial(tool string) {
	m.authzDenials.WithLabelValues(tool).Inc()
}

// IncFieldsMasked increments the masked-field counter for each field.
func (m *Metrics) IncFieldsMasked(fields []string) {
	for _, field := range fields {
		m.fieldsMasked.WithLabelValues(field).Inc()
	}
}

// IncConfirmation increments the confirmation counter for an outcome.
func (m *Metrics) IncConfirmation(outcome string) {
	m.confirmations.WithLabelValues(outcome).Inc()
}

// IncRateLimitBlocked increments the rate limit violation counter.
func (m *Metrics) IncRateLimitBlocked(endpoint string) {
	m.rateLimitBlocked.WithLabelValues(endpoint).Inc()
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.httpRequestDuration,
		m.httpRequestsTotal,
		m.authFailures,
		m.promptsBlocked,
		m.authzDenials,
		m.fieldsMasked,
		m.confirmations,
		m.rateLimitBlocked,
	}
}
