package telemetry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusInvalid   = "invalid"
	StatusCancelled = "cancelled"
)

// Metrics provides Prometheus metrics for the nexus engine. A Metrics built
// with collection disabled accepts every call and records nothing.
type Metrics struct {
	config MetricsConfig

	// Operation metrics
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	activeOperations  prometheus.Gauge

	// Validation metrics
	validationFailures *prometheus.CounterVec

	// Monte Carlo metrics
	simulations    prometheus.Counter
	droppedSamples prometheus.Counter

	// Scenario metrics
	scenarioLoads *prometheus.CounterVec

	// Policy metrics
	policyViolations *prometheus.CounterVec

	registry *prometheus.Registry

	mu     sync.Mutex
	server *http.Server
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of engine operations by outcome",
			},
			[]string{"operation", "status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of engine operations in seconds",
				Buckets:   buckets,
			},
			[]string{"operation"},
		),
		activeOperations: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_operations",
				Help:      "Current number of running engine operations",
			},
		),
		validationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_failures_total",
				Help:      "Total number of rejected parameter sets",
			},
			[]string{"operation"},
		),
		simulations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "simulations_total",
				Help:      "Total number of Monte Carlo iterations run",
			},
		),
		droppedSamples: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "simulation_samples_dropped_total",
				Help:      "Total number of Monte Carlo samples dropped after evaluation errors",
			},
		),
		scenarioLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scenario_loads_total",
				Help:      "Total number of scenario file loads by outcome",
			},
			[]string{"status"},
		),
		policyViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_violations_total",
				Help:      "Total number of guardrail violations by policy and severity",
			},
			[]string{"policy", "severity"},
		),
	}

	registry.MustRegister(
		m.operations,
		m.operationDuration,
		m.activeOperations,
		m.validationFailures,
		m.simulations,
		m.droppedSamples,
		m.scenarioLoads,
		m.policyViolations,
	)

	return m, nil
}

// RecordOperationStarted marks an operation as running.
func (m *Metrics) RecordOperationStarted() {
	if m == nil || m.activeOperations == nil {
		return
	}
	m.activeOperations.Inc()
}

// RecordOperation records a finished operation with its status and duration.
func (m *Metrics) RecordOperation(operation, status string, duration time.Duration) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	m.activeOperations.Dec()
}

// RecordValidationFailure counts a rejected parameter set.
func (m *Metrics) RecordValidationFailure(operation string) {
	if m == nil || m.validationFailures == nil {
		return
	}
	m.validationFailures.WithLabelValues(operation).Inc()
}

// RecordSimulations counts Monte Carlo iterations and dropped samples.
func (m *Metrics) RecordSimulations(total, dropped int) {
	if m == nil || m.simulations == nil {
		return
	}
	m.simulations.Add(float64(total))
	m.droppedSamples.Add(float64(dropped))
}

// RecordScenarioLoad counts a scenario file load.
func (m *Metrics) RecordScenarioLoad(status string) {
	if m == nil || m.scenarioLoads == nil {
		return
	}
	m.scenarioLoads.WithLabelValues(status).Inc()
}

// RecordPolicyViolation counts a guardrail violation.
func (m *Metrics) RecordPolicyViolation(policy, severity string) {
	if m == nil || m.policyViolations == nil {
		return
	}
	m.policyViolations.WithLabelValues(policy, severity).Inc()
}

// Registry returns the underlying registry, or nil when collection is
// disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer serves metrics on ListenAddress in the background. It
// does nothing when metrics are disabled or no address is configured, and
// fails fast when the address cannot be bound.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled || m.config.ListenAddress == "" {
		return nil
	}

	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	listener, err := net.Listen("tcp", m.config.ListenAddress)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	m.mu.Lock()
	m.server = server
	m.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			FromContext(context.Background()).WithError(err).Error("metrics server stopped")
		}
	}()

	return nil
}

// Shutdown stops the metrics server if one is running.
func (m *Metrics) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	server := m.server
	m.server = nil
	m.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}
