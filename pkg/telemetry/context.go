package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry bundles the logger, tracer and metrics of one process.
type Telemetry struct {
	Logger  *Logger
	Tracer  *Tracer
	Metrics *Metrics
	Config  *Config
}

type telemetryContextKey struct{}

// NewTelemetry validates cfg and builds every component.
func NewTelemetry(cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		return nil, err
	}
	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	return &Telemetry{Logger: logger, Tracer: tracer, Metrics: metrics, Config: cfg}, nil
}

// NewNoop returns telemetry that discards logs and spans. Metrics still
// count, in a private registry, so tests can assert on them.
func NewNoop() *Telemetry {
	cfg := DefaultConfig()
	tracer, _ := NewTracer(TracingConfig{}, cfg.ServiceName, cfg.ServiceVersion)
	metrics, _ := NewMetrics(cfg.Metrics)
	return &Telemetry{Logger: NopLogger(), Tracer: tracer, Metrics: metrics, Config: cfg}
}

// WithContext stores t and its logger in ctx.
func (t *Telemetry) WithContext(ctx context.Context) context.Context {
	return t.Logger.WithContext(context.WithValue(ctx, telemetryContextKey{}, t))
}

// FromTelemetryContext returns the telemetry stored in ctx, or nil.
func FromTelemetryContext(ctx context.Context) *Telemetry {
	t, _ := ctx.Value(telemetryContextKey{}).(*Telemetry)
	return t
}

// StartMetricsServer serves metrics when an address is configured.
func (t *Telemetry) StartMetricsServer() error {
	return t.Metrics.StartMetricsServer()
}

// Shutdown stops the metrics server and flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(t.Metrics.Shutdown(ctx), t.Tracer.Shutdown(ctx))
}

// InstrumentedContext is one running engine operation: its span, its
// tagged logger and its timer.
type InstrumentedContext struct {
	Ctx    context.Context
	Span   trace.Span
	Logger *Logger
	Timer  *Timer

	operation string
	metrics   *Metrics
}

// StartOperation opens a span for operation and derives a logger tagged
// with the operation and trace IDs. Without telemetry in ctx the result
// has no span and records no metrics.
func StartOperation(ctx context.Context, operation string, attrs ...attribute.KeyValue) *InstrumentedContext {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return &InstrumentedContext{
			Ctx:       ctx,
			Logger:    FromContext(ctx).WithOperation(operation),
			Timer:     NewTimer(),
			operation: operation,
		}
	}

	ctx, span := tel.Tracer.StartSpan(ctx, operation, attrs...)
	logger := tel.Logger.WithOperation(operation)
	if sc := span.SpanContext(); sc.IsValid() {
		logger = logger.WithFields(map[string]interface{}{
			"trace_id": sc.TraceID().String(),
			"span_id":  sc.SpanID().String(),
		})
	}
	tel.Metrics.RecordOperationStarted()

	return &InstrumentedContext{
		Ctx:       logger.WithContext(ctx),
		Span:      span,
		Logger:    logger,
		Timer:     NewTimer(),
		operation: operation,
		metrics:   tel.Metrics,
	}
}

// WithRunID tags the logger and span with runID.
func (ic *InstrumentedContext) WithRunID(runID string) *InstrumentedContext {
	ic.Logger = ic.Logger.WithRunID(runID)
	ic.Ctx = ic.Logger.WithContext(ic.Ctx)
	if ic.Span != nil {
		ic.Span.SetAttributes(AttrRunID.String(runID))
	}
	return ic
}

// End closes the span and records the outcome. status is ignored when err
// is nil; the operation then counts as succeeded.
func (ic *InstrumentedContext) End(status string, err error) {
	if err == nil {
		status = StatusSucceeded
	}
	if ic.Span != nil {
		if err != nil {
			RecordError(ic.Span, err)
		} else {
			RecordSuccess(ic.Span)
		}
		ic.Span.End()
	}
	if ic.metrics != nil {
		ic.metrics.RecordOperation(ic.operation, status, ic.Timer.Duration())
	}
}
