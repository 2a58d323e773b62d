package telemetry_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/fewnexus/nexus/pkg/telemetry"
)

// Example_basicSetup demonstrates basic telemetry setup.
func Example_basicSetup() {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = "1.0.0"

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		panic(err)
	}
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	logger := telemetry.FromContext(ctx)
	logger.Info("Engine started")

	fmt.Println("Telemetry ready")
	// Output: Telemetry ready
}

// Example_instrumentedOperation demonstrates wrapping an engine operation.
func Example_instrumentedOperation() {
	tel, _ := telemetry.NewTelemetry(telemetry.DevelopmentConfig())
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	op := telemetry.StartOperation(ctx, "calculate",
		telemetry.AttrSimulations.Int(100),
	).WithRunID("run-123")

	op.Logger.Info("Calculating impacts")
	op.End(telemetry.StatusSucceeded, nil)

	fmt.Println("Operation instrumentation complete")
	// Output: Operation instrumentation complete
}

// Example_errorRecording demonstrates recording a failed operation.
func Example_errorRecording() {
	tel := telemetry.NewNoop()
	ctx := tel.WithContext(context.Background())

	op := telemetry.StartOperation(ctx, "project")
	err := errors.New("years must be between 1 and 50, got 0")
	op.Logger.WithError(err).Error("Projection rejected")
	op.End(telemetry.StatusInvalid, err)

	fmt.Println("Error recording complete")
	// Output: Error recording complete
}

// Example_collectorConfiguration exports spans to an OTLP collector and
// serves metrics for scraping.
func Example_collectorConfiguration() {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = "1.2.3"
	cfg.Logging.Format = "json"
	cfg.Tracing.Enabled = true
	cfg.Tracing.Exporter = "otlp"
	cfg.Tracing.Endpoint = "otel-collector.monitoring.svc.cluster.local:4317"
	cfg.Tracing.SamplingRate = 0.1
	cfg.Metrics.ListenAddress = ":9090"

	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	fmt.Println("Collector configuration validated")
	// Output: Collector configuration validated
}
