// Package telemetry provides observability for the nexus engine.
//
// It combines structured logging (zerolog), distributed tracing
// (OpenTelemetry) and metrics (Prometheus) behind a single Telemetry value
// that is created once at startup and carried through context.Context.
//
// # Usage
//
//	cfg := telemetry.DefaultConfig()
//	cfg.Metrics.ListenAddress = ":9090"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	if err := tel.StartMetricsServer(); err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx = tel.WithContext(ctx)
//
// # Operations
//
// Engine operations are wrapped with StartOperation, which opens a span,
// derives a logger tagged with the operation and trace IDs, and times the
// call:
//
//	op := telemetry.StartOperation(ctx, "calculate",
//	    telemetry.AttrSimulations.Int(100)).WithRunID(runID)
//	defer func() { op.End(status, err) }()
//
//	op.Logger.Info("Calculating impacts")
//
// # Exporters
//
// Tracing supports the "stdout" exporter (pretty-printed to stderr), "otlp"
// over gRPC, and "none". Tracing is off by default.
//
// # Metrics
//
//   - nexus_operations_total{operation,status}
//   - nexus_operation_duration_seconds{operation}
//   - nexus_active_operations
//   - nexus_validation_failures_total{operation}
//   - nexus_simulations_total
//   - nexus_simulation_samples_dropped_total
//   - nexus_scenario_loads_total{status}
package telemetry
