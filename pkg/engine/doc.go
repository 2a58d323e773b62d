// Package engine runs the nexus operations behind one facade.
//
// An Engine is built once from a Config and a telemetry instance. It owns a
// model.Calculator, an uncertainty.Engine, a sensitivity.Analyzer and a
// projection.Projector, and exposes the operations callers use:
//
//   - Calculate: validate a raw parameter mapping, evaluate the model and
//     attach Monte Carlo percentile bands
//   - Validate: list every violation of a raw mapping
//   - Sensitivity: sweep one or all parameters across their ranges
//   - Project: evaluate a multi-year horizon under compounding growth
//   - Compare: calculate several scenarios and summarize them side by side
//
// Every operation gets a run ID, a span, structured log lines tagged with
// the run ID, and operation metrics. Failures are returned as *EngineError,
// classified as invalid input, cancellation or internal failure. The
// underlying *params.ValidationError stays reachable with errors.As.
//
// # Example
//
//	eng, err := engine.New(engine.Config{Simulations: 100}, tel)
//	if err != nil {
//	    return err
//	}
//	out, err := eng.Calculate(ctx, map[string]any{"renewable_energy_share": 0.6}, engine.CalcOptions{})
//	if engine.IsInvalid(err) {
//	    // report the violations to the caller
//	}
package engine
