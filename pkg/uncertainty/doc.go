// Package uncertainty quantifies the spread of model outcomes by Monte Carlo
// resampling of the input parameters.
//
// Every simulation perturbs each parameter by a multiplicative factor
// 1 + N(0, 0.1), clamps it into the parameter's declared bounds and evaluates
// the model's base metrics. The 10th, 50th and 90th percentiles of the
// surviving samples form a Band per tracked metric.
//
// Simulations run on a bounded worker pool. Simulation i draws from its own
// PCG stream seeded with (Seed, i), so a fixed seed reproduces the same bands
// regardless of worker count or scheduling order. Failed samples are dropped
// and counted; they never fail the whole quantification.
package uncertainty
