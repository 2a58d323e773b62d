// Package model implements the deterministic food-energy-water impact
// calculation.
//
// A Calculator turns a validated parameter set into an Outcome: sector
// productions and demands, CO2 emissions, and four bounded indices (water
// stress, food security, energy security, sustainability). The only
// cross-sector feedback modeled is water stress reducing effective food
// production by up to 20%.
//
// Calculate is pure: identical inputs always produce identical outputs, and
// nothing random happens here. Uncertainty bands are produced by package
// uncertainty and attached by the caller through Outcome.WithUncertainties.
//
// CalculateBase evaluates only the tracked subset of metrics at full
// precision and without range checks; it exists for Monte Carlo sampling.
package model
