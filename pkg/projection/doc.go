// Package projection projects model outcomes over a horizon of years by
// compounding the population growth factor.
package projection
