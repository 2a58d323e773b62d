// Package sensitivity performs one-at-a-time sensitivity analysis of the
// impact model: each parameter is swept across its declared range while the
// others stay at their baseline values, and the spread of the tracked
// metrics is summarized as a coefficient of variation.
package sensitivity
