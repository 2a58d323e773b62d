package uncertainty

import (
	"math"
	"sort"
)

// Percentile returns the q-th percentile (0-100) of values using linear
// interpolation between the closest ranks, the same rule as numpy's default
// "linear" method. values need not be sorted and is not modified.
func Percentile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	q = math.Max(0, math.Min(100, q))
	pos := float64(len(sorted)-1) * q / 100
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
