package compare

import (
	"github.com/fewnexus/nexus/pkg/model"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const places = 2

// Metrics is one result set, keyed by metric name. model.Outcome.Metrics
// produces it.
type Metrics map[string]float64

// ComparedMetrics lists the metrics included in a comparison, in report order.
var ComparedMetrics = []string{
	model.MetricCO2Emissions,
	model.MetricWaterDemand,
	model.MetricFoodProduction,
	model.MetricWaterStressIndex,
	model.MetricFoodSecurityIndex,
	model.MetricSustainabilityScore,
}

// Summary describes one metric across result sets. Values keeps input order.
type Summary struct {
	Min    float64   `json:"min"`
	Max    float64   `json:"max"`
	Mean   float64   `json:"mean"`
	Values []float64 `json:"values"`
}

// Report maps metric name to its summary.
type Report map[string]Summary

// Compare summarizes each compared metric across sets. A metric missing from
// a set counts as 0. No sets yield an empty report.
func Compare(sets []Metrics) Report {
	report := make(Report, len(ComparedMetrics))
	if len(sets) == 0 {
		return report
	}

	for _, metric := range ComparedMetrics {
		values := make([]float64, len(sets))
		for i, set := range sets {
			values[i] = set[metric]
		}

		rounded := make([]float64, len(values))
		for i, v := range values {
			rounded[i] = model.Round(v, places)
		}

		report[metric] = Summary{
			Min:    model.Round(floats.Min(values), places),
			Max:    model.Round(floats.Max(values), places),
			Mean:   model.Round(stat.Mean(values, nil), places),
			Values: rounded,
		}
	}
	return report
}

// FromOutcomes converts outcomes into comparable result sets.
func FromOutcomes(outcomes []model.Outcome) []Metrics {
	sets := make([]Metrics, len(outcomes))
	for i, o := range outcomes {
		sets[i] = o.Metrics()
	}
	return sets
}
