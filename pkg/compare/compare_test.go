package compare

import (
	"testing"

	"github.com/fewnexus/nexus/pkg/model"
	"github.com/google/go-cmp/cmp"
)

func TestCompare(t *testing.T) {
	report := Compare([]Metrics{
		{model.MetricCO2Emissions: 500, model.MetricWaterDemand: 1000},
		{model.MetricCO2Emissions: 600, model.MetricWaterDemand: 1100},
		{model.MetricCO2Emissions: 450, model.MetricWaterDemand: 900},
	})

	want := Summary{Min: 450, Max: 600, Mean: 516.67, Values: []float64{500, 600, 450}}
	if diff := cmp.Diff(want, report[model.MetricCO2Emissions]); diff != "" {
		t.Errorf("CO2 summary mismatch (-want +got):\n%s", diff)
	}

	if len(report) != len(ComparedMetrics) {
		t.Errorf("Expected %d metrics, got %d", len(ComparedMetrics), len(report))
	}

	// Missing metrics count as zero.
	score := report[model.MetricSustainabilityScore]
	if score.Min != 0 || score.Max != 0 || len(score.Values) != 3 {
		t.Errorf("Expected zeroed sustainability summary, got %+v", score)
	}
}

func TestCompareEmpty(t *testing.T) {
	if report := Compare(nil); len(report) != 0 {
		t.Errorf("Expected empty report, got %v", report)
	}
}

func TestCompareRounds(t *testing.T) {
	report := Compare([]Metrics{
		{model.MetricWaterStressIndex: 0.6738},
		{model.MetricWaterStressIndex: 0.1234},
	})

	wsi := report[model.MetricWaterStressIndex]
	want := Summary{Min: 0.12, Max: 0.67, Mean: 0.4, Values: []float64{0.67, 0.12}}
	if diff := cmp.Diff(want, wsi); diff != "" {
		t.Errorf("Rounding mismatch (-want +got):\n%s", diff)
	}
}

func TestFromOutcomes(t *testing.T) {
	calc := model.NewCalculator(nil)
	low, _ := calc.Calculate(map[string]float64{"renewable_energy_share": 0.1})
	high, _ := calc.Calculate(map[string]float64{"renewable_energy_share": 0.9})

	report := Compare(FromOutcomes([]model.Outcome{low, high}))

	co2 := report[model.MetricCO2Emissions]
	if co2.Min != high.CO2Emissions || co2.Max != low.CO2Emissions {
		t.Errorf("Unexpected CO2 summary %+v for %v / %v", co2, low.CO2Emissions, high.CO2Emissions)
	}
}
