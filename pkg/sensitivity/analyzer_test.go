package sensitivity

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/fewnexus/nexus/pkg/model"
	"github.com/fewnexus/nexus/pkg/params"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestAnalyzeSingleParameter(t *testing.T) {
	analyzer := NewAnalyzer(model.NewCalculator(nil), 4)

	report, err := analyzer.Analyze(context.Background(), params.Set{}, params.RenewableEnergyShare)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if len(report.Analysis) != 1 {
		t.Fatalf("Expected one analyzed parameter, got %d", len(report.Analysis))
	}
	if report.Baseline.Results.CO2Emissions != 1767.5 {
		t.Errorf("Expected baseline CO2 1767.5, got %v", report.Baseline.Results.CO2Emissions)
	}

	analysis := report.Analysis[params.RenewableEnergyShare]
	if len(analysis.Variations) != Steps {
		t.Fatalf("Expected %d variations, got %d", Steps, len(analysis.Variations))
	}

	first, last := analysis.Variations[0], analysis.Variations[Steps-1]
	if first.ParameterValue != 0 || last.ParameterValue != 1 {
		t.Errorf("Expected sweep over [0, 1], got [%v, %v]", first.ParameterValue, last.ParameterValue)
	}
	if first.Results.CO2Emissions != 2525 || last.Results.CO2Emissions != 0 {
		t.Errorf("Expected CO2 2525 -> 0, got %v -> %v", first.Results.CO2Emissions, last.Results.CO2Emissions)
	}

	for i := 1; i < len(analysis.Variations); i++ {
		if analysis.Variations[i].ParameterValue <= analysis.Variations[i-1].ParameterValue {
			t.Fatalf("Variations not in ascending order at %d", i)
		}
	}

	co2 := analysis.SensitivityScores[model.MetricCO2Emissions]
	if math.Abs(co2.Sensitivity-0.638) > 0.0015 {
		t.Errorf("Expected CO2 sensitivity ~0.638, got %v", co2.Sensitivity)
	}
	if co2.Min != 0 || co2.Max != 2525 || co2.Range != 2525 {
		t.Errorf("Unexpected CO2 range: %+v", co2)
	}

	food := analysis.SensitivityScores[model.MetricFoodProduction]
	if food.Sensitivity <= 0 {
		t.Errorf("Food production should respond to energy mix via water stress, got %+v", food)
	}
}

func TestAnalyzeAllParameters(t *testing.T) {
	calc := model.NewCalculator(nil)
	analyzer := NewAnalyzer(calc, 0)

	report, err := analyzer.Analyze(context.Background(), params.Set{params.FoodProductionIntensity: 0.5}, "")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	for _, name := range calc.Schema().Names() {
		analysis, ok := report.Analysis[name]
		if !ok {
			t.Errorf("Missing analysis for %s", name)
			continue
		}
		if len(analysis.SensitivityScores) != len(model.TrackedMetrics) {
			t.Errorf("%s: expected %d scores, got %d", name, len(model.TrackedMetrics), len(analysis.SensitivityScores))
		}
	}

	if report.Baseline.Parameters[params.FoodProductionIntensity] != 0.5 {
		t.Errorf("Baseline must keep caller values, got %v", report.Baseline.Parameters)
	}
	if report.Baseline.Parameters[params.PopulationGrowth] != 1.01 {
		t.Errorf("Baseline must be filled with defaults, got %v", report.Baseline.Parameters)
	}
}

func TestAnalyzeUnknownParameter(t *testing.T) {
	analyzer := NewAnalyzer(model.NewCalculator(nil), 2)

	report, err := analyzer.Analyze(context.Background(), params.Set{}, "rainfall")
	if !params.IsValidation(err) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if report != nil {
		t.Errorf("Expected no report for an unknown parameter, got %+v", report)
	}
	if !strings.Contains(err.Error(), "Unknown parameter: rainfall") {
		t.Errorf("Error should name the parameter: %v", err)
	}
}

func TestAnalyzeInvalidBaseline(t *testing.T) {
	analyzer := NewAnalyzer(model.NewCalculator(nil), 2)

	_, err := analyzer.Analyze(context.Background(), params.Set{params.PopulationGrowth: 2}, "")
	if !params.IsValidation(err) {
		t.Fatalf("Expected validation error, got %v", err)
	}
}

func TestAnalyzeCancelled(t *testing.T) {
	analyzer := NewAnalyzer(model.NewCalculator(nil), 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := analyzer.Analyze(ctx, params.Set{}, "")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

// Mock calculator that rejects high renewable shares
type pickyCalculator struct {
	*model.Calculator
	limit float64
}

func (p pickyCalculator) Calculate(set params.Set) (model.Outcome, error) {
	if set[params.RenewableEnergyShare] > p.limit {
		return model.Outcome{}, errors.New("mock failure")
	}
	return p.Calculator.Calculate(set)
}

func TestAnalyzeSkipsFailedVariations(t *testing.T) {
	analyzer := NewAnalyzer(pickyCalculator{Calculator: model.NewCalculator(nil), limit: 0.5}, 3)

	report, err := analyzer.Analyze(context.Background(), params.Set{}, params.RenewableEnergyShare)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	variations := report.Analysis[params.RenewableEnergyShare].Variations
	if len(variations) != 5 {
		t.Fatalf("Expected 5 surviving variations, got %d", len(variations))
	}
	for _, v := range variations {
		if v.ParameterValue > 0.5 {
			t.Errorf("Failed variation %v leaked into report", v.ParameterValue)
		}
	}
}

func TestScores(t *testing.T) {
	baseline := model.Outcome{CO2Emissions: 100, WaterDemand: 10, FoodProduction: 50}

	variations := []Variation{
		{ParameterValue: 0, Results: model.Outcome{CO2Emissions: 50, WaterDemand: 10, FoodProduction: 0}},
		{ParameterValue: 1, Results: model.Outcome{CO2Emissions: 150, WaterDemand: 10, FoodProduction: 0}},
	}

	scores := Scores(variations, baseline)

	co2 := scores[model.MetricCO2Emissions]
	if co2.Sensitivity != 0.5 || co2.Min != 50 || co2.Max != 150 || co2.Range != 100 {
		t.Errorf("Unexpected CO2 score: %+v", co2)
	}

	if water := scores[model.MetricWaterDemand]; water.Sensitivity != 0 || water.Range != 0 {
		t.Errorf("Constant metric should score zero, got %+v", water)
	}

	// Zero mean and zero baseline both yield zero sensitivity.
	if food := scores[model.MetricFoodProduction]; food.Sensitivity != 0 {
		t.Errorf("Zero-mean metric should score zero, got %+v", food)
	}
	if wsi := scores[model.MetricWaterStressIndex]; wsi.Sensitivity != 0 {
		t.Errorf("Zero-baseline metric should score zero, got %+v", wsi)
	}

	if got := Scores(variations[:1], baseline); len(got) != 0 {
		t.Errorf("Expected no scores for a single variation, got %v", got)
	}
}
