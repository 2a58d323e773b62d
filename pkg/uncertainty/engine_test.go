package uncertainty

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/fewnexus/nexus/pkg/model"
	"github.com/fewnexus/nexus/pkg/params"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// flakySampler fails every failEvery-th draw so dropped samples can be
// counted exactly.
type flakySampler struct {
	*model.Calculator
	failEvery int64
	calls     atomic.Int64
}

func (f *flakySampler) CalculateBase(p params.Set) (model.Base, error) {
	n := f.calls.Add(1)
	if f.failEvery > 0 && n%f.failEvery == 0 {
		return model.Base{}, errors.New("mock failure")
	}
	return f.Calculator.CalculateBase(p)
}

type mockRecorder struct {
	mu      sync.Mutex
	total   int
	dropped int
}

func (m *mockRecorder) RecordSimulations(total, dropped int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total += total
	m.dropped += dropped
}

func TestQuantifyBands(t *testing.T) {
	engine := NewEngine(model.NewCalculator(nil), 4, nil)

	bands, err := engine.Quantify(context.Background(), params.Set{}, Options{Simulations: 200, Seed: 42})
	if err != nil {
		t.Fatalf("Quantify() error = %v", err)
	}

	if len(bands) != len(model.TrackedMetrics) {
		t.Fatalf("Expected %d bands, got %d: %v", len(model.TrackedMetrics), len(bands), bands)
	}

	for metric, band := range bands {
		if !(band.P10 <= band.P50 && band.P50 <= band.P90) {
			t.Errorf("%s: percentiles not ordered: %+v", metric, band)
		}
	}

	// The default scenario emits 1767.5 units of CO2; the median of a
	// symmetric perturbation should sit close to it.
	co2 := bands[model.MetricCO2Emissions]
	if math.Abs(co2.P50-1767.5) > 200 {
		t.Errorf("Expected CO2 median near 1767.5, got %v", co2.P50)
	}
	if co2.P10 >= co2.P90 {
		t.Errorf("Expected non-degenerate CO2 band, got %+v", co2)
	}

	wsi := bands[model.MetricWaterStressIndex]
	if wsi.P10 < 0 || wsi.P90 > 1 {
		t.Errorf("Water stress band escapes [0,1]: %+v", wsi)
	}
}

func TestQuantifyDeterministicAcrossWorkers(t *testing.T) {
	calc := model.NewCalculator(nil)
	p := params.Set{params.RenewableEnergyShare: 0.55}
	opts := Options{Simulations: 150, Seed: 7}

	serial, err := NewEngine(calc, 1, nil).Quantify(context.Background(), p, opts)
	if err != nil {
		t.Fatalf("Quantify() error = %v", err)
	}
	parallel, err := NewEngine(calc, 8, nil).Quantify(context.Background(), p, opts)
	if err != nil {
		t.Fatalf("Quantify() error = %v", err)
	}

	if diff := cmp.Diff(serial, parallel); diff != "" {
		t.Errorf("Bands depend on worker count (-serial +parallel):\n%s", diff)
	}

	other, _ := NewEngine(calc, 8, nil).Quantify(context.Background(), p, Options{Simulations: 150, Seed: 8})
	if cmp.Equal(serial, other) {
		t.Error("Expected different seeds to produce different bands")
	}
}

func TestQuantifyZeroSimulations(t *testing.T) {
	engine := NewEngine(model.NewCalculator(nil), 2, nil)

	bands, err := engine.Quantify(context.Background(), params.Set{}, Options{Simulations: 0})
	if err != nil {
		t.Fatalf("Quantify() error = %v", err)
	}
	if len(bands) != 0 {
		t.Errorf("Expected empty bands, got %v", bands)
	}
}

func TestQuantifyDropsFailedSamples(t *testing.T) {
	recorder := &mockRecorder{}
	sampler := &flakySampler{Calculator: model.NewCalculator(nil), failEvery: 4}
	engine := NewEngine(sampler, 3, recorder)

	bands, err := engine.Quantify(context.Background(), params.Set{}, Options{Simulations: 100, Seed: 1})
	if err != nil {
		t.Fatalf("Quantify() error = %v", err)
	}
	if len(bands) != len(model.TrackedMetrics) {
		t.Errorf("Expected bands from surviving samples, got %v", bands)
	}
	if recorder.total != 100 || recorder.dropped != 25 {
		t.Errorf("Expected 100 total / 25 dropped, got %d / %d", recorder.total, recorder.dropped)
	}
}

func TestQuantifyAllSamplesFail(t *testing.T) {
	recorder := &mockRecorder{}
	sampler := &flakySampler{Calculator: model.NewCalculator(nil), failEvery: 1}
	engine := NewEngine(sampler, 2, recorder)

	bands, err := engine.Quantify(context.Background(), params.Set{}, Options{Simulations: 20, Seed: 1})
	if err != nil {
		t.Fatalf("Quantify() should absorb sample failures, got %v", err)
	}
	if len(bands) != 0 {
		t.Errorf("Expected empty bands, got %v", bands)
	}
	if recorder.dropped != 20 {
		t.Errorf("Expected 20 dropped samples, got %d", recorder.dropped)
	}
}

func TestQuantifyCancelled(t *testing.T) {
	engine := NewEngine(model.NewCalculator(nil), 2, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Quantify(ctx, params.Set{}, Options{Simulations: 1000, Seed: 1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestQuantifyClampsIntoBounds(t *testing.T) {
	calc := model.NewCalculator(nil)
	var seen []params.Set
	var mu sync.Mutex

	sampler := samplerFunc{
		schema: calc.Schema(),
		fn: func(p params.Set) (model.Base, error) {
			mu.Lock()
			seen = append(seen, p)
			mu.Unlock()
			return calc.CalculateBase(p)
		},
	}

	engine := NewEngine(sampler, 4, nil)
	_, err := engine.Quantify(context.Background(), params.Set{
		params.RenewableEnergyShare: 1.0,
		params.PopulationGrowth:     1.10,
	}, Options{Simulations: 50, Seed: 3})
	if err != nil {
		t.Fatalf("Quantify() error = %v", err)
	}

	schema := calc.Schema()
	for _, p := range seen {
		for name, v := range p {
			c, _ := schema.Info(name)
			if !c.Contains(v) {
				t.Fatalf("Perturbed %s = %v escaped [%v, %v]", name, v, c.Min, c.Max)
			}
		}
	}
}

type samplerFunc struct {
	schema *params.Schema
	fn     func(params.Set) (model.Base, error)
}

func (s samplerFunc) Schema() *params.Schema { return s.schema }

func (s samplerFunc) CalculateBase(p params.Set) (model.Base, error) { return s.fn(p) }

func TestSummarize(t *testing.T) {
	samples := []model.Base{
		{CO2Emissions: 1, WaterDemand: 10, FoodProduction: 100, WaterStressIndex: 0.1},
		{CO2Emissions: 2, WaterDemand: 20, FoodProduction: 200, WaterStressIndex: 0.2},
		{CO2Emissions: 3, WaterDemand: 30, FoodProduction: 300, WaterStressIndex: 0.3},
		{CO2Emissions: 4, WaterDemand: 40, FoodProduction: 400, WaterStressIndex: 0.4},
		{CO2Emissions: 5, WaterDemand: 50, FoodProduction: 500, WaterStressIndex: 0.5},
	}

	bands := Summarize(samples)
	want := model.Band{P10: 1.4, P50: 3, P90: 4.6}
	if diff := cmp.Diff(want, bands[model.MetricCO2Emissions]); diff != "" {
		t.Errorf("CO2 band mismatch (-want +got):\n%s", diff)
	}

	if got := Summarize(nil); len(got) != 0 {
		t.Errorf("Expected empty bands for no samples, got %v", got)
	}
}

func TestPercentile(t *testing.T) {
	values := []float64{15, 20, 35, 40, 50}

	tests := []struct {
		q    float64
		want float64
	}{
		{0, 15},
		{10, 17},
		{50, 35},
		{90, 46},
		{100, 50},
	}
	for _, tt := range tests {
		if got := Percentile(values, tt.q); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Percentile(%v) = %v, want %v", tt.q, got, tt.want)
		}
	}

	if got := Percentile([]float64{7}, 90); got != 7 {
		t.Errorf("Percentile of single value = %v, want 7", got)
	}
	if !math.IsNaN(Percentile(nil, 50)) {
		t.Error("Percentile of empty sample should be NaN")
	}

	unsorted := []float64{50, 15, 40, 20, 35}
	if got := Percentile(unsorted, 50); got != 35 {
		t.Errorf("Percentile on unsorted input = %v, want 35", got)
	}
	if unsorted[0] != 50 {
		t.Error("Percentile must not reorder its input")
	}
}
