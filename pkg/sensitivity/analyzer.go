package sensitivity

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/fewnexus/nexus/pkg/model"
	"github.com/fewnexus/nexus/pkg/params"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Steps is the number of evenly spaced values swept per parameter.
const Steps = 10

const (
	valuePlaces       = 3
	sensitivityPlaces = 3
	rangePlaces       = 2
)

// Calculator evaluates the model. *model.Calculator implements it.
type Calculator interface {
	Schema() *params.Schema
	Calculate(p params.Set) (model.Outcome, error)
}

// Report is the result of a sensitivity analysis.
type Report struct {
	Baseline Baseline                     `json:"baseline"`
	Analysis map[string]ParameterAnalysis `json:"analysis"`
}

// Baseline holds the unvaried parameters and their outcome.
type Baseline struct {
	Parameters params.Set    `json:"parameters"`
	Results    model.Outcome `json:"results"`
}

// ParameterAnalysis is the sweep of a single parameter.
type ParameterAnalysis struct {
	Variations        []Variation      `json:"variations"`
	SensitivityScores map[string]Score `json:"sensitivity_scores"`
}

// Variation is one evaluated point of a sweep.
type Variation struct {
	ParameterValue float64       `json:"parameter_value"`
	Results        model.Outcome `json:"results"`
}

// Score summarizes how much a metric moved across a sweep.
type Score struct {
	// Sensitivity is the coefficient of variation stddev/|mean|.
	Sensitivity float64 `json:"sensitivity"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Range       float64 `json:"range"`
}

// Analyzer runs sensitivity sweeps. It is safe for concurrent use.
type Analyzer struct {
	calc    Calculator
	workers int
}

// NewAnalyzer creates an analyzer. workers <= 0 selects GOMAXPROCS.
func NewAnalyzer(calc Calculator, workers int) *Analyzer {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Analyzer{calc: calc, workers: workers}
}

// Analyze sweeps parameter, or every schema parameter when it is empty,
// around base. Invalid base parameters yield a *params.ValidationError;
// individual variations that fail are skipped.
//
// An unknown parameter name is rejected with a *params.ValidationError
// rather than skipped: callers get an error, not a report with an empty
// Analysis map.
func (a *Analyzer) Analyze(ctx context.Context, base params.Set, parameter string) (*Report, error) {
	schema := a.calc.Schema()
	filled := base.WithDefaults(schema)

	baseline, err := a.calc.Calculate(filled)
	if err != nil {
		return nil, err
	}

	var targets []string
	if parameter != "" {
		if !schema.Has(parameter) {
			return nil, params.NewValidationError(fmt.Sprintf("Unknown parameter: %s", parameter))
		}
		targets = []string{parameter}
	} else {
		for _, name := range schema.Names() {
			if _, ok := filled[name]; ok {
				targets = append(targets, name)
			}
		}
	}

	report := &Report{
		Baseline: Baseline{
			Parameters: filled,
			Results:    baseline,
		},
		Analysis: make(map[string]ParameterAnalysis, len(targets)),
	}

	for _, name := range targets {
		variations, err := a.sweep(ctx, filled, name)
		if err != nil {
			return nil, err
		}
		report.Analysis[name] = ParameterAnalysis{
			Variations:        variations,
			SensitivityScores: Scores(variations, baseline),
		}
	}

	return report, nil
}

// sweep evaluates Steps values of one parameter in parallel and returns the
// successful variations in ascending value order.
func (a *Analyzer) sweep(ctx context.Context, base params.Set, name string) ([]Variation, error) {
	c, _ := a.calc.Schema().Info(name)
	values := c.Linspace(Steps)
	results := make([]*Variation, len(values))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for i, value := range values {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			varied := base.Clone()
			varied[name] = value

			out, err := a.calc.Calculate(varied)
			if err != nil {
				return nil
			}
			results[i] = &Variation{
				ParameterValue: model.Round(value, valuePlaces),
				Results:        out,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	variations := make([]Variation, 0, len(results))
	for _, v := range results {
		if v != nil {
			variations = append(variations, *v)
		}
	}
	return variations, nil
}

// Scores computes the sensitivity score of each tracked metric over the
// variations. Fewer than two variations yield no scores.
func Scores(variations []Variation, baseline model.Outcome) map[string]Score {
	scores := make(map[string]Score)
	if len(variations) < 2 {
		return scores
	}

	baseMetrics := baseline.Metrics()
	for _, metric := range model.TrackedMetrics {
		values := make([]float64, len(variations))
		for i, v := range variations {
			values[i] = v.Results.Metrics()[metric]
		}

		mean, std := stat.PopMeanStdDev(values, nil)

		sensitivity := 0.0
		if baseMetrics[metric] != 0 && mean != 0 {
			sensitivity = std / math.Abs(mean)
		}

		lo, hi := floats.Min(values), floats.Max(values)
		scores[metric] = Score{
			Sensitivity: model.Round(sensitivity, sensitivityPlaces),
			Min:         model.Round(lo, rangePlaces),
			Max:         model.Round(hi, rangePlaces),
			Range:       model.Round(hi-lo, rangePlaces),
		}
	}
	return scores
}
