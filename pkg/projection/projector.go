package projection

import (
	"context"
	"fmt"
	"math"

	"github.com/fewnexus/nexus/pkg/model"
	"github.com/fewnexus/nexus/pkg/params"
)

// Projection horizon bounds.
const (
	MinYears     = 1
	MaxYears     = 50
	DefaultYears = 10
)

// Calculator evaluates the model under a compounded growth factor.
// *model.Calculator implements it.
type Calculator interface {
	Schema() *params.Schema
	CalculateWithGrowth(p params.Set, factor float64) (model.Outcome, error)
}

// Projection is a yearly series of outcomes.
type Projection struct {
	Projections []Year     `json:"projections"`
	Parameters  params.Set `json:"parameters"`
	Years       int        `json:"years"`
}

// Year is the outcome of one projected year. Year 0 is the present.
type Year struct {
	Year    int           `json:"year"`
	Results model.Outcome `json:"results"`
}

// Projector builds projections.
type Projector struct {
	calc Calculator
}

// NewProjector creates a projector.
func NewProjector(calc Calculator) *Projector {
	return &Projector{calc: calc}
}

// ValidateYears reports a *params.ValidationError when years lies outside
// [MinYears, MaxYears].
func ValidateYears(years int) error {
	if years < MinYears || years > MaxYears {
		return params.NewValidationError(
			fmt.Sprintf("years must be between %d and %d, got %d", MinYears, MaxYears, years))
	}
	return nil
}

// Project evaluates p for every year in 0..years with population_growth
// compounded as growth^year.
func (pr *Projector) Project(ctx context.Context, p params.Set, years int) (*Projection, error) {
	if err := ValidateYears(years); err != nil {
		return nil, err
	}

	filled := p.WithDefaults(pr.calc.Schema())
	growth := filled[params.PopulationGrowth]

	out := &Projection{
		Projections: make([]Year, 0, years+1),
		Parameters:  filled,
		Years:       years,
	}

	for year := 0; year <= years; year++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		results, err := pr.calc.CalculateWithGrowth(filled, math.Pow(growth, float64(year)))
		if err != nil {
			return nil, err
		}
		out.Projections = append(out.Projections, Year{Year: year, Results: results})
	}

	return out, nil
}
