package projection

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/fewnexus/nexus/pkg/model"
	"github.com/fewnexus/nexus/pkg/params"
)

func TestProject(t *testing.T) {
	projector := NewProjector(model.NewCalculator(nil))

	proj, err := projector.Project(context.Background(), params.Set{params.PopulationGrowth: 1.05}, 5)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}

	if len(proj.Projections) != 6 {
		t.Fatalf("Expected 6 entries, got %d", len(proj.Projections))
	}
	if proj.Years != 5 {
		t.Errorf("Expected years 5, got %d", proj.Years)
	}
	if proj.Parameters[params.RenewableEnergyShare] != 0.3 {
		t.Errorf("Expected defaulted parameters, got %v", proj.Parameters)
	}

	for i, y := range proj.Projections {
		if y.Year != i {
			t.Errorf("Entry %d has year %d", i, y.Year)
		}
		want := model.BaseEnergy * math.Pow(1.05, float64(i))
		if math.Abs(y.Results.TotalEnergy-want) > 0.005 {
			t.Errorf("Year %d: total_energy = %v, want %v", i, y.Results.TotalEnergy, want)
		}
		if i > 0 && y.Results.TotalEnergy <= proj.Projections[i-1].Results.TotalEnergy {
			t.Errorf("Year %d: total_energy did not increase", i)
		}
	}

	if proj.Projections[0].Results.TotalEnergy != 5000 {
		t.Errorf("Year 0 should be unscaled, got %v", proj.Projections[0].Results.TotalEnergy)
	}
}

func TestProjectBeyondOneStepBounds(t *testing.T) {
	projector := NewProjector(model.NewCalculator(nil))

	// 1.10^50 is far outside the population_growth bounds but still projects.
	proj, err := projector.Project(context.Background(), params.Set{params.PopulationGrowth: 1.10}, MaxYears)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}

	last := proj.Projections[MaxYears].Results
	if last.WaterStressIndex != 1 {
		t.Errorf("Expected saturated water stress after 50 years, got %v", last.WaterStressIndex)
	}
	if last.SustainabilityScore < 0 || last.SustainabilityScore > 1 {
		t.Errorf("Sustainability score out of range: %v", last.SustainabilityScore)
	}
}

func TestProjectDeclining(t *testing.T) {
	projector := NewProjector(model.NewCalculator(nil))

	proj, err := projector.Project(context.Background(), params.Set{params.PopulationGrowth: 0.95}, 3)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	for i := 1; i < len(proj.Projections); i++ {
		if proj.Projections[i].Results.CO2Emissions >= proj.Projections[i-1].Results.CO2Emissions {
			t.Errorf("Year %d: expected CO2 to decline under shrinking population", i)
		}
	}
}

func TestProjectValidation(t *testing.T) {
	projector := NewProjector(model.NewCalculator(nil))

	tests := []struct {
		name  string
		p     params.Set
		years int
	}{
		{"zero years", params.Set{}, 0},
		{"too many years", params.Set{}, MaxYears + 1},
		{"invalid parameters", params.Set{params.WaterConservationLevel: -1}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := projector.Project(context.Background(), tt.p, tt.years)
			if !params.IsValidation(err) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}

func TestProjectCancelled(t *testing.T) {
	projector := NewProjector(model.NewCalculator(nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := projector.Project(ctx, params.Set{}, 5); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func ExampleProjector_Project() {
	projector := NewProjector(model.NewCalculator(nil))

	proj, err := projector.Project(context.Background(), params.Set{params.PopulationGrowth: 1.02}, 2)
	if err != nil {
		panic(err)
	}

	for _, y := range proj.Projections {
		fmt.Printf("year %d: total_energy=%.2f\n", y.Year, y.Results.TotalEnergy)
	}
	// Output:
	// year 0: total_energy=5000.00
	// year 1: total_energy=5100.00
	// year 2: total_energy=5202.00
}
