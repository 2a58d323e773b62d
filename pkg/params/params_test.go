package params

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidate(t *testing.T) {
	schema := DefaultSchema()

	tests := []struct {
		name      string
		raw       map[string]any
		wantValid bool
		wantErrs  []string
	}{
		{
			name:      "empty input",
			raw:       map[string]any{},
			wantValid: true,
		},
		{
			name: "all valid",
			raw: map[string]any{
				FoodProductionIntensity: 0.8,
				RenewableEnergyShare:    0.6,
				WaterConservationLevel:  0.7,
				PopulationGrowth:        1.02,
			},
			wantValid: true,
		},
		{
			name:      "integer values are numeric",
			raw:       map[string]any{RenewableEnergyShare: 1},
			wantValid: true,
		},
		{
			name:      "json number",
			raw:       map[string]any{RenewableEnergyShare: json.Number("0.25")},
			wantValid: true,
		},
		{
			name:      "unknown parameter",
			raw:       map[string]any{"rainfall": 0.5},
			wantValid: false,
			wantErrs:  []string{"Unknown parameter: rainfall"},
		},
		{
			name:      "wrong type skips range check",
			raw:       map[string]any{RenewableEnergyShare: "high"},
			wantValid: false,
			wantErrs:  []string{"renewable_energy_share must be a number, got string"},
		},
		{
			name:      "out of range",
			raw:       map[string]any{RenewableEnergyShare: 1.5},
			wantValid: false,
			wantErrs:  []string{"renewable_energy_share must be between 0 and 1, got 1.5"},
		},
		{
			name: "multiple violations in key order",
			raw: map[string]any{
				PopulationGrowth:        2.0,
				"zzz":                   1,
				FoodProductionIntensity: -0.1,
			},
			wantValid: false,
			wantErrs: []string{
				"food_production_intensity must be between 0 and 1, got -0.1",
				"population_growth must be between 0.95 and 1.1, got 2",
				"Unknown parameter: zzz",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, errs := schema.Validate(tt.raw)
			if valid != tt.wantValid {
				t.Errorf("Validate() valid = %v, want %v (errs=%v)", valid, tt.wantValid, errs)
			}
			if len(tt.wantErrs) == 0 {
				if len(errs) != 0 {
					t.Errorf("Validate() unexpected errors: %v", errs)
				}
				return
			}
			if diff := cmp.Diff(tt.wantErrs, errs); diff != "" {
				t.Errorf("Validate() errors mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidateRequired(t *testing.T) {
	schema, err := DefaultSchema().With(PopulationGrowth, Constraint{
		Min: 0.95, Max: 1.10, Default: 1.01, Required: true,
	})
	if err != nil {
		t.Fatalf("With() error = %v", err)
	}

	valid, errs := schema.Validate(map[string]any{})
	if valid {
		t.Fatal("Expected missing required parameter to be invalid")
	}
	if len(errs) != 1 || errs[0] != "Required parameter missing: population_growth" {
		t.Errorf("Unexpected errors: %v", errs)
	}
}

func TestFillDefaults(t *testing.T) {
	schema := DefaultSchema()

	filled := schema.FillDefaults(map[string]any{RenewableEnergyShare: 0.9})
	want := map[string]any{
		FoodProductionIntensity: 0.5,
		RenewableEnergyShare:    0.9,
		WaterConservationLevel:  0.5,
		PopulationGrowth:        1.01,
	}
	if diff := cmp.Diff(want, filled); diff != "" {
		t.Errorf("FillDefaults() mismatch (-want +got):\n%s", diff)
	}
}

func TestFillDefaultsIdempotent(t *testing.T) {
	schema := DefaultSchema()
	raw := map[string]any{WaterConservationLevel: 0.1, "extra": "kept"}

	once := schema.FillDefaults(raw)
	twice := schema.FillDefaults(once)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("FillDefaults() not idempotent (-once +twice):\n%s", diff)
	}
	if _, ok := raw[FoodProductionIntensity]; ok {
		t.Error("FillDefaults() must not mutate its input")
	}
}

func TestNormalize(t *testing.T) {
	schema := DefaultSchema()

	set, err := schema.Normalize(map[string]any{FoodProductionIntensity: 1})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if set[FoodProductionIntensity] != 1.0 {
		t.Errorf("Expected converted value 1.0, got %v", set[FoodProductionIntensity])
	}
	if len(set) != 4 {
		t.Errorf("Expected 4 parameters, got %d", len(set))
	}

	_, err = schema.Normalize(map[string]any{RenewableEnergyShare: 1.5, "bogus": true})
	if !IsValidation(err) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) || len(verr.Errors) != 2 {
		t.Errorf("Expected 2 aggregated errors, got %v", err)
	}
	if !strings.Contains(err.Error(), RenewableEnergyShare) {
		t.Errorf("Error message should mention %s: %v", RenewableEnergyShare, err)
	}
}

func TestSchemaWith(t *testing.T) {
	base := DefaultSchema()

	next, err := base.With(RenewableEnergyShare, Constraint{Min: 0.1, Max: 0.9, Default: 0.5})
	if err != nil {
		t.Fatalf("With() error = %v", err)
	}

	c, _ := next.Info(RenewableEnergyShare)
	if c.Min != 0.1 || c.Max != 0.9 || c.Default != 0.5 {
		t.Errorf("Override not applied: %+v", c)
	}
	if c.Name != "Renewable Energy Share" {
		t.Errorf("Expected inherited name, got %q", c.Name)
	}

	orig, _ := base.Info(RenewableEnergyShare)
	if orig.Min != 0.0 {
		t.Error("With() must not modify the receiver")
	}

	if _, err := base.With("rainfall", Constraint{Max: 1}); err == nil {
		t.Error("Expected error for unknown parameter")
	}
	if _, err := base.With(RenewableEnergyShare, Constraint{Min: 1, Max: 0}); err == nil {
		t.Error("Expected error for inverted bounds")
	}
	if _, err := base.With(RenewableEnergyShare, Constraint{Min: 0, Max: 1, Default: 2}); err == nil {
		t.Error("Expected error for default outside bounds")
	}
}

func TestConstraintLinspace(t *testing.T) {
	c := Constraint{Min: 0, Max: 1}
	values := c.Linspace(10)

	if len(values) != 10 {
		t.Fatalf("Expected 10 values, got %d", len(values))
	}
	if values[0] != 0 || values[9] != 1 {
		t.Errorf("Expected inclusive endpoints, got %v and %v", values[0], values[9])
	}
	for i := 1; i < len(values); i++ {
		if values[i] <= values[i-1] {
			t.Errorf("Values not increasing at %d: %v", i, values)
		}
	}
}

func TestSchemaClamp(t *testing.T) {
	schema := DefaultSchema()

	if got := schema.Clamp(PopulationGrowth, 1.5); got != 1.10 {
		t.Errorf("Clamp() = %v, want 1.10", got)
	}
	if got := schema.Clamp(RenewableEnergyShare, -0.2); got != 0 {
		t.Errorf("Clamp() = %v, want 0", got)
	}
	if got := schema.Clamp("unknown", 42); got != 42 {
		t.Errorf("Clamp() on unknown name = %v, want 42", got)
	}
}
