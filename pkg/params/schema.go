package params

import (
	"fmt"
	"math"
)

// Parameter names of the closed parameter set.
const (
	FoodProductionIntensity = "food_production_intensity"
	RenewableEnergyShare    = "renewable_energy_share"
	WaterConservationLevel  = "water_conservation_level"
	PopulationGrowth        = "population_growth"
)

// Constraint declares the bounds, default and descriptive metadata of one
// parameter.
type Constraint struct {
	// Min is the inclusive lower bound.
	Min float64 `json:"min" yaml:"min"`

	// Max is the inclusive upper bound.
	Max float64 `json:"max" yaml:"max"`

	// Default is used when the parameter is absent from the input.
	Default float64 `json:"default" yaml:"default"`

	// Required marks the parameter as mandatory in raw input.
	Required bool `json:"required" yaml:"required"`

	// Name is the human-readable label.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Description explains what the lever represents.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Unit is the unit of measure (normalized, fraction, annual rate).
	Unit string `json:"unit,omitempty" yaml:"unit,omitempty"`

	// Category is the sector the lever belongs to.
	Category string `json:"category,omitempty" yaml:"category,omitempty"`

	// Impact summarizes how the lever moves the outcomes.
	Impact string `json:"impact,omitempty" yaml:"impact,omitempty"`
}

// Contains reports whether v lies within [Min, Max]. NaN is never contained.
func (c Constraint) Contains(v float64) bool {
	return v >= c.Min && v <= c.Max
}

// Clamp limits v to [Min, Max].
func (c Constraint) Clamp(v float64) float64 {
	return math.Max(c.Min, math.Min(c.Max, v))
}

// Linspace returns n evenly spaced values over [Min, Max], endpoints included.
func (c Constraint) Linspace(n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{c.Min}
	}
	out := make([]float64, n)
	step := (c.Max - c.Min) / float64(n-1)
	for i := range out {
		out[i] = c.Min + float64(i)*step
	}
	out[n-1] = c.Max
	return out
}

// Schema is an immutable set of parameter declarations. Derive modified
// copies with With.
type Schema struct {
	order       []string
	constraints map[string]Constraint
}

// DefaultSchema returns the built-in parameter schema.
func DefaultSchema() *Schema {
	return &Schema{
		order: []string{
			FoodProductionIntensity,
			RenewableEnergyShare,
			WaterConservationLevel,
			PopulationGrowth,
		},
		constraints: map[string]Constraint{
			FoodProductionIntensity: {
				Min:         0.0,
				Max:         1.0,
				Default:     0.5,
				Name:        "Food Production Intensity",
				Description: "Level of agricultural intensification",
				Unit:        "normalized",
				Category:    "food",
				Impact:      "Higher values increase food output but also water and energy demands",
			},
			RenewableEnergyShare: {
				Min:         0.0,
				Max:         1.0,
				Default:     0.3,
				Name:        "Renewable Energy Share",
				Description: "Fraction of energy from renewable sources",
				Unit:        "fraction",
				Category:    "energy",
				Impact:      "Higher values reduce CO2 emissions and water stress from energy production",
			},
			WaterConservationLevel: {
				Min:         0.0,
				Max:         1.0,
				Default:     0.5,
				Name:        "Water Conservation Level",
				Description: "Effectiveness of water conservation measures",
				Unit:        "normalized",
				Category:    "water",
				Impact:      "Higher values reduce water demand across all sectors",
			},
			PopulationGrowth: {
				Min:         0.95,
				Max:         1.10,
				Default:     1.01,
				Name:        "Population Growth Rate",
				Description: "Annual population growth multiplier",
				Unit:        "annual rate",
				Category:    "demographic",
				Impact:      "Higher values increase demands across food, energy, and water",
			},
		},
	}
}

// With returns a copy of the schema with the named constraint replaced.
// Descriptive metadata left empty in c is inherited from the current
// declaration.
func (s *Schema) With(name string, c Constraint) (*Schema, error) {
	cur, ok := s.constraints[name]
	if !ok {
		return nil, fmt.Errorf("unknown parameter: %s", name)
	}
	if math.IsNaN(c.Min) || math.IsNaN(c.Max) || c.Min > c.Max {
		return nil, fmt.Errorf("%s: min %v must not exceed max %v", name, c.Min, c.Max)
	}
	if !c.Contains(c.Default) {
		return nil, fmt.Errorf("%s: default %v outside [%v, %v]", name, c.Default, c.Min, c.Max)
	}

	if c.Name == "" {
		c.Name = cur.Name
	}
	if c.Description == "" {
		c.Description = cur.Description
	}
	if c.Unit == "" {
		c.Unit = cur.Unit
	}
	if c.Category == "" {
		c.Category = cur.Category
	}
	if c.Impact == "" {
		c.Impact = cur.Impact
	}

	next := &Schema{
		order:       s.order,
		constraints: make(map[string]Constraint, len(s.constraints)),
	}
	for k, v := range s.constraints {
		next.constraints[k] = v
	}
	next.constraints[name] = c
	return next, nil
}

// Names returns the parameter names in declaration order.
func (s *Schema) Names() []string {
	return append([]string(nil), s.order...)
}

// Has reports whether name is a declared parameter.
func (s *Schema) Has(name string) bool {
	_, ok := s.constraints[name]
	return ok
}

// Info returns the declaration of a single parameter.
func (s *Schema) Info(name string) (Constraint, bool) {
	c, ok := s.constraints[name]
	return c, ok
}

// All returns a copy of every declaration keyed by name.
func (s *Schema) All() map[string]Constraint {
	out := make(map[string]Constraint, len(s.constraints))
	for k, v := range s.constraints {
		out[k] = v
	}
	return out
}

// Clamp limits v to the bounds of the named parameter. Unknown names are
// returned unchanged.
func (s *Schema) Clamp(name string, v float64) float64 {
	c, ok := s.constraints[name]
	if !ok {
		return v
	}
	return c.Clamp(v)
}
