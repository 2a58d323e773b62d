package model

import (
	"fmt"
	"math"

	"github.com/fewnexus/nexus/pkg/params"
)

// Reference system sizes.
const (
	BaseFoodProduction = 1000.0
	BaseEnergy         = 5000.0
	BaseWaterAvailable = 10000.0
)

// Sector coefficients. These are fixed, uncalibrated constants.
const (
	foodWaterIntensity       = 2.5
	foodConservationEffect   = 0.3
	foodEnergyIntensity      = 0.8
	co2PerFossilUnit         = 0.5
	fossilWaterIntensity     = 1.2
	renewableWaterIntensity  = 0.3
	domesticWaterDemand      = 1500.0
	systemConservationEffect = 0.15
	maxWaterStressPenalty    = 0.2
)

// Sustainability score weighting. CO2Reference is the emission level that
// scores zero on the CO2 component.
const (
	CO2Reference         = 3000.0
	WeightCO2            = 0.3
	WeightWaterStress    = 0.3
	WeightFoodSecurity   = 0.2
	WeightRenewableShare = 0.2
)

const (
	metricPlaces = 2
	indexPlaces  = 3
)

// Calculator evaluates the impact model against a parameter schema. It holds
// no mutable state and is safe for concurrent use.
type Calculator struct {
	schema *params.Schema
}

// NewCalculator creates a calculator. A nil schema selects the default.
func NewCalculator(schema *params.Schema) *Calculator {
	if schema == nil {
		schema = params.DefaultSchema()
	}
	return &Calculator{schema: schema}
}

// Schema returns the schema the calculator validates against.
func (c *Calculator) Schema() *params.Schema {
	return c.schema
}

// Calculate fills defaults, validates and evaluates the model. It returns a
// *params.ValidationError listing every violation when p is invalid.
func (c *Calculator) Calculate(p params.Set) (Outcome, error) {
	filled := p.WithDefaults(c.schema)
	if err := c.schema.ValidateSet(filled); err != nil {
		return Outcome{}, err
	}
	return evaluate(filled, filled[params.PopulationGrowth]), nil
}

// CalculateWithGrowth validates p and evaluates the model with
// population_growth replaced by an already compounded growth factor, which
// may lie outside the one-step bounds.
func (c *Calculator) CalculateWithGrowth(p params.Set, factor float64) (Outcome, error) {
	filled := p.WithDefaults(c.schema)
	if err := c.schema.ValidateSet(filled); err != nil {
		return Outcome{}, err
	}
	if math.IsNaN(factor) || math.IsInf(factor, 0) || factor <= 0 {
		return Outcome{}, params.NewValidationError(
			fmt.Sprintf("growth factor must be a positive finite number, got %v", factor))
	}
	return evaluate(filled, factor), nil
}

// CalculateBase evaluates the tracked metrics at full precision. It fills
// defaults but performs no range checks; it fails only on non-finite input.
func (c *Calculator) CalculateBase(p params.Set) (Base, error) {
	filled := p.WithDefaults(c.schema)
	for _, name := range c.schema.Names() {
		v := filled[name]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Base{}, fmt.Errorf("parameter %s is not finite: %v", name, v)
		}
	}

	f := computeFlows(filled, filled[params.PopulationGrowth])
	return Base{
		FoodProduction:   f.adjustedFood,
		CO2Emissions:     f.co2,
		WaterDemand:      f.totalWater,
		WaterStressIndex: f.waterStress,
	}, nil
}

// flows holds the full-precision intermediate quantities of one evaluation.
type flows struct {
	foodProduction   float64
	foodWaterDemand  float64
	foodEnergyDemand float64
	totalEnergy      float64
	renewableEnergy  float64
	fossilEnergy     float64
	co2              float64
	totalWater       float64
	waterStress      float64
	adjustedFood     float64
}

func computeFlows(p params.Set, growth float64) flows {
	intensity := p[params.FoodProductionIntensity]
	share := p[params.RenewableEnergyShare]
	conservation := p[params.WaterConservationLevel]

	var f flows

	// Food sector
	f.foodProduction = BaseFoodProduction * intensity * growth
	f.foodWaterDemand = f.foodProduction * foodWaterIntensity * (1 - conservation*foodConservationEffect)
	f.foodEnergyDemand = f.foodProduction * foodEnergyIntensity

	// Energy sector
	f.totalEnergy = BaseEnergy * growth
	f.renewableEnergy = f.totalEnergy * share
	f.fossilEnergy = f.totalEnergy * (1 - share)
	f.co2 = f.fossilEnergy * co2PerFossilUnit
	energyWater := f.fossilEnergy*fossilWaterIntensity + f.renewableEnergy*renewableWaterIntensity

	// Water sector
	domesticWater := domesticWaterDemand * growth
	f.totalWater = (f.foodWaterDemand + energyWater + domesticWater) * (1 - conservation*systemConservationEffect)
	f.waterStress = math.Min(f.totalWater/BaseWaterAvailable, 1.0)

	// Water stress feedback on food
	f.adjustedFood = f.foodProduction * (1 - f.waterStress*maxWaterStressPenalty)

	return f
}

func evaluate(p params.Set, growth float64) Outcome {
	f := computeFlows(p, growth)
	share := p[params.RenewableEnergyShare]

	foodSecurity := math.Min(f.adjustedFood/(BaseFoodProduction*growth), 1.0)
	energySecurity := math.Min(f.totalEnergy/(BaseEnergy*growth), 1.0)
	score := sustainabilityScore(f.co2, f.waterStress, foodSecurity, share)

	return Outcome{
		FoodProduction:      Round(f.adjustedFood, metricPlaces),
		FoodWaterDemand:     Round(f.foodWaterDemand, metricPlaces),
		FoodEnergyDemand:    Round(f.foodEnergyDemand, metricPlaces),
		TotalEnergy:         Round(f.totalEnergy, metricPlaces),
		RenewableEnergy:     Round(f.renewableEnergy, metricPlaces),
		FossilEnergy:        Round(f.fossilEnergy, metricPlaces),
		CO2Emissions:        Round(f.co2, metricPlaces),
		WaterDemand:         Round(f.totalWater, metricPlaces),
		WaterStressIndex:    Round(f.waterStress, indexPlaces),
		FoodSecurityIndex:   Round(foodSecurity, indexPlaces),
		EnergySecurityIndex: Round(energySecurity, indexPlaces),
		SustainabilityScore: Round(score, indexPlaces),
		Uncertainties:       Bands{},
	}
}

// sustainabilityScore combines the normalized components into [0, 1];
// higher is better.
func sustainabilityScore(co2, waterStress, foodSecurity, renewableShare float64) float64 {
	co2Score := math.Max(0, 1-co2/CO2Reference)
	waterScore := 1 - waterStress

	score := co2Score*WeightCO2 +
		waterScore*WeightWaterStress +
		foodSecurity*WeightFoodSecurity +
		renewableShare*WeightRenewableShare

	return math.Max(0, math.Min(1, score))
}
