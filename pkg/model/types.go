package model

// Metric names of an Outcome.
const (
	MetricFoodProduction      = "food_production"
	MetricFoodWaterDemand     = "food_water_demand"
	MetricFoodEnergyDemand    = "food_energy_demand"
	MetricTotalEnergy         = "total_energy"
	MetricRenewableEnergy     = "renewable_energy"
	MetricFossilEnergy        = "fossil_energy"
	MetricCO2Emissions        = "co2_emissions"
	MetricWaterDemand         = "water_demand"
	MetricWaterStressIndex    = "water_stress_index"
	MetricFoodSecurityIndex   = "food_security_index"
	MetricEnergySecurityIndex = "energy_security_index"
	MetricSustainabilityScore = "sustainability_score"
)

// TrackedMetrics are the metrics summarized by uncertainty bands and
// sensitivity scores.
var TrackedMetrics = []string{
	MetricCO2Emissions,
	MetricWaterDemand,
	MetricFoodProduction,
	MetricWaterStressIndex,
}

// Band is a percentile summary of a Monte Carlo sample for one metric.
type Band struct {
	P10 float64 `json:"p10"`
	P50 float64 `json:"p50"`
	P90 float64 `json:"p90"`
}

// Bands maps a tracked metric to its percentile band. Metrics with an empty
// sample are absent.
type Bands map[string]Band

// Outcome is the metric vector produced for one parameter set. Values are
// rounded for presentation: two decimals, three for the bounded indices.
type Outcome struct {
	FoodProduction      float64 `json:"food_production"`
	FoodWaterDemand     float64 `json:"food_water_demand"`
	FoodEnergyDemand    float64 `json:"food_energy_demand"`
	TotalEnergy         float64 `json:"total_energy"`
	RenewableEnergy     float64 `json:"renewable_energy"`
	FossilEnergy        float64 `json:"fossil_energy"`
	CO2Emissions        float64 `json:"co2_emissions"`
	WaterDemand         float64 `json:"water_demand"`
	WaterStressIndex    float64 `json:"water_stress_index"`
	FoodSecurityIndex   float64 `json:"food_security_index"`
	EnergySecurityIndex float64 `json:"energy_security_index"`
	SustainabilityScore float64 `json:"sustainability_score"`

	// Uncertainties holds percentile bands when uncertainty was quantified.
	Uncertainties Bands `json:"uncertainties"`
}

// Metrics returns the numeric metrics keyed by name.
func (o Outcome) Metrics() map[string]float64 {
	return map[string]float64{
		MetricFoodProduction:      o.FoodProduction,
		MetricFoodWaterDemand:     o.FoodWaterDemand,
		MetricFoodEnergyDemand:    o.FoodEnergyDemand,
		MetricTotalEnergy:         o.TotalEnergy,
		MetricRenewableEnergy:     o.RenewableEnergy,
		MetricFossilEnergy:        o.FossilEnergy,
		MetricCO2Emissions:        o.CO2Emissions,
		MetricWaterDemand:         o.WaterDemand,
		MetricWaterStressIndex:    o.WaterStressIndex,
		MetricFoodSecurityIndex:   o.FoodSecurityIndex,
		MetricEnergySecurityIndex: o.EnergySecurityIndex,
		MetricSustainabilityScore: o.SustainabilityScore,
	}
}

// Metric returns a single metric by name.
func (o Outcome) Metric(name string) (float64, bool) {
	v, ok := o.Metrics()[name]
	return v, ok
}

// WithUncertainties returns a copy of the outcome carrying the given bands.
func (o Outcome) WithUncertainties(b Bands) Outcome {
	copied := make(Bands, len(b))
	for k, v := range b {
		copied[k] = v
	}
	o.Uncertainties = copied
	return o
}

// Base is the unrounded subset of an outcome used for Monte Carlo sampling.
type Base struct {
	FoodProduction   float64 `json:"food_production"`
	CO2Emissions     float64 `json:"co2_emissions"`
	WaterDemand      float64 `json:"water_demand"`
	WaterStressIndex float64 `json:"water_stress_index"`
}

// Metric returns a tracked metric by name.
func (b Base) Metric(name string) (float64, bool) {
	switch name {
	case MetricFoodProduction:
		return b.FoodProduction, true
	case MetricCO2Emissions:
		return b.CO2Emissions, true
	case MetricWaterDemand:
		return b.WaterDemand, true
	case MetricWaterStressIndex:
		return b.WaterStressIndex, true
	default:
		return 0, false
	}
}
