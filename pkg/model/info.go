package model

// Info describes the model: what it represents, its assumptions and its
// known limitations.
type Info struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	ModelType   string   `json:"model_type"`
	Categories  []string `json:"categories"`
	KeyFeatures []string `json:"key_features"`
	Assumptions []string `json:"assumptions"`
	Limitations []string `json:"limitations"`
	UseCases    []string `json:"use_cases"`
}

// Version is the model version reported by ModelInfo.
const Version = "1.0.0"

// ModelInfo returns the model card.
func ModelInfo() Info {
	return Info{
		Name:    "Food-Energy-Water Nexus Model",
		Version: Version,
		Description: "An integrated system dynamics model for analyzing trade-offs " +
			"and synergies across food, energy, and water systems",
		ModelType:  "System Dynamics with Monte Carlo Uncertainty Quantification",
		Categories: []string{"food", "energy", "water", "demographic"},
		KeyFeatures: []string{
			"Cross-sectoral impact analysis",
			"Uncertainty quantification with confidence intervals",
			"Sensitivity analysis",
			"Multi-year projection with compounding population growth",
			"Multi-metric scenario comparison",
		},
		Assumptions: []string{
			"Linear sector relationships with a single water-stress feedback on food production",
			"Normal distribution for uncertainty propagation",
			"Fixed coefficients, not calibrated against observed data",
			"Annual time steps for projections",
		},
		Limitations: []string{
			"Simplified representation of complex systems",
			"Does not account for seasonal variations",
			"Limited spatial resolution",
			"Requires calibration with regional data",
		},
		UseCases: []string{
			"Policy scenario comparison",
			"Educational demonstrations",
			"Trade-off analysis",
			"Stakeholder engagement workshops",
		},
	}
}
