package policy

// BuiltinPolicies returns the guardrails every engine starts with.
func BuiltinPolicies() []Policy {
	return []Policy{
		waterStressPolicy(),
		emissionsPolicy(),
		foodSecurityPolicy(),
		uncertaintySpreadPolicy(),
	}
}

// waterStressPolicy flags water demand approaching availability.
func waterStressPolicy() Policy {
	return Policy{
		Name:        "water-stress",
		Description: "Flags water demand approaching the available supply",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"water"},
		Rego: `package nexus.guardrails.water_stress

deny contains violation if {
	wsi := input.results.water_stress_index
	wsi >= 0.9
	violation := {
		"message": sprintf("water stress index %v is at or above 0.9", [wsi]),
		"severity": "error",
		"metric": "water_stress_index",
	}
}

deny contains violation if {
	wsi := input.results.water_stress_index
	wsi >= 0.7
	wsi < 0.9
	violation := {
		"message": sprintf("water stress index %v is at or above 0.7", [wsi]),
		"severity": "warning",
		"metric": "water_stress_index",
	}
}
`,
	}
}

// emissionsPolicy flags emissions above the reference ceiling.
func emissionsPolicy() Policy {
	return Policy{
		Name:        "emissions",
		Description: "Flags CO2 emissions above the ceiling",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"energy", "climate"},
		Rego: `package nexus.guardrails.emissions

deny contains violation if {
	co2 := input.results.co2_emissions
	co2 > 2500
	violation := {
		"message": sprintf("CO2 emissions %v exceed 2500", [co2]),
		"metric": "co2_emissions",
	}
}
`,
	}
}

// foodSecurityPolicy flags food supply falling short of demand.
func foodSecurityPolicy() Policy {
	return Policy{
		Name:        "food-security",
		Description: "Flags a food security index below the floor",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"food"},
		Rego: `package nexus.guardrails.food_security

deny contains violation if {
	fsi := input.results.food_security_index
	fsi < 0.4
	violation := {
		"message": sprintf("food security index %v is below 0.4", [fsi]),
		"metric": "food_security_index",
	}
}
`,
	}
}

// uncertaintySpreadPolicy reports tracked metrics whose P10 to P90 range is
// wide relative to the median.
func uncertaintySpreadPolicy() Policy {
	return Policy{
		Name:        "uncertainty-spread",
		Description: "Reports metrics whose P10-P90 spread exceeds half the median",
		Severity:    SeverityInfo,
		Enabled:     true,
		Tags:        []string{"uncertainty"},
		Rego: `package nexus.guardrails.uncertainty_spread

deny contains violation if {
	some metric, band in input.uncertainties
	band.p50 > 0
	spread := (band.p90 - band.p10) / band.p50
	spread > 0.5
	violation := {
		"message": sprintf("%s P10-P90 spread is %v of the median", [metric, round(spread * 100) / 100]),
		"metric": metric,
	}
}
`,
	}
}
