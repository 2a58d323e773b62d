// Package params defines the policy-parameter schema of the nexus model and
// the validation rules applied to every inbound parameter mapping.
//
// # Parameters
//
// The model is driven by a closed set of four normalized policy levers:
//
//   - food_production_intensity: level of agricultural intensification [0, 1]
//   - renewable_energy_share:    fraction of energy from renewables     [0, 1]
//   - water_conservation_level:  effectiveness of conservation measures [0, 1]
//   - population_growth:         one-step population multiplier   [0.95, 1.10]
//
// Each parameter carries a declared minimum, maximum and default. A Schema
// holds those declarations; DefaultSchema returns the built-in values and
// Schema.With derives an overridden copy, so configuration can change bounds
// without any package-level state.
//
// # Usage
//
//	schema := params.DefaultSchema()
//
//	ok, errs := schema.Validate(raw)
//	if !ok {
//	    // errs lists every violation
//	}
//
//	set, err := schema.Normalize(raw) // fills defaults, validates, converts
//	if params.IsValidation(err) {
//	    // caller supplied malformed input
//	}
package params
