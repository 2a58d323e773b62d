// Package config loads the runtime configuration of the nexus engine.
//
// Configuration is read with viper from an optional YAML, JSON or TOML file
// and overridden by environment variables prefixed with NEXUS_ (nested keys
// use underscores, e.g. NEXUS_LOGGING_LEVEL). MC_SIMULATIONS is accepted as
// an alias for NEXUS_SIMULATIONS.
//
//	simulations: 200
//	seed: 42
//	parameters:
//	  population_growth:
//	    max: 1.2
//	logging:
//	  level: debug
//
// Struct fields are checked with validator tags. Parameter overrides are
// merged into the built-in parameter schema and each resulting declaration is
// checked against the #Parameter CUE definition held by SchemaRegistry. The
// registry also carries the #Scenario definition used by the scenario loader.
package config
