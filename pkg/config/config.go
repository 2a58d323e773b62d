package config

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fewnexus/nexus/pkg/params"
	"github.com/fewnexus/nexus/pkg/telemetry"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. NEXUS_SIMULATIONS.
const EnvPrefix = "NEXUS"

// LegacySimulationsEnv is also honored for the simulation count.
const LegacySimulationsEnv = "MC_SIMULATIONS"

// DefaultSimulations is the Monte Carlo iteration count when none is set.
const DefaultSimulations = 100

// Config is the runtime configuration of the nexus engine and CLI.
type Config struct {
	// Simulations is the default Monte Carlo iteration count. Zero disables
	// uncertainty bands.
	Simulations int `mapstructure:"simulations" validate:"gte=0,lte=1000000"`

	// Seed fixes the Monte Carlo random streams. Nil draws a fresh seed per
	// calculation.
	Seed *uint64 `mapstructure:"seed"`

	// Workers bounds the evaluation pools. Zero selects GOMAXPROCS.
	Workers int `mapstructure:"workers" validate:"gte=0,lte=4096"`

	// Parameters overrides the declaration of individual parameters.
	Parameters map[string]ParameterOverride `mapstructure:"parameters" validate:"dive"`

	// Scenarios configures scenario file handling.
	Scenarios ScenariosConfig `mapstructure:"scenarios"`

	// Policies configures the outcome guardrails.
	Policies PoliciesConfig `mapstructure:"policies"`

	Logging LoggingConfig `mapstructure:"logging"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ParameterOverride replaces parts of a parameter declaration. Unset fields
// keep their built-in value.
type ParameterOverride struct {
	Min      *float64 `mapstructure:"min"`
	Max      *float64 `mapstructure:"max"`
	Default  *float64 `mapstructure:"default"`
	Required *bool    `mapstructure:"required"`
}

// ScenariosConfig configures scenario loading and watching.
type ScenariosConfig struct {
	// Debounce delays reloads after a file change.
	Debounce time.Duration `mapstructure:"debounce" validate:"gte=0"`

	// ScriptTimeout bounds the evaluation of Starlark scenarios.
	ScriptTimeout time.Duration `mapstructure:"script_timeout" validate:"gte=0"`
}

// PoliciesConfig configures the Rego guardrails checked against outcomes.
type PoliciesConfig struct {
	// Paths lists extra .rego and .json policy files or directories.
	Paths []string `mapstructure:"paths"`

	// Disabled names policies, built-in or loaded, that are not evaluated.
	Disabled []string `mapstructure:"disabled"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error fatal"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
	Output string `mapstructure:"output" validate:"required"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Exporter     string  `mapstructure:"exporter" validate:"oneof=otlp stdout none"`
	Endpoint     string  `mapstructure:"endpoint" validate:"required_if=Exporter otlp"`
	SamplingRate float64 `mapstructure:"sampling_rate" validate:"gte=0,lte=1"`
	Insecure     bool    `mapstructure:"insecure"`
}

// MetricsConfig configures metric collection and the optional endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
	Path    string `mapstructure:"path" validate:"startswith=/"`
}

// setDefaults registers every key so environment overrides apply to it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("simulations", DefaultSimulations)
	v.SetDefault("workers", 0)
	v.SetDefault("scenarios.debounce", 500*time.Millisecond)
	v.SetDefault("scenarios.script_timeout", 5*time.Second)
	v.SetDefault("policies.paths", []string{})
	v.SetDefault("policies.disabled", []string{})
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter", "none")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sampling_rate", 1.0)
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.address", "")
	v.SetDefault("metrics.path", "/metrics")
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := load(viper.New(), "", false)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the configuration. An explicit path must exist; with an empty
// path a nexus.{yaml,json,toml} in the working directory is used when
// present. Environment variables override both.
func Load(path string) (*Config, error) {
	return load(viper.New(), path, true)
}

func load(v *viper.Viper, path string, useEnv bool) (*Config, error) {
	setDefaults(v)

	if useEnv {
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
		if err := v.BindEnv("simulations", EnvPrefix+"_SIMULATIONS", LegacySimulationsEnv); err != nil {
			return nil, err
		}
		if err := v.BindEnv("seed"); err != nil {
			return nil, err
		}

		if path != "" {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else {
			v.SetConfigName("nexus")
			v.AddConfigPath(".")
			err := v.ReadInConfig()
			var notFound viper.ConfigFileNotFoundError
			if err != nil && !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints and that every parameter override
// names a known parameter and yields a consistent declaration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := c.Schema(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Schema returns the default parameter schema with the configured
// overrides applied. Each merged declaration is checked against the CUE
// parameter schema.
func (c *Config) Schema() (*params.Schema, error) {
	schema := params.DefaultSchema()
	if len(c.Parameters) == 0 {
		return schema, nil
	}

	registry := NewSchemaRegistry()

	names := make([]string, 0, len(c.Parameters))
	for name := range c.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cur, ok := schema.Info(name)
		if !ok {
			return nil, fmt.Errorf("unknown parameter in configuration: %s", name)
		}

		merged := c.Parameters[name].apply(cur)
		if err := registry.ValidateParameter(context.Background(), name, merged); err != nil {
			return nil, err
		}

		next, err := schema.With(name, merged)
		if err != nil {
			return nil, err
		}
		schema = next
	}

	return schema, nil
}

func (o ParameterOverride) apply(c params.Constraint) params.Constraint {
	if o.Min != nil {
		c.Min = *o.Min
	}
	if o.Max != nil {
		c.Max = *o.Max
	}
	if o.Default != nil {
		c.Default = *o.Default
	}
	if o.Required != nil {
		c.Required = *o.Required
	}
	return c
}

// Telemetry maps the configuration onto a telemetry configuration.
func (c *Config) Telemetry(version string) *telemetry.Config {
	tc := telemetry.DefaultConfig()
	if version != "" {
		tc.ServiceVersion = version
	}

	tc.Logging.Level = c.Logging.Level
	tc.Logging.Format = c.Logging.Format
	tc.Logging.Output = c.Logging.Output

	tc.Tracing.Enabled = c.Tracing.Enabled
	tc.Tracing.Exporter = c.Tracing.Exporter
	tc.Tracing.Endpoint = c.Tracing.Endpoint
	tc.Tracing.SamplingRate = c.Tracing.SamplingRate
	tc.Tracing.Insecure = c.Tracing.Insecure

	tc.Metrics.Enabled = c.Metrics.Enabled
	tc.Metrics.ListenAddress = c.Metrics.Address
	tc.Metrics.Path = c.Metrics.Path

	return tc
}
