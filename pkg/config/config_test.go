package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fewnexus/nexus/pkg/params"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Simulations != DefaultSimulations {
		t.Errorf("Simulations = %d, want %d", cfg.Simulations, DefaultSimulations)
	}
	if cfg.Seed != nil {
		t.Errorf("Seed = %v, want nil", *cfg.Seed)
	}
	if cfg.Scenarios.Debounce != 500*time.Millisecond {
		t.Errorf("Debounce = %v, want 500ms", cfg.Scenarios.Debounce)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Logging.Output = %q, want stderr", cfg.Logging.Output)
	}

	schema, err := cfg.Schema()
	if err != nil {
		t.Fatalf("Schema() error = %v", err)
	}
	if len(schema.Names()) != 4 {
		t.Errorf("Expected default schema, got %v", schema.Names())
	}
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "nexus.yaml", `
simulations: 250
seed: 42
workers: 4
parameters:
  population_growth:
    max: 1.2
    default: 1.02
policies:
  paths: [./guardrails]
  disabled: [uncertainty-spread]
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Simulations != 250 || cfg.Workers != 4 {
		t.Errorf("Unexpected config: %+v", cfg)
	}
	if cfg.Seed == nil || *cfg.Seed != 42 {
		t.Errorf("Seed = %v, want 42", cfg.Seed)
	}
	if len(cfg.Policies.Paths) != 1 || cfg.Policies.Paths[0] != "./guardrails" {
		t.Errorf("Policies.Paths = %v", cfg.Policies.Paths)
	}
	if len(cfg.Policies.Disabled) != 1 || cfg.Policies.Disabled[0] != "uncertainty-spread" {
		t.Errorf("Policies.Disabled = %v", cfg.Policies.Disabled)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Unexpected logging config: %+v", cfg.Logging)
	}

	schema, err := cfg.Schema()
	if err != nil {
		t.Fatalf("Schema() error = %v", err)
	}
	c, _ := schema.Info(params.PopulationGrowth)
	if c.Min != 0.95 || c.Max != 1.2 || c.Default != 1.02 {
		t.Errorf("Override not applied: %+v", c)
	}
	if c.Description == "" {
		t.Error("Override should keep the built-in description")
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("NEXUS_SIMULATIONS", "500")
	t.Setenv("NEXUS_SEED", "7")
	t.Setenv("NEXUS_LOGGING_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Simulations != 500 {
		t.Errorf("Simulations = %d, want 500", cfg.Simulations)
	}
	if cfg.Seed == nil || *cfg.Seed != 7 {
		t.Errorf("Seed = %v, want 7", cfg.Seed)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
}

func TestLoadLegacySimulationsEnv(t *testing.T) {
	t.Setenv(LegacySimulationsEnv, "321")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Simulations != 321 {
		t.Errorf("Simulations = %d, want 321", cfg.Simulations)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "nexus.yaml", "simulations: 250\n")
	t.Setenv("NEXUS_SIMULATIONS", "10")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Simulations != 10 {
		t.Errorf("Simulations = %d, want 10", cfg.Simulations)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"negative simulations", "simulations: -1\n", "Simulations"},
		{"bad log level", "logging:\n  level: loud\n", "Level"},
		{"otlp without endpoint", "tracing:\n  exporter: otlp\n", "Endpoint"},
		{"unknown parameter", "parameters:\n  rainfall:\n    max: 2\n", "unknown parameter in configuration: rainfall"},
		{"inverted bounds", "parameters:\n  renewable_energy_share:\n    min: 0.8\n    max: 0.2\n", "renewable_energy_share"},
		{"default outside bounds", "parameters:\n  water_conservation_level:\n    default: 1.5\n", "water_conservation_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "nexus.yaml", tt.content)
			_, err := Load(path)
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Error %q does not mention %q", err, tt.wantErr)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing explicit config file")
	}
}

func TestTelemetryMapping(t *testing.T) {
	cfg := Default()
	cfg.Metrics.Address = ":9100"
	cfg.Tracing.Enabled = true
	cfg.Tracing.Exporter = "stdout"

	tc := cfg.Telemetry("1.2.3")
	if tc.ServiceVersion != "1.2.3" {
		t.Errorf("ServiceVersion = %q", tc.ServiceVersion)
	}
	if tc.Metrics.ListenAddress != ":9100" || !tc.Tracing.Enabled || tc.Tracing.Exporter != "stdout" {
		t.Errorf("Unexpected telemetry config: %+v", tc)
	}
	if err := tc.Validate(); err != nil {
		t.Errorf("Mapped telemetry config invalid: %v", err)
	}
}
