package scenario

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario is a named raw parameter set.
type Scenario struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Parameters  map[string]any `json:"parameters" yaml:"parameters"`

	// Path is the file the scenario was loaded from.
	Path string `json:"-" yaml:"-"`
}

// Supported file extensions.
const (
	extYAML     = ".yaml"
	extYML      = ".yml"
	extJSON     = ".json"
	extCUE      = ".cue"
	extStarlark = ".star"
)

// Supported reports whether path has a scenario file extension.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case extYAML, extYML, extJSON, extCUE, extStarlark:
		return true
	default:
		return false
	}
}

// Merge returns a copy of the scenario parameters with overrides applied.
func (s Scenario) Merge(overrides map[string]any) map[string]any {
	out := make(map[string]any, len(s.Parameters)+len(overrides))
	for k, v := range s.Parameters {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// defaultName derives a scenario name from its file name.
func defaultName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func parseYAML(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML scenario: %w", err)
	}
	return &s, nil
}

func parseJSON(data []byte) (*Scenario, error) {
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse JSON scenario: %w", err)
	}
	return &s, nil
}
