package policy

import (
	"time"

	"github.com/fewnexus/nexus/pkg/model"
)

// Severity grades a guardrail finding.
type Severity string

// Error and critical findings fail a check; info and warning findings are
// reported only.
const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return true
	default:
		return false
	}
}

// Blocking reports whether a violation of this severity fails a check.
func (s Severity) Blocking() bool {
	return s == SeverityError || s == SeverityCritical
}

// Policy is a guardrail written in Rego. Its package must define a deny
// set whose members are strings or objects with message, severity and
// metric keys.
//
// Name is unique within an engine; loading a policy with a taken name
// replaces the old one. Severity applies to deny members that carry none.
// Source is empty for built-ins.
type Policy struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Rego        string   `json:"rego"`
	Severity    Severity `json:"severity"`
	Enabled     bool     `json:"enabled"`
	Tags        []string `json:"tags,omitempty"`
	Source      string   `json:"source,omitempty"`
}

// Violation is one deny member of one policy for one scenario. Metric is
// set when the member names the outcome metric it concerns.
type Violation struct {
	Policy   string   `json:"policy"`
	Scenario string   `json:"scenario,omitempty"`
	Metric   string   `json:"metric,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Result is the outcome of evaluating every enabled policy.
//
// Allowed is false when any violation is blocking. Violations are sorted by
// policy, metric and message. Warnings name the policies that failed to
// evaluate; those are absent from Evaluated.
type Result struct {
	Allowed     bool        `json:"allowed"`
	Violations  []Violation `json:"violations"`
	Warnings    []string    `json:"warnings,omitempty"`
	Evaluated   []string    `json:"evaluated_policies"`
	EvaluatedAt time.Time   `json:"evaluated_at"`
}

// Input is the document a policy sees as input.
type Input struct {
	// Scenario names the evaluated parameter set.
	Scenario string `json:"scenario"`

	// Parameters is the normalized parameter set.
	Parameters map[string]float64 `json:"parameters"`

	// Results holds every outcome metric by name.
	Results map[string]float64 `json:"results"`

	// Uncertainties holds the percentile bands, when quantified.
	Uncertainties model.Bands `json:"uncertainties"`
}

// NewInput builds the policy input for one calculated scenario.
func NewInput(scenario string, p map[string]float64, out model.Outcome) Input {
	bands := out.Uncertainties
	if bands == nil {
		bands = model.Bands{}
	}
	return Input{
		Scenario:      scenario,
		Parameters:    p,
		Results:       out.Metrics(),
		Uncertainties: bands,
	}
}
