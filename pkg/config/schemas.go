package config

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/fewnexus/nexus/pkg/params"
)

// Built-in schema names.
const (
	SchemaParameter = "parameter"
	SchemaScenario  = "scenario"
)

// SchemaRegistry manages CUE schemas for validation. It is safe for
// concurrent use.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a new schema registry with built-in schemas.
func NewSchemaRegistry() *SchemaRegistry {
	sr := &SchemaRegistry{
		ctx:     cuecontext.New(),
		schemas: make(map[string]cue.Value),
	}

	if err := sr.RegisterSchema(SchemaParameter, "#Parameter", builtinParameterSchema); err != nil {
		panic(err)
	}
	if err := sr.RegisterSchema(SchemaScenario, "#Scenario", builtinScenarioSchema); err != nil {
		panic(err)
	}

	return sr
}

// RegisterSchema compiles src and registers the named definition in it
// under name.
func (sr *SchemaRegistry) RegisterSchema(name, definition, src string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(src)
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	def := val.LookupPath(cue.ParsePath(definition))
	if err := def.Err(); err != nil {
		return fmt.Errorf("schema %s has no definition %s: %w", name, definition, err)
	}

	sr.schemas[name] = def
	return nil
}

// GetSchema retrieves a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// ValidateAgainstSchema validates data against a named schema.
func (sr *SchemaRegistry) ValidateAgainstSchema(ctx context.Context, schemaName string, data interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	schema, ok := sr.GetSchema(schemaName)
	if !ok {
		return fmt.Errorf("schema %s not found", schemaName)
	}

	// cue.Context is not safe for concurrent use
	sr.mu.Lock()
	defer sr.mu.Unlock()

	dataVal := sr.ctx.Encode(data)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	unified := schema.Unify(dataVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

// ListSchemas returns all registered schema names, sorted.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateParameter checks a parameter declaration: max >= min and
// min <= default <= max.
func (sr *SchemaRegistry) ValidateParameter(ctx context.Context, name string, c params.Constraint) error {
	if err := sr.ValidateAgainstSchema(ctx, SchemaParameter, c); err != nil {
		return fmt.Errorf("parameter %s: %w", name, err)
	}
	return nil
}

// ScenarioDocument is the shape a scenario file must have.
type ScenarioDocument struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// ValidateScenario checks a scenario document.
func (sr *SchemaRegistry) ValidateScenario(ctx context.Context, doc ScenarioDocument) error {
	if doc.Parameters == nil {
		doc.Parameters = map[string]any{}
	}
	return sr.ValidateAgainstSchema(ctx, SchemaScenario, doc)
}

// ExportJSON evaluates a CUE document and returns it as JSON. The document
// must be concrete.
func (sr *SchemaRegistry) ExportJSON(filename string, src []byte) ([]byte, error) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileBytes(src, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", filename, err)
	}

	data, err := val.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to export %s: %w", filename, err)
	}
	return data, nil
}

const builtinParameterSchema = `
// Declaration of one model parameter
#Parameter: {
	min:       number
	max:       number & >=min
	"default": number & >=min & <=max
	required?: bool

	name?:        string
	description?: string
	unit?:        string
	category?:    string
	impact?:      string
}
`

const builtinScenarioSchema = `
// Named parameter set loaded from a scenario file
#Scenario: {
	name:         string & !=""
	description?: string
	parameters: {[string]: number}
}
`
