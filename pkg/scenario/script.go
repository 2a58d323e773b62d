package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/fewnexus/nexus/pkg/params"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// DefaultScriptTimeout bounds a single script evaluation.
const DefaultScriptTimeout = 5 * time.Second

// ScriptEvaluator runs Starlark scenario scripts in a sandbox without file,
// network or load() access.
type ScriptEvaluator struct {
	timeout time.Duration
	schema  *params.Schema
}

// NewScriptEvaluator creates an evaluator. A zero timeout selects
// DefaultScriptTimeout and a nil schema the default parameter schema.
func NewScriptEvaluator(timeout time.Duration, schema *params.Schema) *ScriptEvaluator {
	if timeout <= 0 {
		timeout = DefaultScriptTimeout
	}
	if schema == nil {
		schema = params.DefaultSchema()
	}
	return &ScriptEvaluator{
		timeout: timeout,
		schema:  schema,
	}
}

// Evaluate executes a script and returns the scenarios it defines. Scenarios
// without a name are named after the file, suffixed with their index when
// the script defines several.
func (se *ScriptEvaluator) Evaluate(ctx context.Context, filename string, src []byte) ([]Scenario, error) {
	evalCtx, cancel := context.WithTimeout(ctx, se.timeout)
	defer cancel()

	thread := &starlark.Thread{
		Name:  "scenario",
		Print: func(*starlark.Thread, string) {},
		Load: func(*starlark.Thread, string) (starlark.StringDict, error) {
			return nil, fmt.Errorf("load is not available in scenario scripts")
		},
	}

	type result struct {
		globals starlark.StringDict
		err     error
	}
	done := make(chan result, 1)

	go func() {
		globals, err := starlark.ExecFile(thread, filename, src, se.environment())
		done <- result{globals: globals, err: err}
	}()

	var res result
	select {
	case <-evalCtx.Done():
		thread.Cancel(evalCtx.Err().Error())
		<-done
		return nil, fmt.Errorf("script %s: %w", filename, evalCtx.Err())
	case res = <-done:
	}

	if res.err != nil {
		return nil, fmt.Errorf("script %s failed: %w", filename, res.err)
	}

	return scenariosFromGlobals(filename, res.globals)
}

// environment returns the predeclared names visible to scripts.
func (se *ScriptEvaluator) environment() starlark.StringDict {
	names := se.schema.Names()
	defaults := starlark.NewDict(len(names))
	bounds := starlark.NewDict(len(names))

	for _, name := range names {
		c, _ := se.schema.Info(name)
		_ = defaults.SetKey(starlark.String(name), starlark.Float(c.Default))
		_ = bounds.SetKey(starlark.String(name), starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
			"min": starlark.Float(c.Min),
			"max": starlark.Float(c.Max),
		}))
	}
	defaults.Freeze()
	bounds.Freeze()

	return starlark.StringDict{
		"struct":   starlark.NewBuiltin("struct", starlarkstruct.Make),
		"defaults": defaults,
		"bounds":   bounds,
		"linspace": starlark.NewBuiltin("linspace", builtinLinspace),
	}
}

// builtinLinspace implements linspace(start, stop, n): n evenly spaced
// floats with both endpoints included.
func builtinLinspace(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var start, stop float64
	var n int
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "start", &start, "stop", &stop, "n", &n); err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("%s: n must be positive, got %d", b.Name(), n)
	}

	c := params.Constraint{Min: start, Max: stop}
	values := c.Linspace(n)
	list := make([]starlark.Value, len(values))
	for i, v := range values {
		list[i] = starlark.Float(v)
	}
	return starlark.NewList(list), nil
}

// scenariosFromGlobals reads either a scenarios list or top-level
// name/description/parameters globals.
func scenariosFromGlobals(filename string, globals starlark.StringDict) ([]Scenario, error) {
	base := defaultName(filename)

	if list, ok := globals["scenarios"]; ok {
		raw, err := fromStarlarkValue(list)
		if err != nil {
			return nil, fmt.Errorf("script %s: scenarios: %w", filename, err)
		}
		items, ok := raw.([]interface{})
		if !ok {
			return nil, fmt.Errorf("script %s: scenarios must be a list, got %s", filename, list.Type())
		}

		out := make([]Scenario, 0, len(items))
		for i, item := range items {
			fields, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("script %s: scenarios[%d] must be a dict", filename, i)
			}
			s, err := scenarioFromFields(fields)
			if err != nil {
				return nil, fmt.Errorf("script %s: scenarios[%d]: %w", filename, i, err)
			}
			if s.Name == "" {
				s.Name = fmt.Sprintf("%s-%d", base, i)
			}
			out = append(out, s)
		}
		return out, nil
	}

	if _, ok := globals["parameters"]; !ok {
		return nil, fmt.Errorf("script %s defines neither scenarios nor parameters", filename)
	}

	fields := make(map[string]interface{}, 3)
	for _, key := range []string{"name", "description", "parameters"} {
		v, ok := globals[key]
		if !ok {
			continue
		}
		goVal, err := fromStarlarkValue(v)
		if err != nil {
			return nil, fmt.Errorf("script %s: %s: %w", filename, key, err)
		}
		fields[key] = goVal
	}

	s, err := scenarioFromFields(fields)
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", filename, err)
	}
	if s.Name == "" {
		s.Name = base
	}
	return []Scenario{s}, nil
}

func scenarioFromFields(fields map[string]interface{}) (Scenario, error) {
	var s Scenario

	if v, ok := fields["name"]; ok && v != nil {
		name, ok := v.(string)
		if !ok {
			return s, fmt.Errorf("name must be a string")
		}
		s.Name = name
	}
	if v, ok := fields["description"]; ok && v != nil {
		desc, ok := v.(string)
		if !ok {
			return s, fmt.Errorf("description must be a string")
		}
		s.Description = desc
	}

	s.Parameters = map[string]any{}
	if v, ok := fields["parameters"]; ok && v != nil {
		p, ok := v.(map[string]interface{})
		if !ok {
			return s, fmt.Errorf("parameters must be a dict")
		}
		s.Parameters = p
	}
	return s, nil
}

// fromStarlarkValue converts a Starlark value to a Go value.
func fromStarlarkValue(v starlark.Value) (interface{}, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer too large")
		}
		return i, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	case *starlark.List:
		list := make([]interface{}, val.Len())
		for i := 0; i < val.Len(); i++ {
			item, err := fromStarlarkValue(val.Index(i))
			if err != nil {
				return nil, err
			}
			list[i] = item
		}
		return list, nil
	case starlark.Tuple:
		list := make([]interface{}, len(val))
		for i, item := range val {
			goItem, err := fromStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			list[i] = goItem
		}
		return list, nil
	case *starlark.Dict:
		dict := make(map[string]interface{})
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string")
			}
			value, err := fromStarlarkValue(item[1])
			if err != nil {
				return nil, err
			}
			dict[string(key)] = value
		}
		return dict, nil
	case *starlarkstruct.Struct:
		dict := make(map[string]interface{})
		for _, name := range val.AttrNames() {
			attr, err := val.Attr(name)
			if err != nil {
				continue
			}
			value, err := fromStarlarkValue(attr)
			if err != nil {
				return nil, err
			}
			dict[name] = value
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported starlark type: %s", v.Type())
	}
}
