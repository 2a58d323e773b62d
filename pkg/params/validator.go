package params

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Set is a parameter mapping with numeric values.
type Set map[string]float64

// Clone returns a shallow copy of the set.
func (p Set) Clone() Set {
	out := make(Set, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Raw converts the set to the untyped inbound form.
func (p Set) Raw() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// WithDefaults returns a copy of the set with every missing schema key set
// to its default.
func (p Set) WithDefaults(s *Schema) Set {
	out := p.Clone()
	for _, name := range s.order {
		if _, ok := out[name]; !ok {
			out[name] = s.constraints[name].Default
		}
	}
	return out
}

// Validate checks a raw parameter mapping against the schema and returns
// whether it is valid together with every violation found. Keys are
// examined in sorted order so messages are stable.
func (s *Schema) Validate(raw map[string]any) (bool, []string) {
	errs := make([]string, 0)

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, name := range keys {
		c, ok := s.constraints[name]
		if !ok {
			errs = append(errs, fmt.Sprintf("Unknown parameter: %s", name))
			continue
		}

		v, ok := toFloat(raw[name])
		if !ok {
			errs = append(errs, fmt.Sprintf("%s must be a number, got %s", name, typeName(raw[name])))
			continue
		}

		if !c.Contains(v) {
			errs = append(errs, fmt.Sprintf("%s must be between %v and %v, got %v", name, c.Min, c.Max, v))
		}
	}

	for _, name := range s.order {
		if !s.constraints[name].Required {
			continue
		}
		if _, ok := raw[name]; !ok {
			errs = append(errs, fmt.Sprintf("Required parameter missing: %s", name))
		}
	}

	return len(errs) == 0, errs
}

// ValidateSet validates a numeric set and returns a ValidationError when it
// has violations.
func (s *Schema) ValidateSet(p Set) error {
	if ok, errs := s.Validate(p.Raw()); !ok {
		return NewValidationError(errs...)
	}
	return nil
}

// FillDefaults returns a copy of raw with every missing schema key set to
// its default. It does not validate.
func (s *Schema) FillDefaults(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw)+len(s.order))
	for k, v := range raw {
		out[k] = v
	}
	for _, name := range s.order {
		if _, ok := out[name]; !ok {
			out[name] = s.constraints[name].Default
		}
	}
	return out
}

// Normalize fills defaults, validates and converts raw input to a Set.
func (s *Schema) Normalize(raw map[string]any) (Set, error) {
	filled := s.FillDefaults(raw)
	if ok, errs := s.Validate(filled); !ok {
		return nil, NewValidationError(errs...)
	}

	out := make(Set, len(filled))
	for k, v := range filled {
		f, _ := toFloat(v)
		out[k] = f
	}
	return out, nil
}

// toFloat converts the numeric kinds a decoder may produce to float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
