package component

import (
	"encoding/json"
	"fmt"

	"github.com/kbukum/automl/errors"
)

// Merge returns a new map with overrides applied over defaults.
func Merge(defaults, overrides map[string]any) map[string]any {
	out := make(map[string]any, len(defaults)+len(overrides))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// CopyParams returns a shallow copy of params.
func CopyParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	return Merge(params, nil)
}

// Equal compares parameter values, treating all numeric types as float64.
func Equal(a, b any) bool {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if okA && okB {
		return fa == fb
	}
	return a == b
}

// Float reads a numeric parameter.
func Float(params map[string]any, key string) (float64, error) {
	f, ok := toFloat(params[key])
	if !ok {
		return 0, errors.InvalidInput(key, fmt.Sprintf("parameter %q must be a number, got %v", key, params[key]))
	}
	return f, nil
}

// Int reads an integer parameter. Whole floats are accepted since decoded JSON
// carries every number as float64.
func Int(params map[string]any, key string) (int, error) {
	f, err := Float(params, key)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, errors.InvalidInput(key, fmt.Sprintf("parameter %q must be an integer, got %v", key, f))
	}
	return int(f), nil
}

// String reads a string parameter.
func String(params map[string]any, key string) (string, error) {
	s, ok := params[key].(string)
	if !ok {
		return "", errors.InvalidInput(key, fmt.Sprintf("parameter %q must be a string, got %v", key, params[key]))
	}
	return s, nil
}

// Bool reads a boolean parameter.
func Bool(params map[string]any, key string) (bool, error) {
	b, ok := params[key].(bool)
	if !ok {
		return false, errors.InvalidInput(key, fmt.Sprintf("parameter %q must be a boolean, got %v", key, params[key]))
	}
	return b, nil
}

// OneOf reads a string parameter restricted to the allowed values.
func OneOf(params map[string]any, key string, allowed ...string) (string, error) {
	s, err := String(params, key)
	if err != nil {
		return "", err
	}
	for _, a := range allowed {
		if s == a {
			return s, nil
		}
	}
	return "", errors.InvalidInput(key, fmt.Sprintf("parameter %q must be one of %v, got %q", key, allowed, s))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
