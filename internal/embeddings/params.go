package embeddings

import (
	"encoding/json"
	"fmt"
	"math"
)

// Params is the configuration payload handed to a Factory. Values usually come
// from code, YAML or persisted JSON, so numeric accessors accept any of the
// number representations those produce.
type Params map[string]any

// Clone returns a shallow copy, never nil
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// SecretParams lists keys that carry credentials. They are never persisted
// with a table schema.
var SecretParams = []string{"api_key"}

// WithoutSecrets returns a copy with every SecretParams key removed
func (p Params) WithoutSecrets() Params {
	out := p.Clone()
	for _, k := range SecretParams {
		delete(out, k)
	}
	return out
}

// String returns the string under key, or "" if absent
func (p Params) String(key string) (string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrConfiguration, key, v)
	}
	return s, nil
}

// Int returns the integer under key, or 0 if absent
func (p Params) Int(key string) (int, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return 0, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: %s must be an integer, got %v", ErrConfiguration, key, n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be an integer: %v", ErrConfiguration, key, err)
		}
		return int(i), nil
	default:
		return 0, fmt.Errorf("%w: %s must be an integer, got %T", ErrConfiguration, key, v)
	}
}

// Float returns the number under key, or def if absent
func (p Params) Float(key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be a number: %v", ErrConfiguration, key, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: %s must be a number, got %T", ErrConfiguration, key, v)
	}
}

// Bool returns the boolean under key, or false if absent
func (p Params) Bool(key string) (bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s must be a boolean, got %T", ErrConfiguration, key, v)
	}
	return b, nil
}

// Floats returns the number list under key, or nil if absent
func (p Params) Floats(key string) ([]float32, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch list := v.(type) {
	case []float32:
		return append([]float32(nil), list...), nil
	case []float64:
		out := make([]float32, len(list))
		for i, f := range list {
			out[i] = float32(f)
		}
		return out, nil
	case []any:
		out := make([]float32, len(list))
		for i, item := range list {
			f, err := Params{key: item}.Float(key, 0)
			if err != nil {
				return nil, err
			}
			out[i] = float32(f)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be a list of numbers, got %T", ErrConfiguration, key, v)
	}
}
