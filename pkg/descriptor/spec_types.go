package descriptor

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/decker502/sparkfx/internal/particle"
)

// ValueSpec is the file form of a distribution. It accepts
//
//	1.5                      Single scalar
//	[0, 1, 0]                Single vector
//	"[1 1.5]"                compact notation, see particle.ParseValue
//	{single: 2}              explicit variant
//	{uniform: [1, 1.5]}      explicit variant, bounds may be vectors
type ValueSpec[T particle.Vector] struct {
	V particle.Value[T]
}

// CurveSpec is the file form of a keyframe curve. It accepts the compact
// notation of particle.ParseCurve, a list of {t, value} keys, or
// {interpolation: EaseOut, keys: [...]}.
type CurveSpec[T particle.Vector] struct {
	C particle.Curve[T]
}

func (v *ValueSpec[T]) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	return v.fromRaw(raw)
}

func (v *ValueSpec[T]) UnmarshalYAML(n *yaml.Node) error {
	var raw any
	if err := n.Decode(&raw); err != nil {
		return err
	}
	return v.fromRaw(raw)
}

func (v ValueSpec[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.plain())
}

func (v ValueSpec[T]) MarshalYAML() (any, error) {
	return v.plain(), nil
}

// MarshalText is used by encoders without a richer hook (TOML).
func (v ValueSpec[T]) MarshalText() ([]byte, error) {
	return []byte(v.V.String()), nil
}

// plain returns a bare number for finite scalar constants and the notation otherwise.
func (v ValueSpec[T]) plain() any {
	if v.V.Kind() == particle.KindSingle && particle.Dimension[T]() == 1 {
		lo, _ := v.V.Bounds()
		if f, ok := any(lo).(float64); ok && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return f
		}
	}
	return v.V.String()
}

func (v *ValueSpec[T]) fromRaw(raw any) error {
	switch r := raw.(type) {
	case string:
		val, err := particle.ParseValue[T](r)
		if err != nil {
			return err
		}
		v.V = val
		return nil
	case map[string]any:
		if len(r) != 1 {
			return fmt.Errorf("%w: distribution needs exactly one of single, uniform", ErrMultipleVariants)
		}
		if s, ok := r["single"]; ok {
			val, err := vectorFromRaw[T](s)
			if err != nil {
				return err
			}
			v.V = particle.Single(val)
			return nil
		}
		if u, ok := r["uniform"]; ok {
			bounds, ok := u.([]any)
			if !ok || len(bounds) != 2 {
				return fmt.Errorf("%w: uniform needs [low, high]", ErrInvalidParameter)
			}
			lo, err := vectorFromRaw[T](bounds[0])
			if err != nil {
				return err
			}
			hi, err := vectorFromRaw[T](bounds[1])
			if err != nil {
				return err
			}
			val := particle.Uniform(lo, hi)
			if err := val.Validate(); err != nil {
				return err
			}
			v.V = val
			return nil
		}
		for k := range r {
			return fmt.Errorf("%w: distribution kind %q", ErrUnknownVariant, k)
		}
	}
	val, err := vectorFromRaw[T](raw)
	if err != nil {
		return err
	}
	v.V = particle.Single(val)
	return nil
}

// JSONSchema describes every accepted spelling of a distribution.
func (ValueSpec[T]) JSONSchema() *jsonschema.Schema {
	vec := vectorSchema[T]()
	return &jsonschema.Schema{
		Description: "Constant or uniformly distributed value",
		OneOf: []*jsonschema.Schema{
			vec,
			{Type: "string", Description: "notation: \"1.5\" or \"[low high]\""},
			objectSchema("single", vec),
			objectSchema("uniform", &jsonschema.Schema{Type: "array", Items: vec}),
		},
	}
}

func (c *CurveSpec[T]) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	return c.fromRaw(raw)
}

func (c *CurveSpec[T]) UnmarshalYAML(n *yaml.Node) error {
	var raw any
	if err := n.Decode(&raw); err != nil {
		return err
	}
	return c.fromRaw(raw)
}

func (c CurveSpec[T]) MarshalJSON() ([]byte, error) { return json.Marshal(c.C.String()) }
func (c CurveSpec[T]) MarshalYAML() (any, error)    { return c.C.String(), nil }
func (c CurveSpec[T]) MarshalText() ([]byte, error) { return []byte(c.C.String()), nil }

func (c *CurveSpec[T]) fromRaw(raw any) error {
	var curve particle.Curve[T]
	switch r := raw.(type) {
	case string:
		parsed, err := particle.ParseCurve[T](r)
		if err != nil {
			return err
		}
		c.C = parsed
		return nil
	case map[string]any:
		if s, ok := r["interpolation"].(string); ok {
			interp, err := particle.ParseInterpolation(s)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrUnknownVariant, err)
			}
			curve.Interp = interp
		}
		keys, err := keysFromRaw[T](r["keys"])
		if err != nil {
			return err
		}
		curve.Keys = keys
	case []any:
		keys, err := keysFromRaw[T](r)
		if err != nil {
			return err
		}
		curve.Keys = keys
	default:
		return fmt.Errorf("%w: curve must be a string, list or map, got %T", ErrInvalidParameter, raw)
	}
	if err := curve.Validate(); err != nil {
		return err
	}
	c.C = curve
	return nil
}

func (CurveSpec[T]) JSONSchema() *jsonschema.Schema {
	key := &jsonschema.Schema{Type: "object", Description: "keyframe {t, value}"}
	keys := &jsonschema.Schema{Type: "array", Items: key}
	return &jsonschema.Schema{
		Description: "Keyframes over normalized lifetime, sorted by t",
		OneOf: []*jsonschema.Schema{
			{Type: "string", Description: "notation: \"0,1 0.5,1 1,0\""},
			keys,
			objectSchema("keys", keys),
		},
	}
}

func keysFromRaw[T particle.Vector](raw any) ([]particle.Keyframe[T], error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: curve keys must be a list", ErrInvalidParameter)
	}
	keys := make([]particle.Keyframe[T], 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: key %d must be {t, value}", ErrInvalidParameter, i)
		}
		t, ok := toFloat(m["t"])
		if !ok {
			return nil, fmt.Errorf("%w: key %d has no numeric t", ErrInvalidParameter, i)
		}
		val, err := vectorFromRaw[T](m["value"])
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		keys = append(keys, particle.Keyframe[T]{Time: t, Value: val})
	}
	return keys, nil
}

// vectorFromRaw accepts a number (scalars only) or a list of numbers.
func vectorFromRaw[T particle.Vector](raw any) (T, error) {
	if f, ok := toFloat(raw); ok {
		return particle.FromComponents[T]([]float64{f})
	}
	list, ok := raw.([]any)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: expected number or list, got %T", ErrInvalidParameter, raw)
	}
	nums := make([]float64, len(list))
	for i, item := range list {
		f, ok := toFloat(item)
		if !ok {
			var zero T
			return zero, fmt.Errorf("%w: component %d is %T", ErrInvalidParameter, i, item)
		}
		nums[i] = f
	}
	return particle.FromComponents[T](nums)
}

// toFloat normalises the numeric types produced by the JSON, YAML, TOML and Lua decoders.
func toFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func vectorSchema[T particle.Vector]() *jsonschema.Schema {
	if particle.Dimension[T]() == 1 {
		return &jsonschema.Schema{Type: "number"}
	}
	return &jsonschema.Schema{
		Type:        "array",
		Items:       &jsonschema.Schema{Type: "number"},
		Description: fmt.Sprintf("%d components", particle.Dimension[T]()),
	}
}

// objectSchema describes a single-key object. The value schema is only
// documented; nested properties are not generated.
func objectSchema(key string, value *jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "object",
		Required:    []string{key},
		Description: fmt.Sprintf("{%s: %s}", key, value.Type),
	}
}
