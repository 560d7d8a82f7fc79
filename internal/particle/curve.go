package particle

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrCurveOrder is returned when curve keys are not sorted by ascending time.
	ErrCurveOrder = errors.New("curve keys not sorted by time")

	// ErrKeyframeTime is returned when a key lies outside the normalized range [0, 1].
	ErrKeyframeTime = errors.New("keyframe time outside [0, 1]")

	// ErrEmptyCurve is returned when a curve has no keys at all.
	ErrEmptyCurve = errors.New("curve has no keys")
)

// Interpolation selects how a curve blends between two neighbouring keys.
type Interpolation uint8

const (
	Linear Interpolation = iota
	EaseIn
	EaseOut
	EaseInOut
)

var interpolationNames = [...]string{
	Linear:    "Linear",
	EaseIn:    "EaseIn",
	EaseOut:   "EaseOut",
	EaseInOut: "EaseInOut",
}

func (i Interpolation) String() string {
	if int(i) < len(interpolationNames) {
		return interpolationNames[i]
	}
	return fmt.Sprintf("Interpolation(%d)", uint8(i))
}

// ParseInterpolation converts a keyword to an Interpolation.
// "FastInOutWeak" is accepted as an alias of EaseInOut; the empty string is Linear.
func ParseInterpolation(s string) (Interpolation, error) {
	switch s {
	case "", "Linear":
		return Linear, nil
	case "EaseIn":
		return EaseIn, nil
	case "EaseOut":
		return EaseOut, nil
	case "EaseInOut", "FastInOutWeak":
		return EaseInOut, nil
	}
	return Linear, fmt.Errorf("unknown interpolation %q", s)
}

func (i Interpolation) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *Interpolation) UnmarshalText(b []byte) error {
	v, err := ParseInterpolation(string(b))
	if err != nil {
		return err
	}
	*i = v
	return nil
}

// ease remaps a segment ratio in [0, 1].
func (i Interpolation) ease(r float64) float64 {
	switch i {
	case EaseIn:
		return r * r
	case EaseOut:
		return 1 - (1-r)*(1-r)
	case EaseInOut:
		return r * r * (3 - 2*r)
	default:
		return r
	}
}

// Keyframe is one control point of a curve.
type Keyframe[T Vector] struct {
	Time  float64 // normalized lifetime, 0-1
	Value T
}

// Curve is a piecewise function over a particle's normalized lifetime.
// Keys must be sorted by ascending Time; Validate enforces it.
type Curve[T Vector] struct {
	Keys   []Keyframe[T]
	Interp Interpolation
}

// NewCurve returns a linear curve over the given keys, in the order given.
func NewCurve[T Vector](keys ...Keyframe[T]) Curve[T] {
	return Curve[T]{Keys: keys}
}

// Constant returns a single-key curve.
func Constant[T Vector](v T) Curve[T] {
	return Curve[T]{Keys: []Keyframe[T]{{Time: 0, Value: v}}}
}

// Len returns the number of keys.
func (c Curve[T]) Len() int { return len(c.Keys) }

// Evaluate returns the curve value at t.
//
// t before the first key clamps to the first value and t after the last key
// clamps to the last value. A single-key curve is constant; an empty curve
// evaluates to the zero value.
func (c Curve[T]) Evaluate(t float64) T {
	keys := c.Keys
	switch len(keys) {
	case 0:
		var zero T
		return zero
	case 1:
		return keys[0].Value
	}

	if t <= keys[0].Time {
		return keys[0].Value
	}
	last := len(keys) - 1
	if t >= keys[last].Time {
		return keys[last].Value
	}

	// first key strictly after t; keys[i-1].Time <= t < keys[i].Time
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Time > t })
	if i == 0 || i > last {
		// unsorted or NaN keys; Validate rejects both
		return keys[last].Value
	}
	k0, k1 := keys[i-1], keys[i]
	span := k1.Time - k0.Time
	if span <= 0 {
		return k1.Value
	}
	return lerp(k0.Value, k1.Value, c.Interp.ease((t-k0.Time)/span))
}

// Validate reports an empty curve, a key outside [0, 1] (NaN included), or
// keys out of order. Equal times are allowed and produce a step.
func (c Curve[T]) Validate() error {
	if len(c.Keys) == 0 {
		return ErrEmptyCurve
	}
	for i, k := range c.Keys {
		if math.IsNaN(k.Time) || k.Time < 0 || k.Time > 1 {
			return fmt.Errorf("%w: key %d at %g", ErrKeyframeTime, i, k.Time)
		}
		if i > 0 && k.Time < c.Keys[i-1].Time {
			return fmt.Errorf("%w: key %d at %g follows %g", ErrCurveOrder, i, k.Time, c.Keys[i-1].Time)
		}
	}
	return nil
}

// Insert adds a key, clamping t to [0, 1] and keeping the keys sorted.
// A key inserted at an existing time goes after it. Returns the new key's index.
func (c *Curve[T]) Insert(t float64, v T) int {
	t = max(0, min(1, t))
	i := sort.Search(len(c.Keys), func(i int) bool { return c.Keys[i].Time > t })
	c.Keys = append(c.Keys, Keyframe[T]{})
	copy(c.Keys[i+1:], c.Keys[i:])
	c.Keys[i] = Keyframe[T]{Time: t, Value: v}
	return i
}

// Remove deletes the key at index i. It reports false when i is out of range.
func (c *Curve[T]) Remove(i int) bool {
	if i < 0 || i >= len(c.Keys) {
		return false
	}
	c.Keys = append(c.Keys[:i], c.Keys[i+1:]...)
	return true
}

// Sort orders the keys by time, keeping the relative order of equal times.
func (c *Curve[T]) Sort() {
	sort.SliceStable(c.Keys, func(i, j int) bool { return c.Keys[i].Time < c.Keys[j].Time })
}

// String formats the curve in the notation accepted by ParseCurve.
func (c Curve[T]) String() string {
	var b []byte
	if c.Interp != Linear {
		b = append(b, c.Interp.String()...)
	}
	for _, k := range c.Keys {
		if len(b) > 0 {
			b = append(b, ' ')
		}
		b = fmt.Appendf(b, "%g,%s", k.Time, formatVector(k.Value))
	}
	return string(b)
}
