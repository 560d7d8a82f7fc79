package particle

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrSyntax is wrapped by every notation parse failure.
var ErrSyntax = errors.New("invalid value notation")

// ParseValue parses a distribution written in the compact notation used by
// descriptor files and the effectctl tool.
//
// Supported formats (vectors are comma separated components):
//   - Fixed value: "1.5" → Single(1.5); "0,1,0" → Single(Vec3{0,1,0})
//   - Fixed value in brackets: "[1.5]" → Single(1.5)
//   - Range: "[1 1.5]" → Uniform(1, 1.5); "[0,0,0 1,1,1]" → Uniform per component
//
// The returned value is validated, so a range whose low bound exceeds its
// high bound yields ErrInvalidRange.
func ParseValue[T Vector](s string) (Value[T], error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Value[T]{}, fmt.Errorf("%w: empty", ErrSyntax)
	}

	if !strings.HasPrefix(s, "[") {
		v, err := parseVector[T](s)
		if err != nil {
			return Value[T]{}, err
		}
		return Single(v), nil
	}

	if !strings.HasSuffix(s, "]") {
		return Value[T]{}, fmt.Errorf("%w: unterminated range %q", ErrSyntax, s)
	}
	parts := strings.Fields(strings.TrimSuffix(strings.TrimPrefix(s, "["), "]"))
	switch len(parts) {
	case 1:
		v, err := parseVector[T](parts[0])
		if err != nil {
			return Value[T]{}, err
		}
		return Single(v), nil
	case 2:
		lo, err := parseVector[T](parts[0])
		if err != nil {
			return Value[T]{}, err
		}
		hi, err := parseVector[T](parts[1])
		if err != nil {
			return Value[T]{}, err
		}
		v := Uniform(lo, hi)
		return v, v.Validate()
	default:
		return Value[T]{}, fmt.Errorf("%w: range %q needs one or two bounds", ErrSyntax, s)
	}
}

// ParseCurve parses keyframes written as "time,value" pairs separated by spaces.
//
// Supported formats:
//   - Scalar keys: "0,1 0.5,1 1,0"
//   - Vector keys, time first: "0,1,1,1,1 1,1,1,1,0" (Vec4 colour fading out)
//   - Interpolation keyword anywhere: "EaseOut 0,0 1,10"
//
// Keys must already be sorted; out-of-order keys yield ErrCurveOrder.
func ParseCurve[T Vector](s string) (Curve[T], error) {
	var c Curve[T]
	dim := Dimension[T]()
	for _, field := range strings.Fields(s) {
		if !strings.Contains(field, ",") {
			interp, err := ParseInterpolation(field)
			if err != nil {
				return Curve[T]{}, fmt.Errorf("%w: %v", ErrSyntax, err)
			}
			c.Interp = interp
			continue
		}

		nums, err := parseFloats(field)
		if err != nil {
			return Curve[T]{}, err
		}
		if len(nums) != dim+1 {
			return Curve[T]{}, fmt.Errorf("%w: key %q has %d components, want time plus %d", ErrSyntax, field, len(nums), dim)
		}
		v, err := FromComponents[T](nums[1:])
		if err != nil {
			return Curve[T]{}, err
		}
		c.Keys = append(c.Keys, Keyframe[T]{Time: nums[0], Value: v})
	}
	if err := c.Validate(); err != nil {
		return Curve[T]{}, err
	}
	return c, nil
}

func parseVector[T Vector](s string) (T, error) {
	nums, err := parseFloats(s)
	if err != nil {
		var zero T
		return zero, err
	}
	return FromComponents[T](nums)
}

func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrSyntax, p)
		}
		out[i] = f
	}
	return out, nil
}
