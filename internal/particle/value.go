// Package particle provides the sampling primitives shared by every effect:
// value distributions, keyframe curves and the text notation both are written in.
//
// A value is either a constant or a uniform random draw. Curves map a particle's
// normalized lifetime (0-1) to a value through piecewise interpolation.
package particle

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	// ErrInvalidRange is returned when a uniform distribution has a component
	// whose low bound is greater than its high bound.
	ErrInvalidRange = errors.New("invalid distribution range")

	// ErrDimension is returned when a vector literal has the wrong number of components.
	ErrDimension = errors.New("wrong number of components")
)

// Vector is the set of quantities a Value or Curve can carry.
type Vector interface {
	float64 | mgl64.Vec2 | mgl64.Vec3 | mgl64.Vec4
}

// Kind identifies a distribution variant.
type Kind uint8

const (
	KindSingle  Kind = iota // constant value
	KindUniform             // uniform draw in [lo, hi]
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "Single"
	case KindUniform:
		return "Uniform"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a scalar or vector quantity that is either fixed or drawn at random.
// The zero Value is Single(zero).
type Value[T Vector] struct {
	kind Kind
	lo   T
	hi   T
}

// Single returns a distribution that always samples v.
func Single[T Vector](v T) Value[T] {
	return Value[T]{kind: KindSingle, lo: v, hi: v}
}

// Uniform returns a distribution sampling each component independently in [lo, hi].
// The range is not checked here; call Validate.
func Uniform[T Vector](lo, hi T) Value[T] {
	return Value[T]{kind: KindUniform, lo: lo, hi: hi}
}

// Kind reports the distribution variant.
func (v Value[T]) Kind() Kind { return v.kind }

// Bounds returns the low and high ends. For Single both are the constant.
func (v Value[T]) Bounds() (lo, hi T) { return v.lo, v.hi }

// IsConstant reports whether every sample is the same value.
func (v Value[T]) IsConstant() bool {
	return v.kind == KindSingle || v.lo == v.hi
}

// Sample draws one value. Single never consumes the random source.
func (v Value[T]) Sample(r Rand) T {
	if v.kind == KindSingle {
		return v.lo
	}
	return sampleUniform(v.lo, v.hi, r)
}

// Validate reports ErrInvalidRange for a Uniform whose low bound exceeds its
// high bound or that has a NaN bound.
func (v Value[T]) Validate() error {
	if v.kind != KindUniform {
		return nil
	}
	lo, hi := components(v.lo), components(v.hi)
	for i := range lo {
		if math.IsNaN(lo[i]) || math.IsNaN(hi[i]) || lo[i] > hi[i] {
			return fmt.Errorf("%w: %s", ErrInvalidRange, v)
		}
	}
	return nil
}

// String formats the value in the notation accepted by ParseValue.
func (v Value[T]) String() string {
	if v.kind == KindSingle {
		return formatVector(v.lo)
	}
	return "[" + formatVector(v.lo) + " " + formatVector(v.hi) + "]"
}

// Dimension returns the number of float components in T.
func Dimension[T Vector]() int {
	var zero T
	return len(components(zero))
}

func sampleUniform[T Vector](lo, hi T, r Rand) T {
	switch pl := any(&lo).(type) {
	case *float64:
		ph := any(&hi).(*float64)
		*pl += (*ph - *pl) * r.Float64()
	case *mgl64.Vec2:
		ph := any(&hi).(*mgl64.Vec2)
		for i := range pl {
			pl[i] += (ph[i] - pl[i]) * r.Float64()
		}
	case *mgl64.Vec3:
		ph := any(&hi).(*mgl64.Vec3)
		for i := range pl {
			pl[i] += (ph[i] - pl[i]) * r.Float64()
		}
	case *mgl64.Vec4:
		ph := any(&hi).(*mgl64.Vec4)
		for i := range pl {
			pl[i] += (ph[i] - pl[i]) * r.Float64()
		}
	}
	return lo
}

// lerp returns a + (b-a)*t.
func lerp[T Vector](a, b T, t float64) T {
	switch pa := any(&a).(type) {
	case *float64:
		pb := any(&b).(*float64)
		*pa += (*pb - *pa) * t
	case *mgl64.Vec2:
		pb := any(&b).(*mgl64.Vec2)
		*pa = pa.Add(pb.Sub(*pa).Mul(t))
	case *mgl64.Vec3:
		pb := any(&b).(*mgl64.Vec3)
		*pa = pa.Add(pb.Sub(*pa).Mul(t))
	case *mgl64.Vec4:
		pb := any(&b).(*mgl64.Vec4)
		*pa = pa.Add(pb.Sub(*pa).Mul(t))
	}
	return a
}

// components returns the float components of v. The slice does not alias v.
func components[T Vector](v T) []float64 {
	switch p := any(&v).(type) {
	case *float64:
		return []float64{*p}
	case *mgl64.Vec2:
		return p[:]
	case *mgl64.Vec3:
		return p[:]
	case *mgl64.Vec4:
		return p[:]
	}
	return nil
}

// FromComponents builds a T from exactly Dimension[T]() floats.
func FromComponents[T Vector](c []float64) (T, error) {
	var out T
	if n := Dimension[T](); len(c) != n {
		return out, fmt.Errorf("%w: got %d, want %d", ErrDimension, len(c), n)
	}
	switch p := any(&out).(type) {
	case *float64:
		*p = c[0]
	case *mgl64.Vec2:
		copy(p[:], c)
	case *mgl64.Vec3:
		copy(p[:], c)
	case *mgl64.Vec4:
		copy(p[:], c)
	}
	return out, nil
}

func formatVector[T Vector](v T) string {
	c := components(v)
	parts := make([]string, len(c))
	for i, f := range c {
		parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}
