package particle

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestCurveEndpoints(t *testing.T) {
	tests := []struct {
		name  string
		curve Curve[float64]
		first float64
		last  float64
	}{
		{"single key", Constant(3.0), 3, 3},
		{"two keys", NewCurve(Keyframe[float64]{0, 1}, Keyframe[float64]{1, 0}), 1, 0},
		{"inner keys", NewCurve(Keyframe[float64]{0.2, 5}, Keyframe[float64]{0.8, 9}), 5, 9},
		{"three keys", NewCurve(Keyframe[float64]{0, 1}, Keyframe[float64]{0.5, 1}, Keyframe[float64]{1, 0}), 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.curve.Evaluate(0); got != tt.first {
				t.Errorf("Evaluate(0) = %v, want %v", got, tt.first)
			}
			if got := tt.curve.Evaluate(1); got != tt.last {
				t.Errorf("Evaluate(1) = %v, want %v", got, tt.last)
			}
		})
	}
}

func TestCurveSingleKeyIsConstant(t *testing.T) {
	c := NewCurve(Keyframe[mgl64.Vec4]{Time: 0.5, Value: mgl64.Vec4{1, 1, 1, 1}})
	for _, x := range []float64{-1, 0, 0.25, 0.5, 0.75, 1, 2} {
		if got := c.Evaluate(x); got != (mgl64.Vec4{1, 1, 1, 1}) {
			t.Errorf("Evaluate(%v) = %v", x, got)
		}
	}
}

func TestCurveLinearInterpolation(t *testing.T) {
	c := NewCurve(
		Keyframe[float64]{0, 0},
		Keyframe[float64]{0.5, 10},
		Keyframe[float64]{1, 0},
	)
	tests := []struct {
		t, want float64
	}{
		{0.25, 5},
		{0.5, 10},
		{0.75, 5},
		{-0.5, 0},
		{1.5, 0},
	}
	for _, tt := range tests {
		if got := c.Evaluate(tt.t); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Evaluate(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestCurveClampsOutsideKeys(t *testing.T) {
	c := NewCurve(Keyframe[float64]{0.3, 2}, Keyframe[float64]{0.6, 4})
	if got := c.Evaluate(0.1); got != 2 {
		t.Errorf("before first key = %v, want 2", got)
	}
	if got := c.Evaluate(0.9); got != 4 {
		t.Errorf("after last key = %v, want 4", got)
	}
}

func TestCurveEasing(t *testing.T) {
	tests := []struct {
		interp Interpolation
		want   float64
	}{
		{Linear, 0.5},
		{EaseIn, 0.25},
		{EaseOut, 0.75},
		{EaseInOut, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.interp.String(), func(t *testing.T) {
			c := NewCurve(Keyframe[float64]{0, 0}, Keyframe[float64]{1, 1})
			c.Interp = tt.interp
			if got := c.Evaluate(0.5); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Evaluate(0.5) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCurveVectorInterpolation(t *testing.T) {
	c := NewCurve(
		Keyframe[mgl64.Vec2]{0, mgl64.Vec2{1, 1}},
		Keyframe[mgl64.Vec2]{1, mgl64.Vec2{3, 0}},
	)
	got := c.Evaluate(0.5)
	if !got.ApproxEqual(mgl64.Vec2{2, 0.5}) {
		t.Errorf("Evaluate(0.5) = %v, want [2 0.5]", got)
	}
}

func TestCurveValidate(t *testing.T) {
	tests := []struct {
		name    string
		curve   Curve[float64]
		wantErr error
	}{
		{"sorted", NewCurve(Keyframe[float64]{0, 1}, Keyframe[float64]{1, 0}), nil},
		{"step", NewCurve(Keyframe[float64]{0.5, 1}, Keyframe[float64]{0.5, 0}), nil},
		{"unsorted", NewCurve(Keyframe[float64]{1, 1}, Keyframe[float64]{0, 0}), ErrCurveOrder},
		{"time above one", NewCurve(Keyframe[float64]{0, 1}, Keyframe[float64]{1.5, 0}), ErrKeyframeTime},
		{"negative time", NewCurve(Keyframe[float64]{-0.1, 1}), ErrKeyframeTime},
		{"NaN time", NewCurve(Keyframe[float64]{0, 1}, Keyframe[float64]{math.NaN(), 0}), ErrKeyframeTime},
		{"NaN first time", NewCurve(Keyframe[float64]{math.NaN(), 1}, Keyframe[float64]{1, 0}), ErrKeyframeTime},
		{"empty", Curve[float64]{}, ErrEmptyCurve},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.curve.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// 未通过 Validate 的曲线求值时不能越界
func TestCurveEvaluateInvalidKeys(t *testing.T) {
	curves := map[string]Curve[float64]{
		"NaN last":  NewCurve(Keyframe[float64]{0, 1}, Keyframe[float64]{math.NaN(), 0}),
		"NaN first": NewCurve(Keyframe[float64]{math.NaN(), 1}, Keyframe[float64]{1, 0}),
		"unsorted":  NewCurve(Keyframe[float64]{0, 1}, Keyframe[float64]{0.8, 2}, Keyframe[float64]{0.2, 3}),
	}
	for name, c := range curves {
		t.Run(name, func(t *testing.T) {
			for _, x := range []float64{0, 0.1, 0.5, 0.9, 1, math.NaN()} {
				_ = c.Evaluate(x)
			}
		})
	}
	if got := curves["NaN last"].Evaluate(0.5); got != 0 {
		t.Errorf("Evaluate(0.5) = %v, want last value 0", got)
	}
}

func TestCurveInsertKeepsOrder(t *testing.T) {
	c := NewCurve(Keyframe[float64]{0, 0}, Keyframe[float64]{1, 1})
	if i := c.Insert(0.5, 7); i != 1 {
		t.Errorf("Insert(0.5) index = %d, want 1", i)
	}
	if i := c.Insert(3, 9); i != 3 {
		t.Errorf("Insert(3) index = %d, want 3 (clamped to the end)", i)
	}
	if c.Keys[3].Time != 1 {
		t.Errorf("clamped key time = %v, want 1", c.Keys[3].Time)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() after inserts = %v", err)
	}
	if got := c.Evaluate(0.5); got != 7 {
		t.Errorf("Evaluate(0.5) = %v, want 7", got)
	}
}

func TestCurveRemoveAndSort(t *testing.T) {
	c := NewCurve(Keyframe[float64]{0.8, 2}, Keyframe[float64]{0.2, 1}, Keyframe[float64]{0.5, 3})
	c.Sort()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() after Sort = %v", err)
	}
	if !c.Remove(1) || c.Len() != 2 {
		t.Fatalf("Remove(1) failed, len = %d", c.Len())
	}
	if c.Remove(5) {
		t.Error("Remove(5) reported success on a two-key curve")
	}
	if c.Keys[0].Value != 1 || c.Keys[1].Value != 2 {
		t.Errorf("keys after remove = %v", c.Keys)
	}
}

func TestParseInterpolation(t *testing.T) {
	tests := []struct {
		in      string
		want    Interpolation
		wantErr bool
	}{
		{"", Linear, false},
		{"Linear", Linear, false},
		{"EaseIn", EaseIn, false},
		{"EaseOut", EaseOut, false},
		{"FastInOutWeak", EaseInOut, false},
		{"Bounce", Linear, true},
	}
	for _, tt := range tests {
		got, err := ParseInterpolation(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseInterpolation(%q) = %v, %v", tt.in, got, err)
		}
	}
}
