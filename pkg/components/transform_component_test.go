package components

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestTransformComponent_Matrix(t *testing.T) {
	tests := []struct {
		name string
		tr   TransformComponent
		in   mgl64.Vec3
		want mgl64.Vec3
	}{
		{"identity", TransformComponent{Scale: 1}, mgl64.Vec3{1, 2, 3}, mgl64.Vec3{1, 2, 3}},
		{"zero scale treated as one", TransformComponent{}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{1, 0, 0}},
		{"translate", TransformComponent{Position: mgl64.Vec3{5, 0, 0}, Scale: 1}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{6, 0, 0}},
		{"rotate then translate", TransformComponent{Position: mgl64.Vec3{0, 1, 0}, Rotation: math.Pi / 2, Scale: 2}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 3, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.tr.Matrix().Mul4x1(tt.in.Vec4(1)).Vec3()
			if !got.ApproxEqualThreshold(tt.want, 1e-9) {
				t.Errorf("Matrix() * %v = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewTransform(t *testing.T) {
	tr := NewTransform(mgl64.Vec3{1, 2, 0})
	if tr.Scale != 1 || !tr.Dirty {
		t.Errorf("NewTransform() = %+v", tr)
	}
}
