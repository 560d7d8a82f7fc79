package systems

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/sparkfx/pkg/descriptor"
)

// Snapshot is the per-frame render output of one effect instance, laid out
// as parallel slices indexed by particle. All slices have length Count.
type Snapshot struct {
	Name  string
	Count int

	Positions  []mgl64.Vec3 // world space
	Velocities []mgl64.Vec3 // world space
	Sizes      []mgl64.Vec2
	Colors     []mgl64.Vec4
	Ages       []float64 // normalized age in [0, 1]

	Texture             string
	TextureHandle       descriptor.TextureHandle
	Billboard           bool
	OrientAlongVelocity bool
	ZLayer              float64
	Space               descriptor.SimulationSpace
}

func (s *Snapshot) reset(n int) {
	s.Count = n
	s.Positions = grow(s.Positions, n)
	s.Velocities = grow(s.Velocities, n)
	s.Sizes = grow(s.Sizes, n)
	s.Colors = grow(s.Colors, n)
	s.Ages = grow(s.Ages, n)
	s.Texture = ""
	s.Billboard = false
	s.OrientAlongVelocity = false
}

func grow[T any](buf []T, n int) []T {
	if cap(buf) < n {
		return make([]T, n)
	}
	return buf[:n]
}

// Clone returns a deep copy that does not share buffers with s.
func (s *Snapshot) Clone() *Snapshot {
	c := *s
	c.Positions = append([]mgl64.Vec3(nil), s.Positions...)
	c.Velocities = append([]mgl64.Vec3(nil), s.Velocities...)
	c.Sizes = append([]mgl64.Vec2(nil), s.Sizes...)
	c.Colors = append([]mgl64.Vec4(nil), s.Colors...)
	c.Ages = append([]float64(nil), s.Ages...)
	return &c
}
