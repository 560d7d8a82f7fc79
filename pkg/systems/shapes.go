package systems

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/sparkfx/internal/particle"
	"github.com/decker502/sparkfx/pkg/descriptor"
)

// shapes.go - 发射形状采样
// 位置初始化器在圆、球、圆锥上（Surface）或内部（Filled）均匀采样

const twoPi = 2 * math.Pi

// planeBasis returns two unit vectors spanning the plane orthogonal to axis.
func planeBasis(axis mgl64.Vec3) (u, v mgl64.Vec3) {
	n := normalizeOr(axis, mgl64.Vec3{0, 0, 1})
	ref := mgl64.Vec3{1, 0, 0}
	if math.Abs(n.X()) > 0.9 {
		ref = mgl64.Vec3{0, 1, 0}
	}
	u = n.Cross(ref).Normalize()
	v = n.Cross(u)
	return u, v
}

func normalizeOr(v, fallback mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l < 1e-12 || math.IsNaN(l) || math.IsInf(l, 0) {
		return fallback
	}
	return v.Mul(1 / l)
}

// randomUnit samples a direction uniformly on the unit sphere.
func randomUnit(r particle.Rand) mgl64.Vec3 {
	z := 2*r.Float64() - 1
	phi := twoPi * r.Float64()
	s := math.Sqrt(max(0, 1-z*z))
	return mgl64.Vec3{s * math.Cos(phi), s * math.Sin(phi), z}
}

func samplePosition(m descriptor.PositionInit, r particle.Rand) mgl64.Vec3 {
	switch m := m.(type) {
	case descriptor.InitPositionCircle:
		u, v := planeBasis(m.Axis)
		theta := twoPi * r.Float64()
		rad := m.Radius
		if m.Dimension == descriptor.Filled {
			rad *= math.Sqrt(r.Float64())
		}
		return m.Center.Add(u.Mul(rad * math.Cos(theta))).Add(v.Mul(rad * math.Sin(theta)))

	case descriptor.InitPositionSphere:
		dir := randomUnit(r)
		rad := m.Radius
		if m.Dimension == descriptor.Filled {
			rad *= math.Cbrt(r.Float64())
		}
		return m.Center.Add(dir.Mul(rad))

	case descriptor.InitPositionCone:
		f := r.Float64()
		theta := twoPi * r.Float64()
		rad := m.BaseRadius + (m.TopRadius-m.BaseRadius)*f
		if m.Dimension == descriptor.Filled {
			rad *= math.Sqrt(r.Float64())
		}
		return mgl64.Vec3{rad * math.Cos(theta), f * m.Height, rad * math.Sin(theta)}
	}
	return mgl64.Vec3{}
}

// sampleVelocity derives the spawn velocity from the already initialized position.
func sampleVelocity(m descriptor.VelocityInit, pos mgl64.Vec3, r particle.Rand) mgl64.Vec3 {
	switch m := m.(type) {
	case descriptor.InitVelocityCircle:
		axis := normalizeOr(m.Axis, mgl64.Vec3{0, 0, 1})
		d := pos.Sub(m.Center)
		d = d.Sub(axis.Mul(d.Dot(axis)))
		if d.Len() < 1e-12 {
			// 在圆心处：在平面内随机取方向
			u, v := planeBasis(axis)
			theta := twoPi * r.Float64()
			d = u.Mul(math.Cos(theta)).Add(v.Mul(math.Sin(theta)))
		}
		return d.Normalize().Mul(m.Speed.Sample(r))

	case descriptor.InitVelocitySphere:
		d := pos.Sub(m.Center)
		if d.Len() < 1e-12 {
			d = randomUnit(r)
		}
		return d.Normalize().Mul(m.Speed.Sample(r))

	case descriptor.InitVelocityTangent:
		t := m.Axis.Cross(pos.Sub(m.Origin))
		speed := m.Speed.Sample(r)
		if t.Len() < 1e-12 {
			return mgl64.Vec3{}
		}
		return t.Normalize().Mul(speed)
	}
	return mgl64.Vec3{}
}
