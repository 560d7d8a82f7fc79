package systems

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/decker502/sparkfx/internal/particle"
	"github.com/decker502/sparkfx/pkg/descriptor"
	"github.com/decker502/sparkfx/pkg/pool"
)

// Pipeline runs the modifier stages of one descriptor over a particle pool.
//
// Each Step processes a frame in fixed order:
//  1. Spawn: claim pool slots for the spawner's request and run the init modifiers
//  2. Update: apply acceleration, force fields, drag and AABB kill to every live particle
//  3. Integrate: advance position by velocity and age by dt
//  4. Reclaim: return dead particles' slots to the pool
//
// Render then fills a Snapshot from the surviving particles.
type Pipeline struct {
	desc   *descriptor.Descriptor
	init   []descriptor.InitModifier
	update []descriptor.UpdateModifier
	render []descriptor.RenderModifier

	texture   descriptor.TextureHandle
	saturated bool
	log       *zap.Logger
}

// FrameStats reports what happened during one Step.
type FrameStats struct {
	Requested uint32 // particles the spawner asked for
	Spawned   int
	Dropped   int // requests refused because the pool was full
	Reclaimed int
}

// NewPipeline captures the modifier lists of d. The descriptor must not be
// mutated while the pipeline is in use.
func NewPipeline(d *descriptor.Descriptor, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		desc:   d,
		init:   d.InitModifiers(),
		update: d.UpdateModifiers(),
		render: d.RenderModifiers(),
		log:    logger,
	}
}

// SetTexture sets the handle reported in snapshots.
func (pl *Pipeline) SetTexture(h descriptor.TextureHandle) { pl.texture = h }

// Step simulates one frame. xf is the effect transform; in Global space it
// places newly spawned particles in world space, in Local space it is unused
// until Render.
func (pl *Pipeline) Step(p *pool.Pool, sp *Spawner, r particle.Rand, dt float64, xf mgl64.Mat4) FrameStats {
	var stats FrameStats
	if dt < 0 || math.IsNaN(dt) {
		return stats
	}

	if sp != nil {
		stats.Requested = sp.Advance(dt)
		pl.spawn(p, r, xf, &stats)
	}

	p.ForEachLive(func(_ pool.SlotIndex, pt *pool.Particle) {
		pl.updateParticle(pt, r, dt)
		// 积分：位置 += 速度 * dt，年龄不超过寿命
		pt.Position = pt.Position.Add(pt.Velocity.Mul(dt))
		pt.Age = min(pt.Age+dt, pt.Lifetime)
	})

	stats.Reclaimed = p.ReclaimDead()
	return stats
}

func (pl *Pipeline) spawn(p *pool.Pool, r particle.Rand, xf mgl64.Mat4, stats *FrameStats) {
	global := pl.desc.SimulationSpace == descriptor.Global
	for i := uint32(0); i < stats.Requested; i++ {
		slot, ok := p.TrySpawn()
		if !ok {
			stats.Dropped = int(stats.Requested - i)
			break
		}
		pt := p.At(slot)
		pl.initParticle(pt, r)
		if global {
			pt.Position = xf.Mul4x1(pt.Position.Vec4(1)).Vec3()
			pt.Velocity = xf.Mul4x1(pt.Velocity.Vec4(0)).Vec3()
		}
		stats.Spawned++
	}

	switch {
	case stats.Dropped > 0 && !pl.saturated:
		pl.saturated = true
		pl.log.Debug("pool saturated, dropping spawns",
			zap.String("effect", pl.desc.Name),
			zap.Int("capacity", p.Capacity()),
			zap.Int("dropped", stats.Dropped))
	case stats.Dropped == 0 && stats.Requested > 0 && pl.saturated:
		pl.saturated = false
	}
}

func (pl *Pipeline) initParticle(pt *pool.Particle, r particle.Rand) {
	for _, m := range pl.init {
		switch m := m.(type) {
		case descriptor.PositionInit:
			pt.Position = samplePosition(m, r)
		case descriptor.VelocityInit:
			pt.Velocity = sampleVelocity(m, pt.Position, r)
		case descriptor.InitSize:
			pt.Size = m.Size.Sample(r)
		case descriptor.InitAge:
			pt.Age = max(0, m.Age.Sample(r))
		case descriptor.InitLifetime:
			pt.Lifetime = max(0, m.Lifetime.Sample(r))
		}
	}
	// 初始年龄不能超过寿命
	if pt.Age > pt.Lifetime {
		pt.Age = pt.Lifetime
	}
}

func (pl *Pipeline) updateParticle(pt *pool.Particle, r particle.Rand, dt float64) {
	for _, m := range pl.update {
		switch m := m.(type) {
		case descriptor.AccelLinear:
			pt.Velocity = pt.Velocity.Add(m.Accel.Sample(r).Mul(dt))

		case descriptor.AccelRadial:
			dir := normalizeOr(pt.Position.Sub(m.Origin), mgl64.Vec3{})
			pt.Velocity = pt.Velocity.Add(dir.Mul(m.Accel.Sample(r) * dt))

		case descriptor.AccelTangent:
			dir := normalizeOr(m.Axis.Cross(pt.Position.Sub(m.Origin)), mgl64.Vec3{})
			pt.Velocity = pt.Velocity.Add(dir.Mul(m.Accel.Sample(r) * dt))

		case descriptor.ForceField:
			pt.Velocity = applyForceField(m.Sources, pt.Position, pt.Velocity, dt)

		case descriptor.LinearDrag:
			pt.Velocity = pt.Velocity.Mul(max(0, 1-m.Drag*dt))

		case descriptor.AabbKill:
			if insideBox(pt.Position, m.Center, m.HalfSize) == m.KillInside {
				pt.Kill()
			}
		}
	}
}

// applyForceField sums the acceleration of every source acting on pos.
// A source pulls towards its position with strength mass/dist^exponent while
// the distance lies strictly inside (MinRadius, MaxRadius). With
// ConformToSphere, particles beyond MaxRadius lose their outward velocity.
func applyForceField(sources []descriptor.ForceFieldSource, pos, vel mgl64.Vec3, dt float64) mgl64.Vec3 {
	var accel mgl64.Vec3
	for _, s := range sources {
		d := s.Position.Sub(pos)
		dist := d.Len()
		if dist < 1e-12 {
			continue
		}
		dir := d.Mul(1 / dist)

		if s.ConformToSphere && dist >= s.MaxRadius {
			if out := -vel.Dot(dir); out > 0 {
				vel = vel.Add(dir.Mul(out))
			}
			continue
		}
		if dist <= s.MinRadius || dist >= s.MaxRadius {
			continue
		}
		accel = accel.Add(dir.Mul(s.Mass / math.Pow(dist, s.ForceExponent)))
	}
	return vel.Add(accel.Mul(dt))
}

func insideBox(p, center, half mgl64.Vec3) bool {
	d := p.Sub(center)
	return math.Abs(d.X()) <= half.X() &&
		math.Abs(d.Y()) <= half.Y() &&
		math.Abs(d.Z()) <= half.Z()
}

// Render writes the live particles of p into out, reusing its buffers.
// Positions and velocities are reported in world space.
func (pl *Pipeline) Render(p *pool.Pool, xf mgl64.Mat4, out *Snapshot) {
	live := p.LiveParticles()
	out.reset(len(live))

	out.Name = pl.desc.Name
	out.ZLayer = pl.desc.ZLayer2D
	out.Space = pl.desc.SimulationSpace
	out.TextureHandle = pl.texture

	local := pl.desc.SimulationSpace == descriptor.Local
	for i := range live {
		pt := &live[i]
		pos, vel := pt.Position, pt.Velocity
		if local {
			pos = xf.Mul4x1(pos.Vec4(1)).Vec3()
			vel = xf.Mul4x1(vel.Vec4(0)).Vec3()
		}
		out.Positions[i] = pos
		out.Velocities[i] = vel
		out.Ages[i] = pt.NormalizedAge()
		out.Colors[i] = pt.Color
		out.Sizes[i] = pt.Size
	}

	// 渲染修饰器按声明顺序执行，后者覆盖前者
	for _, m := range pl.render {
		switch m := m.(type) {
		case descriptor.ParticleTexture:
			out.Texture = m.Path
		case descriptor.SetColor:
			for i := range out.Colors {
				out.Colors[i] = m.Color
			}
		case descriptor.ColorOverLifetime:
			for i, age := range out.Ages {
				out.Colors[i] = m.Gradient.Evaluate(age)
			}
		case descriptor.SetSize:
			for i := range out.Sizes {
				out.Sizes[i] = m.Size
			}
		case descriptor.SizeOverLifetime:
			for i, age := range out.Ages {
				out.Sizes[i] = m.Gradient.Evaluate(age)
			}
		case descriptor.Billboard:
			out.Billboard = true
		case descriptor.OrientAlongVelocity:
			out.OrientAlongVelocity = true
		}
	}
}
