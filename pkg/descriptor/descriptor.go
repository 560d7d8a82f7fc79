// Package descriptor defines the in-memory form of a particle effect and the
// loaders that build it from YAML, JSON, TOML or Lua sources.
//
// A Descriptor is immutable once loaded and may be shared by any number of
// effect instances, including across goroutines.
package descriptor

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/sparkfx/internal/particle"
)

// Descriptor is a validated particle effect recipe.
type Descriptor struct {
	Name     string
	Capacity uint32 // maximum concurrent particles
	Spawner  SpawnerConfig
	ZLayer2D float64

	SimulationSpace     SimulationSpace
	SimulationCondition SimulationCondition

	Init   InitSet
	Update UpdateSet
	Render RenderSet
}

// SpawnerConfig describes the emission cycles of an effect.
type SpawnerConfig struct {
	NumParticles particle.Value[float64] // particles per cycle, rounded
	SpawnTime    particle.Value[float64] // seconds a cycle spends emitting; 0 is a burst
	Period       particle.Value[float64] // seconds between cycle starts; +Inf for a single cycle

	StartsActive      bool
	StartsImmediately bool // first cycle at t=0 instead of after one period
}

// Once emits count particles a single time.
func Once(count float64, immediate bool) SpawnerConfig {
	return SpawnerConfig{
		NumParticles:      particle.Single(count),
		SpawnTime:         particle.Single(0.0),
		Period:            particle.Single(math.Inf(1)),
		StartsActive:      true,
		StartsImmediately: immediate,
	}
}

// Rate emits a steady stream of perSecond particles.
func Rate(perSecond float64) SpawnerConfig {
	return SpawnerConfig{
		NumParticles:      particle.Single(perSecond),
		SpawnTime:         particle.Single(1.0),
		Period:            particle.Single(1.0),
		StartsActive:      true,
		StartsImmediately: true,
	}
}

// Burst emits count particles at once, every period seconds.
func Burst(count, period float64) SpawnerConfig {
	return SpawnerConfig{
		NumParticles:      particle.Single(count),
		SpawnTime:         particle.Single(0.0),
		Period:            particle.Single(period),
		StartsActive:      true,
		StartsImmediately: true,
	}
}

// InitSet holds at most one initializer per particle attribute.
type InitSet struct {
	Position PositionInit // InitPositionCircle, InitPositionSphere or InitPositionCone
	Velocity VelocityInit // InitVelocityCircle, InitVelocitySphere or InitVelocityTangent
	Size     *InitSize
	Age      *InitAge
	Lifetime *InitLifetime
}

// UpdateSet holds the per-frame modifiers. ForceField is a list; an empty list means no field.
type UpdateSet struct {
	Accel      Accel // AccelLinear, AccelRadial or AccelTangent
	ForceField []ForceFieldSource
	LinearDrag *LinearDrag
	AabbKill   *AabbKill
}

// RenderSet holds the render modifiers.
type RenderSet struct {
	Texture             *ParticleTexture
	SetColor            *SetColor
	ColorOverLifetime   *ColorOverLifetime
	SetSize             *SetSize
	SizeOverLifetime    *SizeOverLifetime
	Billboard           bool
	OrientAlongVelocity bool
}

// InitModifiers returns the init stage in execution order.
func (d *Descriptor) InitModifiers() []InitModifier {
	var out []InitModifier
	if d.Init.Position != nil {
		out = append(out, d.Init.Position)
	}
	if d.Init.Velocity != nil {
		out = append(out, d.Init.Velocity)
	}
	if d.Init.Size != nil {
		out = append(out, *d.Init.Size)
	}
	if d.Init.Age != nil {
		out = append(out, *d.Init.Age)
	}
	if d.Init.Lifetime != nil {
		out = append(out, *d.Init.Lifetime)
	}
	return out
}

// UpdateModifiers returns the update stage in execution order.
func (d *Descriptor) UpdateModifiers() []UpdateModifier {
	var out []UpdateModifier
	if d.Update.Accel != nil {
		out = append(out, d.Update.Accel)
	}
	if len(d.Update.ForceField) > 0 {
		out = append(out, ForceField{Sources: d.Update.ForceField})
	}
	if d.Update.LinearDrag != nil {
		out = append(out, *d.Update.LinearDrag)
	}
	if d.Update.AabbKill != nil {
		out = append(out, *d.Update.AabbKill)
	}
	return out
}

// RenderModifiers returns the render stage in execution order.
func (d *Descriptor) RenderModifiers() []RenderModifier {
	var out []RenderModifier
	r := &d.Render
	if r.Texture != nil {
		out = append(out, *r.Texture)
	}
	if r.SetColor != nil {
		out = append(out, *r.SetColor)
	}
	if r.ColorOverLifetime != nil {
		out = append(out, *r.ColorOverLifetime)
	}
	if r.SetSize != nil {
		out = append(out, *r.SetSize)
	}
	if r.SizeOverLifetime != nil {
		out = append(out, *r.SizeOverLifetime)
	}
	if r.Billboard {
		out = append(out, Billboard{})
	}
	if r.OrientAlongVelocity {
		out = append(out, OrientAlongVelocity{})
	}
	return out
}

// TexturePath returns the texture path, or "" when none is set.
func (d *Descriptor) TexturePath() string {
	if d.Render.Texture == nil {
		return ""
	}
	return d.Render.Texture.Path
}

// Validate checks every structural invariant. The returned error is a *ParseError.
func (d *Descriptor) Validate() error {
	v := validator{}
	if d.Name == "" {
		v.fail("name", ErrMissingName)
	}
	if d.Capacity == 0 {
		v.fail("capacity", ErrInvalidCapacity)
	}

	v.value("spawner.num_particles", d.Spawner.NumParticles)
	v.value("spawner.spawn_time", d.Spawner.SpawnTime)
	v.value("spawner.period", d.Spawner.Period)
	v.nonNegative("spawner.num_particles", lowBound(d.Spawner.NumParticles))
	v.nonNegative("spawner.spawn_time", lowBound(d.Spawner.SpawnTime))
	v.nonNegative("spawner.period", lowBound(d.Spawner.Period))

	switch m := d.Init.Position.(type) {
	case InitPositionCircle:
		v.nonNegative("init_position.circle.radius", m.Radius)
		v.nonZero("init_position.circle.axis", m.Axis)
	case InitPositionSphere:
		v.nonNegative("init_position.sphere.radius", m.Radius)
	case InitPositionCone:
		v.nonNegative("init_position.cone.base_radius", m.BaseRadius)
		v.nonNegative("init_position.cone.top_radius", m.TopRadius)
		v.nonNegative("init_position.cone.height", m.Height)
	}
	switch m := d.Init.Velocity.(type) {
	case InitVelocityCircle:
		v.value("init_velocity.circle.speed", m.Speed)
		v.nonZero("init_velocity.circle.axis", m.Axis)
	case InitVelocitySphere:
		v.value("init_velocity.sphere.speed", m.Speed)
	case InitVelocityTangent:
		v.value("init_velocity.tangent.speed", m.Speed)
		v.nonZero("init_velocity.tangent.axis", m.Axis)
	}
	if d.Init.Size != nil {
		v.value("init_size", d.Init.Size.Size)
	}
	if d.Init.Age != nil {
		v.value("init_age", d.Init.Age.Age)
		v.nonNegative("init_age", lowBound(d.Init.Age.Age))
	}
	if d.Init.Lifetime != nil {
		v.value("init_lifetime", d.Init.Lifetime.Lifetime)
		v.nonNegative("init_lifetime", lowBound(d.Init.Lifetime.Lifetime))
	}

	switch m := d.Update.Accel.(type) {
	case AccelLinear:
		v.value("update_accel.linear", m.Accel)
	case AccelRadial:
		v.value("update_accel.radial.accel", m.Accel)
	case AccelTangent:
		v.value("update_accel.tangent.accel", m.Accel)
		v.nonZero("update_accel.tangent.axis", m.Axis)
	}
	for i, src := range d.Update.ForceField {
		path := fmt.Sprintf("update_force_field[%d]", i)
		v.nonNegative(path+".min_radius", src.MinRadius)
		if src.MaxRadius < src.MinRadius {
			v.fail(path+".max_radius", fmt.Errorf("%w: max_radius %g below min_radius %g", ErrInvalidParameter, src.MaxRadius, src.MinRadius))
		}
	}
	if d.Update.LinearDrag != nil {
		v.nonNegative("update_linear_drag.drag", d.Update.LinearDrag.Drag)
	}
	if d.Update.AabbKill != nil {
		hs := d.Update.AabbKill.HalfSize
		v.nonNegative("update_aabb_kill.half_size", min(hs[0], hs[1], hs[2]))
	}

	if d.Render.Texture != nil && d.Render.Texture.Path == "" {
		v.fail("render_particle_texture", fmt.Errorf("%w: empty texture path", ErrInvalidParameter))
	}
	if d.Render.ColorOverLifetime != nil {
		v.curve("render_color_over_lifetime", d.Render.ColorOverLifetime.Gradient.Validate())
	}
	if d.Render.SizeOverLifetime != nil {
		v.curve("render_size_over_lifetime", d.Render.SizeOverLifetime.Gradient.Validate())
	}
	return v.err
}

// validator keeps the first failure.
type validator struct {
	err error
}

func (v *validator) fail(path string, err error) {
	if v.err == nil {
		v.err = &ParseError{Path: path, Err: err}
	}
}

func (v *validator) curve(path string, err error) {
	if err != nil {
		v.fail(path, err)
	}
}

func (v *validator) nonNegative(path string, f float64) {
	if f < 0 || math.IsNaN(f) {
		v.fail(path, fmt.Errorf("%w: %g is negative", ErrInvalidParameter, f))
	}
}

func (v *validator) nonZero(path string, vec mgl64.Vec3) {
	if vec.LenSqr() == 0 {
		v.fail(path, fmt.Errorf("%w: zero axis", ErrInvalidParameter))
	}
}

func (v *validator) value(path string, val interface{ Validate() error }) {
	if err := val.Validate(); err != nil {
		v.fail(path, err)
	}
}

func lowBound(v particle.Value[float64]) float64 {
	lo, _ := v.Bounds()
	return lo
}
