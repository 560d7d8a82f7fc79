package descriptor

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/sparkfx/internal/particle"
)

// document is the file layout shared by every descriptor format.
// Field names follow the asset format written by the effect editor.
type document struct {
	Name                string              `json:"name" yaml:"name" toml:"name" jsonschema:"required,description=Unique effect name"`
	Capacity            uint32              `json:"capacity" yaml:"capacity" toml:"capacity" jsonschema:"required,minimum=1,description=Maximum concurrent particles"`
	Spawner             spawnerDoc          `json:"spawner" yaml:"spawner" toml:"spawner" jsonschema:"required"`
	ZLayer2D            float64             `json:"z_layer_2d,omitempty" yaml:"z_layer_2d,omitempty" toml:"z_layer_2d,omitempty" jsonschema:"description=2D draw order"`
	SimulationSpace     SimulationSpace     `json:"simulation_space,omitempty" yaml:"simulation_space,omitempty" toml:"simulation_space,omitempty"`
	SimulationCondition SimulationCondition `json:"simulation_condition,omitempty" yaml:"simulation_condition,omitempty" toml:"simulation_condition,omitempty"`

	InitPosition *positionDoc           `json:"init_position,omitempty" yaml:"init_position,omitempty" toml:"init_position,omitempty"`
	InitVelocity *velocityDoc           `json:"init_velocity,omitempty" yaml:"init_velocity,omitempty" toml:"init_velocity,omitempty"`
	InitSize     *ValueSpec[mgl64.Vec2] `json:"init_size,omitempty" yaml:"init_size,omitempty" toml:"init_size,omitempty"`
	InitAge      *ValueSpec[float64]    `json:"init_age,omitempty" yaml:"init_age,omitempty" toml:"init_age,omitempty"`
	InitLifetime *ValueSpec[float64]    `json:"init_lifetime,omitempty" yaml:"init_lifetime,omitempty" toml:"init_lifetime,omitempty"`

	UpdateAccel      *accelDoc        `json:"update_accel,omitempty" yaml:"update_accel,omitempty" toml:"update_accel,omitempty"`
	UpdateForceField []forceSourceDoc `json:"update_force_field,omitempty" yaml:"update_force_field,omitempty" toml:"update_force_field,omitempty"`
	UpdateLinearDrag *dragDoc         `json:"update_linear_drag,omitempty" yaml:"update_linear_drag,omitempty" toml:"update_linear_drag,omitempty"`
	UpdateAabbKill   *aabbDoc         `json:"update_aabb_kill,omitempty" yaml:"update_aabb_kill,omitempty" toml:"update_aabb_kill,omitempty"`

	RenderParticleTexture     string                 `json:"render_particle_texture,omitempty" yaml:"render_particle_texture,omitempty" toml:"render_particle_texture,omitempty"`
	RenderSetColor            *mgl64.Vec4            `json:"render_set_color,omitempty" yaml:"render_set_color,omitempty" toml:"render_set_color,omitempty"`
	RenderColorOverLifetime   *CurveSpec[mgl64.Vec4] `json:"render_color_over_lifetime,omitempty" yaml:"render_color_over_lifetime,omitempty" toml:"render_color_over_lifetime,omitempty"`
	RenderSetSize             *mgl64.Vec2            `json:"render_set_size,omitempty" yaml:"render_set_size,omitempty" toml:"render_set_size,omitempty"`
	RenderSizeOverLifetime    *CurveSpec[mgl64.Vec2] `json:"render_size_over_lifetime,omitempty" yaml:"render_size_over_lifetime,omitempty" toml:"render_size_over_lifetime,omitempty"`
	RenderBillboard           bool                   `json:"render_billboard,omitempty" yaml:"render_billboard,omitempty" toml:"render_billboard,omitempty"`
	RenderOrientAlongVelocity bool                   `json:"render_orient_along_velocity,omitempty" yaml:"render_orient_along_velocity,omitempty" toml:"render_orient_along_velocity,omitempty"`
}

type spawnerDoc struct {
	NumParticles      ValueSpec[float64]  `json:"num_particles" yaml:"num_particles" toml:"num_particles" jsonschema:"required"`
	SpawnTime         *ValueSpec[float64] `json:"spawn_time,omitempty" yaml:"spawn_time,omitempty" toml:"spawn_time,omitempty" jsonschema:"description=Defaults to 0 (burst)"`
	Period            *ValueSpec[float64] `json:"period,omitempty" yaml:"period,omitempty" toml:"period,omitempty" jsonschema:"description=Defaults to +Inf (single cycle)"`
	StartsActive      *bool               `json:"starts_active,omitempty" yaml:"starts_active,omitempty" toml:"starts_active,omitempty" jsonschema:"description=Defaults to true"`
	StartsImmediately *bool               `json:"starts_immediately,omitempty" yaml:"starts_immediately,omitempty" toml:"starts_immediately,omitempty" jsonschema:"description=Defaults to true"`
}

type positionDoc struct {
	Circle *circlePositionDoc `json:"circle,omitempty" yaml:"circle,omitempty" toml:"circle,omitempty"`
	Sphere *spherePositionDoc `json:"sphere,omitempty" yaml:"sphere,omitempty" toml:"sphere,omitempty"`
	Cone   *conePositionDoc   `json:"cone,omitempty" yaml:"cone,omitempty" toml:"cone,omitempty"`
}

type circlePositionDoc struct {
	Center    mgl64.Vec3     `json:"center" yaml:"center" toml:"center"`
	Axis      *mgl64.Vec3    `json:"axis,omitempty" yaml:"axis,omitempty" toml:"axis,omitempty" jsonschema:"description=Defaults to +Z"`
	Radius    float64        `json:"radius" yaml:"radius" toml:"radius"`
	Dimension ShapeDimension `json:"dimension,omitempty" yaml:"dimension,omitempty" toml:"dimension,omitempty"`
}

type spherePositionDoc struct {
	Center    mgl64.Vec3     `json:"center" yaml:"center" toml:"center"`
	Radius    float64        `json:"radius" yaml:"radius" toml:"radius"`
	Dimension ShapeDimension `json:"dimension,omitempty" yaml:"dimension,omitempty" toml:"dimension,omitempty"`
}

type conePositionDoc struct {
	BaseRadius float64        `json:"base_radius" yaml:"base_radius" toml:"base_radius"`
	TopRadius  float64        `json:"top_radius" yaml:"top_radius" toml:"top_radius"`
	Height     float64        `json:"height" yaml:"height" toml:"height"`
	Dimension  ShapeDimension `json:"dimension,omitempty" yaml:"dimension,omitempty" toml:"dimension,omitempty"`
}

type velocityDoc struct {
	Circle  *circleVelocityDoc  `json:"circle,omitempty" yaml:"circle,omitempty" toml:"circle,omitempty"`
	Sphere  *sphereVelocityDoc  `json:"sphere,omitempty" yaml:"sphere,omitempty" toml:"sphere,omitempty"`
	Tangent *tangentVelocityDoc `json:"tangent,omitempty" yaml:"tangent,omitempty" toml:"tangent,omitempty"`
}

type circleVelocityDoc struct {
	Center mgl64.Vec3         `json:"center" yaml:"center" toml:"center"`
	Axis   *mgl64.Vec3        `json:"axis,omitempty" yaml:"axis,omitempty" toml:"axis,omitempty"`
	Speed  ValueSpec[float64] `json:"speed" yaml:"speed" toml:"speed"`
}

type sphereVelocityDoc struct {
	Center mgl64.Vec3         `json:"center" yaml:"center" toml:"center"`
	Speed  ValueSpec[float64] `json:"speed" yaml:"speed" toml:"speed"`
}

type tangentVelocityDoc struct {
	Origin mgl64.Vec3         `json:"origin" yaml:"origin" toml:"origin"`
	Axis   *mgl64.Vec3        `json:"axis,omitempty" yaml:"axis,omitempty" toml:"axis,omitempty"`
	Speed  ValueSpec[float64] `json:"speed" yaml:"speed" toml:"speed"`
}

type accelDoc struct {
	Linear  *ValueSpec[mgl64.Vec3] `json:"linear,omitempty" yaml:"linear,omitempty" toml:"linear,omitempty"`
	Radial  *radialAccelDoc        `json:"radial,omitempty" yaml:"radial,omitempty" toml:"radial,omitempty"`
	Tangent *tangentAccelDoc       `json:"tangent,omitempty" yaml:"tangent,omitempty" toml:"tangent,omitempty"`
}

type radialAccelDoc struct {
	Origin mgl64.Vec3         `json:"origin" yaml:"origin" toml:"origin"`
	Accel  ValueSpec[float64] `json:"accel" yaml:"accel" toml:"accel"`
}

type tangentAccelDoc struct {
	Origin mgl64.Vec3         `json:"origin" yaml:"origin" toml:"origin"`
	Axis   *mgl64.Vec3        `json:"axis,omitempty" yaml:"axis,omitempty" toml:"axis,omitempty"`
	Accel  ValueSpec[float64] `json:"accel" yaml:"accel" toml:"accel"`
}

type forceSourceDoc struct {
	Position        mgl64.Vec3 `json:"position" yaml:"position" toml:"position"`
	MaxRadius       float64    `json:"max_radius" yaml:"max_radius" toml:"max_radius"`
	MinRadius       float64    `json:"min_radius" yaml:"min_radius" toml:"min_radius"`
	Mass            float64    `json:"mass" yaml:"mass" toml:"mass"`
	ForceExponent   float64    `json:"force_exponent" yaml:"force_exponent" toml:"force_exponent"`
	ConformToSphere bool       `json:"conform_to_sphere,omitempty" yaml:"conform_to_sphere,omitempty" toml:"conform_to_sphere,omitempty"`
}

type dragDoc struct {
	Drag float64 `json:"drag" yaml:"drag" toml:"drag"`
}

type aabbDoc struct {
	Center     mgl64.Vec3 `json:"center" yaml:"center" toml:"center"`
	HalfSize   mgl64.Vec3 `json:"half_size" yaml:"half_size" toml:"half_size"`
	KillInside bool       `json:"kill_inside,omitempty" yaml:"kill_inside,omitempty" toml:"kill_inside,omitempty"`
}

var defaultAxis = mgl64.Vec3{0, 0, 1}

func axisOr(a *mgl64.Vec3) mgl64.Vec3 {
	if a == nil {
		return defaultAxis
	}
	return *a
}

// build converts a decoded document into a validated Descriptor.
func (doc *document) build() (*Descriptor, error) {
	d := &Descriptor{
		Name:                doc.Name,
		Capacity:            doc.Capacity,
		ZLayer2D:            doc.ZLayer2D,
		SimulationSpace:     doc.SimulationSpace,
		SimulationCondition: doc.SimulationCondition,
		Spawner: SpawnerConfig{
			NumParticles:      doc.Spawner.NumParticles.V,
			SpawnTime:         particle.Single(0.0),
			Period:            particle.Single(math.Inf(1)),
			StartsActive:      true,
			StartsImmediately: true,
		},
	}
	sp := &doc.Spawner
	if sp.SpawnTime != nil {
		d.Spawner.SpawnTime = sp.SpawnTime.V
	}
	if sp.Period != nil {
		d.Spawner.Period = sp.Period.V
	}
	if sp.StartsActive != nil {
		d.Spawner.StartsActive = *sp.StartsActive
	}
	if sp.StartsImmediately != nil {
		d.Spawner.StartsImmediately = *sp.StartsImmediately
	}

	if p := doc.InitPosition; p != nil {
		if err := oneVariant("init_position", p.Circle != nil, p.Sphere != nil, p.Cone != nil); err != nil {
			return nil, err
		}
		switch {
		case p.Circle != nil:
			d.Init.Position = InitPositionCircle{Center: p.Circle.Center, Axis: axisOr(p.Circle.Axis), Radius: p.Circle.Radius, Dimension: p.Circle.Dimension}
		case p.Sphere != nil:
			d.Init.Position = InitPositionSphere{Center: p.Sphere.Center, Radius: p.Sphere.Radius, Dimension: p.Sphere.Dimension}
		case p.Cone != nil:
			d.Init.Position = InitPositionCone{BaseRadius: p.Cone.BaseRadius, TopRadius: p.Cone.TopRadius, Height: p.Cone.Height, Dimension: p.Cone.Dimension}
		}
	}
	if v := doc.InitVelocity; v != nil {
		if err := oneVariant("init_velocity", v.Circle != nil, v.Sphere != nil, v.Tangent != nil); err != nil {
			return nil, err
		}
		switch {
		case v.Circle != nil:
			d.Init.Velocity = InitVelocityCircle{Center: v.Circle.Center, Axis: axisOr(v.Circle.Axis), Speed: v.Circle.Speed.V}
		case v.Sphere != nil:
			d.Init.Velocity = InitVelocitySphere{Center: v.Sphere.Center, Speed: v.Sphere.Speed.V}
		case v.Tangent != nil:
			d.Init.Velocity = InitVelocityTangent{Origin: v.Tangent.Origin, Axis: axisOr(v.Tangent.Axis), Speed: v.Tangent.Speed.V}
		}
	}
	if doc.InitSize != nil {
		d.Init.Size = &InitSize{Size: doc.InitSize.V}
	}
	if doc.InitAge != nil {
		d.Init.Age = &InitAge{Age: doc.InitAge.V}
	}
	if doc.InitLifetime != nil {
		d.Init.Lifetime = &InitLifetime{Lifetime: doc.InitLifetime.V}
	}

	if a := doc.UpdateAccel; a != nil {
		if err := oneVariant("update_accel", a.Linear != nil, a.Radial != nil, a.Tangent != nil); err != nil {
			return nil, err
		}
		switch {
		case a.Linear != nil:
			d.Update.Accel = AccelLinear{Accel: a.Linear.V}
		case a.Radial != nil:
			d.Update.Accel = AccelRadial{Origin: a.Radial.Origin, Accel: a.Radial.Accel.V}
		case a.Tangent != nil:
			d.Update.Accel = AccelTangent{Origin: a.Tangent.Origin, Axis: axisOr(a.Tangent.Axis), Accel: a.Tangent.Accel.V}
		}
	}
	for _, src := range doc.UpdateForceField {
		d.Update.ForceField = append(d.Update.ForceField, ForceFieldSource(src))
	}
	if doc.UpdateLinearDrag != nil {
		d.Update.LinearDrag = &LinearDrag{Drag: doc.UpdateLinearDrag.Drag}
	}
	if k := doc.UpdateAabbKill; k != nil {
		d.Update.AabbKill = &AabbKill{Center: k.Center, HalfSize: k.HalfSize, KillInside: k.KillInside}
	}

	if doc.RenderParticleTexture != "" {
		d.Render.Texture = &ParticleTexture{Path: doc.RenderParticleTexture}
	}
	if doc.RenderSetColor != nil {
		d.Render.SetColor = &SetColor{Color: *doc.RenderSetColor}
	}
	if doc.RenderColorOverLifetime != nil {
		d.Render.ColorOverLifetime = &ColorOverLifetime{Gradient: doc.RenderColorOverLifetime.C}
	}
	if doc.RenderSetSize != nil {
		d.Render.SetSize = &SetSize{Size: *doc.RenderSetSize}
	}
	if doc.RenderSizeOverLifetime != nil {
		d.Render.SizeOverLifetime = &SizeOverLifetime{Gradient: doc.RenderSizeOverLifetime.C}
	}
	d.Render.Billboard = doc.RenderBillboard
	d.Render.OrientAlongVelocity = doc.RenderOrientAlongVelocity

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// newDocument is the inverse of build.
func newDocument(d *Descriptor) *document {
	active, immediate := d.Spawner.StartsActive, d.Spawner.StartsImmediately
	doc := &document{
		Name:                d.Name,
		Capacity:            d.Capacity,
		ZLayer2D:            d.ZLayer2D,
		SimulationSpace:     d.SimulationSpace,
		SimulationCondition: d.SimulationCondition,
		Spawner: spawnerDoc{
			NumParticles:      ValueSpec[float64]{d.Spawner.NumParticles},
			SpawnTime:         &ValueSpec[float64]{d.Spawner.SpawnTime},
			Period:            &ValueSpec[float64]{d.Spawner.Period},
			StartsActive:      &active,
			StartsImmediately: &immediate,
		},
	}

	switch m := d.Init.Position.(type) {
	case InitPositionCircle:
		axis := m.Axis
		doc.InitPosition = &positionDoc{Circle: &circlePositionDoc{Center: m.Center, Axis: &axis, Radius: m.Radius, Dimension: m.Dimension}}
	case InitPositionSphere:
		doc.InitPosition = &positionDoc{Sphere: &spherePositionDoc{Center: m.Center, Radius: m.Radius, Dimension: m.Dimension}}
	case InitPositionCone:
		doc.InitPosition = &positionDoc{Cone: &conePositionDoc{BaseRadius: m.BaseRadius, TopRadius: m.TopRadius, Height: m.Height, Dimension: m.Dimension}}
	}
	switch m := d.Init.Velocity.(type) {
	case InitVelocityCircle:
		axis := m.Axis
		doc.InitVelocity = &velocityDoc{Circle: &circleVelocityDoc{Center: m.Center, Axis: &axis, Speed: ValueSpec[float64]{m.Speed}}}
	case InitVelocitySphere:
		doc.InitVelocity = &velocityDoc{Sphere: &sphereVelocityDoc{Center: m.Center, Speed: ValueSpec[float64]{m.Speed}}}
	case InitVelocityTangent:
		axis := m.Axis
		doc.InitVelocity = &velocityDoc{Tangent: &tangentVelocityDoc{Origin: m.Origin, Axis: &axis, Speed: ValueSpec[float64]{m.Speed}}}
	}
	if d.Init.Size != nil {
		doc.InitSize = &ValueSpec[mgl64.Vec2]{d.Init.Size.Size}
	}
	if d.Init.Age != nil {
		doc.InitAge = &ValueSpec[float64]{d.Init.Age.Age}
	}
	if d.Init.Lifetime != nil {
		doc.InitLifetime = &ValueSpec[float64]{d.Init.Lifetime.Lifetime}
	}

	switch m := d.Update.Accel.(type) {
	case AccelLinear:
		doc.UpdateAccel = &accelDoc{Linear: &ValueSpec[mgl64.Vec3]{m.Accel}}
	case AccelRadial:
		doc.UpdateAccel = &accelDoc{Radial: &radialAccelDoc{Origin: m.Origin, Accel: ValueSpec[float64]{m.Accel}}}
	case AccelTangent:
		axis := m.Axis
		doc.UpdateAccel = &accelDoc{Tangent: &tangentAccelDoc{Origin: m.Origin, Axis: &axis, Accel: ValueSpec[float64]{m.Accel}}}
	}
	for _, src := range d.Update.ForceField {
		doc.UpdateForceField = append(doc.UpdateForceField, forceSourceDoc(src))
	}
	if d.Update.LinearDrag != nil {
		doc.UpdateLinearDrag = &dragDoc{Drag: d.Update.LinearDrag.Drag}
	}
	if k := d.Update.AabbKill; k != nil {
		doc.UpdateAabbKill = &aabbDoc{Center: k.Center, HalfSize: k.HalfSize, KillInside: k.KillInside}
	}

	doc.RenderParticleTexture = d.TexturePath()
	if d.Render.SetColor != nil {
		c := d.Render.SetColor.Color
		doc.RenderSetColor = &c
	}
	if d.Render.ColorOverLifetime != nil {
		doc.RenderColorOverLifetime = &CurveSpec[mgl64.Vec4]{d.Render.ColorOverLifetime.Gradient}
	}
	if d.Render.SetSize != nil {
		s := d.Render.SetSize.Size
		doc.RenderSetSize = &s
	}
	if d.Render.SizeOverLifetime != nil {
		doc.RenderSizeOverLifetime = &CurveSpec[mgl64.Vec2]{d.Render.SizeOverLifetime.Gradient}
	}
	doc.RenderBillboard = d.Render.Billboard
	doc.RenderOrientAlongVelocity = d.Render.OrientAlongVelocity
	return doc
}

func oneVariant(path string, set ...bool) error {
	n := 0
	for _, s := range set {
		if s {
			n++
		}
	}
	switch n {
	case 0:
		return &ParseError{Path: path, Err: fmt.Errorf("%w: no variant set", ErrUnknownVariant)}
	case 1:
		return nil
	default:
		return &ParseError{Path: path, Err: ErrMultipleVariants}
	}
}
