package descriptor

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/sparkfx/internal/particle"
)

// InitModifier runs once on every newly spawned particle.
// The set of implementations is closed; the pipeline switches on the concrete type.
type InitModifier interface{ initModifier() }

// UpdateModifier runs on every live particle each frame.
type UpdateModifier interface{ updateModifier() }

// RenderModifier contributes to the per-frame render snapshot.
type RenderModifier interface{ renderModifier() }

// PositionInit is an InitModifier that sets the spawn position.
type PositionInit interface {
	InitModifier
	positionInit()
}

// VelocityInit is an InitModifier that sets the spawn velocity.
type VelocityInit interface {
	InitModifier
	velocityInit()
}

// Accel is an UpdateModifier adding an acceleration.
type Accel interface {
	UpdateModifier
	accel()
}

// ---- init ----

// InitPositionCircle spawns on a circle (Surface) or disc (Filled) around Center,
// in the plane orthogonal to Axis.
type InitPositionCircle struct {
	Center    mgl64.Vec3
	Axis      mgl64.Vec3
	Radius    float64
	Dimension ShapeDimension
}

// InitPositionSphere spawns on or inside a sphere.
type InitPositionSphere struct {
	Center    mgl64.Vec3
	Radius    float64
	Dimension ShapeDimension
}

// InitPositionCone spawns on or inside a truncated cone standing on the XZ plane,
// base at y=0 and top at y=Height.
type InitPositionCone struct {
	BaseRadius float64
	TopRadius  float64
	Height     float64
	Dimension  ShapeDimension
}

// InitVelocityCircle pushes particles radially away from Center, within the
// plane orthogonal to Axis.
type InitVelocityCircle struct {
	Center mgl64.Vec3
	Axis   mgl64.Vec3
	Speed  particle.Value[float64]
}

// InitVelocitySphere pushes particles radially away from Center.
type InitVelocitySphere struct {
	Center mgl64.Vec3
	Speed  particle.Value[float64]
}

// InitVelocityTangent sets a velocity tangent to the circle around Axis through Origin.
type InitVelocityTangent struct {
	Origin mgl64.Vec3
	Axis   mgl64.Vec3
	Speed  particle.Value[float64]
}

type InitSize struct {
	Size particle.Value[mgl64.Vec2]
}

type InitAge struct {
	Age particle.Value[float64]
}

type InitLifetime struct {
	Lifetime particle.Value[float64]
}

// ---- update ----

// AccelLinear adds a constant or per-frame sampled acceleration.
type AccelLinear struct {
	Accel particle.Value[mgl64.Vec3]
}

// AccelRadial accelerates particles away from Origin (negative values attract).
type AccelRadial struct {
	Origin mgl64.Vec3
	Accel  particle.Value[float64]
}

// AccelTangent accelerates particles around Axis through Origin.
type AccelTangent struct {
	Origin mgl64.Vec3
	Axis   mgl64.Vec3
	Accel  particle.Value[float64]
}

// ForceFieldSource is one point attractor (positive Mass) or repulsor.
// It acts only on particles whose distance lies in (MinRadius, MaxRadius).
type ForceFieldSource struct {
	Position        mgl64.Vec3
	MaxRadius       float64
	MinRadius       float64
	Mass            float64
	ForceExponent   float64
	ConformToSphere bool
}

// ForceField sums the contribution of every source.
type ForceField struct {
	Sources []ForceFieldSource
}

// LinearDrag scales velocity by (1 - Drag*dt) each frame.
type LinearDrag struct {
	Drag float64
}

// AabbKill kills particles leaving the box, or entering it when KillInside is set.
type AabbKill struct {
	Center     mgl64.Vec3
	HalfSize   mgl64.Vec3
	KillInside bool
}

// ---- render ----

// ParticleTexture names the texture drawn for every particle. Only the path is kept.
type ParticleTexture struct {
	Path string
}

type SetColor struct {
	Color mgl64.Vec4
}

type ColorOverLifetime struct {
	Gradient particle.Curve[mgl64.Vec4]
}

type SetSize struct {
	Size mgl64.Vec2
}

type SizeOverLifetime struct {
	Gradient particle.Curve[mgl64.Vec2]
}

// Billboard asks the renderer to face particles towards the camera.
type Billboard struct{}

// OrientAlongVelocity asks the renderer to align particles with their velocity.
type OrientAlongVelocity struct{}

func (InitPositionCircle) initModifier()  {}
func (InitPositionSphere) initModifier()  {}
func (InitPositionCone) initModifier()    {}
func (InitVelocityCircle) initModifier()  {}
func (InitVelocitySphere) initModifier()  {}
func (InitVelocityTangent) initModifier() {}
func (InitSize) initModifier()            {}
func (InitAge) initModifier()             {}
func (InitLifetime) initModifier()        {}

func (InitPositionCircle) positionInit()  {}
func (InitPositionSphere) positionInit()  {}
func (InitPositionCone) positionInit()    {}
func (InitVelocityCircle) velocityInit()  {}
func (InitVelocitySphere) velocityInit()  {}
func (InitVelocityTangent) velocityInit() {}

func (AccelLinear) updateModifier()  {}
func (AccelRadial) updateModifier()  {}
func (AccelTangent) updateModifier() {}
func (ForceField) updateModifier()   {}
func (LinearDrag) updateModifier()   {}
func (AabbKill) updateModifier()     {}

func (AccelLinear) accel()  {}
func (AccelRadial) accel()  {}
func (AccelTangent) accel() {}

func (ParticleTexture) renderModifier()     {}
func (SetColor) renderModifier()            {}
func (ColorOverLifetime) renderModifier()   {}
func (SetSize) renderModifier()             {}
func (SizeOverLifetime) renderModifier()    {}
func (Billboard) renderModifier()           {}
func (OrientAlongVelocity) renderModifier() {}
