package descriptor

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/sparkfx/internal/particle"
)

func validDescriptor() *Descriptor {
	return &Descriptor{
		Name:     "test",
		Capacity: 16,
		Spawner:  Once(4, true),
	}
}

func TestModifierOrder(t *testing.T) {
	d := validDescriptor()
	d.Init = InitSet{
		Position: InitPositionSphere{Radius: 1},
		Velocity: InitVelocitySphere{Speed: particle.Single(1.0)},
		Size:     &InitSize{Size: particle.Single(mgl64.Vec2{1, 1})},
		Age:      &InitAge{Age: particle.Single(0.0)},
		Lifetime: &InitLifetime{Lifetime: particle.Single(2.0)},
	}
	d.Update = UpdateSet{
		Accel:      AccelLinear{Accel: particle.Single(mgl64.Vec3{0, -1, 0})},
		ForceField: []ForceFieldSource{{MaxRadius: 1}},
		LinearDrag: &LinearDrag{Drag: 1},
		AabbKill:   &AabbKill{HalfSize: mgl64.Vec3{1, 1, 1}},
	}
	d.Render = RenderSet{
		Texture:             &ParticleTexture{Path: "a.png"},
		SetColor:            &SetColor{Color: mgl64.Vec4{1, 0, 0, 1}},
		SetSize:             &SetSize{Size: mgl64.Vec2{2, 2}},
		Billboard:           true,
		OrientAlongVelocity: true,
	}

	init := d.InitModifiers()
	if len(init) != 5 {
		t.Fatalf("InitModifiers() len = %d, want 5", len(init))
	}
	if _, ok := init[0].(InitPositionSphere); !ok {
		t.Errorf("init[0] = %T, want position first", init[0])
	}
	if _, ok := init[4].(InitLifetime); !ok {
		t.Errorf("init[4] = %T, want lifetime last", init[4])
	}

	update := d.UpdateModifiers()
	if len(update) != 4 {
		t.Fatalf("UpdateModifiers() len = %d, want 4", len(update))
	}
	if ff, ok := update[1].(ForceField); !ok || len(ff.Sources) != 1 {
		t.Errorf("update[1] = %#v, want force field", update[1])
	}

	render := d.RenderModifiers()
	if len(render) != 5 {
		t.Fatalf("RenderModifiers() len = %d, want 5", len(render))
	}
	if _, ok := render[4].(OrientAlongVelocity); !ok {
		t.Errorf("render[4] = %T", render[4])
	}
}

func TestEmptyDescriptorHasNoModifiers(t *testing.T) {
	d := validDescriptor()
	if n := len(d.InitModifiers()) + len(d.UpdateModifiers()) + len(d.RenderModifiers()); n != 0 {
		t.Errorf("modifier count = %d, want 0", n)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(d *Descriptor)
		wantErr error
	}{
		{"zero capacity", func(d *Descriptor) { d.Capacity = 0 }, ErrInvalidCapacity},
		{"reversed period", func(d *Descriptor) { d.Spawner.Period = particle.Uniform(2.0, 1.0) }, ErrInvalidRange},
		{"negative count", func(d *Descriptor) { d.Spawner.NumParticles = particle.Single(-1.0) }, ErrInvalidParameter},
		{"zero circle axis", func(d *Descriptor) { d.Init.Position = InitPositionCircle{Radius: 1} }, ErrInvalidParameter},
		{"negative sphere radius", func(d *Descriptor) { d.Init.Position = InitPositionSphere{Radius: -1} }, ErrInvalidParameter},
		{"reversed speed", func(d *Descriptor) {
			d.Init.Velocity = InitVelocitySphere{Speed: particle.Uniform(3.0, 1.0)}
		}, ErrInvalidRange},
		{"negative lifetime", func(d *Descriptor) {
			d.Init.Lifetime = &InitLifetime{Lifetime: particle.Single(-1.0)}
		}, ErrInvalidParameter},
		{"force field radii", func(d *Descriptor) {
			d.Update.ForceField = []ForceFieldSource{{MinRadius: 2, MaxRadius: 1}}
		}, ErrInvalidParameter},
		{"negative half size", func(d *Descriptor) {
			d.Update.AabbKill = &AabbKill{HalfSize: mgl64.Vec3{1, -1, 1}}
		}, ErrInvalidParameter},
		{"unsorted colour curve", func(d *Descriptor) {
			d.Render.ColorOverLifetime = &ColorOverLifetime{Gradient: particle.NewCurve(
				particle.Keyframe[mgl64.Vec4]{Time: 1},
				particle.Keyframe[mgl64.Vec4]{Time: 0},
			)}
		}, ErrCurveOrder},
		{"empty texture path", func(d *Descriptor) { d.Render.Texture = &ParticleTexture{} }, ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDescriptor()
			tt.mutate(d)
			err := d.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSpawnerPresets(t *testing.T) {
	once := Once(32, true)
	if lo, _ := once.Period.Bounds(); !math.IsInf(lo, 1) {
		t.Errorf("Once period = %v, want +Inf", lo)
	}
	rate := Rate(10)
	if lo, _ := rate.SpawnTime.Bounds(); lo != 1 {
		t.Errorf("Rate spawn time = %v, want 1", lo)
	}
	burst := Burst(5, 0.5)
	if lo, _ := burst.Period.Bounds(); lo != 0.5 {
		t.Errorf("Burst period = %v, want 0.5", lo)
	}
}

func TestParseErrorMessage(t *testing.T) {
	err := &ParseError{Source: "fx/smoke.yaml", Path: "capacity", Err: ErrInvalidCapacity}
	want := "descriptor fx/smoke.yaml: capacity: capacity must be greater than zero"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestEnumText(t *testing.T) {
	var s SimulationSpace
	if err := s.UnmarshalText([]byte("Global")); err != nil || s != Global {
		t.Errorf("UnmarshalText(Global) = %v, %v", s, err)
	}
	if err := s.UnmarshalText([]byte("")); err != nil || s != Local {
		t.Errorf("UnmarshalText(empty) = %v, %v", s, err)
	}
	var d ShapeDimension
	if err := d.UnmarshalText([]byte("Volume")); !errors.Is(err, ErrUnknownVariant) {
		t.Errorf("UnmarshalText(Volume) error = %v", err)
	}
	if WhenVisible.String() != "WhenVisible" {
		t.Errorf("WhenVisible.String() = %q", WhenVisible.String())
	}
}

func TestSchema(t *testing.T) {
	data, err := json.Marshal(Schema())
	if err != nil {
		t.Fatalf("marshal schema: %v", err)
	}
	for _, field := range []string{"capacity", "spawner", "init_position", "update_force_field", "render_color_over_lifetime", "WhenVisible"} {
		if !strings.Contains(string(data), field) {
			t.Errorf("schema does not mention %q", field)
		}
	}
}
