package descriptor

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/sparkfx/internal/particle"
)

const defaultEffectYAML = `
name: default
capacity: 32768
spawner:
  num_particles: 32
  spawn_time: 0
  starts_immediately: true
z_layer_2d: 1.5
simulation_space: Global
simulation_condition: WhenVisible
init_position:
  circle:
    center: [0, 0.1, 0]
    axis: [0, 1, 0]
    radius: 0.4
    dimension: Surface
init_velocity:
  circle:
    center: [0, 0, 0]
    axis: [0, 1, 0]
    speed: "[1 1.5]"
init_lifetime: 5
render_particle_texture: plus.png
render_color_over_lifetime:
  - {t: 0, value: [1, 1, 1, 1]}
  - {t: 0.5, value: [1, 1, 1, 1]}
  - {t: 1, value: [1, 1, 1, 0]}
render_billboard: true
`

func TestLoadYAML(t *testing.T) {
	d, err := Load([]byte(defaultEffectYAML), FormatYAML)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if d.Name != "default" || d.Capacity != 32768 || d.ZLayer2D != 1.5 {
		t.Errorf("header = %q %d %v", d.Name, d.Capacity, d.ZLayer2D)
	}
	if d.SimulationSpace != Global || d.SimulationCondition != WhenVisible {
		t.Errorf("space/condition = %v/%v", d.SimulationSpace, d.SimulationCondition)
	}
	if !math.IsInf(lowBound(d.Spawner.Period), 1) {
		t.Errorf("period = %v, want +Inf default", d.Spawner.Period)
	}
	if !d.Spawner.StartsActive || !d.Spawner.StartsImmediately {
		t.Errorf("spawner flags = %+v", d.Spawner)
	}

	circle, ok := d.Init.Position.(InitPositionCircle)
	if !ok {
		t.Fatalf("Init.Position = %T, want InitPositionCircle", d.Init.Position)
	}
	if circle.Radius != 0.4 || circle.Center != (mgl64.Vec3{0, 0.1, 0}) || circle.Axis != (mgl64.Vec3{0, 1, 0}) {
		t.Errorf("circle = %+v", circle)
	}

	vel, ok := d.Init.Velocity.(InitVelocityCircle)
	if !ok {
		t.Fatalf("Init.Velocity = %T", d.Init.Velocity)
	}
	if lo, hi := vel.Speed.Bounds(); vel.Speed.Kind() != particle.KindUniform || lo != 1 || hi != 1.5 {
		t.Errorf("speed = %v", vel.Speed)
	}

	if d.TexturePath() != "plus.png" {
		t.Errorf("texture = %q", d.TexturePath())
	}
	if got := d.Render.ColorOverLifetime.Gradient.Evaluate(1); got != (mgl64.Vec4{1, 1, 1, 0}) {
		t.Errorf("gradient end = %v", got)
	}
	if !d.Render.Billboard || d.Render.OrientAlongVelocity {
		t.Errorf("orientation flags = %v %v", d.Render.Billboard, d.Render.OrientAlongVelocity)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		input   string
		wantErr error
		errPath string
	}{
		{
			name:    "zero capacity",
			format:  FormatYAML,
			input:   "name: x\ncapacity: 0\nspawner: {num_particles: 1}\n",
			wantErr: ErrInvalidCapacity,
			errPath: "capacity",
		},
		{
			name:    "reversed uniform",
			format:  FormatYAML,
			input:   "name: x\ncapacity: 8\nspawner: {num_particles: {uniform: [5, 1]}}\n",
			wantErr: ErrInvalidRange,
		},
		{
			name:    "unsorted curve",
			format:  FormatYAML,
			input:   "name: x\ncapacity: 8\nspawner: {num_particles: 1}\nrender_size_over_lifetime: \"1,1,1 0,2,2\"\n",
			wantErr: ErrCurveOrder,
		},
		{
			name:    "NaN curve time",
			format:  FormatYAML,
			input:   "name: x\ncapacity: 8\nspawner: {num_particles: 1}\nrender_color_over_lifetime: \"0,1,1,1,1 NaN,0,0,0,0\"\n",
			wantErr: ErrKeyframeTime,
		},
		{
			name:    "NaN uniform bound",
			format:  FormatYAML,
			input:   "name: x\ncapacity: 8\nspawner: {num_particles: \"[0 NaN]\"}\n",
			wantErr: ErrInvalidRange,
		},
		{
			name:    "two position variants",
			format:  FormatYAML,
			input:   "name: x\ncapacity: 8\nspawner: {num_particles: 1}\ninit_position: {circle: {radius: 1}, sphere: {radius: 1}}\n",
			wantErr: ErrMultipleVariants,
			errPath: "init_position",
		},
		{
			name:    "empty variant",
			format:  FormatYAML,
			input:   "name: x\ncapacity: 8\nspawner: {num_particles: 1}\nupdate_accel: {}\n",
			wantErr: ErrUnknownVariant,
		},
		{
			name:    "unknown enum",
			format:  FormatJSON,
			input:   `{"name":"x","capacity":8,"spawner":{"num_particles":1},"simulation_space":"Orbit"}`,
			wantErr: ErrUnknownVariant,
		},
		{
			name:    "negative drag",
			format:  FormatJSON,
			input:   `{"name":"x","capacity":8,"spawner":{"num_particles":1},"update_linear_drag":{"drag":-1}}`,
			wantErr: ErrInvalidParameter,
			errPath: "update_linear_drag.drag",
		},
		{
			name:    "missing name",
			format:  FormatJSON,
			input:   `{"capacity":8,"spawner":{"num_particles":1}}`,
			wantErr: ErrMissingName,
		},
		{
			name:    "unknown format",
			format:  Format("ron"),
			input:   "()",
			wantErr: ErrUnknownFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.input), tt.format)
			if err == nil {
				t.Fatal("Load() succeeded, want error")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("Load() error %T is not a *ParseError", err)
			}
			if tt.errPath != "" && pe.Path != tt.errPath {
				t.Errorf("ParseError.Path = %q, want %q", pe.Path, tt.errPath)
			}
		})
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	inputs := map[Format]string{
		FormatYAML: "name: x\ncapacity: 8\nspawner: {num_particles: 1}\ncolour: red\n",
		FormatJSON: `{"name":"x","capacity":8,"spawner":{"num_particles":1},"colour":"red"}`,
		FormatTOML: "name = \"x\"\ncapacity = 8\ncolour = \"red\"\n[spawner]\nnum_particles = 1\n",
	}
	for format, in := range inputs {
		t.Run(string(format), func(t *testing.T) {
			if _, err := Load([]byte(in), format); err == nil || !strings.Contains(err.Error(), "colour") {
				t.Errorf("Load() error = %v, want mention of the unknown field", err)
			}
		})
	}
}

func TestLoadJSON(t *testing.T) {
	in := `{
		"name": "sparks",
		"capacity": 64,
		"spawner": {"num_particles": {"single": 8}, "spawn_time": 0.5, "period": "+Inf"},
		"init_position": {"sphere": {"center": [0, 0, 0], "radius": 2, "dimension": "Filled"}},
		"init_size": "[0.1,0.1 0.2,0.2]",
		"update_accel": {"linear": [0, -9.8, 0]},
		"update_force_field": [
			{"position": [0, 1, 0], "max_radius": 4, "min_radius": 0.1, "mass": 3, "force_exponent": 2}
		]
	}`
	d, err := Load([]byte(in), FormatJSON)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	sphere, ok := d.Init.Position.(InitPositionSphere)
	if !ok || sphere.Dimension != Filled || sphere.Radius != 2 {
		t.Errorf("position = %#v", d.Init.Position)
	}
	if lo, hi := d.Init.Size.Size.Bounds(); lo != (mgl64.Vec2{0.1, 0.1}) || hi != (mgl64.Vec2{0.2, 0.2}) {
		t.Errorf("size = %v", d.Init.Size.Size)
	}
	accel, ok := d.Update.Accel.(AccelLinear)
	if !ok || accel.Accel.Sample(particle.NewRand(1)) != (mgl64.Vec3{0, -9.8, 0}) {
		t.Errorf("accel = %#v", d.Update.Accel)
	}
	if len(d.Update.ForceField) != 1 || d.Update.ForceField[0].Mass != 3 {
		t.Errorf("force field = %+v", d.Update.ForceField)
	}
}

func TestLoadTOML(t *testing.T) {
	in := `
name = "smoke"
capacity = 128
simulation_condition = "WhenVisible"
render_color_over_lifetime = "0,0.5,0.5,0.5,0.8 1,0.5,0.5,0.5,0"

[spawner]
num_particles = 10
spawn_time = 1.0
period = 1.0

[init_position.cone]
base_radius = 0.2
top_radius = 0.6
height = 1.0

[update_linear_drag]
drag = 0.5

[[update_force_field]]
position = [0.0, 2.0, 0.0]
max_radius = 3.0
min_radius = 0.0
mass = 1.0
force_exponent = 1.0
`
	d, err := Load([]byte(in), FormatTOML)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if d.SimulationCondition != WhenVisible {
		t.Errorf("condition = %v", d.SimulationCondition)
	}
	cone, ok := d.Init.Position.(InitPositionCone)
	if !ok || cone.TopRadius != 0.6 {
		t.Errorf("position = %#v", d.Init.Position)
	}
	if d.Update.LinearDrag == nil || d.Update.LinearDrag.Drag != 0.5 {
		t.Errorf("drag = %+v", d.Update.LinearDrag)
	}
	if len(d.Update.ForceField) != 1 || d.Update.ForceField[0].Position != (mgl64.Vec3{0, 2, 0}) {
		t.Errorf("force field = %+v", d.Update.ForceField)
	}
}

func TestLoadLua(t *testing.T) {
	in := `
local gold = vec4(1, 0.8, 0.2, 1)
return {
  name = "fountain",
  capacity = 512,
  spawner = rate(40),
  init_position = { circle = { center = vec3(0, 0, 0), axis = vec3(0, 1, 0), radius = 0.25, dimension = "Filled" } },
  init_velocity = { tangent = { origin = vec3(0, 0, 0), axis = vec3(0, 1, 0), speed = uniform(2, 3) } },
  init_lifetime = single(2.5),
  update_accel = { linear = vec3(0, -9.8, 0) },
  render_set_color = gold,
  render_orient_along_velocity = true,
}
`
	d, err := Load([]byte(in), FormatLua)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if d.Name != "fountain" || d.Capacity != 512 {
		t.Errorf("header = %q %d", d.Name, d.Capacity)
	}
	if lo, _ := d.Spawner.NumParticles.Bounds(); lo != 40 {
		t.Errorf("num_particles = %v", d.Spawner.NumParticles)
	}
	if _, ok := d.Init.Velocity.(InitVelocityTangent); !ok {
		t.Errorf("velocity = %T", d.Init.Velocity)
	}
	if d.Render.SetColor == nil || d.Render.SetColor.Color != (mgl64.Vec4{1, 0.8, 0.2, 1}) {
		t.Errorf("set color = %+v", d.Render.SetColor)
	}
	if !d.Render.OrientAlongVelocity {
		t.Error("orient along velocity not set")
	}
}

func TestLoadLuaOnceUsesInfinitePeriod(t *testing.T) {
	d, err := Load([]byte(`return { name = "pop", capacity = 4, spawner = once(4, false) }`), FormatLua)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !math.IsInf(lowBound(d.Spawner.Period), 1) || d.Spawner.StartsImmediately {
		t.Errorf("spawner = %+v", d.Spawner)
	}
}

func TestLoadLuaSandbox(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"no os library", `os.exit(1) return {}`},
		{"no io library", `io.open("/etc/passwd") return {}`},
		{"no dofile", `dofile("x.lua") return {}`},
		{"returns a number", `return 42`},
		{"syntax error", `return {`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load([]byte(tt.src), FormatLua); err == nil {
				t.Error("Load() succeeded, want error")
			}
		})
	}
}

func TestLoadLuaTimeout(t *testing.T) {
	old := LuaTimeout
	LuaTimeout = 50 * time.Millisecond
	defer func() { LuaTimeout = old }()

	start := time.Now()
	_, err := Load([]byte(`while true do end`), FormatLua)
	if err == nil {
		t.Fatal("Load() of an endless script succeeded")
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("timeout took %v", time.Since(start))
	}
}

func TestLoadFileDefaultsName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "embers.yaml")
	if err := os.WriteFile(path, []byte("capacity: 16\nspawner: {num_particles: 2}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if d.Name != "embers" {
		t.Errorf("Name = %q, want embers", d.Name)
	}

	bad := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(bad, []byte("capacity: 0\nspawner: {num_particles: 2}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = LoadFile(bad)
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Source != bad {
		t.Errorf("LoadFile(broken) error = %v, want ParseError with source", err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	want, err := Load([]byte(defaultEffectYAML), FormatYAML)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want.Update.ForceField = []ForceFieldSource{{Position: mgl64.Vec3{1, 2, 3}, MaxRadius: 5, MinRadius: 0.5, Mass: -2, ForceExponent: 1, ConformToSphere: true}}
	want.Update.AabbKill = &AabbKill{HalfSize: mgl64.Vec3{1, 1, 1}, KillInside: true}

	for _, format := range []Format{FormatYAML, FormatTOML} {
		t.Run(string(format), func(t *testing.T) {
			data, err := Marshal(want, format)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			got, err := Load(data, format)
			if err != nil {
				t.Fatalf("Load(Marshal()) error = %v\n%s", err, data)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("round trip mismatch\n got: %+v\nwant: %+v\n%s", got, want, data)
			}
		})
	}
}

func TestEncodeLuaUnsupported(t *testing.T) {
	d, err := Load([]byte(defaultEffectYAML), FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Marshal(d, FormatLua); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Marshal(lua) error = %v, want ErrUnknownFormat", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{".yml": FormatYAML, "YAML": FormatYAML, ".json": FormatJSON, "toml": FormatTOML, ".lua": FormatLua}
	for in, want := range tests {
		if got, err := ParseFormat(in); err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := FormatOf("effect.han"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("FormatOf(.han) error = %v", err)
	}
}
