package effect

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/sparkfx/internal/particle"
	"github.com/decker502/sparkfx/pkg/descriptor"
	"github.com/decker502/sparkfx/pkg/systems"
)

func testDescriptor() *descriptor.Descriptor {
	return &descriptor.Descriptor{
		Name:     "test",
		Capacity: 256,
		Spawner: descriptor.SpawnerConfig{
			NumParticles:      particle.Single(32.0),
			SpawnTime:         particle.Single(1.0),
			Period:            particle.Single(2.0),
			StartsActive:      true,
			StartsImmediately: true,
		},
		Init: descriptor.InitSet{
			Position: descriptor.InitPositionSphere{Radius: 0.4},
			Velocity: descriptor.InitVelocitySphere{Speed: particle.Uniform(1.0, 1.5)},
			Lifetime: &descriptor.InitLifetime{Lifetime: particle.Single(5.0)},
		},
		Render: descriptor.RenderSet{Texture: &descriptor.ParticleTexture{Path: "spark.png"}},
	}
}

func mustNew(t *testing.T, d *descriptor.Descriptor, opts ...Option) *Instance {
	t.Helper()
	inst, err := New(d, append([]Option{WithSeed(1)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return inst
}

func simulate(t *testing.T, inst *Instance, frames int, dt float64, visible bool) {
	t.Helper()
	for i := 0; i < frames; i++ {
		if err := inst.Simulate(dt, visible); err != nil {
			t.Fatalf("Simulate() frame %d error = %v", i+1, err)
		}
	}
}

func TestInstance_FirstSimulateActivates(t *testing.T) {
	inst := mustNew(t, testDescriptor())
	if inst.State() != Created {
		t.Fatalf("state = %v, want Created", inst.State())
	}

	simulate(t, inst, 1, 0.1, true)
	if inst.State() != Active || !inst.Emitting() {
		t.Errorf("state = %v emitting = %v, want Active and emitting", inst.State(), inst.Emitting())
	}
	if inst.Live() != 3 {
		t.Errorf("Live() = %d, want 3", inst.Live())
	}

	simulate(t, inst, 9, 0.1, true)
	if inst.Live() != 32 {
		t.Errorf("Live() after 1s = %d, want 32", inst.Live())
	}
	if inst.SpawnerState() != systems.SpawnerWaiting {
		t.Errorf("SpawnerState() = %v, want WaitingForPeriod", inst.SpawnerState())
	}
}

func TestInstance_StartsInactive(t *testing.T) {
	d := testDescriptor()
	d.Spawner.StartsActive = false
	inst := mustNew(t, d)

	simulate(t, inst, 10, 0.1, true)
	if inst.State() != Created || inst.Live() != 0 {
		t.Fatalf("state=%v live=%d, want Created and no particles", inst.State(), inst.Live())
	}

	if err := inst.Activate(); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	simulate(t, inst, 1, 0.1, true)
	if inst.State() != Active || inst.Live() != 3 {
		t.Errorf("after Activate: state=%v live=%d", inst.State(), inst.Live())
	}
}

// TestInstance_WhenVisibleSkipsWithoutCatchUp 不可见时跳过模拟，重新可见后不补帧
func TestInstance_WhenVisibleSkipsWithoutCatchUp(t *testing.T) {
	d := testDescriptor()
	d.SimulationCondition = descriptor.WhenVisible
	inst := mustNew(t, d)

	simulate(t, inst, 5, 0.1, false)
	if inst.Live() != 0 || inst.Elapsed() != 0 {
		t.Fatalf("hidden: live=%d elapsed=%v, want nothing simulated", inst.Live(), inst.Elapsed())
	}

	simulate(t, inst, 1, 0.1, true)
	if inst.Live() != 3 {
		t.Errorf("first visible frame: live=%d, want 3", inst.Live())
	}
}

func TestInstance_AlwaysIgnoresVisibility(t *testing.T) {
	inst := mustNew(t, testDescriptor())
	simulate(t, inst, 10, 0.1, false)
	if inst.Live() != 32 {
		t.Errorf("Live() = %d, want 32", inst.Live())
	}
}

func TestInstance_PauseResume(t *testing.T) {
	inst := mustNew(t, testDescriptor())
	simulate(t, inst, 1, 0.1, true)

	if err := inst.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	simulate(t, inst, 10, 0.1, true)
	if inst.State() != Paused || inst.Live() != 3 {
		t.Fatalf("paused: state=%v live=%d", inst.State(), inst.Live())
	}

	if err := inst.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	simulate(t, inst, 1, 0.1, true)
	if inst.State() != Active || inst.Live() != 6 {
		t.Errorf("resumed: state=%v live=%d, want Active and 6", inst.State(), inst.Live())
	}
}

func TestInstance_DeactivateKeepsParticles(t *testing.T) {
	inst := mustNew(t, testDescriptor())
	simulate(t, inst, 5, 0.1, true)
	before := inst.Live()

	if err := inst.Deactivate(); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	simulate(t, inst, 5, 0.1, true)
	if inst.Live() != before {
		t.Errorf("Live() = %d, want %d: no spawns and nobody dead yet", inst.Live(), before)
	}
	if inst.State() != Active {
		t.Errorf("state = %v, want Active", inst.State())
	}
}

func TestInstance_Reset(t *testing.T) {
	inst := mustNew(t, testDescriptor())
	simulate(t, inst, 15, 0.1, true)

	if err := inst.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if inst.Live() != 0 || inst.State() != Created || inst.Elapsed() != 0 {
		t.Fatalf("after Reset: live=%d state=%v elapsed=%v", inst.Live(), inst.State(), inst.Elapsed())
	}
	simulate(t, inst, 1, 0.1, true)
	if inst.Live() != 3 {
		t.Errorf("Live() after Reset = %d, want a fresh first cycle", inst.Live())
	}
}

func TestInstance_Dispose(t *testing.T) {
	inst := mustNew(t, testDescriptor())
	simulate(t, inst, 3, 0.1, true)
	inst.Dispose()
	inst.Dispose()

	if inst.State() != Disposed || inst.Live() != 0 {
		t.Fatalf("state=%v live=%d", inst.State(), inst.Live())
	}
	for name, fn := range map[string]func() error{
		"Simulate":   func() error { return inst.Simulate(0.1, true) },
		"Activate":   inst.Activate,
		"Deactivate": inst.Deactivate,
		"Pause":      inst.Pause,
		"Resume":     inst.Resume,
		"Reset":      inst.Reset,
	} {
		if err := fn(); !errors.Is(err, ErrDisposed) {
			t.Errorf("%s() error = %v, want ErrDisposed", name, err)
		}
	}
	if snap := inst.Snapshot(); snap.Count != 0 {
		t.Errorf("snapshot of disposed instance has %d particles", snap.Count)
	}
}

func TestInstance_InvalidStep(t *testing.T) {
	for _, dt := range []float64{-0.1, math.NaN(), math.Inf(1)} {
		inst := mustNew(t, testDescriptor())
		if err := inst.Simulate(dt, true); !errors.Is(err, ErrInvalidStep) {
			t.Errorf("Simulate(%v) error = %v, want ErrInvalidStep", dt, err)
		}
		// 被拒绝的帧不改变状态
		if inst.State() != Created || inst.Emitting() {
			t.Errorf("Simulate(%v): state=%v emitting=%v, want Created and idle", dt, inst.State(), inst.Emitting())
		}
	}
}

// 跳过的帧统计为零，不重复计入上一帧
func TestInstance_SkippedFrameClearsStats(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, d *descriptor.Descriptor) (*Instance, bool)
	}{
		{"paused", func(t *testing.T, d *descriptor.Descriptor) (*Instance, bool) {
			inst := mustNew(t, d)
			simulate(t, inst, 1, 0.1, true)
			if err := inst.Pause(); err != nil {
				t.Fatal(err)
			}
			return inst, true
		}},
		{"hidden", func(t *testing.T, d *descriptor.Descriptor) (*Instance, bool) {
			d.SimulationCondition = descriptor.WhenVisible
			inst := mustNew(t, d)
			simulate(t, inst, 1, 0.1, true)
			return inst, false
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, visible := tt.setup(t, testDescriptor())
			if inst.Stats().Spawned == 0 {
				t.Fatal("first frame spawned nothing")
			}
			simulate(t, inst, 1, 0.1, visible)
			if got := inst.Stats(); got != (systems.FrameStats{}) {
				t.Errorf("Stats() after skipped frame = %+v, want zero", got)
			}
		})
	}
}

func TestNew_RejectsInvalidDescriptor(t *testing.T) {
	d := testDescriptor()
	d.Capacity = 0
	if _, err := New(d); !errors.Is(err, descriptor.ErrInvalidCapacity) {
		t.Errorf("New() error = %v, want ErrInvalidCapacity", err)
	}
	if _, err := New(nil); err == nil {
		t.Error("New(nil) succeeded")
	}
}

type fakeTextures map[string]descriptor.TextureHandle

var errNoTexture = errors.New("no such texture")

func (f fakeTextures) Resolve(path string) (descriptor.TextureHandle, error) {
	h, ok := f[path]
	if !ok {
		return descriptor.NoTexture, errNoTexture
	}
	return h, nil
}

func TestNew_ResolvesTexture(t *testing.T) {
	inst := mustNew(t, testDescriptor(), WithTextures(fakeTextures{"spark.png": 9}))
	simulate(t, inst, 1, 0.1, true)
	snap := inst.Snapshot()
	if snap.TextureHandle != 9 || snap.Texture != "spark.png" {
		t.Errorf("snapshot texture = %q/%d, want spark.png/9", snap.Texture, snap.TextureHandle)
	}

	if _, err := New(testDescriptor(), WithTextures(fakeTextures{})); !errors.Is(err, errNoTexture) {
		t.Errorf("New() with missing texture error = %v", err)
	}
}

func TestInstance_SeededRunsAreReproducible(t *testing.T) {
	a := mustNew(t, testDescriptor(), WithSeed(5))
	b := mustNew(t, testDescriptor(), WithSeed(5))
	simulate(t, a, 12, 0.1, true)
	simulate(t, b, 12, 0.1, true)

	sa, sb := a.Snapshot().Clone(), b.Snapshot()
	if sa.Count != sb.Count {
		t.Fatalf("counts differ: %d vs %d", sa.Count, sb.Count)
	}
	for i := range sa.Positions {
		if sa.Positions[i] != sb.Positions[i] {
			t.Fatalf("particle %d: %v vs %v", i, sa.Positions[i], sb.Positions[i])
		}
	}
	if a.ID() == b.ID() {
		t.Error("instances share an id")
	}
}

func TestInstance_TransformMovesLocalParticles(t *testing.T) {
	d := testDescriptor()
	d.Init.Position = descriptor.InitPositionSphere{}
	d.Init.Velocity = nil
	inst := mustNew(t, d, WithTransform(mgl64.Translate3D(1, 2, 3)))
	simulate(t, inst, 1, 0.1, true)

	inst.SetTransform(mgl64.Translate3D(-1, 0, 0))
	snap := inst.Snapshot()
	for i := 0; i < snap.Count; i++ {
		if snap.Positions[i] != (mgl64.Vec3{-1, 0, 0}) {
			t.Fatalf("position[%d] = %v, want (-1,0,0)", i, snap.Positions[i])
		}
	}
}

func TestState_String(t *testing.T) {
	if Paused.String() != "Paused" || State(7).String() != "State(7)" {
		t.Errorf("String() = %q, %q", Paused.String(), State(7).String())
	}
}

func TestInstance_Done(t *testing.T) {
	d := testDescriptor()
	d.Spawner = descriptor.Once(4, true)
	d.Init.Lifetime = &descriptor.InitLifetime{Lifetime: particle.Single(0.3)}
	inst := mustNew(t, d)
	if inst.Done() {
		t.Fatal("Done() before the first frame")
	}

	simulate(t, inst, 1, 0.1, true)
	if inst.Done() || inst.Live() != 4 {
		t.Fatalf("after burst: done=%v live=%d", inst.Done(), inst.Live())
	}
	simulate(t, inst, 4, 0.1, true)
	if !inst.Done() {
		t.Errorf("Done() = false with live=%d after every particle expired", inst.Live())
	}

	looping := mustNew(t, testDescriptor())
	simulate(t, looping, 30, 0.1, true)
	if looping.Done() {
		t.Error("periodic effect reports Done")
	}
}
