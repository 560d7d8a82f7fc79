// Package effect ties a descriptor, a spawner, a particle pool and a modifier
// pipeline into one running particle effect.
package effect

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/decker502/sparkfx/internal/particle"
	"github.com/decker502/sparkfx/pkg/descriptor"
	"github.com/decker502/sparkfx/pkg/pool"
	"github.com/decker502/sparkfx/pkg/systems"
)

var (
	// ErrDisposed is returned by every operation on a disposed instance.
	ErrDisposed = errors.New("effect: instance disposed")

	// ErrInvalidStep is returned for a negative or non-finite frame time.
	ErrInvalidStep = errors.New("effect: invalid time step")
)

// State is the lifecycle state of an Instance.
type State uint8

const (
	Created State = iota
	Active
	Paused
	Disposed
)

var stateNames = [...]string{
	Created:  "Created",
	Active:   "Active",
	Paused:   "Paused",
	Disposed: "Disposed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

type options struct {
	rng       particle.Rand
	logger    *zap.Logger
	transform mgl64.Mat4
	textures  descriptor.TextureResolver
}

// Option configures New.
type Option func(*options)

// WithRand sets the random source every distribution samples from.
func WithRand(r particle.Rand) Option {
	return func(o *options) { o.rng = r }
}

// WithSeed is WithRand with a seeded PCG source, for reproducible runs.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.rng = particle.NewRand(seed) }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTransform sets the initial effect transform (identity by default).
func WithTransform(m mgl64.Mat4) Option {
	return func(o *options) { o.transform = m }
}

// WithTextures resolves the descriptor texture once, when the instance is created.
func WithTextures(r descriptor.TextureResolver) Option {
	return func(o *options) { o.textures = r }
}

// Instance is one running copy of a descriptor.
//
// An instance is owned by a single goroutine per frame; its pool is never
// shared. The descriptor is shared read-only between instances.
type Instance struct {
	id   uuid.UUID
	desc *descriptor.Descriptor

	pool     *pool.Pool
	spawner  *systems.Spawner
	pipeline *systems.Pipeline
	rng      particle.Rand

	xf      mgl64.Mat4
	state   State
	elapsed float64
	stats   systems.FrameStats
	snap    systems.Snapshot

	log *zap.Logger
}

// New creates an instance in the Created state. The descriptor is validated
// again so hand-built descriptors get the same guarantees as loaded ones.
func New(desc *descriptor.Descriptor, opts ...Option) (*Instance, error) {
	if desc == nil {
		return nil, errors.New("effect: nil descriptor")
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	o := options{transform: mgl64.Ident4()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = particle.NewRand(rand.Uint64())
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	id := uuid.New()
	log := o.logger.Named("effect").With(zap.String("effect", desc.Name), zap.Stringer("id", id))

	inst := &Instance{
		id:       id,
		desc:     desc,
		pool:     pool.New(desc.Capacity),
		spawner:  systems.NewSpawner(desc.Spawner, o.rng, log.Named("spawner")),
		pipeline: systems.NewPipeline(desc, log.Named("pipeline")),
		rng:      o.rng,
		xf:       o.transform,
		log:      log,
	}

	if path := desc.TexturePath(); path != "" && o.textures != nil {
		h, err := o.textures.Resolve(path)
		if err != nil {
			return nil, fmt.Errorf("effect %s: resolve texture %q: %w", desc.Name, path, err)
		}
		inst.pipeline.SetTexture(h)
	}

	log.Debug("instance created", zap.Uint32("capacity", desc.Capacity))
	return inst, nil
}

// Simulate advances the effect by dt seconds.
//
// The first call activates the spawner when the descriptor starts active.
// Paused instances and WhenVisible effects that are not visible skip the
// frame; skipped time is not caught up later and Stats reports zero for it.
// An invalid dt is rejected before any state changes.
func (in *Instance) Simulate(dt float64, visible bool) error {
	if in.state == Disposed {
		return ErrDisposed
	}
	if dt < 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidStep, dt)
	}
	switch in.state {
	case Paused:
		in.stats = systems.FrameStats{}
		return nil
	case Created:
		if !in.desc.Spawner.StartsActive {
			in.stats = systems.FrameStats{}
			return nil
		}
		in.activate()
	}
	if in.desc.SimulationCondition == descriptor.WhenVisible && !visible {
		in.stats = systems.FrameStats{}
		return nil
	}

	in.stats = in.pipeline.Step(in.pool, in.spawner, in.rng, dt, in.xf)
	in.elapsed += dt
	return nil
}

func (in *Instance) activate() {
	in.state = Active
	in.spawner.Activate()
	in.log.Debug("instance activated")
}

// Activate starts or resumes emission. A Created instance becomes Active.
func (in *Instance) Activate() error {
	switch in.state {
	case Disposed:
		return ErrDisposed
	case Created:
		in.activate()
	default:
		in.spawner.Activate()
	}
	return nil
}

// Deactivate stops emission. Live particles keep simulating until they die.
func (in *Instance) Deactivate() error {
	if in.state == Disposed {
		return ErrDisposed
	}
	in.spawner.Deactivate()
	return nil
}

// Pause freezes the whole effect, particles included.
func (in *Instance) Pause() error {
	switch in.state {
	case Disposed:
		return ErrDisposed
	case Active:
		in.state = Paused
	}
	return nil
}

func (in *Instance) Resume() error {
	switch in.state {
	case Disposed:
		return ErrDisposed
	case Paused:
		in.state = Active
	}
	return nil
}

// Reset kills every particle and rewinds the spawner. The instance returns to
// Created, so the next Simulate re-applies StartsActive.
func (in *Instance) Reset() error {
	if in.state == Disposed {
		return ErrDisposed
	}
	in.pool.Clear()
	in.spawner.Reset()
	in.state = Created
	in.elapsed = 0
	in.stats = systems.FrameStats{}
	in.log.Debug("instance reset")
	return nil
}

// Dispose releases the particle storage. It is safe to call more than once.
func (in *Instance) Dispose() {
	if in.state == Disposed {
		return
	}
	in.pool.Release()
	in.spawner.Deactivate()
	in.state = Disposed
	in.log.Debug("instance disposed")
}

// SetTransform sets the effect transform. Local-space particles follow it;
// Global-space particles only use it at spawn time.
func (in *Instance) SetTransform(m mgl64.Mat4) { in.xf = m }

func (in *Instance) Transform() mgl64.Mat4 { return in.xf }

// Snapshot renders the live particles. The returned snapshot is owned by the
// instance and overwritten by the next call; use Clone to keep it.
func (in *Instance) Snapshot() *systems.Snapshot {
	in.pipeline.Render(in.pool, in.xf, &in.snap)
	return &in.snap
}

// Live returns the number of live particles.
func (in *Instance) Live() int { return in.pool.Live() }

func (in *Instance) ID() uuid.UUID { return in.id }

func (in *Instance) Descriptor() *descriptor.Descriptor { return in.desc }

func (in *Instance) State() State { return in.state }

// Emitting reports whether the spawner is active.
func (in *Instance) Emitting() bool { return in.spawner.Active() }

// Done reports whether the effect has run and has nothing left to show:
// emission is over (finished or deactivated) and no particle is alive.
func (in *Instance) Done() bool {
	switch in.state {
	case Created:
		return false
	case Disposed:
		return true
	}
	return (in.spawner.Finished() || !in.spawner.Active()) && in.pool.Live() == 0
}

// SpawnerState exposes the spawner phase, mainly for tools and tests.
func (in *Instance) SpawnerState() systems.SpawnerState { return in.spawner.State() }

// Stats returns the counters of the last Simulate call, zero if it skipped the frame.
func (in *Instance) Stats() systems.FrameStats { return in.stats }

// Elapsed returns the simulated time since creation or the last Reset.
func (in *Instance) Elapsed() float64 { return in.elapsed }
