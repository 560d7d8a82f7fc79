package game

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/decker502/sparkfx/pkg/components"
	"github.com/decker502/sparkfx/pkg/config"
	"github.com/decker502/sparkfx/pkg/descriptor"
	"github.com/decker502/sparkfx/pkg/ecs"
	"github.com/decker502/sparkfx/pkg/effect"
	"github.com/decker502/sparkfx/pkg/systems"
)

// ErrNoEntity is returned for ids that are not (or no longer) in the world.
var ErrNoEntity = errors.New("no such entity")

// maxFixedSteps bounds how many fixed steps one Update may run after a stall.
const maxFixedSteps = 8

// World owns every running effect and advances them together.
//
// Entities carry an EffectComponent, a TransformComponent and a
// VisibilityComponent. The world itself is driven by one goroutine; within
// Update the instances are simulated in parallel, each by exactly one worker.
type World struct {
	em        *ecs.EntityManager
	resources *ResourceManager
	textures  descriptor.TextureResolver
	sim       config.SimulationConfig
	log       *zap.Logger

	spawned uint64
	acc     float64 // fixed-step accumulator
}

// NewWorld creates an empty world. textures may be nil.
func NewWorld(resources *ResourceManager, textures descriptor.TextureResolver, sim config.SimulationConfig, logger *zap.Logger) *World {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sim.Workers <= 0 {
		sim.Workers = 1
	}
	return &World{
		em:        ecs.NewEntityManager(),
		resources: resources,
		textures:  textures,
		sim:       sim,
		log:       logger.Named("world"),
	}
}

// EntityManager exposes the underlying entity store to systems.
func (w *World) EntityManager() *ecs.EntityManager { return w.em }

// Spawn loads the effect called name and places it at pos.
func (w *World) Spawn(ctx context.Context, name string, pos mgl64.Vec3) (ecs.EntityID, error) {
	if w.resources == nil {
		return 0, fmt.Errorf("spawn %q: world has no resource manager", name)
	}
	d, err := w.resources.LoadDescriptor(ctx, name)
	if err != nil {
		return 0, err
	}
	return w.SpawnDescriptor(d, pos)
}

// SpawnDescriptor places a new instance of d at pos.
func (w *World) SpawnDescriptor(d *descriptor.Descriptor, pos mgl64.Vec3) (ecs.EntityID, error) {
	xf := components.NewTransform(pos)
	opts := []effect.Option{
		effect.WithLogger(w.log),
		effect.WithTransform(xf.Matrix()),
	}
	if w.textures != nil {
		opts = append(opts, effect.WithTextures(w.textures))
	}
	if w.sim.Seed != 0 {
		opts = append(opts, effect.WithSeed(w.sim.Seed+w.spawned))
	}
	inst, err := effect.New(d, opts...)
	if err != nil {
		return 0, err
	}
	w.spawned++
	xf.Dirty = false

	id := w.em.CreateEntity()
	w.em.AddComponent(id, &components.EffectComponent{Name: d.Name, Instance: inst})
	w.em.AddComponent(id, xf)
	w.em.AddComponent(id, &components.VisibilityComponent{Visible: true})

	w.log.Debug("effect spawned", zap.Uint64("entity", uint64(id)), zap.String("effect", d.Name))
	return id, nil
}

func (w *World) effectOf(id ecs.EntityID) (*components.EffectComponent, error) {
	ec, ok := ecs.GetComponent[*components.EffectComponent](w.em, id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoEntity, id)
	}
	return ec, nil
}

// Instance returns the effect instance of an entity.
func (w *World) Instance(id ecs.EntityID) (*effect.Instance, error) {
	ec, err := w.effectOf(id)
	if err != nil {
		return nil, err
	}
	return ec.Instance, nil
}

// Despawn disposes the entity's instance at once; the entity itself is
// removed at the end of the next Update.
func (w *World) Despawn(id ecs.EntityID) error {
	ec, err := w.effectOf(id)
	if err != nil {
		return err
	}
	ec.Instance.Dispose()
	w.em.DestroyEntity(id)
	return nil
}

// SetVisible records host visibility for WhenVisible effects.
func (w *World) SetVisible(id ecs.EntityID, visible bool) error {
	vis, ok := ecs.GetComponent[*components.VisibilityComponent](w.em, id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoEntity, id)
	}
	vis.Visible = visible
	return nil
}

// SetPosition moves an entity. The instance sees the new transform on the next Update.
func (w *World) SetPosition(id ecs.EntityID, pos mgl64.Vec3) error {
	xf, ok := ecs.GetComponent[*components.TransformComponent](w.em, id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoEntity, id)
	}
	xf.Position = pos
	xf.Dirty = true
	return nil
}

// SetAutoDespawn makes the world remove the entity once its effect is done.
func (w *World) SetAutoDespawn(id ecs.EntityID, on bool) error {
	ec, err := w.effectOf(id)
	if err != nil {
		return err
	}
	ec.DespawnWhenDone = on
	return nil
}

// Len returns the number of entities, including those pending removal.
func (w *World) Len() int { return w.em.EntityCount() }

// Update advances the world by dt seconds.
//
// dt is clamped to MaxStep. With a FixedStep the time is accumulated and
// consumed in fixed increments, at most maxFixedSteps per call.
func (w *World) Update(ctx context.Context, dt float64) error {
	if dt < 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: %v", effect.ErrInvalidStep, dt)
	}
	if w.sim.MaxStep > 0 && dt > w.sim.MaxStep {
		dt = w.sim.MaxStep
	}

	if w.sim.FixedStep <= 0 {
		return w.step(ctx, dt)
	}

	w.acc += dt
	for n := 0; w.acc >= w.sim.FixedStep; n++ {
		if n == maxFixedSteps {
			w.acc = 0
			break
		}
		w.acc -= w.sim.FixedStep
		if err := w.step(ctx, w.sim.FixedStep); err != nil {
			return err
		}
	}
	return nil
}

func (w *World) step(ctx context.Context, dt float64) error {
	ids := ecs.GetEntitiesWith3[*components.EffectComponent, *components.TransformComponent, *components.VisibilityComponent](w.em)

	type job struct {
		inst    *effect.Instance
		visible bool
	}
	jobs := make([]job, 0, len(ids))

	// 变换同步在拥有者 goroutine 上完成
	for _, id := range ids {
		ec, _ := ecs.GetComponent[*components.EffectComponent](w.em, id)
		xf, _ := ecs.GetComponent[*components.TransformComponent](w.em, id)
		vis, _ := ecs.GetComponent[*components.VisibilityComponent](w.em, id)
		if xf.Dirty {
			ec.Instance.SetTransform(xf.Matrix())
			xf.Dirty = false
		}
		jobs = append(jobs, job{inst: ec.Instance, visible: vis.Visible})
	}

	// 每个实例只由一个 worker 模拟，实例之间不共享可变状态
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.sim.Workers)
	for _, j := range jobs {
		if j.inst.State() == effect.Disposed {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return j.inst.Simulate(dt, j.visible)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, id := range ids {
		ec, _ := ecs.GetComponent[*components.EffectComponent](w.em, id)
		if ec.DespawnWhenDone && ec.Instance.Done() {
			ec.Instance.Dispose()
			w.em.DestroyEntity(id)
			w.log.Debug("effect finished", zap.Uint64("entity", uint64(id)), zap.String("effect", ec.Name))
		}
	}
	w.em.RemoveMarkedEntities()
	return nil
}

// EntitySnapshot pairs a render snapshot with the entity it came from.
type EntitySnapshot struct {
	Entity ecs.EntityID
	*systems.Snapshot
}

// Snapshots renders every live effect, ordered by z-layer and then by entity
// id. The snapshots are owned by their instances and overwritten by the next
// call.
func (w *World) Snapshots() []EntitySnapshot {
	ids := ecs.GetEntitiesWith1[*components.EffectComponent](w.em)
	out := make([]EntitySnapshot, 0, len(ids))
	for _, id := range ids {
		ec, _ := ecs.GetComponent[*components.EffectComponent](w.em, id)
		if ec.Instance.State() == effect.Disposed {
			continue
		}
		out = append(out, EntitySnapshot{Entity: id, Snapshot: ec.Instance.Snapshot()})
	}
	slices.SortStableFunc(out, func(a, b EntitySnapshot) int {
		return cmp.Compare(a.ZLayer, b.ZLayer)
	})
	return out
}

// Clear disposes every instance and empties the world.
func (w *World) Clear() {
	for _, id := range ecs.GetEntitiesWith1[*components.EffectComponent](w.em) {
		ec, _ := ecs.GetComponent[*components.EffectComponent](w.em, id)
		ec.Instance.Dispose()
		w.em.DestroyEntity(id)
	}
	w.em.RemoveMarkedEntities()
	w.acc = 0
}
