// Package pool stores the particles of one effect instance in a fixed-capacity arena.
//
// Live particles occupy the prefix [0, Live()) of the arena. Reclaiming dead
// particles swap-removes them, so a particle's slot index is only meaningful
// within a single frame.
package pool

import "github.com/go-gl/mathgl/mgl64"

// DefaultLifetime is the lifetime of a particle no initializer sets.
const DefaultLifetime = 5.0

// SlotIndex addresses one particle for the duration of a frame.
type SlotIndex uint32

// Particle is one particle record.
type Particle struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Age      float64
	Lifetime float64
	Size     mgl64.Vec2
	Color    mgl64.Vec4
}

// Alive reports whether the particle still has lifetime left.
func (p *Particle) Alive() bool { return p.Age < p.Lifetime }

// Kill makes the particle dead without breaking Age <= Lifetime.
func (p *Particle) Kill() { p.Age = p.Lifetime }

// NormalizedAge returns Age/Lifetime in [0, 1].
func (p *Particle) NormalizedAge() float64 {
	if p.Lifetime <= 0 {
		return 1
	}
	return min(1, p.Age/p.Lifetime)
}

var freshParticle = Particle{
	Lifetime: DefaultLifetime,
	Size:     mgl64.Vec2{1, 1},
	Color:    mgl64.Vec4{1, 1, 1, 1},
}

// Pool is a fixed-capacity particle arena. It is not safe for concurrent use;
// each effect instance owns its pool.
type Pool struct {
	particles []Particle
	live      int
}

// New allocates a pool for up to capacity particles. Capacity 0 is valid and never spawns.
func New(capacity uint32) *Pool {
	return &Pool{particles: make([]Particle, capacity)}
}

// Capacity returns the maximum number of concurrent particles.
func (p *Pool) Capacity() int { return len(p.particles) }

// Live returns the number of live particles.
func (p *Pool) Live() int { return p.live }

// Free returns the number of slots TrySpawn can still hand out.
func (p *Pool) Free() int { return len(p.particles) - p.live }

// TrySpawn claims a slot and resets it to a fresh particle.
// It returns false when the pool is full; it never grows.
func (p *Pool) TrySpawn() (SlotIndex, bool) {
	if p.live >= len(p.particles) {
		return 0, false
	}
	i := p.live
	p.particles[i] = freshParticle
	p.live++
	return SlotIndex(i), true
}

// At returns the particle in slot i. i must be below Live().
func (p *Pool) At(i SlotIndex) *Particle {
	return &p.particles[i]
}

// ForEachLive calls fn for every live slot, in slot order.
func (p *Pool) ForEachLive(fn func(i SlotIndex, pt *Particle)) {
	for i := 0; i < p.live; i++ {
		fn(SlotIndex(i), &p.particles[i])
	}
}

// LiveParticles returns the live prefix. The slice is invalidated by the next
// TrySpawn, ReclaimDead or Release.
func (p *Pool) LiveParticles() []Particle {
	return p.particles[:p.live]
}

// ReclaimDead removes every particle whose age has reached its lifetime and
// returns how many were removed. Freed slots are reusable immediately.
func (p *Pool) ReclaimDead() int {
	removed := 0
	i := 0
	for i < p.live {
		if p.particles[i].Alive() {
			i++
			continue
		}
		// swap with the last live particle and re-check slot i
		p.live--
		p.particles[i] = p.particles[p.live]
		removed++
	}
	return removed
}

// Clear kills every particle but keeps the storage.
func (p *Pool) Clear() { p.live = 0 }

// Release drops the storage. The pool behaves as a capacity-0 pool afterwards.
func (p *Pool) Release() {
	p.particles = nil
	p.live = 0
}
