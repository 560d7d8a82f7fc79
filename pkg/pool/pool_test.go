package pool

import (
	"math/rand/v2"
	"testing"
)

func TestTrySpawnNeverExceedsCapacity(t *testing.T) {
	for _, capacity := range []uint32{0, 1, 7, 256} {
		p := New(capacity)
		r := rand.New(rand.NewPCG(uint64(capacity), 1))
		for frame := 0; frame < 200; frame++ {
			requests := r.IntN(int(capacity) + 5)
			for i := 0; i < requests; i++ {
				if slot, ok := p.TrySpawn(); ok {
					p.At(slot).Lifetime = 0.05 + r.Float64()
				}
			}
			if p.Live() > int(capacity) {
				t.Fatalf("capacity %d frame %d: live = %d", capacity, frame, p.Live())
			}
			p.ForEachLive(func(_ SlotIndex, pt *Particle) {
				pt.Age = min(pt.Age+0.1, pt.Lifetime)
				if pt.Age > pt.Lifetime {
					t.Fatalf("age %v exceeds lifetime %v", pt.Age, pt.Lifetime)
				}
			})
			p.ReclaimDead()
		}
	}
}

func TestTrySpawnFailsWhenFull(t *testing.T) {
	p := New(2)
	for i := 0; i < 2; i++ {
		if _, ok := p.TrySpawn(); !ok {
			t.Fatalf("spawn %d failed", i)
		}
	}
	if _, ok := p.TrySpawn(); ok {
		t.Fatal("TrySpawn succeeded on a full pool")
	}
	if p.Free() != 0 || p.Capacity() != 2 {
		t.Errorf("Free() = %d, Capacity() = %d", p.Free(), p.Capacity())
	}
}

func TestTrySpawnResetsSlot(t *testing.T) {
	p := New(1)
	slot, _ := p.TrySpawn()
	pt := p.At(slot)
	pt.Age, pt.Lifetime = 3, 3
	pt.Color[3] = 0
	p.ReclaimDead()

	slot, ok := p.TrySpawn()
	if !ok {
		t.Fatal("reclaimed slot not reusable")
	}
	got := *p.At(slot)
	if got != freshParticle {
		t.Errorf("respawned particle = %+v, want fresh defaults", got)
	}
	if got.Lifetime != DefaultLifetime || got.Color[3] != 1 {
		t.Errorf("defaults = lifetime %v colour %v", got.Lifetime, got.Color)
	}
}

func TestReclaimDeadCompactsLivePrefix(t *testing.T) {
	p := New(5)
	for i := 0; i < 5; i++ {
		slot, _ := p.TrySpawn()
		p.At(slot).Position[0] = float64(i)
	}
	// kill slots 0, 2 and 4
	for _, i := range []SlotIndex{0, 2, 4} {
		p.At(i).Kill()
	}
	if removed := p.ReclaimDead(); removed != 3 {
		t.Fatalf("ReclaimDead() = %d, want 3", removed)
	}
	if p.Live() != 2 {
		t.Fatalf("Live() = %d, want 2", p.Live())
	}

	seen := map[float64]bool{}
	for _, pt := range p.LiveParticles() {
		if !pt.Alive() {
			t.Errorf("dead particle %v left in live prefix", pt.Position[0])
		}
		seen[pt.Position[0]] = true
	}
	if !seen[1] || !seen[3] {
		t.Errorf("survivors = %v, want 1 and 3", seen)
	}
}

func TestZeroCapacityPool(t *testing.T) {
	p := New(0)
	if _, ok := p.TrySpawn(); ok {
		t.Error("capacity 0 pool spawned")
	}
	if p.ReclaimDead() != 0 || p.Live() != 0 {
		t.Error("empty pool reported activity")
	}
}

func TestReleaseAndClear(t *testing.T) {
	p := New(4)
	p.TrySpawn()
	p.TrySpawn()
	p.Clear()
	if p.Live() != 0 || p.Capacity() != 4 {
		t.Errorf("after Clear: live %d capacity %d", p.Live(), p.Capacity())
	}
	p.TrySpawn()
	p.Release()
	if p.Capacity() != 0 || p.Live() != 0 {
		t.Errorf("after Release: live %d capacity %d", p.Live(), p.Capacity())
	}
	if _, ok := p.TrySpawn(); ok {
		t.Error("released pool spawned")
	}
}

func TestNormalizedAge(t *testing.T) {
	pt := Particle{Age: 1, Lifetime: 4}
	if got := pt.NormalizedAge(); got != 0.25 {
		t.Errorf("NormalizedAge() = %v", got)
	}
	pt = Particle{Age: 0, Lifetime: 0}
	if got := pt.NormalizedAge(); got != 1 {
		t.Errorf("zero lifetime NormalizedAge() = %v, want 1", got)
	}
}
