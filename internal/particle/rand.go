package particle

import "math/rand/v2"

// Rand is the random source every sampling function draws from.
// Float64 returns a value in the half-open interval [0.0, 1.0).
//
// *rand.Rand from math/rand/v2 satisfies it, as does any scripted source
// used by tests.
type Rand interface {
	Float64() float64
}

// NewRand returns a seeded PCG source. Two sources created with the same seed
// produce the same sequence, which lets a whole effect be replayed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Sequence replays a fixed list of values and wraps around when exhausted.
// An empty sequence always returns 0.
type Sequence struct {
	Values []float64
	next   int
}

// Float64 implements Rand.
func (s *Sequence) Float64() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	v := s.Values[s.next%len(s.Values)]
	s.next++
	return v
}
