package systems

import (
	"math"

	"go.uber.org/zap"

	"github.com/decker502/sparkfx/internal/particle"
	"github.com/decker502/sparkfx/pkg/descriptor"
)

// spawner.go - 发射调度器
//
// Spawner 决定每一帧需要生成多少个粒子：
//  - WaitingForPeriod: 等待下一个周期开始（周期从上一个周期开始时计时）
//  - Emitting: 在 spawn_time 窗口内均匀发射本周期的粒子
//  - Inactive: 未激活或已停用（停用时保留周期进度）

// SpawnerState is the observable state of a Spawner.
type SpawnerState uint8

const (
	SpawnerInactive SpawnerState = iota
	SpawnerWaiting
	SpawnerEmitting
)

func (s SpawnerState) String() string {
	switch s {
	case SpawnerInactive:
		return "Inactive"
	case SpawnerWaiting:
		return "WaitingForPeriod"
	case SpawnerEmitting:
		return "Emitting"
	}
	return "Unknown"
}

const (
	// timeEpsilon absorbs float drift when many small frame steps should add
	// up exactly to a period or spawn window (ten steps of 0.1 are not 1.0).
	timeEpsilon = 1e-6

	// maxCyclesPerAdvance bounds the work of one Advance call when a large dt
	// spans many short cycles.
	maxCyclesPerAdvance = 1024

	maxCycleCount = 1 << 31
)

// Spawner schedules particle emission for one effect instance.
// It is owned by a single goroutine, like the pool it feeds.
type Spawner struct {
	cfg descriptor.SpawnerConfig
	rng particle.Rand
	log *zap.Logger

	active  bool
	started bool // first activation happened
	phase   SpawnerState

	wait      float64 // remaining time before the next cycle starts
	period    float64 // sampled period of the current cycle
	spawnTime float64 // sampled emission window of the current cycle
	elapsed   float64 // time since the current cycle started
	count     uint32  // sampled particle count of the current cycle
	emitted   uint32  // particles emitted so far in the current cycle
	cycles    int
}

// NewSpawner returns an inactive spawner. Call Activate (or let the effect
// instance do it when StartsActive is set) to begin scheduling.
func NewSpawner(cfg descriptor.SpawnerConfig, rng particle.Rand, logger *zap.Logger) *Spawner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Spawner{cfg: cfg, rng: rng, log: logger, phase: SpawnerWaiting}
}

// Config returns the spawner configuration.
func (s *Spawner) Config() descriptor.SpawnerConfig { return s.cfg }

// State returns Inactive while deactivated, otherwise the current phase.
func (s *Spawner) State() SpawnerState {
	if !s.active {
		return SpawnerInactive
	}
	return s.phase
}

// Active reports whether Advance emits particles.
func (s *Spawner) Active() bool { return s.active }

// CycleCount returns the number of cycles started since the last reset.
func (s *Spawner) CycleCount() int { return s.cycles }

// Finished reports whether no further cycle can start: the last cycle has
// emitted and the remaining wait is infinite.
func (s *Spawner) Finished() bool {
	return s.started && s.phase == SpawnerWaiting && math.IsInf(s.wait, 1)
}

// Activate starts or resumes scheduling. The first activation arms the first
// cycle: immediately when StartsImmediately is set, otherwise after one period.
func (s *Spawner) Activate() {
	if s.active {
		return
	}
	s.active = true
	if !s.started {
		s.started = true
		s.phase = SpawnerWaiting
		s.wait = 0
		if !s.cfg.StartsImmediately {
			s.wait = sampleDuration(s.cfg.Period, s.rng)
		}
	}
	s.log.Debug("spawner activated", zap.Stringer("state", s.phase), zap.Float64("wait", s.wait))
}

// Deactivate stops scheduling. The cycle phase is kept, so a later Activate resumes it.
func (s *Spawner) Deactivate() {
	if !s.active {
		return
	}
	s.active = false
	s.log.Debug("spawner deactivated", zap.Stringer("state", s.phase))
}

// Reset forgets all runtime state and leaves the spawner inactive.
func (s *Spawner) Reset() {
	*s = Spawner{cfg: s.cfg, rng: s.rng, log: s.log, phase: SpawnerWaiting}
}

// Advance moves the schedule forward by dt seconds and returns how many
// particles should be spawned this frame.
//
// Within a cycle the emitted total follows floor(count * elapsed / spawnTime),
// so the fractional remainder carries from frame to frame and the cycle emits
// exactly its sampled count. A zero spawn time emits the whole count at once.
func (s *Spawner) Advance(dt float64) uint32 {
	if !s.active || dt < 0 || math.IsNaN(dt) {
		return 0
	}

	var total uint32
	remaining := dt
	started := 0
	for {
		switch s.phase {
		case SpawnerWaiting:
			if s.wait > remaining+timeEpsilon {
				s.wait -= remaining
				return total
			}
			// 周期长度为 0 时每帧最多一次爆发
			if started > 0 && (s.cycleLength() <= 0 || started >= maxCyclesPerAdvance) {
				s.wait = 0
				return total
			}
			remaining = max(0, remaining-s.wait)
			s.startCycle()
			started++

		case SpawnerEmitting:
			if s.spawnTime <= 0 {
				total = addClamped(total, s.count-s.emitted)
				s.emitted = s.count
				s.endCycle()
				continue
			}

			s.elapsed += remaining
			if s.elapsed+timeEpsilon >= s.spawnTime {
				total = addClamped(total, s.count-s.emitted)
				s.emitted = s.count
				// 窗口结束后剩余的时间用于等待下一个周期
				remaining = max(0, s.elapsed-s.spawnTime)
				s.endCycle()
				continue
			}

			target := uint32(math.Floor(float64(s.count) * s.elapsed / s.spawnTime))
			if target > s.count {
				target = s.count
			}
			if target > s.emitted {
				total = addClamped(total, target-s.emitted)
				s.emitted = target
			}
			return total

		default:
			return total
		}
	}
}

func (s *Spawner) startCycle() {
	s.phase = SpawnerEmitting
	s.elapsed = 0
	s.emitted = 0
	s.period = sampleDuration(s.cfg.Period, s.rng)
	s.spawnTime = sampleDuration(s.cfg.SpawnTime, s.rng)
	s.count = sampleCount(s.cfg.NumParticles, s.rng)
	s.cycles++
	s.log.Debug("spawn cycle started",
		zap.Int("cycle", s.cycles),
		zap.Uint32("count", s.count),
		zap.Float64("spawnTime", s.spawnTime),
		zap.Float64("period", s.period))
}

// endCycle switches to waiting for the rest of the period, which is measured
// from the cycle start.
func (s *Spawner) endCycle() {
	s.phase = SpawnerWaiting
	s.wait = max(0, s.period-s.spawnTime)
}

func (s *Spawner) cycleLength() float64 {
	return max(s.period, s.spawnTime)
}

// sampleDuration draws a non-negative duration; NaN is treated as zero.
func sampleDuration(v particle.Value[float64], r particle.Rand) float64 {
	d := v.Sample(r)
	if d < 0 || math.IsNaN(d) {
		return 0
	}
	return d
}

func sampleCount(v particle.Value[float64], r particle.Rand) uint32 {
	n := math.Round(v.Sample(r))
	switch {
	case n <= 0 || math.IsNaN(n):
		return 0
	case n >= maxCycleCount:
		return maxCycleCount
	}
	return uint32(n)
}

func addClamped(a, b uint32) uint32 {
	if a > math.MaxUint32-b {
		return math.MaxUint32
	}
	return a + b
}
