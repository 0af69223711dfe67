// internal/source/distance.go
package source

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// DistanceSource yields a new stand-off reading when one is available.
type DistanceSource interface {
	TryDistance() (float64, bool)
}

// MockConfig drives the simulated range finder.
type MockConfig struct {
	LatencyN     int     // a reading arrives every N calls
	BaseMM       float64 // first reading centre
	NoiseMM      float64 // uniform noise half-width
	DriftPerCall float64 // added to the previous reading each time
	Seed         int64
}

// Mock is a range finder stand-in. Each reading random-walks from the last.
type Mock struct {
	cfg  MockConfig
	rng  *rand.Rand
	tick int
	last float64
	have bool
}

// NewMock builds a mock distance source.
func NewMock(cfg MockConfig) *Mock {
	if cfg.LatencyN < 1 {
		cfg.LatencyN = 1
	}
	return &Mock{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

func (m *Mock) TryDistance() (float64, bool) {
	m.tick++
	if m.tick%m.cfg.LatencyN != 0 {
		return 0, false
	}
	base := m.cfg.BaseMM
	if m.have {
		base = m.last
	}
	v := base + m.cfg.DriftPerCall + (m.rng.Float64()*2-1)*m.cfg.NoiseMM
	m.last, m.have = v, true
	return v, true
}

// JumpLimiter clamps each reading to within MaxJumpMM of the previous one.
type JumpLimiter struct {
	src       DistanceSource
	maxJumpMM float64
	last      float64
	have      bool
}

// LimitJumps wraps src. maxJumpMM <= 0 disables limiting.
func LimitJumps(src DistanceSource, maxJumpMM float64) *JumpLimiter {
	return &JumpLimiter{src: src, maxJumpMM: maxJumpMM}
}

func (j *JumpLimiter) TryDistance() (float64, bool) {
	v, ok := j.src.TryDistance()
	if !ok {
		return 0, false
	}
	if j.have && j.maxJumpMM > 0 {
		switch diff := v - j.last; {
		case diff > j.maxJumpMM:
			v = j.last + j.maxJumpMM
		case diff < -j.maxJumpMM:
			v = j.last - j.maxJumpMM
		}
	}
	j.last, j.have = v, true
	return v, true
}

// None never has a reading.
type None struct{}

func (None) TryDistance() (float64, bool) { return 0, false }

// Latest is a thread-safe single-value slot with a sequence number.
type Latest[T any] struct {
	mu  sync.Mutex
	v   T
	seq uint64
}

// Set stores v and bumps the sequence.
func (l *Latest[T]) Set(v T) {
	l.mu.Lock()
	l.v = v
	l.seq++
	l.mu.Unlock()
}

// Get returns the value if its sequence differs from lastSeq.
func (l *Latest[T]) Get(lastSeq uint64) (T, uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var zero T
	if l.seq == 0 || l.seq == lastSeq {
		return zero, l.seq, false
	}
	return l.v, l.seq, true
}

// LatestDistance reads fresh values out of a Latest slot.
// Each stored value is returned at most once.
type LatestDistance struct {
	slot *Latest[float64]
	seen uint64
}

// FromLatest adapts a Latest slot filled by a background producer.
func FromLatest(slot *Latest[float64]) *LatestDistance {
	return &LatestDistance{slot: slot}
}

func (d *LatestDistance) TryDistance() (float64, bool) {
	v, seq, ok := d.slot.Get(d.seen)
	if !ok {
		return 0, false
	}
	d.seen = seq
	return v, true
}

// Pump polls src every period and publishes readings into slot until ctx ends.
func Pump(ctx context.Context, src DistanceSource, slot *Latest[float64], period time.Duration) {
	if period <= 0 {
		period = 20 * time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if v, ok := src.TryDistance(); ok {
				slot.Set(v)
			}
		}
	}
}
