// internal/source/replay.go
package source

import (
	"io"

	"github.com/tamzrod/lift-washer/internal/segment"
)

// Replay feeds a recorded sample log back through the controller.
// It serves both the flag and the distance side: the distance handed out
// belongs to the flag most recently returned.
type Replay struct {
	samples []segment.Sample
	next    int
}

// NewReplay wraps recorded samples. The slice is not copied.
func NewReplay(samples []segment.Sample) *Replay {
	return &Replay{samples: samples}
}

// NextFlag returns the next recorded flag, then io.EOF.
func (r *Replay) NextFlag() (Observation, error) {
	if r.next >= len(r.samples) {
		return Observation{}, io.EOF
	}
	s := r.samples[r.next]
	r.next++
	return Observation{Cleanable: s.Flag == 1}, nil
}

// TryDistance returns the recorded distance of the current tick, if any.
func (r *Replay) TryDistance() (float64, bool) {
	if r.next == 0 {
		return 0, false
	}
	d := r.samples[r.next-1].Dist
	return d.MM, d.Known
}
