// internal/source/builder.go
package source

import (
	"context"
	"time"

	cfg "github.com/tamzrod/lift-washer/internal/config"
	"github.com/tamzrod/lift-washer/internal/segment"
)

// Flags is what BuildFlags returns; the controller's flag source.
type Flags interface {
	NextFlag() (Observation, error)
}

// BuildFlags picks the vision stand-in. load reads a recorded samples CSV.
func BuildFlags(v cfg.VisionConfig, load func(path string) ([]segment.Sample, error)) (Flags, error) {
	if v.ReplayCSV != "" {
		samples, err := load(v.ReplayCSV)
		if err != nil {
			return nil, err
		}
		return NewReplay(samples), nil
	}
	return NewPattern(v.Pattern, v.TopAtEnd)
}

// BuildDistance picks the distance side.
// A replay source serves its own distances unless the mock is enabled.
// With pump_period_ms set, the mock runs in the background until ctx is done
// and the controller only sees the latest reading.
func BuildDistance(ctx context.Context, d cfg.DistanceConfig, flags Flags) DistanceSource {
	if !d.Enabled {
		if r, ok := flags.(*Replay); ok {
			return r
		}
		return None{}
	}

	var src DistanceSource = LimitJumps(NewMock(MockConfig{
		LatencyN:     d.LatencyN,
		BaseMM:       d.MockBaseMM,
		NoiseMM:      d.MockNoiseMM,
		DriftPerCall: d.MockDriftMM,
		Seed:         d.Seed,
	}), d.MaxJumpMM)

	if d.PumpPeriodMs <= 0 {
		return src
	}

	slot := &Latest[float64]{}
	go Pump(ctx, src, slot, time.Duration(d.PumpPeriodMs)*time.Millisecond)
	return FromLatest(slot)
}
