// internal/controller/builder.go
package controller

import (
	"log"
	"time"

	cfg "github.com/tamzrod/lift-washer/internal/config"
	"github.com/tamzrod/lift-washer/internal/plan"
	"github.com/tamzrod/lift-washer/internal/segment"
)

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// BuildConfig converts a validated, normalized config into a run config.
func BuildConfig(c *cfg.Config, runID string, logger *log.Logger) Config {
	return Config{
		RunID: runID,

		SamplePeriod:    ms(c.Sampling.PeriodMs),
		StopOnDeviceTop: c.Sampling.HasTrigger(cfg.TriggerDeviceAtTop),
		StopOnVisionTop: c.Sampling.HasTrigger(cfg.TriggerVisionTop),
		MaxSamples:      c.Sampling.MaxSamples,

		Poll:              ms(c.Descent.PollMs),
		ReadyTimeout:      ms(c.Descent.ReadyTimeoutMs),
		StopTimeout:       ms(c.Descent.StopTimeoutMs),
		AckTimeout:        ms(c.Descent.AckTimeoutMs),
		SegTimeoutBase:    ms(c.Descent.SegTimeoutBaseMs),
		SegTimeoutPerStep: ms(c.Descent.SegTimeoutPerStepMs),
		FinishTimeout:     ms(c.Descent.FinishTimeoutMs),
		OnSegmentTimeout:  Policy(c.Descent.OnSegmentTimeout),

		Segment: segment.BuildParams(c.PostProc),
		Plan:    plan.BuildParams(c.Cleaning),

		Logger: logger,
	}
}
