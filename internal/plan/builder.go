// internal/plan/builder.go
package plan

import (
	cfg "github.com/tamzrod/lift-washer/internal/config"
)

// BuildParams converts the cleaning section.
func BuildParams(c cfg.CleaningConfig) Params {
	return Params{
		BrushWidthMM:      c.BrushWidthMM,
		Overlap:           c.Overlap,
		MinStepMM:         c.MinStepMM,
		MaxStepMM:         c.MaxStepMM,
		GuardStartMM:      c.GuardStartMM,
		GuardEndMM:        c.GuardEndMM,
		QuantMM:           c.QuantMM,
		DefaultDistanceMM: c.DefaultDistanceMM,
	}
}
