// internal/segment/builder.go
package segment

import (
	cfg "github.com/tamzrod/lift-washer/internal/config"
)

// BuildParams converts the postproc section.
// Assumes config has already passed validation.
func BuildParams(p cfg.PostProcConfig) Params {
	return Params{
		OpenCloseWin:  p.OpenCloseWin,
		MinSegmentMM:  p.MinSegmentMM,
		SafetyDeltaMM: p.SafetyDeltaMM,
		BrushOffsetMM: p.BrushOffsetMM,
		MergeGapMM:    p.MergeGapMM,
		Mode:          Mode(p.Mode),
		DisMethod:     Stat(p.DisMethod),
		DisTrimRatio:  p.DisTrimRatio,
		InterpGapMax:  p.InterpGapMax,
		FFillTail:     p.FFillTail,
	}
}
