// internal/segment/validate.go
package segment

import (
	"errors"
	"fmt"
	"math"
)

// DataError rejects a sample log before any segmentation work begins.
type DataError struct {
	Msg string
}

func (e *DataError) Error() string { return "segment: bad sample log: " + e.Msg }

func dataErrf(format string, args ...any) error {
	return &DataError{Msg: fmt.Sprintf(format, args...)}
}

// ValidateLog checks column alignment, flag domain and z monotonicity.
// A nil Dist column is accepted and means every distance is unknown.
func ValidateLog(l Log) error {
	if len(l.Flags) != len(l.Z) {
		return dataErrf("length mismatch: flags=%d z=%d", len(l.Flags), len(l.Z))
	}
	if l.Dist != nil && len(l.Dist) != len(l.Z) {
		return dataErrf("length mismatch: dist=%d z=%d", len(l.Dist), len(l.Z))
	}

	for i, f := range l.Flags {
		if f > 1 {
			return dataErrf("flag[%d]=%d not in {0,1}", i, f)
		}
	}

	for i, z := range l.Z {
		if math.IsNaN(z) || math.IsInf(z, 0) {
			return dataErrf("z[%d] is not finite", i)
		}
		if i > 0 && z < l.Z[i-1] {
			return dataErrf("z not monotonic at %d: %.3f < %.3f", i, z, l.Z[i-1])
		}
	}

	for i, d := range l.Dist {
		if d.Known && (math.IsNaN(d.MM) || math.IsInf(d.MM, 0)) {
			return dataErrf("dist[%d] marked known but not finite", i)
		}
	}
	return nil
}

// Validate checks parameter sanity.
// It performs declarative validation only.
func (p Params) Validate() error {
	if p.OpenCloseWin < 0 {
		return errors.New("segment: open_close_win must be >= 0")
	}
	if p.MinSegmentMM < 0 || p.SafetyDeltaMM < 0 || p.MergeGapMM < 0 {
		return errors.New("segment: min_segment_mm, safety_delta_mm and merge_gap_mm must be >= 0")
	}
	if p.InterpGapMax < 0 {
		return errors.New("segment: interp_gap_max must be >= 0")
	}
	if p.DisTrimRatio < 0 || p.DisTrimRatio >= 0.5 {
		return fmt.Errorf("segment: dis_trim_ratio %.3f out of [0, 0.5)", p.DisTrimRatio)
	}
	switch p.Mode {
	case ModePoints, ModeSegments:
	default:
		return fmt.Errorf("segment: unknown output mode %q", p.Mode)
	}
	switch p.DisMethod {
	case StatMedian, StatTrimmedMean:
	default:
		return fmt.Errorf("segment: unknown dis method %q", p.DisMethod)
	}
	return nil
}
