// internal/segment/pipeline.go
package segment

// Process runs the whole segmentation pipeline over a frozen sample log.
//
//	denoise -> distance backfill -> runs -> drop short -> shrink -> offset -> merge -> distance per segment
//
// The log is validated first; nothing is computed for a bad log.
// Pure: no IO, the input is not modified.
func Process(l Log, p Params) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	if err := ValidateLog(l); err != nil {
		return Result{}, err
	}

	dist := l.Dist
	if dist == nil {
		dist = make([]Distance, len(l.Z))
	}

	flags := Denoise(l.Flags, p.OpenCloseWin)
	filled := Backfill(dist, p.InterpGapMax, p.FFillTail)

	runs := ToRuns(flags, l.Z)
	runs = DropShort(runs, p.MinSegmentMM)
	runs = Shrink(runs, p.SafetyDeltaMM)
	runs = Offset(runs, p.BrushOffsetMM)
	runs = Merge(runs, p.MergeGapMM)

	// Shrinking can pull a survivor under the minimum; no short run leaves here.
	runs = DropShort(runs, p.MinSegmentMM)

	res := Result{
		Points: make([]Point, len(flags)),
	}
	for i := range flags {
		res.Points[i] = Point{Flag: flags[i], Z: l.Z[i], Dist: filled[i]}
	}

	for _, r := range runs {
		if r.Flag != 1 {
			continue
		}
		seg := Segment{Flag: 1, ZStart: r.ZStart, ZEnd: r.ZEnd}
		if len(l.Z) > 0 {
			i0, i1 := indexRange(l.Z, r.ZStart, r.ZEnd)
			seg.Dist = Aggregate(filled, i0, i1, p.DisMethod, p.DisTrimRatio)
		}
		res.Segments = append(res.Segments, seg)
	}

	return res, nil
}

// Rows renders the result in the requested mode, one row per point or segment.
// Points: flag, z, dist. Segments: flag, z_start, z_end, dist.
func (r Result) Rows(mode Mode) [][]any {
	var out [][]any
	if mode == ModePoints {
		for _, p := range r.Points {
			out = append(out, []any{p.Flag, p.Z, p.Dist})
		}
		return out
	}
	for _, s := range r.Segments {
		out = append(out, []any{s.Flag, s.ZStart, s.ZEnd, s.Dist})
	}
	return out
}
