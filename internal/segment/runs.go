// internal/segment/runs.go
package segment

// ToRuns converts cleaned flags plus z into contiguous runs.
// A run spans from the z of its first sample to the z of its last sample.
func ToRuns(flags []uint8, z []float64) []Run {
	spans := indexSpans(flags)
	out := make([]Run, 0, len(spans))
	for _, s := range spans {
		out = append(out, Run{Flag: s.flag, ZStart: z[s.first], ZEnd: z[s.last]})
	}
	return out
}

// DropShort discards flag==1 runs shorter than minMM outright.
// Neighbours are not merged here; Merge handles that.
func DropShort(runs []Run, minMM float64) []Run {
	out := make([]Run, 0, len(runs))
	for _, r := range runs {
		if r.Flag == 1 && r.Length() < minMM {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Shrink retracts the cleanable side of every flag transition by deltaMM.
// The non-cleanable side keeps its boundary. Runs that invert are dropped.
func Shrink(runs []Run, deltaMM float64) []Run {
	out := make([]Run, 0, len(runs))
	for i, r := range runs {
		s, e := r.ZStart, r.ZEnd
		if r.Flag == 1 {
			if i > 0 && runs[i-1].Flag != r.Flag {
				s += deltaMM
			}
			if i < len(runs)-1 && runs[i+1].Flag != r.Flag {
				e -= deltaMM
			}
		}
		if e <= s {
			continue
		}
		out = append(out, Run{Flag: r.Flag, ZStart: s, ZEnd: e})
	}
	return out
}

// Offset shifts cleanable runs by offsetMM. Other runs are untouched.
func Offset(runs []Run, offsetMM float64) []Run {
	out := make([]Run, len(runs))
	for i, r := range runs {
		if r.Flag == 1 {
			r.ZStart += offsetMM
			r.ZEnd += offsetMM
		}
		out[i] = r
	}
	return out
}

// Merge joins adjacent runs of identical flag whose gap is below gapMM.
func Merge(runs []Run, gapMM float64) []Run {
	if len(runs) == 0 {
		return nil
	}
	out := make([]Run, 0, len(runs))
	cur := runs[0]
	for _, r := range runs[1:] {
		if r.Flag == cur.Flag && r.ZStart-cur.ZEnd < gapMM {
			if r.ZEnd > cur.ZEnd {
				cur.ZEnd = r.ZEnd
			}
			continue
		}
		out = append(out, cur)
		cur = r
	}
	return append(out, cur)
}
