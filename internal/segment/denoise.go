// internal/segment/denoise.go
package segment

// span is a run in index space, inclusive.
type span struct {
	flag  uint8
	first int
	last  int
}

func (s span) len() int { return s.last - s.first + 1 }

func indexSpans(flags []uint8) []span {
	if len(flags) == 0 {
		return nil
	}
	var out []span
	cur := span{flag: flags[0], first: 0}
	for i := 1; i < len(flags); i++ {
		if flags[i] != cur.flag {
			cur.last = i - 1
			out = append(out, cur)
			cur = span{flag: flags[i], first: i}
		}
	}
	cur.last = len(flags) - 1
	return append(out, cur)
}

// Denoise is a morphological open-close with window w.
// Open erodes 1-runs shorter than w, close fills 0-runs shorter than w,
// each replaced with the surrounding value. A sequence that is one run has
// no surrounding value and is left alone. The result is idempotent for a
// fixed w. The input is not modified.
func Denoise(flags []uint8, w int) []uint8 {
	out := make([]uint8, len(flags))
	copy(out, flags)
	if w <= 1 {
		return out
	}

	eraseShort(out, 1, w)
	eraseShort(out, 0, w)
	return out
}

// eraseShort flips every run of value v shorter than w, in place.
// Runs are computed once up front so erasures do not cascade.
func eraseShort(flags []uint8, v uint8, w int) {
	spans := indexSpans(flags)
	if len(spans) <= 1 {
		return
	}
	for _, s := range spans {
		if s.flag != v || s.len() >= w {
			continue
		}
		for i := s.first; i <= s.last; i++ {
			flags[i] = 1 - v
		}
	}
}
