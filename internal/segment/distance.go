// internal/segment/distance.go
package segment

import (
	"sort"
)

// Backfill resolves unknown distances.
//
// Order:
//  1. interior gaps of at most maxInterp samples, bounded by known values on
//     both sides, are linearly interpolated (maxInterp 0 disables);
//  2. every remaining unknown takes the nearest later known value;
//  3. with ffillTail, a trailing unknown run takes the last known value.
//
// Whatever is still unresolved stays Unknown. The input is not modified.
func Backfill(ds []Distance, maxInterp int, ffillTail bool) []Distance {
	n := len(ds)
	out := make([]Distance, n)
	copy(out, ds)

	if maxInterp > 0 {
		for i := 0; i < n; {
			if out[i].Known {
				i++
				continue
			}
			j := i
			for j < n && !out[j].Known {
				j++
			}
			gap := j - i
			if i > 0 && j < n && gap <= maxInterp {
				v0, v1 := out[i-1].MM, out[j].MM
				for k := 0; k < gap; k++ {
					out[i+k] = Known(v0 + (v1-v0)*float64(k+1)/float64(gap+1))
				}
			}
			i = j
		}
	}

	var next Distance
	for i := n - 1; i >= 0; i-- {
		if out[i].Known {
			next = out[i]
		} else if next.Known {
			out[i] = next
		}
	}

	if ffillTail {
		var last Distance
		for i := 0; i < n; i++ {
			if out[i].Known {
				last = out[i]
			} else if last.Known {
				out[i] = last
			}
		}
	}

	return out
}

// indexRange maps [zStart, zEnd] onto sample indices of an ascending z column.
// The range is clamped to the log so a segment shifted past either end still
// resolves to its nearest sample.
func indexRange(z []float64, zStart, zEnd float64) (int, int) {
	n := len(z)
	i0 := sort.SearchFloat64s(z, zStart)
	i1 := sort.Search(n, func(i int) bool { return z[i] > zEnd }) - 1
	if i1 < i0 {
		i1 = i0
	}
	i0 = clampIndex(i0, n)
	i1 = clampIndex(i1, n)
	return i0, i1
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}

// Aggregate reduces the known distances in ds[i0..i1] to one value.
// Unknown entries are skipped. No known entries yields Unknown.
func Aggregate(ds []Distance, i0, i1 int, method Stat, trimRatio float64) Distance {
	var window []float64
	for i := i0; i <= i1 && i < len(ds); i++ {
		if ds[i].Known {
			window = append(window, ds[i].MM)
		}
	}
	if len(window) == 0 {
		return Unknown
	}
	sort.Float64s(window)

	if method == StatMedian {
		m := len(window) / 2
		if len(window)%2 == 1 {
			return Known(window[m])
		}
		return Known(0.5 * (window[m-1] + window[m]))
	}

	// trimmed mean
	k := int(float64(len(window)) * trimRatio)
	if k < 1 {
		k = 1
	}
	if len(window) >= 2*k+1 {
		window = window[k : len(window)-k]
	}
	var sum float64
	for _, v := range window {
		sum += v
	}
	return Known(sum / float64(len(window)))
}
