// internal/segment/types.go
package segment

import "fmt"

// Distance is a stand-off reading that may be unknown.
// Unknown is explicit; it is never silently zero.
type Distance struct {
	MM    float64
	Known bool
}

// Unknown is the zero Distance.
var Unknown = Distance{}

// Known wraps a measured value.
func Known(mm float64) Distance { return Distance{MM: mm, Known: true} }

func (d Distance) String() string {
	if !d.Known {
		return "unknown"
	}
	return fmt.Sprintf("%.1f", d.MM)
}

// Sample is one ascend tick.
type Sample struct {
	Tick int
	Flag uint8 // 1 = cleanable
	Z    float64
	Dist Distance
}

// Log is the frozen sample log in column form.
// All three columns are index-aligned.
type Log struct {
	Flags []uint8
	Z     []float64
	Dist  []Distance
}

// Columns converts samples into a Log.
func Columns(samples []Sample) Log {
	l := Log{
		Flags: make([]uint8, len(samples)),
		Z:     make([]float64, len(samples)),
		Dist:  make([]Distance, len(samples)),
	}
	for i, s := range samples {
		l.Flags[i] = s.Flag
		l.Z[i] = s.Z
		l.Dist[i] = s.Dist
	}
	return l
}

// Run is a contiguous stretch of equal flags, in z.
type Run struct {
	Flag   uint8
	ZStart float64
	ZEnd   float64
}

// Length is ZEnd - ZStart.
func (r Run) Length() float64 { return r.ZEnd - r.ZStart }

// Segment is a final cleanable height range. Immutable once emitted.
type Segment struct {
	Flag   uint8
	ZStart float64
	ZEnd   float64
	Dist   Distance
}

// Length is ZEnd - ZStart.
func (s Segment) Length() float64 { return s.ZEnd - s.ZStart }

// Point is one cleaned sample.
type Point struct {
	Flag uint8
	Z    float64
	Dist Distance
}

// Mode selects what Result.Rows reports.
type Mode string

const (
	ModePoints   Mode = "points"
	ModeSegments Mode = "segments"
)

// Stat selects the per-segment distance aggregate.
type Stat string

const (
	StatMedian      Stat = "median"
	StatTrimmedMean Stat = "trimmed_mean"
)

// Params are the pipeline knobs. Lengths are mm, OpenCloseWin is samples.
type Params struct {
	OpenCloseWin  int
	MinSegmentMM  float64
	SafetyDeltaMM float64
	BrushOffsetMM float64
	MergeGapMM    float64

	Mode Mode

	DisMethod    Stat
	DisTrimRatio float64
	InterpGapMax int
	FFillTail    bool
}

// DefaultParams are the field defaults.
func DefaultParams() Params {
	return Params{
		OpenCloseWin:  3,
		MinSegmentMM:  60,
		SafetyDeltaMM: 25,
		BrushOffsetMM: 0,
		MergeGapMM:    30,
		Mode:          ModeSegments,
		DisMethod:     StatMedian,
		DisTrimRatio:  0.1,
		InterpGapMax:  0,
		FFillTail:     true,
	}
}

// Result carries both views of one pipeline pass.
type Result struct {
	// Points is the per-sample cleaned log (flag after denoise, filled distance).
	Points []Point

	// Segments holds only flag==1 runs, ascending in z.
	Segments []Segment
}
