// internal/plan/plan.go
package plan

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/tamzrod/lift-washer/internal/segment"
)

// Params are the brush and motion limits. All lengths are mm.
type Params struct {
	BrushWidthMM int
	Overlap      float64 // fraction of brush width shared by consecutive passes

	MinStepMM int
	MaxStepMM int

	GuardStartMM int // extra length below the segment
	GuardEndMM   int // extra length above the segment

	QuantMM int // step and z0 granularity

	// DefaultDistanceMM is sent when a segment has no known distance.
	DefaultDistanceMM int
}

// DefaultParams are the field defaults.
func DefaultParams() Params {
	return Params{
		BrushWidthMM:      200,
		Overlap:           0.2,
		MinStepMM:         50,
		MaxStepMM:         300,
		GuardStartMM:      0,
		GuardEndMM:        0,
		QuantMM:           1,
		DefaultDistanceMM: 300,
	}
}

// Validate performs declarative validation only.
func (p Params) Validate() error {
	if p.BrushWidthMM <= 0 {
		return errors.New("plan: brush_width_mm must be > 0")
	}
	if p.Overlap < 0 || p.Overlap >= 1 {
		return fmt.Errorf("plan: overlap %.3f out of [0, 1)", p.Overlap)
	}
	if p.MinStepMM <= 0 || p.MaxStepMM < p.MinStepMM {
		return fmt.Errorf("plan: invalid step range [%d, %d]", p.MinStepMM, p.MaxStepMM)
	}
	if p.GuardStartMM < 0 || p.GuardEndMM < 0 {
		return errors.New("plan: guards must be >= 0")
	}
	if p.QuantMM <= 0 {
		return errors.New("plan: quant_mm must be > 0")
	}
	if p.DefaultDistanceMM < 0 {
		return errors.New("plan: default_distance_mm must be >= 0")
	}
	return nil
}

// Command is one descent pass over a segment.
type Command struct {
	Z0       int // lowest brush position
	Step     int
	Count    int
	Distance int
	IsLast   bool

	// Top is the segment's upper bound, sent as H0.
	Top float64

	// Length is the guarded length the command must cover.
	Length float64
}

// Coverage is the height swept by the command.
func (c Command) Coverage(brushWidth int) int {
	return brushWidth + c.Step*(c.Count-1)
}

func (c Command) String() string {
	return fmt.Sprintf("z0=%d step=%d count=%d dis=%d last=%t", c.Z0, c.Step, c.Count, c.Distance, c.IsLast)
}

// SortTopDown orders segments by z_end, highest first.
// The sort is stable so equal tops keep their pipeline order.
func SortTopDown(segs []segment.Segment) []segment.Segment {
	out := make([]segment.Segment, len(segs))
	copy(out, segs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ZEnd > out[j].ZEnd })
	return out
}

// Generate builds one command per cleanable segment, top-down.
// Every returned command satisfies the coverage postcondition; a violation is
// reported as an error rather than dispatched.
func Generate(segs []segment.Segment, p Params) ([]Command, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	ordered := SortTopDown(segs)

	var out []Command
	for _, s := range ordered {
		if s.Flag != 1 {
			continue
		}
		c, err := forSegment(s, p)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if len(out) > 0 {
		out[len(out)-1].IsLast = true
	}
	return out, nil
}

func forSegment(s segment.Segment, p Params) (Command, error) {
	w := float64(p.BrushWidthMM)
	lEff := s.Length() + float64(p.GuardStartMM) + float64(p.GuardEndMM)

	pref := clampInt(int(math.Round(w*(1-p.Overlap))), p.MinStepMM, p.MaxStepMM)

	var step, count int
	if lEff <= w {
		step = clampInt(quantCeil(float64(pref), p.QuantMM), p.MinStepMM, p.MaxStepMM)
		count = 1
	} else {
		rest := lEff - w
		count = 1 + int(math.Ceil(rest/float64(pref)))

		step = clampInt(quantCeil(rest/float64(count-1), p.QuantMM), p.MinStepMM, p.MaxStepMM)

		if float64(p.BrushWidthMM+step*(count-1)) < lEff {
			count = 1 + int(math.Ceil(rest/float64(step)))
		}
		if step == p.MaxStepMM {
			count = 1 + int(math.Ceil(rest/float64(p.MaxStepMM)))
		}
	}

	c := Command{
		Z0:       quantFloor(s.ZStart-float64(p.GuardStartMM), p.QuantMM),
		Step:     step,
		Count:    count,
		Distance: p.DefaultDistanceMM,
		Top:      s.ZEnd,
		Length:   lEff,
	}
	if s.Dist.Known {
		c.Distance = int(math.Round(s.Dist.MM))
	}

	if float64(c.Coverage(p.BrushWidthMM)) < lEff {
		return Command{}, fmt.Errorf("plan: coverage %d < %.1f for segment [%.1f, %.1f]",
			c.Coverage(p.BrushWidthMM), lEff, s.ZStart, s.ZEnd)
	}
	if step < p.MinStepMM || step > p.MaxStepMM {
		return Command{}, fmt.Errorf("plan: step %d outside [%d, %d]", step, p.MinStepMM, p.MaxStepMM)
	}
	return c, nil
}

func quantCeil(v float64, q int) int {
	return int(math.Ceil(v/float64(q))) * q
}

func quantFloor(v float64, q int) int {
	return int(math.Floor(v/float64(q))) * q
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
