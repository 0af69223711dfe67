// internal/plan/plan_test.go
package plan

import (
	"math/rand"
	"testing"

	"github.com/tamzrod/lift-washer/internal/segment"
)

func seg(start, end float64) segment.Segment {
	return segment.Segment{Flag: 1, ZStart: start, ZEnd: end}
}

func TestGenerate_EvenStep(t *testing.T) {
	p := DefaultParams()
	p.BrushWidthMM = 200
	p.Overlap = 0.2
	p.MinStepMM = 100
	p.MaxStepMM = 200

	cmds, err := Generate([]segment.Segment{seg(1000, 1500)}, p)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(cmds) != 1 {
		t.Fatalf("got %d commands", len(cmds))
	}
	c := cmds[0]
	if c.Count != 3 || c.Step != 150 {
		t.Fatalf("got %s, want count=3 step=150", c)
	}
	if c.Coverage(p.BrushWidthMM) != 500 {
		t.Fatalf("coverage=%d", c.Coverage(p.BrushWidthMM))
	}
	if c.Z0 != 1000 || c.Top != 1500 || !c.IsLast {
		t.Fatalf("got %+v", c)
	}
	if c.Distance != p.DefaultDistanceMM {
		t.Fatalf("unknown distance not defaulted: %d", c.Distance)
	}
}

func TestGenerate_SinglePass(t *testing.T) {
	p := DefaultParams()
	p.MinStepMM = 50
	p.MaxStepMM = 120

	s := seg(300, 420)
	s.Dist = segment.Known(287.6)

	cmds, err := Generate([]segment.Segment{s}, p)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	c := cmds[0]
	// preferred 160 clamps to 120
	if c.Count != 1 || c.Step != 120 {
		t.Fatalf("got %s", c)
	}
	if c.Distance != 288 {
		t.Fatalf("distance=%d", c.Distance)
	}
}

func TestGenerate_SaturatedStep(t *testing.T) {
	p := DefaultParams()
	p.BrushWidthMM = 200
	p.Overlap = 0
	p.MinStepMM = 50
	p.MaxStepMM = 100

	cmds, err := Generate([]segment.Segment{seg(0, 1000)}, p)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	c := cmds[0]
	if c.Step != 100 || c.Count != 9 {
		t.Fatalf("got %s, want step=100 count=9", c)
	}
}

func TestGenerate_GuardsAndQuant(t *testing.T) {
	p := DefaultParams()
	p.GuardStartMM = 30
	p.GuardEndMM = 20
	p.QuantMM = 10

	cmds, err := Generate([]segment.Segment{seg(1234.5, 1800)}, p)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	c := cmds[0]
	if c.Z0 != 1200 {
		t.Fatalf("z0=%d want 1200", c.Z0)
	}
	if c.Step%10 != 0 {
		t.Fatalf("step %d not quantised", c.Step)
	}
	if float64(c.Coverage(p.BrushWidthMM)) < 565.5+50 {
		t.Fatalf("coverage %d too short", c.Coverage(p.BrushWidthMM))
	}
}

func TestGenerate_TopDownOrder(t *testing.T) {
	segs := []segment.Segment{
		seg(100, 400),
		seg(900, 1500),
		seg(500, 700),
		{Flag: 0, ZStart: 1600, ZEnd: 1700},
	}

	cmds, err := Generate(segs, DefaultParams())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(cmds) != 3 {
		t.Fatalf("got %d commands", len(cmds))
	}
	for i := 1; i < len(cmds); i++ {
		if cmds[i].Top > cmds[i-1].Top {
			t.Fatalf("order broken at %d: %v > %v", i, cmds[i].Top, cmds[i-1].Top)
		}
	}
	for i, c := range cmds {
		if c.IsLast != (i == len(cmds)-1) {
			t.Fatalf("is_last wrong at %d", i)
		}
	}
}

func TestGenerate_CoverageProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	for trial := 0; trial < 2000; trial++ {
		p := Params{
			BrushWidthMM:      50 + rng.Intn(300),
			Overlap:           rng.Float64() * 0.9,
			MinStepMM:         1 + rng.Intn(100),
			GuardStartMM:      rng.Intn(60),
			GuardEndMM:        rng.Intn(60),
			QuantMM:           1 + rng.Intn(20),
			DefaultDistanceMM: 300,
		}
		p.MaxStepMM = p.MinStepMM + rng.Intn(400)

		start := rng.Float64() * 3000
		s := seg(start, start+rng.Float64()*2500)

		cmds, err := Generate([]segment.Segment{s}, p)
		if err != nil {
			t.Fatalf("trial %d: %v (%+v)", trial, err, p)
		}
		c := cmds[0]
		lEff := s.Length() + float64(p.GuardStartMM+p.GuardEndMM)
		if float64(c.Coverage(p.BrushWidthMM)) < lEff {
			t.Fatalf("trial %d: coverage %d < %.2f (%s)", trial, c.Coverage(p.BrushWidthMM), lEff, c)
		}
		if c.Step < p.MinStepMM || c.Step > p.MaxStepMM {
			t.Fatalf("trial %d: step %d outside [%d,%d]", trial, c.Step, p.MinStepMM, p.MaxStepMM)
		}
		if c.Count < 1 {
			t.Fatalf("trial %d: count %d", trial, c.Count)
		}
	}
}

func TestParamsValidate(t *testing.T) {
	p := DefaultParams()
	p.MaxStepMM = p.MinStepMM - 1
	if p.Validate() == nil {
		t.Fatalf("inverted step range accepted")
	}
	if _, err := Generate(nil, p); err == nil {
		t.Fatalf("Generate accepted bad params")
	}
}
