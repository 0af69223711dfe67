// internal/controller/controller_test.go
package controller

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/tamzrod/lift-washer/internal/plan"
	"github.com/tamzrod/lift-washer/internal/regmap"
	"github.com/tamzrod/lift-washer/internal/segment"
	"github.com/tamzrod/lift-washer/internal/source"
)

// ---- fake device ----

// fakeDevice acts on commands instantly. CLEANING lasts for one status read.
type fakeDevice struct {
	status regmap.Status
	z      float32
	zsig   int32

	cmds []regmap.Cmd
	segs [][4]float32

	// ignore drops commands before they take effect; returning true skips the handler
	ignore func(c regmap.Cmd, seen int) bool

	neverFinishSeg bool
	topAt          float32 // z at which SAMPLE_UP reports AT_TOP, 0 = never

	failAfterWrites int // 0 = never
	writes          int
}

var errLinkDown = errors.New("link down")

func newFake() *fakeDevice { return &fakeDevice{status: regmap.StatusReady} }

func (f *fakeDevice) count(c regmap.Cmd) int {
	n := 0
	for _, x := range f.cmds {
		if x == c {
			n++
		}
	}
	return n
}

func (f *fakeDevice) write() error {
	f.writes++
	if f.failAfterWrites > 0 && f.writes > f.failAfterWrites {
		return errLinkDown
	}
	return nil
}

func (f *fakeDevice) WriteCmd(c regmap.Cmd) error {
	if err := f.write(); err != nil {
		return err
	}
	f.cmds = append(f.cmds, c)
	if f.ignore != nil && f.ignore(c, f.count(c)) {
		return nil
	}
	switch c {
	case regmap.CmdReadyReq:
		f.status = regmap.StatusReady
	case regmap.CmdSampleUp:
		f.status = regmap.StatusSampling
		f.z += 10
		if f.topAt > 0 && f.z >= f.topAt {
			f.status = regmap.StatusAtTop
		}
	case regmap.CmdStopAsc:
		f.status = regmap.StatusStopped
	case regmap.CmdStartSeg:
		f.status = regmap.StatusCleaning
	case regmap.CmdFinishAll:
		f.status = regmap.StatusDone
	}
	return nil
}

func (f *fakeDevice) ReadStatus() (regmap.Status, error) { return f.status, nil }

func (f *fakeDevice) ReadStatusZ() (regmap.Status, float32, error) {
	st := f.status
	if st == regmap.StatusCleaning && !f.neverFinishSeg {
		f.status = regmap.StatusWaitSeg
	}
	return st, f.z, nil
}

func (f *fakeDevice) BumpZSignal() (int32, error) {
	if err := f.write(); err != nil {
		return 0, err
	}
	f.zsig++
	return f.zsig, nil
}

func (f *fakeDevice) WriteSegment(h0, dh float32, n int32, dis float32) error {
	if err := f.write(); err != nil {
		return err
	}
	f.segs = append(f.segs, [4]float32{h0, dh, float32(n), dis})
	return nil
}

// ---- helpers ----

type endless struct{}

func (endless) NextFlag() (source.Observation, error) {
	return source.Observation{Cleanable: true}, nil
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func testConfig() Config {
	seg := segment.DefaultParams()
	seg.OpenCloseWin = 1
	seg.MinSegmentMM = 20
	seg.SafetyDeltaMM = 0
	seg.MergeGapMM = 0

	return Config{
		RunID:            "test",
		SamplePeriod:     time.Millisecond,
		StopOnDeviceTop:  true,
		StopOnVisionTop:  true,
		Poll:             time.Millisecond,
		ReadyTimeout:     30 * time.Millisecond,
		StopTimeout:      30 * time.Millisecond,
		AckTimeout:       30 * time.Millisecond,
		SegTimeoutBase:   30 * time.Millisecond,
		FinishTimeout:    30 * time.Millisecond,
		OnSegmentTimeout: PolicyContinue,
		Segment:          seg,
		Plan:             plan.DefaultParams(),
		Logger:           quietLogger(),
	}
}

func pattern(t *testing.T, s string, topAtEnd bool) *source.Pattern {
	t.Helper()
	p, err := source.NewPattern(s, topAtEnd)
	if err != nil {
		t.Fatalf("NewPattern err=%v", err)
	}
	return p
}

func newController(t *testing.T, cfg Config, dev Device, flags FlagSource) *Controller {
	t.Helper()
	c, err := New(cfg, dev, flags, nil)
	if err != nil {
		t.Fatalf("New err=%v", err)
	}
	return c
}

// ---- tests ----

func TestRun_HappyPath(t *testing.T) {
	dev := newFake()
	c := newController(t, testConfig(), dev, pattern(t, "5x0,20x1,5x0", false))

	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run err=%v", err)
	}

	if res.StopReason != StopSourceEnd {
		t.Fatalf("stop reason: got=%s want=%s", res.StopReason, StopSourceEnd)
	}
	if len(res.Samples) != 30 || dev.zsig != 30 {
		t.Fatalf("samples: got=%d z_signal=%d want=30", len(res.Samples), dev.zsig)
	}
	if len(res.Segments) != 1 || res.Segments[0].ZStart != 60 || res.Segments[0].ZEnd != 250 {
		t.Fatalf("segments: got=%+v", res.Segments)
	}
	if res.Dispatched != 1 || !res.Finished || res.State != regmap.StatusDone {
		t.Fatalf("result: dispatched=%d finished=%v state=%s", res.Dispatched, res.Finished, res.State)
	}
	if len(res.Timeouts) != 0 {
		t.Fatalf("unexpected timeouts: %v", res.Timeouts)
	}

	// H0 is the top of the segment
	if len(dev.segs) != 1 || dev.segs[0][0] != 250 {
		t.Fatalf("segment params: got=%v", dev.segs)
	}

	tail := dev.cmds[len(dev.cmds)-3:]
	want := []regmap.Cmd{regmap.CmdStopAsc, regmap.CmdStartSeg, regmap.CmdFinishAll}
	for i := range want {
		if tail[i] != want[i] {
			t.Fatalf("command tail: got=%v want=%v", tail, want)
		}
	}
}

func TestReady_RequestsWhenNotReady(t *testing.T) {
	dev := newFake()
	dev.status = regmap.StatusInit

	c := newController(t, testConfig(), dev, pattern(t, "1x0", false))
	if err := c.Ready(); err != nil {
		t.Fatalf("Ready err=%v", err)
	}
	if dev.count(regmap.CmdReadyReq) != 1 {
		t.Fatalf("ready request not sent: %v", dev.cmds)
	}
}

func TestReady_TimeoutIsFatal(t *testing.T) {
	dev := newFake()
	dev.status = regmap.StatusInit
	dev.ignore = func(c regmap.Cmd, _ int) bool { return c == regmap.CmdReadyReq }

	c := newController(t, testConfig(), dev, pattern(t, "1x0", false))
	_, err := c.Run(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout, got err=%v", err)
	}
	if dev.count(regmap.CmdSampleUp) != 0 {
		t.Fatalf("sampling started without READY")
	}
}

func TestAscend_StopTriggers(t *testing.T) {
	t.Run("device top", func(t *testing.T) {
		dev := newFake()
		dev.topAt = 50
		c := newController(t, testConfig(), dev, endless{})

		res, err := c.Run(context.Background())
		if err != nil {
			t.Fatalf("Run err=%v", err)
		}
		if res.StopReason != StopDeviceTop || len(res.Samples) != 5 {
			t.Fatalf("got reason=%s samples=%d", res.StopReason, len(res.Samples))
		}
	})

	t.Run("device top disabled", func(t *testing.T) {
		dev := newFake()
		dev.topAt = 50
		cfg := testConfig()
		cfg.StopOnDeviceTop = false
		c := newController(t, cfg, dev, pattern(t, "8x1", true))

		if err := c.Ready(); err != nil {
			t.Fatalf("Ready err=%v", err)
		}
		if err := c.Ascend(context.Background()); err != nil {
			t.Fatalf("Ascend err=%v", err)
		}
		if c.Result().StopReason != StopVisionTop || len(c.Result().Samples) != 8 {
			t.Fatalf("got reason=%s samples=%d", c.Result().StopReason, len(c.Result().Samples))
		}
	})

	t.Run("max samples", func(t *testing.T) {
		cfg := testConfig()
		cfg.MaxSamples = 4
		c := newController(t, cfg, newFake(), endless{})

		_ = c.Ready()
		if err := c.Ascend(context.Background()); err != nil {
			t.Fatalf("Ascend err=%v", err)
		}
		if c.Result().StopReason != StopMaxSamples || len(c.Result().Samples) != 4 {
			t.Fatalf("got reason=%s samples=%d", c.Result().StopReason, len(c.Result().Samples))
		}
	})
}

func TestAscend_CancelKeepsSamples(t *testing.T) {
	cfg := testConfig()
	c := newController(t, cfg, newFake(), endless{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := c.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got err=%v", err)
	}
	if len(res.Samples) == 0 || res.State != regmap.StatusSampling {
		t.Fatalf("got samples=%d state=%s", len(res.Samples), res.State)
	}
}

func TestNegotiateStop_TimeoutIsFatal(t *testing.T) {
	dev := newFake()
	dev.ignore = func(c regmap.Cmd, _ int) bool { return c == regmap.CmdStopAsc }

	c := newController(t, testConfig(), dev, pattern(t, "5x0,20x1", false))
	res, err := c.Run(context.Background())

	var te *TimeoutError
	if !errors.As(err, &te) || te.Phase != "stop" || te.Last != regmap.StatusSampling {
		t.Fatalf("expected stop timeout, got err=%v", err)
	}
	if dev.count(regmap.CmdStopAsc) != 1 {
		t.Fatalf("STOP_ASC retried: %d", dev.count(regmap.CmdStopAsc))
	}
	if dev.count(regmap.CmdStartSeg) != 0 {
		t.Fatalf("descent started after failed stop")
	}
	if len(res.Samples) != 25 {
		t.Fatalf("samples lost: got=%d", len(res.Samples))
	}
}

func TestDescend_AckRetriedOnce(t *testing.T) {
	dev := newFake()
	dev.ignore = func(c regmap.Cmd, seen int) bool { return c == regmap.CmdStartSeg && seen == 1 }

	c := newController(t, testConfig(), dev, pattern(t, "5x0,20x1,5x0", false))
	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run err=%v", err)
	}
	if dev.count(regmap.CmdStartSeg) != 2 {
		t.Fatalf("START_SEG count: got=%d want=2", dev.count(regmap.CmdStartSeg))
	}
	if len(res.Timeouts) != 0 || res.Dispatched != 1 {
		t.Fatalf("got timeouts=%v dispatched=%d", res.Timeouts, res.Dispatched)
	}
}

func TestDescend_AckNeverSeen(t *testing.T) {
	dev := newFake()
	dev.ignore = func(c regmap.Cmd, _ int) bool { return c == regmap.CmdStartSeg }

	c := newController(t, testConfig(), dev, pattern(t, "5x0,20x1,5x0", false))
	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run err=%v", err)
	}
	if dev.count(regmap.CmdStartSeg) != 2 {
		t.Fatalf("START_SEG count: got=%d want=2", dev.count(regmap.CmdStartSeg))
	}
	if len(res.Timeouts) != 2 || res.Timeouts[0].Phase != "ack" || res.Timeouts[1].Phase != "segment" {
		t.Fatalf("timeouts: got=%v", res.Timeouts)
	}
	if !res.Finished {
		t.Fatalf("run did not finish")
	}
}

func TestDescend_SegmentTimeoutPolicy(t *testing.T) {
	flags := "5x0,20x1,10x0,20x1"

	t.Run("continue", func(t *testing.T) {
		dev := newFake()
		dev.neverFinishSeg = true
		c := newController(t, testConfig(), dev, pattern(t, flags, false))

		res, err := c.Run(context.Background())
		if err != nil {
			t.Fatalf("Run err=%v", err)
		}
		if res.Dispatched != 2 || len(res.Timeouts) != 2 {
			t.Fatalf("got dispatched=%d timeouts=%d", res.Dispatched, len(res.Timeouts))
		}
	})

	t.Run("abort", func(t *testing.T) {
		dev := newFake()
		dev.neverFinishSeg = true
		cfg := testConfig()
		cfg.OnSegmentTimeout = PolicyAbort
		c := newController(t, cfg, dev, pattern(t, flags, false))

		res, err := c.Run(context.Background())
		if !errors.Is(err, ErrTimeout) {
			t.Fatalf("expected timeout, got err=%v", err)
		}
		if res.Dispatched != 0 || len(res.Segments) != 2 || res.State != regmap.StatusCleaning {
			t.Fatalf("got dispatched=%d segments=%d state=%s", res.Dispatched, len(res.Segments), res.State)
		}
		if dev.count(regmap.CmdFinishAll) != 0 {
			t.Fatalf("FINISH_ALL sent after abort")
		}
	})
}

func TestDescend_TopDown(t *testing.T) {
	dev := newFake()
	c := newController(t, testConfig(), dev, pattern(t, "5x0,20x1,10x0,20x1,10x0,20x1", false))

	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run err=%v", err)
	}
	if res.Dispatched != 3 || len(dev.segs) != 3 {
		t.Fatalf("got dispatched=%d", res.Dispatched)
	}
	for i := 1; i < len(dev.segs); i++ {
		if dev.segs[i][0] > dev.segs[i-1][0] {
			t.Fatalf("h0 not descending: %v", dev.segs)
		}
	}
}

func TestRun_TransportErrorAborts(t *testing.T) {
	dev := newFake()
	dev.failAfterWrites = 10

	c := newController(t, testConfig(), dev, endless{})
	res, err := c.Run(context.Background())
	if !errors.Is(err, errLinkDown) {
		t.Fatalf("expected link error, got err=%v", err)
	}
	if len(res.Samples) != 5 {
		t.Fatalf("samples: got=%d want=5", len(res.Samples))
	}
	if dev.count(regmap.CmdStopAsc) != 0 {
		t.Fatalf("run continued after transport error")
	}
}

func TestRun_BadSampleLogIsFatal(t *testing.T) {
	dev := newFake()
	c := newController(t, testConfig(), dev, pattern(t, "10x1", false))

	if err := c.Ready(); err != nil {
		t.Fatalf("Ready err=%v", err)
	}
	if err := c.Ascend(context.Background()); err != nil {
		t.Fatalf("Ascend err=%v", err)
	}
	// a device that jumps back in z
	c.res.Samples[3].Z = -1

	var de *segment.DataError
	if err := c.Segment(); !errors.As(err, &de) {
		t.Fatalf("expected DataError, got err=%v", err)
	}
}

func TestMachine(t *testing.T) {
	m := NewMachine("t", quietLogger())
	if err := m.To(regmap.StatusSampling); err == nil {
		t.Fatalf("INIT -> SAMPLING accepted")
	}
	for _, s := range []regmap.Status{
		regmap.StatusReady, regmap.StatusSampling, regmap.StatusAtTop, regmap.StatusStopped,
		regmap.StatusCleaning, regmap.StatusWaitSeg, regmap.StatusCleaning, regmap.StatusWaitSeg,
		regmap.StatusDone,
	} {
		if err := m.To(s); err != nil {
			t.Fatalf("To(%s) err=%v", s, err)
		}
	}
	if m.Can(regmap.StatusReady) {
		t.Fatalf("DONE is not terminal")
	}
}

func TestNew_Validation(t *testing.T) {
	cfg := testConfig()
	cfg.OnSegmentTimeout = "retry"
	if _, err := New(cfg, newFake(), endless{}, nil); err == nil {
		t.Fatalf("unknown policy accepted")
	}

	cfg = testConfig()
	cfg.AckTimeout = 0
	if _, err := New(cfg, newFake(), endless{}, nil); err == nil {
		t.Fatalf("zero timeout accepted")
	}

	if _, err := New(testConfig(), nil, endless{}, nil); err == nil {
		t.Fatalf("nil device accepted")
	}
}
