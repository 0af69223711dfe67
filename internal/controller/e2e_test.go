// internal/controller/e2e_test.go
package controller

import (
	"context"
	"testing"
	"time"

	"github.com/tamzrod/lift-washer/internal/devicesim"
	"github.com/tamzrod/lift-washer/internal/modbus"
	"github.com/tamzrod/lift-washer/internal/plc"
	"github.com/tamzrod/lift-washer/internal/regmap"
	"github.com/tamzrod/lift-washer/internal/segment"
)

// Full run against the simulator over a real TCP socket.
func TestRun_AgainstSimulator(t *testing.T) {
	const base = 100

	simCfg := devicesim.Defaults()
	simCfg.Base = base
	simCfg.ZMaxMM = 10000
	simCfg.AscendMMPerS = 0
	simCfg.ZPerSampleMM = 5
	simCfg.ExecSeg = 30 * time.Millisecond
	simCfg.Tick = 5 * time.Millisecond
	simCfg.Logger = quietLogger()

	sim, err := devicesim.New(simCfg)
	if err != nil {
		t.Fatalf("devicesim.New err=%v", err)
	}
	srv, err := devicesim.Listen("127.0.0.1:0", sim, 1)
	if err != nil {
		t.Fatalf("Listen err=%v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx)
	}()
	go sim.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-done
	})

	cl, err := modbus.Dial(modbus.Config{Endpoint: srv.Addr().String(), UnitID: 1, Timeout: time.Second})
	if err != nil {
		t.Fatalf("Dial err=%v", err)
	}
	defer cl.Close()

	cfg := testConfig()
	cfg.Segment = segment.DefaultParams()
	cfg.Segment.OpenCloseWin = 5
	cfg.AckTimeout = time.Second
	cfg.SegTimeoutBase = time.Second
	cfg.FinishTimeout = time.Second
	cfg.StopTimeout = time.Second

	flags := pattern(t, "50x0,100x1,50x0,3x1,20x0,80x1", false)
	c := newController(t, cfg, plc.New(cl, base), flags)

	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run err=%v", err)
	}

	if len(res.Samples) != 303 {
		t.Fatalf("samples: got=%d want=303", len(res.Samples))
	}
	for i, s := range res.Samples {
		if s.Z != float64(5*(i+1)) {
			t.Fatalf("sample %d: z=%v want=%d", i, s.Z, 5*(i+1))
		}
	}

	// the 3-sample blip is absorbed, both edges of the first run shrink,
	// the second run touches the end of the log
	if len(res.Segments) != 2 {
		t.Fatalf("segments: got=%+v", res.Segments)
	}
	if res.Segments[0].ZStart != 280 || res.Segments[0].ZEnd != 725 {
		t.Fatalf("segment 0: got=%+v", res.Segments[0])
	}
	if res.Segments[1].ZStart != 1145 || res.Segments[1].ZEnd != 1515 {
		t.Fatalf("segment 1: got=%+v", res.Segments[1])
	}

	if res.Dispatched != 2 || !res.Finished || len(res.Timeouts) != 0 {
		t.Fatalf("result: dispatched=%d finished=%v timeouts=%v", res.Dispatched, res.Finished, res.Timeouts)
	}

	snap := sim.Snapshot()
	if snap.Status != regmap.StatusDone || snap.ZSignal != 303 {
		t.Fatalf("device: status=%s z_signal=%d", snap.Status, snap.ZSignal)
	}
	// last dispatched is the lower segment: 445mm, step 123 x3
	if snap.H0 != 725 || snap.DH != 123 || snap.N != 3 {
		t.Fatalf("last segment params: h0=%v dh=%v n=%d", snap.H0, snap.DH, snap.N)
	}

	cmds := sim.Commands()
	tail := cmds[len(cmds)-4:]
	want := []regmap.Cmd{regmap.CmdStopAsc, regmap.CmdStartSeg, regmap.CmdStartSeg, regmap.CmdFinishAll}
	for i := range want {
		if tail[i] != want[i] {
			t.Fatalf("command tail: got=%v want=%v", tail, want)
		}
	}
}
