// internal/devicesim/sim_test.go
package devicesim

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tamzrod/lift-washer/internal/modbus"
	"github.com/tamzrod/lift-washer/internal/regmap"
)

func newSim(t *testing.T, mutate func(*Config)) *Sim {
	t.Helper()
	cfg := Defaults()
	cfg.ExecSeg = 20 * time.Millisecond
	cfg.Tick = 5 * time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	return s
}

func writeCmd(t *testing.T, s *Sim, c regmap.Cmd) {
	t.Helper()
	addr := s.cfg.Base + regmap.OffCmd
	if err := s.WriteRegisters(addr, []uint16{regmap.EncodeInt16(int16(c))}); err != nil {
		t.Fatalf("write cmd %s: %v", c, err)
	}
}

func waitStatus(t *testing.T, s *Sim, want regmap.Status, within time.Duration) {
	t.Helper()
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if s.Snapshot().Status == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("status: got=%s want=%s", s.Snapshot().Status, want)
}

// ---- tests ----

func TestSim_BootImage(t *testing.T) {
	s := newSim(t, nil)
	b := s.Snapshot()

	if b.Status != regmap.StatusReady {
		t.Fatalf("boot status: got=%s want=READY", b.Status)
	}
	if b.Cmd != regmap.CmdIdle {
		t.Fatalf("boot cmd: got=%s want=IDLE", b.Cmd)
	}
	// 100.2 is 0x42C86666; CMD=0 clobbers the low word.
	if b.Version != 100 {
		t.Fatalf("version: got=%v want=100 (low word shared with CMD)", b.Version)
	}
}

func TestSim_CommandsAreConsumed(t *testing.T) {
	s := newSim(t, nil)

	cases := []struct {
		cmd  regmap.Cmd
		want regmap.Status
	}{
		{regmap.CmdSampleUp, regmap.StatusSampling},
		{regmap.CmdStopAsc, regmap.StatusStopped},
		{regmap.CmdFinishAll, regmap.StatusDone},
		{regmap.CmdReadyReq, regmap.StatusReady},
	}

	for _, tc := range cases {
		writeCmd(t, s, tc.cmd)
		b := s.Snapshot()
		if b.Status != tc.want {
			t.Fatalf("%s: status got=%s want=%s", tc.cmd, b.Status, tc.want)
		}
		if b.Cmd != regmap.CmdIdle {
			t.Fatalf("%s: cmd not reset, got=%s", tc.cmd, b.Cmd)
		}
	}

	got := s.Commands()
	if len(got) != len(cases) {
		t.Fatalf("history: got=%v", got)
	}
}

func TestSim_StartSegCleansThenWaits(t *testing.T) {
	s := newSim(t, nil)

	writeCmd(t, s, regmap.CmdStartSeg)
	if st := s.Snapshot().Status; st != regmap.StatusCleaning {
		t.Fatalf("after START_SEG: got=%s want=CLEANING", st)
	}
	waitStatus(t, s, regmap.StatusWaitSeg, time.Second)
}

func TestSim_StaleCompletionIgnored(t *testing.T) {
	s := newSim(t, func(c *Config) { c.ExecSeg = 30 * time.Millisecond })

	writeCmd(t, s, regmap.CmdStartSeg)
	writeCmd(t, s, regmap.CmdFinishAll)

	time.Sleep(60 * time.Millisecond)
	if st := s.Snapshot().Status; st != regmap.StatusDone {
		t.Fatalf("completion clobbered DONE: got=%s", st)
	}
}

func TestSim_PhysicsClimbsToTop(t *testing.T) {
	s := newSim(t, func(c *Config) { c.ZMaxMM = 100; c.AscendMMPerS = 1000 })

	// idle: no motion
	s.Step(time.Second)
	if z := s.Snapshot().Z; z != 0 {
		t.Fatalf("z moved while READY: %v", z)
	}

	writeCmd(t, s, regmap.CmdSampleUp)
	s.Step(50 * time.Millisecond)
	if z := s.Snapshot().Z; z != 50 {
		t.Fatalf("z after 50ms: got=%v want=50", z)
	}

	s.Step(time.Second)
	b := s.Snapshot()
	if b.Z != 100 || b.Status != regmap.StatusAtTop {
		t.Fatalf("top: got z=%v status=%s", b.Z, b.Status)
	}
}

func TestSim_ZPerSample(t *testing.T) {
	s := newSim(t, func(c *Config) { c.AscendMMPerS = 0; c.ZPerSampleMM = 2; c.ZMaxMM = 6 })

	for i := 1; i <= 3; i++ {
		writeCmd(t, s, regmap.CmdSampleUp)
		if z := s.Snapshot().Z; z != float32(2*i) {
			t.Fatalf("sample %d: z=%v want=%d", i, z, 2*i)
		}
	}
	if st := s.Snapshot().Status; st != regmap.StatusAtTop {
		t.Fatalf("status at cap: got=%s want=AT_TOP", st)
	}
}

func TestSim_OutOfRangeIsException(t *testing.T) {
	s := newSim(t, func(c *Config) { c.Base = 100 })

	_, err := s.ReadRegisters(110, 10)
	var pe *modbus.ProtocolError
	if !errors.As(err, &pe) || pe.Exception != modbus.ExceptionIllegalAddress {
		t.Fatalf("expected illegal address, got %v", err)
	}
}

// Multi-word values must never be observed half-written.
func TestSim_NoTornFloats(t *testing.T) {
	s := newSim(t, func(c *Config) { c.Tick = time.Millisecond })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	a := regmap.EncodeFloat32(1.0)
	b := regmap.EncodeFloat32(-2.5)
	addr := s.cfg.Base + regmap.OffH0

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 5000; i++ {
			w := a
			if i%2 == 1 {
				w = b
			}
			_ = s.WriteRegisters(addr, w[:])
		}
	}()

	for i := 0; i < 5000; i++ {
		regs, err := s.ReadRegisters(addr, 2)
		if err != nil {
			t.Fatalf("read err=%v", err)
		}
		f := regmap.DecodeFloat32(regs[0], regs[1])
		if f != 0 && f != 1.0 && f != -2.5 {
			t.Fatalf("torn float observed: %v (%04X %04X)", f, regs[0], regs[1])
		}
	}
	wg.Wait()
}
