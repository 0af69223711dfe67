// internal/plc/device_test.go
package plc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tamzrod/lift-washer/internal/devicesim"
	"github.com/tamzrod/lift-washer/internal/regmap"
)

func newSimDevice(t *testing.T, base uint16) (*Device, *devicesim.Sim) {
	t.Helper()
	cfg := devicesim.Defaults()
	cfg.Base = base
	sim, err := devicesim.New(cfg)
	if err != nil {
		t.Fatalf("devicesim.New err=%v", err)
	}
	return New(sim, base), sim
}

// ---- fake transport ----

type failingTransport struct{ err error }

func (f failingTransport) ReadRegisters(addr, qty uint16) ([]uint16, error) { return nil, f.err }
func (f failingTransport) WriteRegisters(addr uint16, regs []uint16) error { return f.err }

// ---- tests ----

func TestBumpZSignal_32BitArithmetic(t *testing.T) {
	dev, _ := newSimDevice(t, 0)

	for i := 0; i < 70000; i++ {
		if _, err := dev.BumpZSignal(); err != nil {
			t.Fatalf("bump %d err=%v", i, err)
		}
	}

	got, err := dev.ReadZSignal()
	if err != nil {
		t.Fatalf("ReadZSignal err=%v", err)
	}
	if got != 70000 {
		t.Fatalf("z_signal: got=%d want=70000", got)
	}
}

func TestDevice_HonoursBase(t *testing.T) {
	dev, sim := newSimDevice(t, 40)

	if err := dev.WriteSegment(1200.5, 150, 4, 800); err != nil {
		t.Fatalf("WriteSegment err=%v", err)
	}
	if err := dev.WriteCmd(regmap.CmdStopAsc); err != nil {
		t.Fatalf("WriteCmd err=%v", err)
	}

	b := sim.Snapshot()
	if b.H0 != 1200.5 || b.DH != 150 || b.N != 4 || b.Dis != 800 {
		t.Fatalf("segment params: %+v", b)
	}

	st, z, err := dev.ReadStatusZ()
	if err != nil {
		t.Fatalf("ReadStatusZ err=%v", err)
	}
	if st != regmap.StatusStopped || z != 0 {
		t.Fatalf("status/z: got=%s/%v", st, z)
	}
}

func TestDevice_ReadVersionSeesCmdWord(t *testing.T) {
	dev, _ := newSimDevice(t, 0)

	v, err := dev.ReadVersion()
	if err != nil {
		t.Fatalf("ReadVersion err=%v", err)
	}
	if v != 100 {
		t.Fatalf("version: got=%v want=100", v)
	}
}

func TestDevice_WrapsTransportErrors(t *testing.T) {
	sentinel := errors.New("wire down")
	dev := New(failingTransport{err: sentinel}, 0)

	if _, err := dev.ReadStatus(); !errors.Is(err, sentinel) {
		t.Fatalf("ReadStatus: expected wrapped sentinel, got %v", err)
	}
	if err := dev.WriteCmd(regmap.CmdSampleUp); !errors.Is(err, sentinel) {
		t.Fatalf("WriteCmd: expected wrapped sentinel, got %v", err)
	}
}

func TestHeartbeat_Increments(t *testing.T) {
	dev, sim := newSimDevice(t, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	NewHeartbeat(dev, 5*time.Millisecond, nil).Run(ctx)

	if hb := sim.Snapshot().Heartbeat; hb < 2 {
		t.Fatalf("heartbeat barely moved: %d", hb)
	}
}
