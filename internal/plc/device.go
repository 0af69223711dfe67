// internal/plc/device.go
package plc

import (
	"fmt"

	"github.com/tamzrod/lift-washer/internal/regmap"
)

// Transport abstracts the two register operations the device needs.
// Geometry only: addresses and raw words.
type Transport interface {
	ReadRegisters(addr, qty uint16) ([]uint16, error) // FC 3
	WriteRegisters(addr uint16, regs []uint16) error   // FC 16
}

// Device is the typed view of the register window at Base.
// It adds no retries and no waiting; every method is one or two transactions.
type Device struct {
	tr   Transport
	base uint16
}

// New binds a transport to a register window.
func New(tr Transport, base uint16) *Device {
	return &Device{tr: tr, base: base}
}

func (d *Device) addr(off int) uint16 {
	return d.base + uint16(off)
}

// WriteCmd writes CMD. The device consumes it and resets it to 0.
func (d *Device) WriteCmd(c regmap.Cmd) error {
	if err := d.tr.WriteRegisters(d.addr(regmap.OffCmd), []uint16{regmap.EncodeInt16(int16(c))}); err != nil {
		return fmt.Errorf("plc: write cmd %s: %w", c, err)
	}
	return nil
}

// ReadStatus reads STATUS alone.
func (d *Device) ReadStatus() (regmap.Status, error) {
	regs, err := d.tr.ReadRegisters(d.addr(regmap.OffStatus), 1)
	if err != nil {
		return 0, fmt.Errorf("plc: read status: %w", err)
	}
	return regmap.Status(regmap.DecodeInt16(regs[0])), nil
}

// ReadStatusZ reads STATUS and Z in one transaction so both belong to the same instant.
func (d *Device) ReadStatusZ() (regmap.Status, float32, error) {
	regs, err := d.tr.ReadRegisters(d.addr(regmap.OffStatus), 3)
	if err != nil {
		return 0, 0, fmt.Errorf("plc: read status+z: %w", err)
	}
	st := regmap.Status(regmap.DecodeInt16(regs[0]))
	z := regmap.DecodeFloat32(regs[1], regs[2])
	return st, z, nil
}

// ReadZSignal reads the host sample counter.
func (d *Device) ReadZSignal() (int32, error) {
	regs, err := d.tr.ReadRegisters(d.addr(regmap.OffZSignal), 2)
	if err != nil {
		return 0, fmt.Errorf("plc: read z_signal: %w", err)
	}
	return regmap.DecodeInt32(regs[0], regs[1]), nil
}

// BumpZSignal reads Z_SIGNAL and writes it back incremented.
// Arithmetic is 32-bit signed and wraps like the device's DINT.
func (d *Device) BumpZSignal() (int32, error) {
	cur, err := d.ReadZSignal()
	if err != nil {
		return 0, err
	}
	next := cur + 1
	w := regmap.EncodeInt32(next)
	if err := d.tr.WriteRegisters(d.addr(regmap.OffZSignal), w[:]); err != nil {
		return 0, fmt.Errorf("plc: write z_signal: %w", err)
	}
	return next, nil
}

// WriteSegment writes H0, DH, N and DIS in one transaction.
func (d *Device) WriteSegment(h0, dh float32, n int32, dis float32) error {
	regs := regmap.EncodeSegmentParams(h0, dh, n, dis)
	if err := d.tr.WriteRegisters(d.addr(regmap.OffH0), regs); err != nil {
		return fmt.Errorf("plc: write segment params: %w", err)
	}
	return nil
}

// WriteHeartbeat writes the host liveness counter.
func (d *Device) WriteHeartbeat(hb uint16) error {
	if err := d.tr.WriteRegisters(d.addr(regmap.OffHeartbeat), []uint16{hb}); err != nil {
		return fmt.Errorf("plc: write heartbeat: %w", err)
	}
	return nil
}

// ReadVersion decodes words 0..1. The second word is CMD (see regmap.OffVersion).
func (d *Device) ReadVersion() (float32, error) {
	regs, err := d.tr.ReadRegisters(d.addr(regmap.OffVersion), 2)
	if err != nil {
		return 0, fmt.Errorf("plc: read version: %w", err)
	}
	return regmap.DecodeFloat32(regs[0], regs[1]), nil
}

// Dump reads the whole window.
func (d *Device) Dump() (regmap.Block, []uint16, error) {
	regs, err := d.tr.ReadRegisters(d.base, regmap.TotalRegs)
	if err != nil {
		return regmap.Block{}, nil, fmt.Errorf("plc: dump: %w", err)
	}
	b, err := regmap.Decode(regs)
	if err != nil {
		return regmap.Block{}, nil, err
	}
	return b, regs, nil
}
