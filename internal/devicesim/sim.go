// internal/devicesim/sim.go
package devicesim

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tamzrod/lift-washer/internal/modbus"
	"github.com/tamzrod/lift-washer/internal/regmap"
)

// Config is the simulated device's physical behaviour.
type Config struct {
	Base    uint16
	Version float32

	ZMaxMM       float64
	AscendMMPerS float64

	// ZPerSampleMM moves Z on every SAMPLE_UP. 0 disables.
	// With 0, SAMPLE_UP sets SAMPLING even at the top, so AT_TOP is only seen
	// when a physics tick lands between the command and the next status read.
	ZPerSampleMM float64

	// ExecSeg is how long a segment stays CLEANING before WAIT_SEG.
	ExecSeg time.Duration

	// Tick is the physics update period.
	Tick time.Duration

	Logger *log.Logger
}

// Defaults mirrors the bring-up rig.
func Defaults() Config {
	return Config{
		Version:      100.2,
		ZMaxMM:       2500,
		AscendMMPerS: 80,
		ExecSeg:      600 * time.Millisecond,
		Tick:         50 * time.Millisecond,
	}
}

// Sim owns the register file of one simulated device.
// Every request transaction, physics tick and delayed completion runs under mu,
// so no reader ever sees half of a multi-word value.
type Sim struct {
	mu   sync.Mutex
	cfg  Config
	regs []uint16

	// segGen invalidates pending START_SEG completions.
	segGen uint64

	history []regmap.Cmd
	logger  *log.Logger
}

// New creates a device in READY state.
func New(cfg Config) (*Sim, error) {
	if cfg.ZMaxMM <= 0 {
		return nil, errors.New("devicesim: z_max_mm must be > 0")
	}
	if cfg.Tick <= 0 {
		return nil, errors.New("devicesim: tick must be > 0")
	}
	if cfg.ExecSeg < 0 {
		return nil, errors.New("devicesim: exec_seg must be >= 0")
	}
	if int(cfg.Base)+regmap.TotalRegs > 0xFFFF {
		return nil, fmt.Errorf("devicesim: base %d leaves no room for the register window", cfg.Base)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Sim{
		cfg:    cfg,
		regs:   make([]uint16, int(cfg.Base)+regmap.TotalRegs),
		logger: logger,
	}
	s.init()
	return s, nil
}

// init writes the boot image. VERSION goes first as two words, then CMD,
// which takes over VERSION's low word.
func (s *Sim) init() {
	w := s.window()
	regmap.PutFloat32(w, regmap.OffVersion, s.cfg.Version)
	w[regmap.OffCmd] = regmap.EncodeInt16(int16(regmap.CmdIdle))
	s.setStatus(regmap.StatusReady)
	regmap.PutFloat32(w, regmap.OffZ, 0)
	regmap.PutInt32(w, regmap.OffZSignal, 0)
}

// window is the 16-word slice at Base. Caller holds mu (or owns s exclusively).
func (s *Sim) window() []uint16 {
	return s.regs[s.cfg.Base : int(s.cfg.Base)+regmap.TotalRegs]
}

func (s *Sim) status() regmap.Status {
	return regmap.Status(regmap.DecodeInt16(s.window()[regmap.OffStatus]))
}

func (s *Sim) setStatus(st regmap.Status) {
	s.window()[regmap.OffStatus] = regmap.EncodeInt16(int16(st))
}

// ---- register access (one transaction each) ----

// ReadRegisters reads qty words at absolute address addr.
func (s *Sim) ReadRegisters(addr, qty uint16) ([]uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if code := s.checkRange(addr, qty); code != 0 {
		return nil, &modbus.ProtocolError{Msg: fmt.Sprintf("exception: fc=3 code=%d", code), Exception: code}
	}
	out := make([]uint16, qty)
	copy(out, s.regs[addr:int(addr)+int(qty)])
	return out, nil
}

// WriteRegisters stores regs at absolute address addr and then runs the
// command handler exactly once, inside the same transaction.
func (s *Sim) WriteRegisters(addr uint16, regs []uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if code := s.checkRange(addr, uint16(len(regs))); code != 0 {
		return &modbus.ProtocolError{Msg: fmt.Sprintf("exception: fc=16 code=%d", code), Exception: code}
	}
	copy(s.regs[addr:], regs)
	s.handleCommand()
	return nil
}

func (s *Sim) checkRange(addr, qty uint16) uint8 {
	if qty == 0 {
		return modbus.ExceptionIllegalValue
	}
	if int(addr)+int(qty) > len(s.regs) {
		return modbus.ExceptionIllegalAddress
	}
	return 0
}

// ---- command handler ----

// handleCommand acts on the current CMD value and consumes it. Caller holds mu.
func (s *Sim) handleCommand() {
	w := s.window()
	cmd := regmap.Cmd(regmap.DecodeInt16(w[regmap.OffCmd]))
	if cmd == regmap.CmdIdle {
		return
	}

	s.history = append(s.history, cmd)

	switch cmd {
	case regmap.CmdReadyReq:
		s.setStatus(regmap.StatusReady)

	case regmap.CmdSampleUp:
		// host already bumped Z_SIGNAL
		s.setStatus(regmap.StatusSampling)
		if s.cfg.ZPerSampleMM > 0 {
			if s.advanceZ(s.cfg.ZPerSampleMM) {
				s.setStatus(regmap.StatusAtTop)
			}
		}

	case regmap.CmdStopAsc:
		s.setStatus(regmap.StatusStopped)

	case regmap.CmdStartSeg:
		s.logger.Printf(
			"devicesim: START_SEG h0=%.1f dh=%.1f n=%d dis=%.1f",
			regmap.Float32At(w, regmap.OffH0),
			regmap.Float32At(w, regmap.OffDH),
			regmap.Int32At(w, regmap.OffN),
			regmap.Float32At(w, regmap.OffDis),
		)
		s.setStatus(regmap.StatusCleaning)
		s.segGen++
		gen := s.segGen
		time.AfterFunc(s.cfg.ExecSeg, func() { s.finishSegment(gen) })

	case regmap.CmdFinishAll:
		s.setStatus(regmap.StatusDone)

	default:
		s.logger.Printf("devicesim: ignoring unknown cmd %s", cmd)
	}

	w[regmap.OffCmd] = regmap.EncodeInt16(int16(regmap.CmdIdle))
}

func (s *Sim) finishSegment(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.segGen || s.status() != regmap.StatusCleaning {
		return
	}
	s.setStatus(regmap.StatusWaitSeg)
}

// ---- physics ----

// advanceZ moves Z up by mm, capped at ZMaxMM. Reports whether the cap is hit.
// Caller holds mu.
func (s *Sim) advanceZ(mm float64) bool {
	w := s.window()
	z := float64(regmap.Float32At(w, regmap.OffZ)) + mm
	if z >= s.cfg.ZMaxMM {
		z = s.cfg.ZMaxMM
	}
	regmap.PutFloat32(w, regmap.OffZ, float32(z))
	return z >= s.cfg.ZMaxMM
}

// Step advances physics by dt. Z rises while SAMPLING or WAIT_SEG.
func (s *Sim) Step(dt time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.status()
	if st != regmap.StatusSampling && st != regmap.StatusWaitSeg {
		return
	}
	if s.advanceZ(s.cfg.AscendMMPerS * dt.Seconds()) {
		s.setStatus(regmap.StatusAtTop)
	}
}

// Run drives Step on the configured tick until ctx is done.
func (s *Sim) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Step(now.Sub(last))
			last = now
		}
	}
}

// ---- inspection ----

// Snapshot decodes the current window.
func (s *Sim) Snapshot() regmap.Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, _ := regmap.Decode(s.window())
	return b
}

// Commands returns every non-idle command consumed so far, in order.
func (s *Sim) Commands() []regmap.Cmd {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]regmap.Cmd, len(s.history))
	copy(out, s.history)
	return out
}
