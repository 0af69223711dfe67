// internal/controller/controller.go
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/tamzrod/lift-washer/internal/plan"
	"github.com/tamzrod/lift-washer/internal/regmap"
	"github.com/tamzrod/lift-washer/internal/segment"
	"github.com/tamzrod/lift-washer/internal/source"
	"github.com/tamzrod/lift-washer/internal/status"
)

// Device is the typed register view the controller drives.
// *plc.Device satisfies it for any transport.
type Device interface {
	WriteCmd(c regmap.Cmd) error
	ReadStatus() (regmap.Status, error)
	ReadStatusZ() (regmap.Status, float32, error)
	BumpZSignal() (int32, error)
	WriteSegment(h0, dh float32, n int32, dis float32) error
}

// dumper is optionally implemented by Device.
type dumper interface {
	Dump() (regmap.Block, []uint16, error)
}

// FlagSource yields one observation per sampling tick.
// io.EOF ends the ascent.
type FlagSource interface {
	NextFlag() (source.Observation, error)
}

// DistanceSource yields a stand-off reading when one is available.
type DistanceSource interface {
	TryDistance() (float64, bool)
}

// Observer receives a snapshot after every phase change, sample, dispatched
// segment and fatal error. *status.Hub satisfies it. Publish must not block.
type Observer interface {
	Publish(s status.Snapshot)
}

// Policy decides what a segment completion timeout does.
type Policy string

const (
	PolicyContinue Policy = "continue"
	PolicyAbort    Policy = "abort"
)

// StopReason records which trigger ended the ascent.
type StopReason string

const (
	StopNone       StopReason = ""
	StopDeviceTop  StopReason = "device_at_top"
	StopVisionTop  StopReason = "vision_top"
	StopSourceEnd  StopReason = "source_end"
	StopMaxSamples StopReason = "max_samples"
)

// Config is the immutable run configuration.
type Config struct {
	RunID string

	SamplePeriod    time.Duration
	StopOnDeviceTop bool
	StopOnVisionTop bool
	MaxSamples      int // 0 = unlimited

	Poll              time.Duration
	ReadyTimeout      time.Duration
	StopTimeout       time.Duration
	AckTimeout        time.Duration
	SegTimeoutBase    time.Duration
	SegTimeoutPerStep time.Duration
	FinishTimeout     time.Duration
	OnSegmentTimeout  Policy

	Segment segment.Params
	Plan    plan.Params

	Logger   *log.Logger
	Observer Observer // optional
}

// Result is everything a run produced. It is returned even when the run fails.
type Result struct {
	RunID      string
	StopReason StopReason

	Samples  []segment.Sample
	Segments []segment.Segment
	Points   []segment.Point
	Commands []plan.Command

	Dispatched int
	Timeouts   []*TimeoutError // soft timeouts that did not abort the run
	Finished   bool
	State      regmap.Status
}

// Controller sequences one ascend / stop / descend run.
// Sequential and blocking; it owns its Device for the whole run.
type Controller struct {
	cfg    Config
	dev    Device
	flags  FlagSource
	dist   DistanceSource
	fsm    *Machine
	logger *log.Logger

	res Result

	lastSt regmap.Status
	lastZ  float32
}

// New validates the configuration and builds a controller.
func New(cfg Config, dev Device, flags FlagSource, dist DistanceSource) (*Controller, error) {
	if dev == nil {
		return nil, errors.New("controller: device required")
	}
	if flags == nil {
		return nil, errors.New("controller: flag source required")
	}
	if cfg.SamplePeriod <= 0 {
		return nil, errors.New("controller: sample period must be > 0")
	}
	if cfg.Poll <= 0 {
		return nil, errors.New("controller: poll interval must be > 0")
	}
	if cfg.ReadyTimeout <= 0 || cfg.StopTimeout <= 0 || cfg.AckTimeout <= 0 ||
		cfg.SegTimeoutBase <= 0 || cfg.FinishTimeout <= 0 {
		return nil, errors.New("controller: all timeouts must be > 0")
	}
	if cfg.MaxSamples < 0 {
		return nil, errors.New("controller: max samples must be >= 0")
	}
	switch cfg.OnSegmentTimeout {
	case PolicyContinue, PolicyAbort:
	case "":
		cfg.OnSegmentTimeout = PolicyContinue
	default:
		return nil, fmt.Errorf("controller: unknown segment timeout policy %q", cfg.OnSegmentTimeout)
	}
	if err := cfg.Segment.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Plan.Validate(); err != nil {
		return nil, err
	}

	if dist == nil {
		dist = source.None{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Controller{
		cfg:    cfg,
		dev:    dev,
		flags:  flags,
		dist:   dist,
		fsm:    NewMachine(cfg.RunID, logger),
		logger: logger,
		res:    Result{RunID: cfg.RunID, State: regmap.StatusInit},
	}, nil
}

func (c *Controller) logf(format string, args ...any) {
	c.logger.Printf("controller: "+format+" (run=%s phase=%s)", append(args, c.cfg.RunID, c.fsm.State())...)
}

// publish reports the current state to the observer, if any.
func (c *Controller) publish(err error) {
	if c.cfg.Observer == nil {
		return
	}

	s := status.Snapshot{
		RunID:        c.cfg.RunID,
		Phase:        c.fsm.State().String(),
		Health:       status.HealthOK,
		DeviceStatus: c.lastSt.String(),
		ZMM:          float64(c.lastZ),
		Samples:      len(c.res.Samples),
		Segments:     len(c.res.Segments),
		Dispatched:   c.res.Dispatched,
		SoftTimeouts: len(c.res.Timeouts),
		StopReason:   string(c.res.StopReason),
	}
	switch {
	case err != nil:
		s.Health = status.HealthError
		s.LastErrorCode = ErrorCode(err)
		s.Error = err.Error()
	case c.fsm.State() == regmap.StatusInit:
		s.Health = status.HealthUnknown
	case len(c.res.Timeouts) > 0:
		s.Health = status.HealthDegraded
	}
	c.cfg.Observer.Publish(s)
}

// Result returns what has been produced so far.
func (c *Controller) Result() Result {
	r := c.res
	r.State = c.fsm.State()
	return r
}

// Run executes every phase in order. A fatal error stops the run; samples and
// segments computed before it stay in the returned Result.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	if d, ok := c.dev.(dumper); ok {
		if b, _, err := d.Dump(); err == nil {
			c.logf("register dump: %s", b)
		} else {
			c.logf("register dump failed: %v", err)
		}
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"ready", c.Ready},
		{"ascend", func() error { return c.Ascend(ctx) }},
		{"stop", c.NegotiateStop},
		{"segment", c.Segment},
		{"descend", c.Descend},
		{"finish", c.Finish},
	}

	for _, s := range steps {
		if err := s.fn(); err != nil {
			c.logf("run aborted in %s: %v", s.name, err)
			c.publish(err)
			return c.Result(), err
		}
		c.publish(nil)
	}
	c.logf("run complete: samples=%d segments=%d dispatched=%d soft_timeouts=%d",
		len(c.res.Samples), len(c.res.Segments), c.res.Dispatched, len(c.res.Timeouts))
	return c.Result(), nil
}

// waitStatus polls STATUS until it equals want or timeout elapses.
// At least one read is always made. Transport errors return immediately.
func (c *Controller) waitStatus(phase string, want regmap.Status, timeout time.Duration) error {
	start := time.Now()
	for {
		st, z, err := c.dev.ReadStatusZ()
		if err != nil {
			return err
		}
		c.lastSt, c.lastZ = st, z
		if st == want {
			return nil
		}
		if time.Since(start) >= timeout {
			return &TimeoutError{Phase: phase, Want: want, Last: st, Z: z, After: timeout}
		}
		time.Sleep(c.cfg.Poll)
	}
}

// Ready makes sure the device reports READY, requesting it once if not.
// A timeout here is fatal.
func (c *Controller) Ready() error {
	st, err := c.dev.ReadStatus()
	if err != nil {
		return err
	}
	c.lastSt = st
	if st != regmap.StatusReady {
		c.logf("device not ready (status=%s), requesting", st)
		if err := c.dev.WriteCmd(regmap.CmdReadyReq); err != nil {
			return err
		}
		if err := c.waitStatus("ready", regmap.StatusReady, c.cfg.ReadyTimeout); err != nil {
			return err
		}
	}
	return c.fsm.To(regmap.StatusReady)
}

// Ascend samples once per period until a stop trigger fires.
// Cancelling ctx ends the ascent with ctx's error; samples are kept.
func (c *Controller) Ascend(ctx context.Context) error {
	if err := c.fsm.To(regmap.StatusSampling); err != nil {
		return err
	}

	ticker := time.NewTicker(c.cfg.SamplePeriod)
	defer ticker.Stop()

	for {
		reason, err := c.sampleOnce()
		if err != nil {
			return err
		}
		if reason != StopNone {
			c.res.StopReason = reason
			c.logf("ascent stopped: reason=%s samples=%d status=%s z=%.1f",
				reason, len(c.res.Samples), c.lastSt, c.lastZ)
			if reason == StopDeviceTop {
				return c.fsm.To(regmap.StatusAtTop)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			c.logf("ascent cancelled after %d samples", len(c.res.Samples))
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// sampleOnce is one ascend tick: bump Z_SIGNAL, SAMPLE_UP, read STATUS+Z, record.
func (c *Controller) sampleOnce() (StopReason, error) {
	obs, err := c.flags.NextFlag()
	if errors.Is(err, io.EOF) {
		return StopSourceEnd, nil
	}
	if err != nil {
		return StopNone, fmt.Errorf("controller: flag source: %w", err)
	}

	if _, err := c.dev.BumpZSignal(); err != nil {
		return StopNone, err
	}
	if err := c.dev.WriteCmd(regmap.CmdSampleUp); err != nil {
		return StopNone, err
	}
	st, z, err := c.dev.ReadStatusZ()
	if err != nil {
		return StopNone, err
	}
	c.lastSt, c.lastZ = st, z

	s := segment.Sample{Tick: len(c.res.Samples), Flag: obs.Flag(), Z: float64(z)}
	if v, ok := c.dist.TryDistance(); ok {
		s.Dist = segment.Known(v)
	}
	c.res.Samples = append(c.res.Samples, s)
	c.publish(nil)

	switch {
	case c.cfg.StopOnDeviceTop && st == regmap.StatusAtTop:
		return StopDeviceTop, nil
	case c.cfg.StopOnVisionTop && obs.Top:
		return StopVisionTop, nil
	case c.cfg.MaxSamples > 0 && len(c.res.Samples) >= c.cfg.MaxSamples:
		return StopMaxSamples, nil
	}
	return StopNone, nil
}

// NegotiateStop sends STOP_ASC once and waits for STOPPED.
// Not retried; a timeout is fatal.
func (c *Controller) NegotiateStop() error {
	if err := c.dev.WriteCmd(regmap.CmdStopAsc); err != nil {
		return err
	}
	if err := c.waitStatus("stop", regmap.StatusStopped, c.cfg.StopTimeout); err != nil {
		return err
	}
	return c.fsm.To(regmap.StatusStopped)
}

// Segment freezes the sample log and plans the descent.
func (c *Controller) Segment() error {
	out, err := segment.Process(segment.Columns(c.res.Samples), c.cfg.Segment)
	if err != nil {
		return err
	}
	c.res.Points = out.Points
	c.res.Segments = out.Segments

	cmds, err := plan.Generate(out.Segments, c.cfg.Plan)
	if err != nil {
		return err
	}
	c.res.Commands = cmds
	c.logf("planned %d segments from %d samples", len(cmds), len(c.res.Samples))
	return nil
}

// Descend dispatches every planned command, top segment first.
func (c *Controller) Descend() error {
	for i, cmd := range c.res.Commands {
		if i > 0 && cmd.Top > c.res.Commands[i-1].Top {
			return fmt.Errorf("controller: descent order broken at segment %d", i)
		}
		if err := c.runSegment(i, cmd); err != nil {
			return err
		}
		c.res.Dispatched++
		c.publish(nil)
	}
	return nil
}

func (c *Controller) runSegment(i int, cmd plan.Command) error {
	c.logf("START_SEG %d/%d h0=%.1f %s", i+1, len(c.res.Commands), cmd.Top, cmd)

	if err := c.dev.WriteSegment(float32(cmd.Top), float32(cmd.Step), int32(cmd.Count), float32(cmd.Distance)); err != nil {
		return err
	}
	if err := c.fsm.To(regmap.StatusCleaning); err != nil {
		return err
	}
	if err := c.dev.WriteCmd(regmap.CmdStartSeg); err != nil {
		return err
	}

	// ack: one retry of START_SEG
	var te *TimeoutError
	err := c.waitStatus("ack", regmap.StatusCleaning, c.cfg.AckTimeout)
	if errors.As(err, &te) {
		c.logf("no CLEANING ack (status=%s z=%.1f), retrying START_SEG", te.Last, te.Z)
		if err := c.dev.WriteCmd(regmap.CmdStartSeg); err != nil {
			return err
		}
		err = c.waitStatus("ack", regmap.StatusCleaning, c.cfg.AckTimeout)
		if errors.As(err, &te) {
			c.res.Timeouts = append(c.res.Timeouts, te)
			c.logf("no CLEANING ack after retry: %v", te)
			err = nil
		}
	}
	if err != nil {
		return err
	}

	// completion: never retried
	timeout := c.cfg.SegTimeoutBase
	if scaled := c.cfg.SegTimeoutPerStep * time.Duration(max(cmd.Count, 1)); scaled > timeout {
		timeout = scaled
	}
	err = c.waitStatus("segment", regmap.StatusWaitSeg, timeout)
	if errors.As(err, &te) {
		c.res.Timeouts = append(c.res.Timeouts, te)
		if c.cfg.OnSegmentTimeout == PolicyAbort {
			return err
		}
		c.logf("segment %d not completed: %v; continuing", i+1, te)
		err = nil
	}
	if err != nil {
		return err
	}
	return c.fsm.To(regmap.StatusWaitSeg)
}

// Finish sends FINISH_ALL and waits for DONE. The wait is soft.
func (c *Controller) Finish() error {
	if err := c.dev.WriteCmd(regmap.CmdFinishAll); err != nil {
		return err
	}
	err := c.waitStatus("finish", regmap.StatusDone, c.cfg.FinishTimeout)
	var te *TimeoutError
	switch {
	case err == nil:
		c.res.Finished = true
	case errors.As(err, &te):
		c.res.Timeouts = append(c.res.Timeouts, te)
		c.logf("device did not report DONE: %v", te)
	default:
		return err
	}
	return c.fsm.To(regmap.StatusDone)
}
