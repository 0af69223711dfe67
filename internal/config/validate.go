// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if err := validateDevice(cfg); err != nil {
		return err
	}

	// ------------------------------------------------------------
	// SAMPLING + VISION
	// ------------------------------------------------------------

	if cfg.Sampling.PeriodMs <= 0 {
		return fmt.Errorf("sampling: period_ms must be > 0 (got %d)", cfg.Sampling.PeriodMs)
	}
	if cfg.Sampling.MaxSamples < 0 {
		return fmt.Errorf("sampling: max_samples must be >= 0 (got %d)", cfg.Sampling.MaxSamples)
	}
	for _, t := range cfg.Sampling.StopTriggers {
		switch strings.ToLower(strings.TrimSpace(t)) {
		case TriggerDeviceAtTop, TriggerVisionTop:
		default:
			return fmt.Errorf("sampling: unknown stop trigger %q", t)
		}
	}

	v := cfg.Vision
	if (v.Pattern == "") == (v.ReplayCSV == "") {
		return errors.New("vision: exactly one of pattern or replay_csv is required")
	}

	// ------------------------------------------------------------
	// DISTANCE
	// ------------------------------------------------------------

	if cfg.Distance.Enabled {
		if cfg.Distance.LatencyN < 1 {
			return fmt.Errorf("distance: latency_n must be >= 1 (got %d)", cfg.Distance.LatencyN)
		}
		if cfg.Distance.MaxJumpMM < 0 || cfg.Distance.MockNoiseMM < 0 || cfg.Distance.PumpPeriodMs < 0 {
			return errors.New("distance: max_jump_mm, mock_noise_mm and pump_period_ms must be >= 0")
		}
	}

	// ------------------------------------------------------------
	// POST-PROCESSING + CLEANING
	// ------------------------------------------------------------

	p := cfg.PostProc
	if p.OpenCloseWin < 0 || p.InterpGapMax < 0 {
		return errors.New("postproc: open_close_win and interp_gap_max must be >= 0")
	}
	if p.MinSegmentMM < 0 || p.SafetyDeltaMM < 0 || p.MergeGapMM < 0 {
		return errors.New("postproc: min_segment_mm, safety_delta_mm and merge_gap_mm must be >= 0")
	}
	switch strings.ToLower(p.Mode) {
	case "points", "segments":
	default:
		return fmt.Errorf("postproc: mode must be points or segments (got %q)", p.Mode)
	}
	switch strings.ToLower(p.DisMethod) {
	case "median", "trimmed_mean":
	default:
		return fmt.Errorf("postproc: dis_method must be median or trimmed_mean (got %q)", p.DisMethod)
	}
	if p.DisTrimRatio < 0 || p.DisTrimRatio >= 0.5 {
		return fmt.Errorf("postproc: dis_trim_ratio must be in [0, 0.5) (got %g)", p.DisTrimRatio)
	}

	c := cfg.Cleaning
	if c.BrushWidthMM <= 0 {
		return fmt.Errorf("cleaning: brush_width_mm must be > 0 (got %d)", c.BrushWidthMM)
	}
	if c.Overlap < 0 || c.Overlap >= 1 {
		return fmt.Errorf("cleaning: overlap must be in [0, 1) (got %g)", c.Overlap)
	}
	if c.MinStepMM <= 0 || c.MaxStepMM < c.MinStepMM {
		return fmt.Errorf("cleaning: invalid step range min=%d max=%d", c.MinStepMM, c.MaxStepMM)
	}
	if c.GuardStartMM < 0 || c.GuardEndMM < 0 {
		return errors.New("cleaning: guard_start_mm and guard_end_mm must be >= 0")
	}
	if c.QuantMM <= 0 {
		return fmt.Errorf("cleaning: quant_mm must be > 0 (got %d)", c.QuantMM)
	}

	// ------------------------------------------------------------
	// DESCENT
	// ------------------------------------------------------------

	ds := cfg.Descent
	for name, ms := range map[string]int{
		"poll_ms":             ds.PollMs,
		"ready_timeout_ms":    ds.ReadyTimeoutMs,
		"stop_timeout_ms":     ds.StopTimeoutMs,
		"ack_timeout_ms":      ds.AckTimeoutMs,
		"seg_timeout_base_ms": ds.SegTimeoutBaseMs,
		"finish_timeout_ms":   ds.FinishTimeoutMs,
	} {
		if ms <= 0 {
			return fmt.Errorf("descent: %s must be > 0 (got %d)", name, ms)
		}
	}
	if ds.SegTimeoutPerStepMs < 0 {
		return fmt.Errorf("descent: seg_timeout_per_step_ms must be >= 0 (got %d)", ds.SegTimeoutPerStepMs)
	}
	switch strings.ToLower(ds.OnSegmentTimeout) {
	case "continue", "abort":
	default:
		return fmt.Errorf("descent: on_segment_timeout must be continue or abort (got %q)", ds.OnSegmentTimeout)
	}

	// ------------------------------------------------------------
	// HEARTBEAT + MONITOR + SIMULATOR
	// ------------------------------------------------------------

	if cfg.Heartbeat.Enabled && cfg.Heartbeat.PeriodMs <= 0 {
		return fmt.Errorf("heartbeat: period_ms must be > 0 (got %d)", cfg.Heartbeat.PeriodMs)
	}

	if cfg.Monitor.Enabled && cfg.Monitor.Listen == "" {
		return errors.New("monitor: listen required when enabled")
	}

	if err := validateSimulator(cfg.Simulator); err != nil {
		return err
	}

	return nil
}

// ValidateSimulator checks only what a standalone simulator needs:
// the device section (register base, unit id) and the simulator section.
func ValidateSimulator(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if err := validateDevice(cfg); err != nil {
		return err
	}
	s := cfg.Simulator
	s.Enabled = true
	return validateSimulator(s)
}

func validateDevice(cfg *Config) error {
	d := cfg.Device
	switch strings.ToLower(strings.TrimSpace(d.Kind)) {
	case KindMBAP, KindTCP:
		if d.Endpoint == "" && !cfg.Simulator.Enabled {
			return fmt.Errorf("device: endpoint required for kind %q", d.Kind)
		}
	case KindRTU:
		if d.Serial.Device == "" {
			return errors.New("device: serial.device required for kind \"rtu\"")
		}
		if d.Serial.BaudRate <= 0 {
			return fmt.Errorf("device: serial.baudrate must be > 0 (got %d)", d.Serial.BaudRate)
		}
		switch strings.ToUpper(d.Serial.Parity) {
		case "", "N", "E", "O":
		default:
			return fmt.Errorf("device: serial.parity must be N, E or O (got %q)", d.Serial.Parity)
		}
		if cfg.Simulator.Enabled {
			return errors.New("device: embedded simulator needs a tcp transport")
		}
	default:
		return fmt.Errorf("device: unknown kind %q (want mbap, tcp or rtu)", d.Kind)
	}
	if d.TimeoutMs <= 0 {
		return fmt.Errorf("device: timeout_ms must be > 0 (got %d)", d.TimeoutMs)
	}
	if int(d.RegBase)+16 > 0xFFFF {
		return fmt.Errorf("device: reg_base %d leaves no room for the register window", d.RegBase)
	}
	return nil
}

func validateSimulator(s SimulatorConfig) error {
	if s.Enabled {
		if s.Listen == "" {
			return errors.New("simulator: listen required when enabled")
		}
		if s.ZMaxMM <= 0 || s.TickMs <= 0 {
			return errors.New("simulator: z_max_mm and tick_ms must be > 0")
		}
		if s.ExecSegMs < 0 || s.AscendMMPerS < 0 || s.ZPerSampleMM < 0 {
			return errors.New("simulator: exec_seg_ms, ascend_mm_s and z_per_sample_mm must be >= 0")
		}
	}
	return nil
}
