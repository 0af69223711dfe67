// internal/config/normalize.go
package config

import "strings"

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Device.Kind = strings.ToLower(strings.TrimSpace(cfg.Device.Kind))
	cfg.Device.Serial.Parity = strings.ToUpper(cfg.Device.Serial.Parity)
	if cfg.Device.Serial.Parity == "" {
		cfg.Device.Serial.Parity = "N"
	}

	// Embedded simulator: the controller dials what the simulator listens on.
	if cfg.Simulator.Enabled {
		cfg.Device.Endpoint = cfg.Simulator.Listen
	}

	// Stop triggers: lower-case, de-duplicated, order kept.
	seen := make(map[string]bool, len(cfg.Sampling.StopTriggers))
	triggers := cfg.Sampling.StopTriggers[:0]
	for _, t := range cfg.Sampling.StopTriggers {
		t = strings.ToLower(strings.TrimSpace(t))
		if seen[t] {
			continue
		}
		seen[t] = true
		triggers = append(triggers, t)
	}
	cfg.Sampling.StopTriggers = triggers

	cfg.PostProc.Mode = strings.ToLower(cfg.PostProc.Mode)
	cfg.PostProc.DisMethod = strings.ToLower(cfg.PostProc.DisMethod)
	cfg.Descent.OnSegmentTimeout = strings.ToLower(cfg.Descent.OnSegmentTimeout)
}

// HasTrigger reports whether a stop trigger is enabled.
func (s SamplingConfig) HasTrigger(name string) bool {
	for _, t := range s.StopTriggers {
		if t == name {
			return true
		}
	}
	return false
}
