// internal/config/load.go
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults is the bring-up rig configuration. Load decodes on top of it,
// so a YAML file only names what differs.
func Defaults() Config {
	return Config{
		Device: DeviceConfig{
			Kind:      KindMBAP,
			Endpoint:  "127.0.0.1:15020",
			UnitID:    1,
			RegBase:   0,
			TimeoutMs: 2000,
			Serial: SerialConfig{
				BaudRate: 19200,
				DataBits: 8,
				StopBits: 1,
				Parity:   "N",
			},
		},
		Sampling: SamplingConfig{
			PeriodMs:     1000,
			StopTriggers: []string{TriggerDeviceAtTop, TriggerVisionTop},
		},
		Distance: DistanceConfig{
			LatencyN:    5,
			MockBaseMM:  800,
			MockNoiseMM: 5,
			MaxJumpMM:   150,
		},
		PostProc: PostProcConfig{
			OpenCloseWin:  3,
			MinSegmentMM:  60,
			SafetyDeltaMM: 25,
			BrushOffsetMM: 0,
			MergeGapMM:    30,
			Mode:          "segments",
			DisMethod:     "median",
			DisTrimRatio:  0.1,
			InterpGapMax:  0,
			FFillTail:     true,
		},
		Cleaning: CleaningConfig{
			BrushWidthMM:      200,
			Overlap:           0.2,
			MinStepMM:         50,
			MaxStepMM:         300,
			QuantMM:           1,
			DefaultDistanceMM: 300,
		},
		Descent: DescentConfig{
			PollMs:              50,
			ReadyTimeoutMs:      3000,
			StopTimeoutMs:       3000,
			AckTimeoutMs:        3000,
			SegTimeoutBaseMs:    3000,
			SegTimeoutPerStepMs: 100,
			FinishTimeoutMs:     5000,
			OnSegmentTimeout:    "continue",
		},
		Heartbeat: HeartbeatConfig{
			Enabled:  true,
			PeriodMs: 700,
		},
		Monitor: MonitorConfig{
			Listen: "127.0.0.1:8089",
		},
		Artifacts: ArtifactsConfig{
			SamplesCSV:  "logs/samples_{run}.csv",
			SegmentsCSV: "logs/segments_{run}.csv",
			CommandsCSV: "logs/commands_{run}.csv",
		},
		Simulator: SimulatorConfig{
			Listen:       "127.0.0.1:15020",
			Version:      100.2,
			ZMaxMM:       2500,
			AscendMMPerS: 80,
			ZPerSampleMM: 50,
			ExecSegMs:    600,
			TickMs:       50,
		},
	}
}

// Load reads path over Defaults, then validates and normalizes.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}
	return Parse(data)
}

// LoadSimulator is Load for the standalone simulator: only the device and
// simulator sections are validated, so no vision source is required.
func LoadSimulator(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}
	return parse(data, ValidateSimulator)
}

// Parse is Load without the file.
func Parse(data []byte) (*Config, error) {
	return parse(data, Validate)
}

func parse(data []byte, validate func(*Config) error) (*Config, error) {
	cfg := Defaults()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("cannot parse config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	Normalize(&cfg)
	return &cfg, nil
}
