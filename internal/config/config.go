// internal/config/config.go
package config

type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Sampling  SamplingConfig  `yaml:"sampling"`
	Vision    VisionConfig    `yaml:"vision"`
	Distance  DistanceConfig  `yaml:"distance"`
	PostProc  PostProcConfig  `yaml:"postproc"`
	Cleaning  CleaningConfig  `yaml:"cleaning"`
	Descent   DescentConfig   `yaml:"descent"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Simulator SimulatorConfig `yaml:"simulator"`
}

// ---- DEVICE ----

// Transport kinds.
const (
	KindMBAP = "mbap" // hand-framed Modbus TCP
	KindTCP  = "tcp"  // goburrow Modbus TCP
	KindRTU  = "rtu"  // goburrow Modbus RTU over serial
)

type DeviceConfig struct {
	Kind      string `yaml:"kind"`
	Endpoint  string `yaml:"endpoint"`
	UnitID    uint8  `yaml:"unit_id"`
	RegBase   uint16 `yaml:"reg_base"`
	TimeoutMs int    `yaml:"timeout_ms"`

	Serial SerialConfig `yaml:"serial"` // rtu only
}

type SerialConfig struct {
	Device   string `yaml:"device"` // "/dev/ttyUSB0", "COM3"
	BaudRate int    `yaml:"baudrate"`
	DataBits int    `yaml:"databits"`
	StopBits int    `yaml:"stopbits"`
	Parity   string `yaml:"parity"` // N, E, O
}

// ---- SAMPLING ----

// Stop trigger names.
const (
	TriggerDeviceAtTop = "device_at_top"
	TriggerVisionTop   = "vision_top"
)

type SamplingConfig struct {
	PeriodMs     int      `yaml:"period_ms"`
	StopTriggers []string `yaml:"stop_triggers"`
	MaxSamples   int      `yaml:"max_samples"` // 0 = unlimited
}

// ---- VISION ----

// Exactly one of Pattern or ReplayCSV.
type VisionConfig struct {
	Pattern   string `yaml:"pattern"`    // "200x0,400x1,..."
	TopAtEnd  bool   `yaml:"top_at_end"` // last pattern flag reports the physical top
	ReplayCSV string `yaml:"replay_csv"` // recorded samples csv; also replays distances
}

// ---- DISTANCE ----

type DistanceConfig struct {
	Enabled      bool    `yaml:"enabled"`
	LatencyN     int     `yaml:"latency_n"`
	MockBaseMM   float64 `yaml:"mock_base_mm"`
	MockNoiseMM  float64 `yaml:"mock_noise_mm"`
	MockDriftMM  float64 `yaml:"mock_drift_per_sample_mm"`
	MaxJumpMM    float64 `yaml:"max_jump_mm"`
	PumpPeriodMs int     `yaml:"pump_period_ms"` // 0 = read inline on each tick
	Seed         int64   `yaml:"seed"`
}

// ---- POST-PROCESSING ----

type PostProcConfig struct {
	OpenCloseWin  int     `yaml:"open_close_win"`
	MinSegmentMM  float64 `yaml:"min_segment_mm"`
	SafetyDeltaMM float64 `yaml:"safety_delta_mm"`
	BrushOffsetMM float64 `yaml:"brush_offset_mm"`
	MergeGapMM    float64 `yaml:"merge_gap_mm"`
	Mode          string  `yaml:"mode"` // points | segments
	DisMethod     string  `yaml:"dis_method"`
	DisTrimRatio  float64 `yaml:"dis_trim_ratio"`
	InterpGapMax  int     `yaml:"interp_gap_max"`
	FFillTail     bool    `yaml:"ffill_tail"`
}

// ---- CLEANING ----

type CleaningConfig struct {
	BrushWidthMM      int     `yaml:"brush_width_mm"`
	Overlap           float64 `yaml:"overlap"`
	MinStepMM         int     `yaml:"min_step_mm"`
	MaxStepMM         int     `yaml:"max_step_mm"`
	GuardStartMM      int     `yaml:"guard_start_mm"`
	GuardEndMM        int     `yaml:"guard_end_mm"`
	QuantMM           int     `yaml:"quant_mm"`
	DefaultDistanceMM int     `yaml:"default_distance_mm"`
}

// ---- DESCENT ----

type DescentConfig struct {
	PollMs              int    `yaml:"poll_ms"`
	ReadyTimeoutMs      int    `yaml:"ready_timeout_ms"`
	StopTimeoutMs       int    `yaml:"stop_timeout_ms"`
	AckTimeoutMs        int    `yaml:"ack_timeout_ms"`
	SegTimeoutBaseMs    int    `yaml:"seg_timeout_base_ms"`
	SegTimeoutPerStepMs int    `yaml:"seg_timeout_per_step_ms"`
	FinishTimeoutMs     int    `yaml:"finish_timeout_ms"`
	OnSegmentTimeout    string `yaml:"on_segment_timeout"` // continue | abort
}

// ---- HEARTBEAT ----

type HeartbeatConfig struct {
	Enabled  bool `yaml:"enabled"`
	PeriodMs int  `yaml:"period_ms"`
}

// ---- MONITOR ----

// Live run status over HTTP (/status) and websocket (/ws).
type MonitorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// ---- ARTIFACTS ----

// Paths may contain {run}, replaced by the run id. Empty disables.
type ArtifactsConfig struct {
	SamplesCSV  string `yaml:"samples_csv"`
	SegmentsCSV string `yaml:"segments_csv"`
	CommandsCSV string `yaml:"commands_csv"`
}

// ---- SIMULATOR ----

type SimulatorConfig struct {
	Enabled      bool    `yaml:"enabled"` // embed in the controller process
	Listen       string  `yaml:"listen"`
	Version      float32 `yaml:"version"`
	ZMaxMM       float64 `yaml:"z_max_mm"`
	AscendMMPerS float64 `yaml:"ascend_mm_s"`
	ZPerSampleMM float64 `yaml:"z_per_sample_mm"`
	ExecSegMs    int     `yaml:"exec_seg_ms"`
	TickMs       int     `yaml:"tick_ms"`
}
