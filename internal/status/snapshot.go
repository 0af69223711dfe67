// internal/status/snapshot.go
package status

import "time"

// Snapshot is what the monitor is allowed to deliver about a run.
// It carries current state only; history lives in the run artifacts.
type Snapshot struct {
	RunID         string    `json:"run_id"`
	Phase         string    `json:"phase"`
	Health        uint16    `json:"health"`
	LastErrorCode uint16    `json:"last_error_code"`
	DeviceStatus  string    `json:"device_status"`
	ZMM           float64   `json:"z_mm"`
	Samples       int       `json:"samples"`
	Segments      int       `json:"segments"`
	Dispatched    int       `json:"dispatched"`
	SoftTimeouts  int       `json:"soft_timeouts"`
	StopReason    string    `json:"stop_reason,omitempty"`
	Error         string    `json:"error,omitempty"`
	Time          time.Time `json:"time"`
}
