// internal/plc/heartbeat.go
package plc

import (
	"context"
	"log"
	"time"
)

// Heartbeat increments HEARTBEAT on a fixed period until ctx is done.
// It should own its own connection: the controller's connection has one caller.
// Write failures are logged, never fatal.
type Heartbeat struct {
	dev    *Device
	period time.Duration
	logger *log.Logger
}

// NewHeartbeat builds a heartbeat worker. A nil logger uses log.Default().
func NewHeartbeat(dev *Device, period time.Duration, logger *log.Logger) *Heartbeat {
	if logger == nil {
		logger = log.Default()
	}
	if period <= 0 {
		period = 700 * time.Millisecond
	}
	return &Heartbeat{dev: dev, period: period, logger: logger}
}

// Run blocks until ctx is done. The counter wraps through 16 bits.
func (h *Heartbeat) Run(ctx context.Context) {
	ticker := time.NewTicker(h.period)
	defer ticker.Stop()

	var hb uint16
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hb++
			if err := h.dev.WriteHeartbeat(hb); err != nil {
				h.logger.Printf("heartbeat write failed (hb=%d): %v", hb, err)
			}
		}
	}
}
