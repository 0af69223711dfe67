// internal/plc/builder.go
package plc

import (
	"fmt"
	"log"
	"time"

	cfg "github.com/tamzrod/lift-washer/internal/config"
	"github.com/tamzrod/lift-washer/internal/modbus"
)

// Build dials the configured transport and binds it to the register window.
// Each call opens its own connection; the returned func closes it.
// No retries: a dial failure is returned as is.
func Build(d cfg.DeviceConfig, logger *log.Logger) (*Device, func() error, error) {
	timeout := time.Duration(d.TimeoutMs) * time.Millisecond

	var (
		tr      Transport
		closeFn func() error
	)

	switch d.Kind {
	case cfg.KindMBAP, "":
		c, err := modbus.Dial(modbus.Config{
			Endpoint: d.Endpoint,
			UnitID:   d.UnitID,
			Timeout:  timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		tr, closeFn = c, c.Close

	case cfg.KindTCP, cfg.KindRTU:
		gc := modbus.GoburrowConfig{
			Endpoint: d.Endpoint,
			UnitID:   d.UnitID,
			Timeout:  timeout,
			Logger:   logger,
		}
		if d.Kind == cfg.KindRTU {
			gc.Serial = &modbus.SerialConfig{
				Device:   d.Serial.Device,
				BaudRate: d.Serial.BaudRate,
				DataBits: d.Serial.DataBits,
				StopBits: d.Serial.StopBits,
				Parity:   d.Serial.Parity,
			}
		}
		c, err := modbus.DialGoburrow(gc)
		if err != nil {
			return nil, nil, err
		}
		tr, closeFn = c, c.Close

	default:
		return nil, nil, fmt.Errorf("plc: unknown transport kind %q", d.Kind)
	}

	return New(tr, d.RegBase), closeFn, nil
}
