// internal/controller/errors.go
package controller

import (
	"errors"
	"fmt"
	"time"

	"github.com/tamzrod/lift-washer/internal/modbus"
	"github.com/tamzrod/lift-washer/internal/regmap"
	"github.com/tamzrod/lift-washer/internal/segment"
	"github.com/tamzrod/lift-washer/internal/status"
)

// ErrTimeout matches every *TimeoutError via errors.Is.
var ErrTimeout = errors.New("controller: status wait timed out")

// TimeoutError is an expected STATUS transition that was not observed.
// It carries the last values read so the failure can be reconstructed.
type TimeoutError struct {
	Phase string
	Want  regmap.Status
	Last  regmap.Status
	Z     float32
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("controller: %s: waited %s for %s, last status=%s z=%.1f",
		e.Phase, e.After, e.Want, e.Last, e.Z)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// ErrorCode classifies err into the status error codes.
// Unclassified errors are CodeGeneric; nil is CodeNone.
func ErrorCode(err error) uint16 {
	if err == nil {
		return status.CodeNone
	}

	var te *modbus.TransportError
	if errors.As(err, &te) {
		return status.CodeTransport
	}
	var pe *modbus.ProtocolError
	if errors.As(err, &pe) {
		return status.CodeProtocol
	}
	if errors.Is(err, ErrTimeout) {
		return status.CodeTimeout
	}
	var de *segment.DataError
	if errors.As(err, &de) {
		return status.CodeData
	}
	return status.CodeGeneric
}
