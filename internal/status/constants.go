// internal/status/constants.go
package status

// ---- HEALTH CODES ----

// HealthUnknown is the state before the device reported READY.
const HealthUnknown uint16 = 0

// HealthOK is a run progressing without timeouts.
const HealthOK uint16 = 1

// HealthError is a run that stopped on a fatal error.
const HealthError uint16 = 2

// HealthDegraded is a run that recorded at least one soft timeout.
const HealthDegraded uint16 = 3

// ---- ERROR CODES ----
// Shared by LastErrorCode and the controller binary's exit code.

const (
	CodeNone      uint16 = 0
	CodeGeneric   uint16 = 1
	CodeTransport uint16 = 2
	CodeProtocol  uint16 = 3
	CodeTimeout   uint16 = 4
	CodeData      uint16 = 5
)

// ---- FEED ----

// clientBuffer is the per-client queue; a slow client drops updates.
const clientBuffer = 64
