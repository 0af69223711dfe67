// internal/regmap/constants.go
package regmap

import "fmt"

// Register layout constants.
// Offsets are in 16-bit words relative to the configured base address.
// These values define the protocol and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// TotalRegs is the size of the register window.
const TotalRegs = 16

// ---- OFFSETS ----

// OffVersion holds the device firmware version (float32).
// Only one word is reserved before CMD, but the device writes two.
// The second word of VERSION is the CMD word.
const OffVersion = 0

// OffCmd is the host-written command word (int16).
const OffCmd = 1

// OffStatus is the device-written status word (int16).
const OffStatus = 2

// OffZ is the current height in mm (float32, 2 words).
const OffZ = 3

// OffZSignal is the host sample counter (int32, 2 words).
const OffZSignal = 5

// OffH0 is the segment start height in mm (float32, 2 words).
const OffH0 = 7

// OffDH is the step distance in mm (float32, 2 words).
const OffDH = 9

// OffN is the step count (int32, 2 words).
const OffN = 11

// OffDis is the representative stand-off distance in mm (float32, 2 words).
const OffDis = 13

// OffHeartbeat is the host liveness counter (int16).
const OffHeartbeat = 15

// SegmentParamWords spans H0, DH, N and DIS.
const SegmentParamWords = OffDis + 2 - OffH0

// ---- COMMANDS (host -> device) ----

// Cmd is a value of the CMD register.
type Cmd int16

const (
	CmdIdle      Cmd = 0
	CmdReadyReq  Cmd = 1
	CmdSampleUp  Cmd = 2
	CmdStopAsc   Cmd = 3
	CmdStartSeg  Cmd = 5
	CmdFinishAll Cmd = 7
)

func (c Cmd) String() string {
	switch c {
	case CmdIdle:
		return "IDLE"
	case CmdReadyReq:
		return "READY_REQ"
	case CmdSampleUp:
		return "SAMPLE_UP"
	case CmdStopAsc:
		return "STOP_ASC"
	case CmdStartSeg:
		return "START_SEG"
	case CmdFinishAll:
		return "FINISH_ALL"
	default:
		return fmt.Sprintf("CMD(%d)", int16(c))
	}
}

// ---- STATUS (device -> host) ----

// Status is a value of the STATUS register.
type Status int16

const (
	StatusInit     Status = 0
	StatusReady    Status = 1
	StatusSampling Status = 2
	StatusStopped  Status = 3
	StatusAtTop    Status = 4
	StatusWaitSeg  Status = 5
	StatusCleaning Status = 6
	StatusDone     Status = 7
)

func (s Status) String() string {
	switch s {
	case StatusInit:
		return "INIT"
	case StatusReady:
		return "READY"
	case StatusSampling:
		return "SAMPLING"
	case StatusStopped:
		return "STOPPED"
	case StatusAtTop:
		return "AT_TOP"
	case StatusWaitSeg:
		return "WAIT_SEG"
	case StatusCleaning:
		return "CLEANING"
	case StatusDone:
		return "DONE"
	default:
		return fmt.Sprintf("STATUS(%d)", int16(s))
	}
}
