// internal/controller/fsm.go
package controller

import (
	"fmt"
	"log"

	"github.com/tamzrod/lift-washer/internal/regmap"
)

// The controller's state names the phase it is in, using the device's
// STATUS vocabulary. It is the controller's expectation, not a mirror of
// the device register.
var transitions = map[regmap.Status][]regmap.Status{
	regmap.StatusInit:     {regmap.StatusReady},
	regmap.StatusReady:    {regmap.StatusSampling},
	regmap.StatusSampling: {regmap.StatusAtTop, regmap.StatusStopped},
	regmap.StatusAtTop:    {regmap.StatusStopped},
	regmap.StatusStopped:  {regmap.StatusCleaning, regmap.StatusDone},
	regmap.StatusCleaning: {regmap.StatusWaitSeg},
	regmap.StatusWaitSeg:  {regmap.StatusCleaning, regmap.StatusDone},
}

// Machine guards phase changes. Not safe for concurrent use.
type Machine struct {
	state  regmap.Status
	runID  string
	logger *log.Logger
}

// NewMachine starts in INIT.
func NewMachine(runID string, logger *log.Logger) *Machine {
	if logger == nil {
		logger = log.Default()
	}
	return &Machine{state: regmap.StatusInit, runID: runID, logger: logger}
}

// State is the current phase.
func (m *Machine) State() regmap.Status { return m.state }

// Can reports whether next is reachable from the current phase.
func (m *Machine) Can(next regmap.Status) bool {
	for _, s := range transitions[m.state] {
		if s == next {
			return true
		}
	}
	return false
}

// To moves to next or fails without changing state.
func (m *Machine) To(next regmap.Status) error {
	if !m.Can(next) {
		return fmt.Errorf("controller: illegal transition %s -> %s", m.state, next)
	}
	m.logger.Printf("controller: %s -> %s (run=%s)", m.state, next, m.runID)
	m.state = next
	return nil
}
