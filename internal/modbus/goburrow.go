// internal/modbus/goburrow.go
package modbus

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// GoburrowClient is the library-backed transport for real devices.
// It speaks Modbus TCP or RTU (RS-485) and serializes requests so a single
// connection never has more than one transaction in flight.
type GoburrowClient struct {
	mu      sync.Mutex
	handler closer
	client  modbus.Client
}

type closer interface {
	Close() error
}

// SerialConfig carries RTU line settings.
type SerialConfig struct {
	Device   string
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
}

// GoburrowConfig selects TCP (Serial == nil) or RTU.
type GoburrowConfig struct {
	Endpoint string
	UnitID   uint8
	Timeout  time.Duration
	Serial   *SerialConfig
	Logger   *log.Logger
}

// DialGoburrow connects through goburrow/modbus.
func DialGoburrow(cfg GoburrowConfig) (*GoburrowClient, error) {
	if cfg.Serial != nil {
		return dialRTU(cfg)
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("goburrow client: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.UnitID
	h.Logger = cfg.Logger

	if err := h.Connect(); err != nil {
		return nil, transportErr("dial "+cfg.Endpoint, err)
	}

	return &GoburrowClient{
		handler: h,
		client:  modbus.NewClient(h),
	}, nil
}

func dialRTU(cfg GoburrowConfig) (*GoburrowClient, error) {
	sc := cfg.Serial
	if sc.Device == "" {
		return nil, errors.New("goburrow client: serial device required")
	}

	h := modbus.NewRTUClientHandler(sc.Device)
	h.BaudRate = sc.BaudRate
	h.DataBits = sc.DataBits
	h.StopBits = sc.StopBits
	h.Parity = sc.Parity
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.UnitID
	h.Logger = cfg.Logger

	if err := h.Connect(); err != nil {
		return nil, transportErr("open "+sc.Device, err)
	}

	return &GoburrowClient{
		handler: h,
		client:  modbus.NewClient(h),
	}, nil
}

// Close releases the connection or serial port.
func (c *GoburrowClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

// ReadRegisters reads qty holding registers at addr (FC3).
func (c *GoburrowClient) ReadRegisters(addr, qty uint16) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.client.ReadHoldingRegisters(addr, qty)
	if err != nil {
		return nil, classify("read", err)
	}
	if len(raw) != 2*int(qty) {
		return nil, protocolErrf("read byte count mismatch: got=%d want=%d", len(raw), 2*qty)
	}
	return UnpackRegisters(raw), nil
}

// WriteRegisters writes regs starting at addr (FC16).
func (c *GoburrowClient) WriteRegisters(addr uint16, regs []uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	qty := uint16(len(regs))
	if _, err := c.client.WriteMultipleRegisters(addr, qty, PackRegisters(regs)); err != nil {
		return classify("write", err)
	}
	return nil
}

// classify maps goburrow errors onto the local taxonomy.
// Device exceptions and response validation failures are protocol errors.
// Rejected request arguments never reached the wire and stay plain errors.
// Everything else came from the wire.
func classify(op string, err error) error {
	var me *modbus.ModbusError
	if errors.As(err, &me) {
		return &ProtocolError{
			Msg:       fmt.Sprintf("exception: fc=%d code=%d", me.FunctionCode, me.ExceptionCode),
			Exception: me.ExceptionCode,
		}
	}
	if isResponseMismatch(err) {
		return protocolErrf("%s: %v", op, err)
	}
	if isBadRequest(err) {
		return fmt.Errorf("goburrow client: %s: %w", op, err)
	}
	return transportErr(op, err)
}

// goburrow reports malformed responses with plain fmt errors; their text is stable.
func isResponseMismatch(err error) bool {
	return hasPrefix(err, "modbus: response ", "modbus: length in response", "modbus: fifo count")
}

// goburrow checks quantities, coil states and frame size before sending.
func isBadRequest(err error) bool {
	return hasPrefix(err, "modbus: quantity", "modbus: state", "modbus: length of data")
}

func hasPrefix(err error, prefixes ...string) bool {
	msg := err.Error()
	for _, p := range prefixes {
		if strings.HasPrefix(msg, p) {
			return true
		}
	}
	return false
}
