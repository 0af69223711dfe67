// internal/modbus/client.go
package modbus

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// Client is a hand-framed Modbus TCP client for FC3 / FC16.
// One request in flight per connection: every call holds mu for the whole exchange.
// No retries, no reconnect.
type Client struct {
	mu     sync.Mutex
	conn   net.Conn
	unitID uint8
	tid    uint16

	timeout time.Duration
}

// Config is minimal transport config.
type Config struct {
	Endpoint string
	UnitID   uint8
	Timeout  time.Duration
}

// Dial creates a connected client.
func Dial(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbus client: endpoint required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}

	conn, err := net.DialTimeout("tcp", cfg.Endpoint, cfg.Timeout)
	if err != nil {
		return nil, transportErr("dial "+cfg.Endpoint, err)
	}

	return NewClient(conn, cfg.UnitID, cfg.Timeout), nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn, unitID uint8, timeout time.Duration) *Client {
	c := &Client{
		conn:    conn,
		unitID:  unitID,
		timeout: timeout,
	}

	// Randomize starting TID (best effort).
	var b [2]byte
	if _, err := rand.Read(b[:]); err == nil {
		c.tid = binary.BigEndian.Uint16(b[:])
	}

	return c
}

// Close closes the TCP connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// ReadRegisters reads qty holding registers at addr (FC3).
func (c *Client) ReadRegisters(addr, qty uint16) ([]uint16, error) {
	if qty == 0 || qty > MaxReadQuantity {
		return nil, fmt.Errorf("modbus client: read quantity %d out of range", qty)
	}

	pdu, err := c.roundTrip(ReadRequestPDU(addr, qty))
	if err != nil {
		return nil, err
	}

	// payload[0] = byte count, remaining = registers big-endian
	if len(pdu) < 2 {
		return nil, protocolErrf("short read-registers payload")
	}
	byteCount := int(pdu[1])
	if byteCount != 2*int(qty) {
		return nil, protocolErrf("read byte count mismatch: got=%d want=%d", byteCount, 2*qty)
	}
	if len(pdu)-2 != byteCount {
		return nil, protocolErrf("read payload length mismatch: got=%d want=%d", len(pdu)-2, byteCount)
	}

	return UnpackRegisters(pdu[2:]), nil
}

// WriteRegisters writes regs starting at addr (FC16).
func (c *Client) WriteRegisters(addr uint16, regs []uint16) error {
	if len(regs) == 0 || len(regs) > MaxWriteQuantity {
		return fmt.Errorf("modbus client: write quantity %d out of range", len(regs))
	}

	pdu, err := c.roundTrip(WriteRequestPDU(addr, regs))
	if err != nil {
		return err
	}

	// FC(1) Address(2) Quantity(2) echoed
	if len(pdu) != 5 {
		return protocolErrf("write echo length mismatch: got=%d want=5", len(pdu))
	}
	gotAddr := binary.BigEndian.Uint16(pdu[1:3])
	gotQty := binary.BigEndian.Uint16(pdu[3:5])
	if gotAddr != addr || int(gotQty) != len(regs) {
		return protocolErrf("write echo mismatch: got=%d/%d want=%d/%d", gotAddr, gotQty, addr, len(regs))
	}
	return nil
}

// ---- internal request/response helpers ----

// nextTID increments through the 16-bit space, skipping zero.
func (c *Client) nextTID() uint16 {
	c.tid++
	if c.tid == 0 {
		c.tid = 1
	}
	return c.tid
}

// roundTrip sends one request and returns the validated response PDU.
func (c *Client) roundTrip(req []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, transportErr("send", net.ErrClosed)
	}

	fc := req[0]
	tid := c.nextTID()
	adu := BuildADU(tid, c.unitID, req)

	_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if err := writeAll(c.conn, adu); err != nil {
		return nil, transportErr("write", err)
	}

	_ = c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	h, pdu, err := ReadADU(c.conn)
	if err != nil {
		var pe *ProtocolError
		if errors.As(err, &pe) {
			return nil, pe
		}
		return nil, transportErr("read", err)
	}

	if h.TransactionID != tid {
		return nil, protocolErrf("transaction id mismatch: got=%d want=%d", h.TransactionID, tid)
	}
	if h.ProtocolID != 0 {
		return nil, protocolErrf("protocol id mismatch: got=%d want=0", h.ProtocolID)
	}
	if h.UnitID != c.unitID {
		return nil, protocolErrf("unit id mismatch: got=%d want=%d", h.UnitID, c.unitID)
	}
	if pdu[0] == fc|0x80 {
		code := uint8(0)
		if len(pdu) > 1 {
			code = pdu[1]
		}
		return nil, &ProtocolError{
			Msg:       fmt.Sprintf("exception: fc=%d code=%d", fc, code),
			Exception: code,
		}
	}
	if pdu[0] != fc {
		return nil, protocolErrf("function mismatch: got=%d want=%d", pdu[0], fc)
	}

	return pdu, nil
}
