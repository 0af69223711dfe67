// internal/modbus/errors.go
package modbus

import (
	"errors"
	"fmt"
	"io"
	"net"
)

// TransportError means the wire is gone: closed, reset or timed out.
// It is fatal to a run. There is no automatic reconnect.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("modbus transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the underlying failure was a deadline.
func (e *TransportError) Timeout() bool {
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// Closed reports whether the peer closed the connection.
func (e *TransportError) Closed() bool {
	return errors.Is(e.Err, io.EOF) || errors.Is(e.Err, io.ErrUnexpectedEOF) || errors.Is(e.Err, net.ErrClosed)
}

// ProtocolError means the peer answered, but not with what was asked for.
type ProtocolError struct {
	Msg string

	// Exception is the device exception code, 0 if none.
	Exception uint8
}

func (e *ProtocolError) Error() string {
	return "modbus protocol: " + e.Msg
}

// Code exposes the exception code (0 when the error is a framing mismatch).
func (e *ProtocolError) Code() uint16 { return uint16(e.Exception) }

func transportErr(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}

func protocolErrf(format string, args ...any) error {
	return &ProtocolError{Msg: fmt.Sprintf(format, args...)}
}
