// internal/modbus/frame.go
package modbus

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Function codes supported on this link.
const (
	FuncReadHoldingRegisters   uint8 = 3
	FuncWriteMultipleRegisters uint8 = 16
)

// Exception codes used by the simulator.
const (
	ExceptionIllegalFunction uint8 = 1
	ExceptionIllegalAddress  uint8 = 2
	ExceptionIllegalValue    uint8 = 3
)

// Protocol limits for FC3 / FC16.
const (
	MaxReadQuantity  = 125
	MaxWriteQuantity = 123
)

// HeaderLen is the MBAP header size.
//
// MBAP:
//
//	TID(2) PID(2=0) LEN(2) UID(1)
//
// LEN counts UID + PDU.
const HeaderLen = 7

// maxPDU bounds LEN-1 (Modbus TCP limit).
const maxPDU = 253

// Header is one decoded MBAP header.
type Header struct {
	TransactionID uint16
	ProtocolID    uint16
	Length        uint16
	UnitID        uint8
}

// BuildADU frames pdu behind an MBAP header.
func BuildADU(tid uint16, unitID uint8, pdu []byte) []byte {
	adu := make([]byte, HeaderLen+len(pdu))
	binary.BigEndian.PutUint16(adu[0:2], tid)
	binary.BigEndian.PutUint16(adu[2:4], 0)
	binary.BigEndian.PutUint16(adu[4:6], uint16(len(pdu)+1))
	adu[6] = unitID
	copy(adu[HeaderLen:], pdu)
	return adu
}

// ReadADU reads exactly one frame from r.
// Short reads surface as io.EOF / io.ErrUnexpectedEOF from io.ReadFull.
func ReadADU(r io.Reader) (Header, []byte, error) {
	var hdr [HeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Header{}, nil, err
	}

	h := Header{
		TransactionID: binary.BigEndian.Uint16(hdr[0:2]),
		ProtocolID:    binary.BigEndian.Uint16(hdr[2:4]),
		Length:        binary.BigEndian.Uint16(hdr[4:6]),
		UnitID:        hdr[6],
	}

	if h.Length < 2 || int(h.Length)-1 > maxPDU {
		return h, nil, &ProtocolError{Msg: fmt.Sprintf("mbap length %d out of range", h.Length)}
	}

	pdu := make([]byte, h.Length-1)
	if _, err := io.ReadFull(r, pdu); err != nil {
		return h, nil, err
	}
	return h, pdu, nil
}

// ReadRequestPDU builds FC3: FC(1) Address(2) Quantity(2).
func ReadRequestPDU(addr, qty uint16) []byte {
	pdu := make([]byte, 5)
	pdu[0] = FuncReadHoldingRegisters
	binary.BigEndian.PutUint16(pdu[1:3], addr)
	binary.BigEndian.PutUint16(pdu[3:5], qty)
	return pdu
}

// WriteRequestPDU builds FC16: FC(1) Address(2) Quantity(2) ByteCount(1) Data(2*N).
func WriteRequestPDU(addr uint16, regs []uint16) []byte {
	pdu := make([]byte, 6, 6+2*len(regs))
	pdu[0] = FuncWriteMultipleRegisters
	binary.BigEndian.PutUint16(pdu[1:3], addr)
	binary.BigEndian.PutUint16(pdu[3:5], uint16(len(regs)))
	pdu[5] = byte(2 * len(regs))
	return append(pdu, PackRegisters(regs)...)
}

// ExceptionPDU builds an exception reply for fc.
func ExceptionPDU(fc, code uint8) []byte {
	return []byte{fc | 0x80, code}
}

// PackRegisters lays regs out big-endian.
func PackRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}

// UnpackRegisters is the inverse of PackRegisters. A trailing odd byte is ignored.
func UnpackRegisters(data []byte) []uint16 {
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
