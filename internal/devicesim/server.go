// internal/devicesim/server.go
package devicesim

import (
	"context"
	"encoding/binary"
	"errors"
	"log"
	"net"
	"sync"

	"github.com/tamzrod/lift-washer/internal/modbus"
)

// Server exposes a Sim over Modbus TCP (FC3 / FC16 only).
// One goroutine per accepted connection; connections are independent.
type Server struct {
	sim    *Sim
	ln     net.Listener
	unitID uint8
	logger *log.Logger

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// Listen binds addr. unitID 0 accepts any unit id.
func Listen(addr string, sim *Sim, unitID uint8) (*Server, error) {
	if sim == nil {
		return nil, errors.New("devicesim: sim required")
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		sim:    sim,
		ln:     ln,
		unitID: unitID,
		logger: sim.logger,
		conns:  make(map[net.Conn]struct{}),
	}, nil
}

// Addr is the bound listener address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Serve accepts until ctx is done or the listener is closed.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	s.logger.Printf("devicesim: listening on %s (unit=%d)", s.ln.Addr(), s.unitID)

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			return err
		}

		s.track(conn, true)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.track(conn, false)
			s.serveConn(conn)
		}()
	}
}

// Close stops accepting and drops every open connection.
func (s *Server) Close() error {
	err := s.ln.Close()

	s.mu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *Server) track(c net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[c] = struct{}{}
		return
	}
	delete(s.conns, c)
	_ = c.Close()
}

func (s *Server) serveConn(conn net.Conn) {
	for {
		h, pdu, err := modbus.ReadADU(conn)
		if err != nil {
			return
		}
		if h.ProtocolID != 0 {
			s.logger.Printf("devicesim: dropping %s: protocol id %d", conn.RemoteAddr(), h.ProtocolID)
			return
		}
		if s.unitID != 0 && h.UnitID != s.unitID {
			// not addressed to us: no reply, like a gateway with no such slave
			continue
		}

		resp := s.handle(pdu)
		if _, err := conn.Write(modbus.BuildADU(h.TransactionID, h.UnitID, resp)); err != nil {
			return
		}
	}
}

// handle executes one request PDU and returns the response PDU.
func (s *Server) handle(pdu []byte) []byte {
	fc := pdu[0]

	switch fc {
	case modbus.FuncReadHoldingRegisters:
		if len(pdu) != 5 {
			return modbus.ExceptionPDU(fc, modbus.ExceptionIllegalValue)
		}
		addr := binary.BigEndian.Uint16(pdu[1:3])
		qty := binary.BigEndian.Uint16(pdu[3:5])
		if qty == 0 || qty > modbus.MaxReadQuantity {
			return modbus.ExceptionPDU(fc, modbus.ExceptionIllegalValue)
		}
		regs, err := s.sim.ReadRegisters(addr, qty)
		if err != nil {
			return modbus.ExceptionPDU(fc, exceptionCode(err))
		}
		return append([]byte{fc, byte(2 * qty)}, modbus.PackRegisters(regs)...)

	case modbus.FuncWriteMultipleRegisters:
		if len(pdu) < 6 {
			return modbus.ExceptionPDU(fc, modbus.ExceptionIllegalValue)
		}
		addr := binary.BigEndian.Uint16(pdu[1:3])
		qty := binary.BigEndian.Uint16(pdu[3:5])
		bc := int(pdu[5])
		if qty == 0 || qty > modbus.MaxWriteQuantity || bc != 2*int(qty) || len(pdu) != 6+bc {
			return modbus.ExceptionPDU(fc, modbus.ExceptionIllegalValue)
		}
		if err := s.sim.WriteRegisters(addr, modbus.UnpackRegisters(pdu[6:])); err != nil {
			return modbus.ExceptionPDU(fc, exceptionCode(err))
		}
		return pdu[:5]

	default:
		return modbus.ExceptionPDU(fc, modbus.ExceptionIllegalFunction)
	}
}

func exceptionCode(err error) uint8 {
	var pe *modbus.ProtocolError
	if errors.As(err, &pe) && pe.Exception != 0 {
		return pe.Exception
	}
	return modbus.ExceptionIllegalAddress
}
