package radio

import (
	"fmt"
)

// readRegisters refreshes the whole shadow with one 32 byte read.
//
// A plain read is used instead of an SMBus block read: the chip has no
// register pointer and would take a command byte as the high byte of
// POWERCFG.
func (s *Si4703Driver) readRegisters() error {
	if s.conn == nil {
		return ErrNotStarted
	}

	buf := make([]byte, readSize)
	n, err := s.conn.Read(buf)
	if err != nil {
		return &HardwareIOError{Op: "read", Err: err}
	}
	if n != readSize {
		return &HardwareIOError{
			Op:  "read",
			Err: fmt.Errorf("short read of %d bytes, expected %d -> %s", n, readSize, s.sliceToString(buf[:n])),
		}
	}

	s.regs.decode(buf)
	if s.debugMode {
		s.debugLog("read registers: %s", s.regsToString())
	}
	return nil
}

// writeRegisters sends POWERCFG through TEST1. Writes always start at 0x02,
// so the first byte stands in for the block command byte.
func (s *Si4703Driver) writeRegisters() error {
	if s.conn == nil {
		return ErrNotStarted
	}

	buf := s.regs.encode()
	if s.debugMode {
		s.debugLog("write registers: %s", s.sliceToString(buf))
	}
	if err := s.conn.WriteBlockData(buf[0], buf[1:]); err != nil {
		return &HardwareIOError{Op: "write", Err: err}
	}
	return nil
}

// update brackets fn with a read and a write so reserved bits survive.
func (s *Si4703Driver) update(fn func(r *registers)) error {
	if err := s.readRegisters(); err != nil {
		return err
	}
	fn(&s.regs)
	return s.writeRegisters()
}

func (s *Si4703Driver) sliceToString(val []byte) string {
	res := ""
	for idx := range val {
		res += fmt.Sprintf("[%d]=0x%x ", idx, val[idx])
	}
	return res
}

func (s *Si4703Driver) regsToString() string {
	res := ""
	for idx := range s.regs {
		res += fmt.Sprintf("%02X=%04X ", idx, s.regs[idx])
	}
	return res
}
