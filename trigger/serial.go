package trigger

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/snksoft/crc"
	"github.com/tarm/serial"
)

const (
	// frameStart and frameEnd delimit a repeater frame
	frameStart = 0x02
	frameEnd   = 0x0A

	// frameLen is start + sequence + 2 CRC bytes + end
	frameLen = 5

	// portReadTimeout is the per-Read timeout on the port; WaitForEdge
	// loops reads against its own deadline
	portReadTimeout = 25 * time.Millisecond
)

var crcTable = crc.NewTable(crc.XMODEM)

// SerialRepeater is a trigger source backed by a repeater box that mirrors
// each potentiostat edge as one framed byte on an RS-232 line.  Frames are
// {0x02, seq, crcHi, crcLo, 0x0A} with a CRC-16/XMODEM over the sequence
// byte; the sequence counter wraps at 255 and exposes dropped edges.
type SerialRepeater struct {
	port *serial.Port

	// lastSeq is the sequence byte of the last valid frame, -1 before any
	lastSeq int
}

// NewSerialRepeater opens the serial port the repeater is attached to.
// Opening is retried with exponential backoff; USB-serial adapters
// enumerate slowly after plug-in.
func NewSerialRepeater(addr string, baud int) (*SerialRepeater, error) {
	cfg := &serial.Config{
		Name:        addr,
		Baud:        baud,
		ReadTimeout: portReadTimeout,
	}
	var port *serial.Port
	op := func() error {
		var err error
		port, err = serial.OpenPort(cfg)
		return err
	}
	err := backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         500 * time.Millisecond,
		MaxElapsedTime:      5 * time.Second,
		Clock:               backoff.SystemClock,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open trigger repeater at %s: %w", addr, err)
	}
	return &SerialRepeater{port: port, lastSeq: -1}, nil
}

// checkFrame validates the delimiters and CRC of a complete frame and
// returns the sequence byte
func checkFrame(frame []byte) (byte, error) {
	if len(frame) != frameLen {
		return 0, fmt.Errorf("repeater frame is %d bytes, expected %d", len(frame), frameLen)
	}
	if frame[0] != frameStart || frame[4] != frameEnd {
		return 0, fmt.Errorf("repeater frame delimiters invalid, % x", frame)
	}
	want := uint16(crcTable.CalculateCRC(frame[1:2]))
	got := uint16(frame[2])<<8 | uint16(frame[3])
	if want != got {
		return 0, fmt.Errorf("repeater frame CRC mismatch, expected %04X got %04X", want, got)
	}
	return frame[1], nil
}

// WaitForEdge reads one frame from the repeater, blocking up to timeout
func (s *SerialRepeater) WaitForEdge(timeout time.Duration) (time.Time, error) {
	deadline := time.Now().Add(timeout)
	buf := make([]byte, frameLen)
	frame := make([]byte, 0, frameLen)
	for {
		n, err := s.port.Read(buf[:frameLen-len(frame)])
		if err != nil && n == 0 {
			// tarm/serial surfaces its read timeout as an error on
			// some platforms and as n==0 on others
			if time.Now().After(deadline) {
				return time.Time{}, ErrTimeout
			}
			continue
		}
		frame = append(frame, buf[:n]...)
		if len(frame) == frameLen {
			break
		}
		if time.Now().After(deadline) {
			return time.Time{}, ErrTimeout
		}
	}
	t := time.Now()
	seq, err := checkFrame(frame)
	if err != nil {
		return time.Time{}, err
	}
	s.lastSeq = int(seq)
	return t, nil
}

// LastSeq returns the sequence byte of the most recent valid frame, or -1
// if none has been read.  A gap between consecutive values means the
// repeater saw edges that were never waited on.
func (s *SerialRepeater) LastSeq() int {
	return s.lastSeq
}

// Close closes the serial port
func (s *SerialRepeater) Close() error {
	return s.port.Close()
}
