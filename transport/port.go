package transport

import (
	"fmt"
	"io"
	"time"
)

// Default line settings of a Marionette fixture.
const (
	DefaultBaudRate = 115200
	// HighSpeedBaudRate is the documented alternate rate for high sample-rate exercises.
	HighSpeedBaudRate = 921600
	DefaultDataBits   = 8
)

// Port is a raw ordered byte stream.
//
// Read must honor the timeout set by SetReadTimeout and return (0, nil)
// when it expires without data, matching go.bug.st/serial semantics.
type Port interface {
	io.ReadWriteCloser
	// SetReadTimeout sets the maximum time a single Read blocks.
	SetReadTimeout(t time.Duration) error
	// ResetInputBuffer discards data received but not yet read.
	ResetInputBuffer() error
}

// Parity is the serial parity setting.
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	default:
		return fmt.Sprintf("Parity(%d)", int(p))
	}
}

// Mode describes how a port is configured when opened.
type Mode struct {
	BaudRate int
	DataBits int
	Parity   Parity
	// StopBits is 1 or 2.
	StopBits int
}

// DefaultMode returns 115200 8N1.
func DefaultMode() Mode {
	return Mode{
		BaudRate: DefaultBaudRate,
		DataBits: DefaultDataBits,
		Parity:   ParityNone,
		StopBits: 1,
	}
}

// Alternate returns a copy of m with a trivially different parity setting.
// It is used to prime devices that reject the first open.
func (m Mode) Alternate() Mode {
	alt := m
	if m.Parity == ParityNone {
		alt.Parity = ParityOdd
	} else {
		alt.Parity = ParityNone
	}

	return alt
}

// Validate checks the mode for values no serial driver accepts.
func (m Mode) Validate() error {
	if m.BaudRate <= 0 {
		return fmt.Errorf("transport: invalid baud rate %d", m.BaudRate)
	}
	if m.DataBits < 5 || m.DataBits > 8 {
		return fmt.Errorf("transport: data bits %d out of range [5, 8]", m.DataBits)
	}
	if m.StopBits != 1 && m.StopBits != 2 {
		return fmt.Errorf("transport: stop bits must be 1 or 2, got %d", m.StopBits)
	}
	if m.Parity < ParityNone || m.Parity > ParityEven {
		return fmt.Errorf("transport: invalid parity %s", m.Parity)
	}

	return nil
}

func (m Mode) String() string {
	return fmt.Sprintf("%d/%d/%s/%d", m.BaudRate, m.DataBits, m.Parity, m.StopBits)
}

// Opener opens a Port by identifier (device path, COM name, or host:port).
type Opener interface {
	Open(name string, mode Mode) (Port, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(name string, mode Mode) (Port, error)

func (f OpenerFunc) Open(name string, mode Mode) (Port, error) { return f(name, mode) }
