package transport

import (
	"fmt"

	"go.bug.st/serial"
)

// SerialOpener opens local serial devices.
type SerialOpener struct{}

var _ Opener = SerialOpener{}

// Open opens the serial device name with mode.
func (SerialOpener) Open(name string, mode Mode) (Port, error) {
	if err := mode.Validate(); err != nil {
		return nil, err
	}

	p, err := serial.Open(name, toSerialMode(mode))
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", name, err)
	}

	return p, nil
}

// ListPorts returns the serial devices present on the system.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("transport: list ports: %w", err)
	}

	return ports, nil
}

func toSerialMode(m Mode) *serial.Mode {
	sm := &serial.Mode{
		BaudRate: m.BaudRate,
		DataBits: m.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	switch m.Parity {
	case ParityOdd:
		sm.Parity = serial.OddParity
	case ParityEven:
		sm.Parity = serial.EvenParity
	case ParityNone:
	}

	if m.StopBits == 2 {
		sm.StopBits = serial.TwoStopBits
	}

	return sm
}
