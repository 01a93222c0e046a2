package marionette

import "strings"

// Fixture addressing limits.
const (
	FirstPort = 'a'
	LastPort  = 'i'
	PinCount  = 16
)

// NormalizePort returns the single lower-case letter identifying port.
// Both "h" and "PortH" are accepted.
func NormalizePort(port string) (string, error) {
	p := strings.ToLower(strings.TrimSpace(port))
	p = strings.TrimPrefix(p, "port")

	if len(p) != 1 || p[0] < FirstPort || p[0] > LastPort {
		return "", &PortPinError{Port: port, InvalidPort: true}
	}

	return p, nil
}

// CheckPortPin validates a port identifier and pin index before a command
// is sent. It returns a *PortPinError matching ErrPort or ErrPin.
func CheckPortPin(port string, pin int) error {
	if _, err := NormalizePort(port); err != nil {
		return &PortPinError{Port: port, Pin: pin, InvalidPort: true}
	}

	if pin < 0 || pin >= PinCount {
		return &PortPinError{Port: port, Pin: pin}
	}

	return nil
}
