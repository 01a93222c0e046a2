package marionette

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Errors returned by Session operations match one of them with errors.Is.
var (
	// ErrIO covers a session that is not open, a read timeout, and transport faults.
	ErrIO = errors.New("marionette: i/o error")

	// ErrResult indicates the device reported one or more application errors.
	// The concrete error is a *ResultError.
	ErrResult = errors.New("marionette: device reported error")

	// ErrFormat indicates a response line violating the tag grammar.
	// The concrete error is a *FormatError.
	ErrFormat = errors.New("marionette: invalid line format")

	// ErrPortPin indicates an invalid port or pin supplied by the caller.
	// The concrete error is a *PortPinError.
	ErrPortPin = errors.New("marionette: invalid port/pin")
)

var (
	// ErrPort is the ErrPortPin specialization for an invalid port identifier.
	ErrPort = fmt.Errorf("%w: invalid port", ErrPortPin)
	// ErrPin is the ErrPortPin specialization for an invalid pin index.
	ErrPin = fmt.Errorf("%w: invalid pin", ErrPortPin)
)

var (
	// ErrNotOpen indicates the session has no open transport.
	ErrNotOpen = fmt.Errorf("%w: port not open", ErrIO)
	// ErrAlreadyOpen indicates Open was called on a session that is not closed.
	ErrAlreadyOpen = fmt.Errorf("%w: port already open", ErrIO)
	// ErrReadTimeout indicates no response line arrived within the read timeout.
	ErrReadTimeout = fmt.Errorf("%w: read timeout", ErrIO)
	// ErrStreaming indicates a raw streaming handle currently owns the session.
	ErrStreaming = fmt.Errorf("%w: session is streaming", ErrIO)
	// ErrBusy indicates a command is in flight so a streaming handle cannot be taken.
	ErrBusy = fmt.Errorf("%w: command in flight", ErrIO)
)

// ErrInvalidArgument indicates a command name or argument that cannot be
// framed safely. It is raised before anything is written.
var ErrInvalidArgument = errors.New("marionette: invalid command argument")

// ResultError carries the error lines a device reported for one command,
// in the order they were received.
type ResultError struct {
	Errors []string
}

func (e *ResultError) Error() string {
	return strings.Join(e.Errors, "\n")
}

// Is reports whether target is ErrResult.
func (e *ResultError) Is(target error) bool {
	return target == ErrResult
}

// FormatError describes a response line that violates the tag grammar.
type FormatError struct {
	Line   string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Line == "" {
		return fmt.Sprintf("marionette: %s", e.Reason)
	}

	return fmt.Sprintf("marionette: %s: %q", e.Reason, e.Line)
}

// Is reports whether target is ErrFormat.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// PortPinError describes an out of range port or pin.
type PortPinError struct {
	Port string
	Pin  int
	// InvalidPort is true when the port identifier was rejected, false when the pin was.
	InvalidPort bool
}

func (e *PortPinError) Error() string {
	if e.InvalidPort {
		return fmt.Sprintf("marionette: invalid port %q, want one of a..i", e.Port)
	}

	return fmt.Sprintf("marionette: invalid pin %d, want [0, %d)", e.Pin, PinCount)
}

// Is matches ErrPortPin and the ErrPort or ErrPin specialization.
func (e *PortPinError) Is(target error) bool {
	switch target {
	case ErrPortPin:
		return true
	case ErrPort:
		return e.InvalidPort
	case ErrPin:
		return !e.InvalidPort
	default:
		return false
	}
}

func newFormatError(line, reason string) error {
	return &FormatError{Line: line, Reason: reason}
}
