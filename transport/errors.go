package transport

import "errors"

var (
	// ErrReadTimeout indicates no complete line arrived within the read timeout.
	ErrReadTimeout = errors.New("transport: read timeout")

	// ErrClosed indicates the port was closed, locally or by the peer.
	ErrClosed = errors.New("transport: port closed")

	// ErrPortBusy indicates the port identifier is already claimed by another session.
	ErrPortBusy = errors.New("transport: port already claimed")

	// ErrLineTooLong indicates the peer sent more than MaxLineLength bytes without a terminator.
	ErrLineTooLong = errors.New("transport: line too long")

	// ErrOpenerNil indicates that a nil Opener was provided.
	ErrOpenerNil = errors.New("transport: opener is nil")
)
