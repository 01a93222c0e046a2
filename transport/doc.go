// Package transport provides the byte-stream plumbing underneath a Marionette
// session.
//
// A Port is a raw, ordered byte stream with a configurable read timeout: a
// serial device opened through SerialOpener (go.bug.st/serial), or a TCP
// serial bridge opened through DialOpener. LineTransport frames a Port into
// CRLF-terminated lines with timeout-bounded reads.
//
// # Line reads
//
// ReadLine blocks until a full line arrives or the timeout elapses. A line
// consisting only of a terminator is returned as an empty string with a nil
// error. A timeout returns ErrReadTimeout; bytes received without a
// terminator stay buffered for the next read so a slow sender never loses
// data.
//
// # Acquisition
//
// Some USB CDC serial devices refuse the first open after enumeration.
// Acquire consolidates the known workaround: optionally open and close the
// device once with the alternate parity setting, then open it with the real
// mode, retrying a bounded number of times.
//
// # Ownership
//
// Claim records which port identifiers are owned by this process so two
// sessions can never drive the same device concurrently.
package transport
