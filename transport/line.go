package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MaxLineLength is the longest line accepted before ErrLineTooLong.
const MaxLineLength = 4096

// LineTransport frames a Port into CRLF terminated lines.
//
// ReadLine and Flush must be called from one goroutine at a time; Write
// may run concurrently with them. Close may be called from any goroutine
// and unblocks a pending ReadLine.
type LineTransport struct {
	port Port

	pending []byte
	buf     []byte

	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewLineTransport wraps port.
func NewLineTransport(port Port) *LineTransport {
	return &LineTransport{
		port:    port,
		pending: make([]byte, 0, 256),
		buf:     make([]byte, 256),
	}
}

// ReadLine returns the next line with its CR/LF terminator removed.
//
// An empty line is a valid result. If no terminator arrives within timeout
// the call fails with ErrReadTimeout and any partial data is kept for the
// next call.
func (t *LineTransport) ReadLine(timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)

	for {
		if i := bytes.IndexByte(t.pending, '\n'); i >= 0 {
			line := strings.TrimRight(string(t.pending[:i]), "\r")
			t.pending = append(t.pending[:0], t.pending[i+1:]...)

			return line, nil
		}

		if len(t.pending) > MaxLineLength {
			n := len(t.pending)
			t.pending = t.pending[:0]

			return "", fmt.Errorf("%w: %d bytes without terminator", ErrLineTooLong, n)
		}

		if t.closed.Load() {
			return "", ErrClosed
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			if len(t.pending) > 0 {
				return "", fmt.Errorf("%w: %d bytes without terminator", ErrReadTimeout, len(t.pending))
			}

			return "", ErrReadTimeout
		}

		if err := t.port.SetReadTimeout(remaining); err != nil {
			return "", t.wrapErr("set read timeout", err)
		}

		n, err := t.port.Read(t.buf)
		t.pending = append(t.pending, t.buf[:n]...)

		if err != nil {
			return "", t.wrapErr("read", err)
		}
	}
}

// Write writes p to the port in full.
func (t *LineTransport) Write(p []byte) (int, error) {
	if t.closed.Load() {
		return 0, ErrClosed
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	for written := 0; written < len(p); {
		n, err := t.port.Write(p[written:])
		written += n

		if err != nil {
			return written, t.wrapErr("write", err)
		}
	}

	return len(p), nil
}

// WriteString writes s to the port.
func (t *LineTransport) WriteString(s string) error {
	_, err := t.Write([]byte(s))
	return err
}

// Flush discards buffered partial data and any input pending in the port.
func (t *LineTransport) Flush() error {
	t.pending = t.pending[:0]

	if t.closed.Load() {
		return ErrClosed
	}

	if err := t.port.ResetInputBuffer(); err != nil {
		return t.wrapErr("reset input", err)
	}

	return nil
}

// Close closes the port. Only the first call closes it; later calls return
// the first result.
func (t *LineTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		t.closeErr = t.port.Close()
	})

	return t.closeErr
}

// IsClosed reports whether Close has been called.
func (t *LineTransport) IsClosed() bool {
	return t.closed.Load()
}

func (t *LineTransport) wrapErr(op string, err error) error {
	if t.closed.Load() || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%w: %s: %w", ErrClosed, op, err)
	}

	return fmt.Errorf("transport: %s: %w", op, err)
}
