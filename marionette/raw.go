package marionette

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/arloliu/go-marionette/transport"
)

// RawPort gives exclusive raw line access to an open Session, bypassing
// the response decoder. It is the transport side of the streaming regime:
// one goroutine may call ReadLine while another calls WriteLine.
//
// While a RawPort is held, Command fails with ErrStreaming. Release returns
// the session to the synchronous regime.
type RawPort struct {
	s    *Session
	lt   *transport.LineTransport
	once sync.Once
}

// Raw takes the session's in-flight lock and returns a RawPort.
// It fails with ErrBusy if a command is in flight and with ErrStreaming if
// another RawPort is held.
func (s *Session) Raw() (*RawPort, error) {
	if !s.IsOpen() {
		return nil, ErrNotOpen
	}
	if s.streaming.Load() {
		return nil, ErrStreaming
	}
	if !s.cmdMu.TryLock() {
		return nil, ErrBusy
	}

	lt := s.getPort()
	if lt == nil {
		s.cmdMu.Unlock()
		return nil, ErrNotOpen
	}

	s.streaming.Store(true)

	return &RawPort{s: s, lt: lt}, nil
}

// ReadLine reads one line with the session read timeout. An empty line is
// valid. A timeout returns an error matching ErrReadTimeout and leaves the
// session open; any other failure closes the session.
func (r *RawPort) ReadLine() (string, error) {
	return r.s.readLine(r.lt)
}

// WriteLine writes line followed by CRLF. A trailing terminator already
// present in line is not duplicated; embedded line breaks are rejected.
func (r *RawPort) WriteLine(line string) error {
	line = strings.TrimRight(line, LineTerminator)
	if strings.ContainsAny(line, LineTerminator) {
		return fmt.Errorf("%w: raw line %q contains a line break", ErrInvalidArgument, line)
	}

	return r.s.writeLine(r.lt, line+LineTerminator)
}

// ReadTimeout returns the timeout applied by ReadLine.
func (r *RawPort) ReadTimeout() time.Duration {
	return r.s.cfg.readTimeout
}

// Session returns the owning session.
func (r *RawPort) Session() *Session { return r.s }

// Release hands the session back to the synchronous regime. Later calls
// are no-ops.
func (r *RawPort) Release() {
	r.once.Do(func() {
		r.s.streaming.Store(false)
		r.s.cmdMu.Unlock()
	})
}
