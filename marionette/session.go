package marionette

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/arloliu/go-marionette/internal/pool"
	"github.com/arloliu/go-marionette/logger"
	"github.com/arloliu/go-marionette/transport"
	"github.com/oklog/ulid/v2"
)

// handshakeLines switch the device shell into non-interactive, line
// oriented mode.
var handshakeLines = []string{
	LineTerminator,
	"+noecho" + LineTerminator,
	"+noprompt" + LineTerminator,
	LineTerminator,
}

// Session drives one Marionette fixture over an exclusively owned transport.
//
// At most one command is in flight per Session: concurrent Command calls
// are serialized by an internal lock. A Session is either in the
// synchronous regime (Command) or in the streaming regime (Raw); the two
// never run against the transport at the same time.
type Session struct {
	cfg    *SessionConfig
	logger logger.Logger

	opState AtomicOpState

	// cmdMu is the in-flight command lock; a RawPort holds it for its lifetime.
	cmdMu     sync.Mutex
	streaming atomic.Bool

	portMu  sync.RWMutex
	port    *transport.LineTransport
	name    string
	release func()

	metrics SessionMetrics
}

// NewSession creates a closed Session. A nil cfg uses the defaults of NewSessionConfig.
func NewSession(cfg *SessionConfig) (*Session, error) {
	if cfg == nil {
		var err error
		if cfg, err = NewSessionConfig(); err != nil {
			return nil, err
		}
	}

	s := &Session{
		cfg:    cfg,
		logger: cfg.logger,
	}
	s.opState.Set(ClosedState)

	return s, nil
}

// Connect creates a Session and opens name.
func Connect(name string, cfg *SessionConfig) (*Session, error) {
	s, err := NewSession(cfg)
	if err != nil {
		return nil, err
	}

	if err := s.Open(name); err != nil {
		return nil, err
	}

	return s, nil
}

// Name returns the identifier of the open port, or "" when closed.
func (s *Session) Name() string {
	s.portMu.RLock()
	defer s.portMu.RUnlock()

	return s.name
}

// State returns the lifecycle state.
func (s *Session) State() OpState { return s.opState.Get() }

// IsOpen reports whether the session is open.
func (s *Session) IsOpen() bool { return s.opState.IsOpened() }

// Config returns the session configuration.
func (s *Session) Config() *SessionConfig { return s.cfg }

// GetLogger returns the session logger.
func (s *Session) GetLogger() logger.Logger { return s.logger }

// Metrics returns the session metrics.
func (s *Session) Metrics() *SessionMetrics { return &s.metrics }

// Open claims and opens the port identified by name, then runs the
// handshake unless it is disabled.
//
// It fails with ErrAlreadyOpen unless the session is closed. Port
// acquisition goes through transport.Acquire, so devices that reject the
// first open are retried per the configured policy.
func (s *Session) Open(name string) error {
	if !s.opState.ToOpening() {
		return fmt.Errorf("%w: state %s", ErrAlreadyOpen, s.opState.String())
	}

	l := s.logger.With("port", name)

	release, err := transport.Claim(name)
	if err != nil {
		s.opState.Set(ClosedState)
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	policy := s.cfg.acquire
	policy.OnRetry = func(int, error) { s.metrics.incAcquireRetry() }

	port, err := transport.Acquire(s.cfg.opener, name, s.cfg.mode, policy, l)
	if err != nil {
		release()
		s.opState.Set(ClosedState)

		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	lt := transport.NewLineTransport(port)

	s.portMu.Lock()
	s.port = lt
	s.name = name
	s.release = release
	s.portMu.Unlock()

	if s.cfg.handshake {
		if err := s.handshake(lt); err != nil {
			s.abortOpen(lt)
			l.Error("marionette: handshake failed", "error", err)

			return fmt.Errorf("%w: handshake: %w", ErrIO, err)
		}
	}

	if !s.opState.ToOpened() {
		s.abortOpen(lt)
		return fmt.Errorf("%w: session closed while opening", ErrIO)
	}

	l.Info("marionette: session opened", "mode", s.cfg.mode.String())

	return nil
}

// abortOpen undoes a failed Open. The opening goroutine owns the state
// until it is back to Closed, even if Close ran in between.
func (s *Session) abortOpen(lt *transport.LineTransport) {
	var release func()

	s.portMu.Lock()
	if s.port == lt {
		release = s.release
		s.port, s.release, s.name = nil, nil, ""
	}
	s.portMu.Unlock()

	_ = lt.Close()
	if release != nil {
		release()
	}

	s.opState.Set(ClosedState)
}

func (s *Session) handshake(lt *transport.LineTransport) error {
	for _, line := range handshakeLines {
		if err := lt.WriteString(line); err != nil {
			return err
		}
		s.metrics.incLineSendCount()
	}

	pool.Sleep(nil, s.cfg.settleDelay)

	return lt.Flush()
}

// Close releases the transport and marks the session closed.
//
// Close is idempotent and safe after a failed Open. A command in flight on
// another goroutine is aborted and fails with ErrIO. Closing a session that
// is still opening makes that Open fail; the session reaches Closed when
// the Open call returns.
func (s *Session) Close() error {
	from, ok := s.opState.ToClosing()
	if !ok {
		return nil
	}

	lt, release, name := s.detach()

	var err error
	if lt != nil {
		err = lt.Close()
	}
	if release != nil {
		release()
	}

	if from == OpeningState {
		s.logger.Info("marionette: open aborted by close", "port", name)
		return nil
	}

	s.opState.Set(ClosedState)
	s.logger.Info("marionette: session closed", "port", name)

	if err != nil {
		return fmt.Errorf("%w: close: %w", ErrIO, err)
	}

	return nil
}

// detach removes the transport from the session under the port lock.
func (s *Session) detach() (*transport.LineTransport, func(), string) {
	s.portMu.Lock()
	defer s.portMu.Unlock()

	lt, release, name := s.port, s.release, s.name
	s.port, s.release, s.name = nil, nil, ""

	return lt, release, name
}

// closeIf closes the session only if lt is still its transport.
func (s *Session) closeIf(lt *transport.LineTransport) {
	s.portMu.RLock()
	current := s.port
	s.portMu.RUnlock()

	if current == lt {
		_ = s.Close()
		return
	}

	_ = lt.Close()
}

func (s *Session) getPort() *transport.LineTransport {
	s.portMu.RLock()
	defer s.portMu.RUnlock()

	return s.port
}

// Command sends name with args and decodes the response.
// See Exec.
func (s *Session) Command(name string, args ...Arg) (ResultSet, error) {
	return s.Exec(NewCommand(name, args...))
}

// Exec sends cmd and blocks until its response terminates.
//
// The result set is returned only if the device answered "end:ok" with no
// error lines. Otherwise the error is a *ResultError (ErrResult), a
// *FormatError (ErrFormat), or an ErrIO error. A read timeout leaves the
// session open, as does a line longer than transport.MaxLineLength; any
// other transport failure closes it.
func (s *Session) Exec(cmd Command) (ResultSet, error) {
	req, err := cmd.Encode()
	if err != nil {
		return nil, err
	}

	if !s.IsOpen() {
		return nil, ErrNotOpen
	}
	if s.streaming.Load() {
		return nil, ErrStreaming
	}

	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	// re-check: the session may have changed while waiting for the lock
	if s.streaming.Load() {
		return nil, ErrStreaming
	}

	lt := s.getPort()
	if lt == nil || !s.IsOpen() {
		return nil, ErrNotOpen
	}

	l := s.logger.With("cmd", cmd.Name, "cmd_id", ulid.Make().String())

	s.metrics.incCommandCount()
	s.metrics.incInflight()
	defer s.metrics.decInflight()

	rs, err := s.roundTrip(lt, req, l)
	if err != nil {
		s.metrics.incCommandErrCount()
		l.Debug("marionette: command failed", "error", err)

		return nil, err
	}

	return rs, nil
}

func (s *Session) roundTrip(lt *transport.LineTransport, req []byte, l logger.Logger) (ResultSet, error) {
	if err := lt.Flush(); err != nil {
		return nil, s.fault(lt, "flush", err)
	}

	if _, err := lt.Write(req); err != nil {
		return nil, s.fault(lt, "write", err)
	}
	s.metrics.incLineSendCount()
	l.Debug("marionette: tx", "line", strings.TrimRight(string(req), LineTerminator))

	dec := NewDecoder(l)
	for {
		raw, err := s.readLine(lt)
		if err != nil {
			return nil, err
		}

		l.Debug("marionette: rx", "line", raw)

		if dec.Feed(raw) {
			return dec.Result()
		}
	}
}

// readLine performs one timeout-bounded read, classifying timeouts and faults.
func (s *Session) readLine(lt *transport.LineTransport) (string, error) {
	raw, err := lt.ReadLine(s.cfg.readTimeout)
	if err == nil {
		s.metrics.incLineRecvCount()
		return raw, nil
	}

	if errors.Is(err, transport.ErrReadTimeout) {
		s.metrics.incReadTimeoutCount()
		return "", fmt.Errorf("%w after %v: %w", ErrReadTimeout, s.cfg.readTimeout, err)
	}

	// an over-long line is dropped by the transport; the link itself is fine
	if errors.Is(err, transport.ErrLineTooLong) {
		return "", fmt.Errorf("%w: read: %w", ErrIO, err)
	}

	return "", s.fault(lt, "read", err)
}

// writeLine writes one raw line, closing the session on failure.
func (s *Session) writeLine(lt *transport.LineTransport, line string) error {
	if _, err := lt.Write([]byte(line)); err != nil {
		return s.fault(lt, "write", err)
	}
	s.metrics.incLineSendCount()

	return nil
}

// fault closes the session after a transport failure and wraps err as ErrIO.
func (s *Session) fault(lt *transport.LineTransport, op string, err error) error {
	if !lt.IsClosed() {
		s.metrics.incFaultCount()
		s.logger.Error("marionette: transport fault, closing session", "op", op, "error", err)
	}

	s.closeIf(lt)

	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}
