package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-marionette/internal/pool"
	"github.com/arloliu/go-marionette/logger"
	"github.com/arloliu/go-marionette/marionette"
	"github.com/arloliu/go-marionette/transport"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrStarted is returned by Start on a Streamer that already ran.
	ErrStarted = errors.New("stream: already started")
	// ErrNilPort is returned by New when no port is given.
	ErrNilPort = errors.New("stream: nil port")
)

// LinePort is the raw line access a Streamer needs. *marionette.RawPort
// implements it.
//
// ReadLine must return within a bounded time; an error matching
// marionette.ErrReadTimeout or transport.ErrReadTimeout means no line
// arrived and the reader simply retries.
type LinePort interface {
	ReadLine() (string, error)
	WriteLine(line string) error
}

// LineHandler receives each non-empty line read from the fixture. It runs on
// the reader goroutine.
type LineHandler func(line string)

// Option configures a Streamer.
type Option func(*Streamer)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logger.Logger) Option {
	return func(s *Streamer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHandler replaces the default handler, which logs each line at info level.
func WithHandler(h LineHandler) Option {
	return func(s *Streamer) {
		if h != nil {
			s.handler = h
		}
	}
}

// WithDrain keeps the reader running for d after the script completes, so
// trailing output is not lost. Wait honors it; Stop does not.
func WithDrain(d time.Duration) Option {
	return func(s *Streamer) {
		if d > 0 {
			s.drain = d
		}
	}
}

// Streamer runs one script over a LinePort with a reader and a writer goroutine.
//
// A Streamer is single use: Start it once, then call Wait or Stop.
type Streamer struct {
	port    LinePort
	logger  logger.Logger
	handler LineHandler
	drain   time.Duration
	runID   string

	// alive is cleared by Stop and by a transport fault; both tasks observe it.
	alive atomic.Bool
	// readerAlive is cleared only to stop the reader after the writer was joined.
	readerAlive atomic.Bool
	started     atomic.Bool

	stop     chan struct{}
	stopOnce sync.Once

	writer errgroup.Group
	reader errgroup.Group

	lines   atomic.Uint64
	written atomic.Uint64
}

// New creates a Streamer over port.
func New(port LinePort, opts ...Option) (*Streamer, error) {
	if port == nil {
		return nil, ErrNilPort
	}

	s := &Streamer{
		port:   port,
		logger: logger.NewNop(),
		runID:  ulid.Make().String(),
		stop:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With("run_id", s.runID)
	if s.handler == nil {
		l := s.logger
		s.handler = func(line string) { l.Info(line) }
	}

	return s, nil
}

// RunID identifies this run in log output.
func (s *Streamer) RunID() string { return s.runID }

// Lines returns how many non-empty lines the reader has relayed.
func (s *Streamer) Lines() uint64 { return s.lines.Load() }

// Written returns how many script lines were sent.
func (s *Streamer) Written() uint64 { return s.written.Load() }

// Alive reports whether the run is active and no fault occurred.
func (s *Streamer) Alive() bool { return s.alive.Load() }

// Start launches the reader and writer goroutines and returns immediately.
func (s *Streamer) Start(script Script) error {
	if err := script.Validate(); err != nil {
		return err
	}

	if !s.started.CompareAndSwap(false, true) {
		return ErrStarted
	}

	s.alive.Store(true)
	s.readerAlive.Store(true)

	s.logger.Info("stream: started", "steps", len(script), "duration", script.Duration().String())

	s.reader.Go(s.readLoop)
	s.writer.Go(func() error { return s.writeLoop(script) })

	return nil
}

// Wait blocks until the script has been written, waits for the drain
// period, then stops and joins the reader. It returns the errors of both
// tasks, joined.
func (s *Streamer) Wait() error {
	if !s.started.Load() {
		return nil
	}

	werr := s.writer.Wait()

	if s.drain > 0 && s.alive.Load() {
		pool.Sleep(s.stop, s.drain)
	}

	return s.joinReader(werr)
}

// Stop interrupts the script, joins the writer, then stops and joins the
// reader. Stop may be called more than once and concurrently with Wait.
func (s *Streamer) Stop() error {
	if !s.started.Load() {
		return nil
	}

	s.alive.Store(false)
	s.stopOnce.Do(func() { close(s.stop) })

	werr := s.writer.Wait()

	return s.joinReader(werr)
}

func (s *Streamer) joinReader(werr error) error {
	s.readerAlive.Store(false)
	rerr := s.reader.Wait()
	s.alive.Store(false)

	s.logger.Info("stream: finished", "lines", s.lines.Load(), "written", s.written.Load())

	return errors.Join(werr, rerr)
}

func (s *Streamer) readLoop() error {
	for s.alive.Load() && s.readerAlive.Load() {
		line, err := s.port.ReadLine()
		if err != nil {
			if isTimeout(err) {
				continue
			}

			if errors.Is(err, transport.ErrLineTooLong) {
				s.logger.Warn("stream: dropped over-long line", "error", err)
				continue
			}

			// a fault ends the whole run, not just the reader
			if s.alive.Swap(false) {
				s.logger.Error("stream: read failed", "error", err)
			}
			s.stopOnce.Do(func() { close(s.stop) })

			return fmt.Errorf("stream: read: %w", err)
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		s.lines.Add(1)
		s.handler(line)
	}

	return nil
}

func (s *Streamer) writeLoop(script Script) error {
	for i, step := range script {
		if !s.alive.Load() {
			return nil
		}

		if err := s.port.WriteLine(step.Line); err != nil {
			s.alive.Store(false)
			s.logger.Error("stream: write failed", "step", i+1, "error", err)

			return fmt.Errorf("stream: write step %d: %w", i+1, err)
		}

		s.written.Add(1)
		s.logger.Debug("stream: tx", "step", i+1, "line", step.Line)

		if !pool.Sleep(s.stop, step.Delay) {
			return nil
		}
	}

	return nil
}

func isTimeout(err error) bool {
	return errors.Is(err, marionette.ErrReadTimeout) || errors.Is(err, transport.ErrReadTimeout)
}

// RunSession takes the raw line handle of sess, runs script to completion
// and hands the session back to synchronous use.
//
// Cancelling ctx stops the run early. The session stays open unless the
// transport faulted.
func RunSession(ctx context.Context, sess *marionette.Session, script Script, opts ...Option) error {
	raw, err := sess.Raw()
	if err != nil {
		return err
	}
	defer raw.Release()

	opts = append([]Option{WithLogger(sess.GetLogger())}, opts...)

	s, err := New(raw, opts...)
	if err != nil {
		return err
	}

	if err := s.Start(script); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- s.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		stopErr := s.Stop()
		<-done

		return errors.Join(ctx.Err(), stopErr)
	}
}
