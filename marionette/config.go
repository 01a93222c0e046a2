package marionette

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-marionette/logger"
	"github.com/arloliu/go-marionette/transport"
)

// Default session settings.
const (
	// DefaultReadTimeout is the interactive per-line read timeout.
	DefaultReadTimeout = 3 * time.Second
	// BatchReadTimeout is the shorter timeout used by batch tooling.
	BatchReadTimeout = 2 * time.Second
	// DefaultSettleDelay is the pause after the open handshake before input is flushed.
	DefaultSettleDelay = 200 * time.Millisecond
)

// Setting range limits.
const (
	MinReadTimeout = 10 * time.Millisecond
	MaxReadTimeout = 5 * time.Minute

	MaxSettleDelay = 10 * time.Second

	MaxAcquireAttempts = 20
)

// SessionConfig holds all configuration of a Session.
type SessionConfig struct {
	readTimeout time.Duration
	settleDelay time.Duration
	handshake   bool

	mode    transport.Mode
	opener  transport.Opener
	acquire transport.AcquirePolicy

	logger logger.Logger
}

// NewSessionConfig creates a session configuration.
//
// The defaults open a local serial device at 115200 8N1 with parity
// priming, a 3s read timeout, the mshell handshake, and a no-op logger.
func NewSessionConfig(opts ...Option) (*SessionConfig, error) {
	cfg := &SessionConfig{
		readTimeout: DefaultReadTimeout,
		settleDelay: DefaultSettleDelay,
		handshake:   true,
		mode:        transport.DefaultMode(),
		opener:      transport.SerialOpener{},
		acquire:     transport.DefaultAcquirePolicy(),
		logger:      logger.NewNop(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// ReadTimeout returns the per-line read timeout.
func (cfg *SessionConfig) ReadTimeout() time.Duration { return cfg.readTimeout }

// SettleDelay returns the pause after the open handshake.
func (cfg *SessionConfig) SettleDelay() time.Duration { return cfg.settleDelay }

// Handshake reports whether Open performs the non-interactive shell handshake.
func (cfg *SessionConfig) Handshake() bool { return cfg.handshake }

// Mode returns the line settings used when opening the port.
func (cfg *SessionConfig) Mode() transport.Mode { return cfg.mode }

// Opener returns the opener used to acquire the port.
func (cfg *SessionConfig) Opener() transport.Opener { return cfg.opener }

// AcquirePolicy returns the acquire-with-retry policy.
func (cfg *SessionConfig) AcquirePolicy() transport.AcquirePolicy { return cfg.acquire }

// GetLogger returns the configured logger.
func (cfg *SessionConfig) GetLogger() logger.Logger { return cfg.logger }

// Option is a functional option for configuring a SessionConfig.
type Option interface {
	apply(*SessionConfig) error
}

type optFunc func(*SessionConfig) error

func (f optFunc) apply(cfg *SessionConfig) error { return f(cfg) }

// WithReadTimeout sets the per-line read timeout. Range: 10ms–5m.
func WithReadTimeout(d time.Duration) Option {
	return optFunc(func(cfg *SessionConfig) error {
		if d < MinReadTimeout || d > MaxReadTimeout {
			return fmt.Errorf("marionette: read timeout %v out of range [%v, %v]", d, MinReadTimeout, MaxReadTimeout)
		}
		cfg.readTimeout = d

		return nil
	})
}

// WithSettleDelay sets the pause after the handshake. Range: 0–10s.
func WithSettleDelay(d time.Duration) Option {
	return optFunc(func(cfg *SessionConfig) error {
		if d < 0 || d > MaxSettleDelay {
			return fmt.Errorf("marionette: settle delay %v out of range [0, %v]", d, MaxSettleDelay)
		}
		cfg.settleDelay = d

		return nil
	})
}

// WithHandshake enables or disables the open handshake. Enabled by default.
func WithHandshake(enabled bool) Option {
	return optFunc(func(cfg *SessionConfig) error {
		cfg.handshake = enabled
		return nil
	})
}

// WithMode sets the serial line settings.
func WithMode(mode transport.Mode) Option {
	return optFunc(func(cfg *SessionConfig) error {
		if err := mode.Validate(); err != nil {
			return err
		}
		cfg.mode = mode

		return nil
	})
}

// WithBaudRate sets only the baud rate of the line settings.
func WithBaudRate(baud int) Option {
	return optFunc(func(cfg *SessionConfig) error {
		mode := cfg.mode
		mode.BaudRate = baud
		if err := mode.Validate(); err != nil {
			return err
		}
		cfg.mode = mode

		return nil
	})
}

// WithOpener sets how ports are opened, e.g. transport.DialOpener for a TCP bridge.
func WithOpener(opener transport.Opener) Option {
	return optFunc(func(cfg *SessionConfig) error {
		if opener == nil {
			return transport.ErrOpenerNil
		}
		cfg.opener = opener

		return nil
	})
}

// WithAcquireAttempts sets how many times Open tries to open the port. Range: 1–20.
func WithAcquireAttempts(n int) Option {
	return optFunc(func(cfg *SessionConfig) error {
		if n < 1 || n > MaxAcquireAttempts {
			return fmt.Errorf("marionette: acquire attempts %d out of range [1, %d]", n, MaxAcquireAttempts)
		}
		cfg.acquire.Attempts = n

		return nil
	})
}

// WithAcquireRetryDelay sets the pause between open attempts.
func WithAcquireRetryDelay(d time.Duration) Option {
	return optFunc(func(cfg *SessionConfig) error {
		if d < 0 {
			return fmt.Errorf("marionette: negative acquire retry delay %v", d)
		}
		cfg.acquire.RetryDelay = d

		return nil
	})
}

// WithParityPriming enables or disables the alternate-parity priming open.
// Enabled by default.
func WithParityPriming(enabled bool) Option {
	return optFunc(func(cfg *SessionConfig) error {
		cfg.acquire.PrimeAlternate = enabled
		return nil
	})
}

// WithLogger sets the logger receiving device log lines and session events.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *SessionConfig) error {
		if l == nil {
			return errors.New("marionette: logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
