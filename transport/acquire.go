package transport

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-marionette/internal/pool"
	"github.com/arloliu/go-marionette/logger"
)

// Default acquisition policy.
const (
	DefaultAcquireAttempts   = 3
	DefaultAcquireRetryDelay = 250 * time.Millisecond
)

// AcquirePolicy controls Acquire.
type AcquirePolicy struct {
	// Attempts is the number of real open attempts. Values below 1 mean 1.
	Attempts int
	// RetryDelay is the pause between failed attempts.
	RetryDelay time.Duration
	// PrimeAlternate opens and closes the port with Mode.Alternate() before
	// each real attempt. Some CDC-ACM stacks only accept the real open after this.
	PrimeAlternate bool
	// OnRetry, if set, is called after each failed attempt that will be retried.
	OnRetry func(attempt int, err error)
}

// DefaultAcquirePolicy returns the policy used when a session is not configured otherwise.
func DefaultAcquirePolicy() AcquirePolicy {
	return AcquirePolicy{
		Attempts:       DefaultAcquireAttempts,
		RetryDelay:     DefaultAcquireRetryDelay,
		PrimeAlternate: true,
	}
}

// Acquire opens name with mode following policy.
func Acquire(opener Opener, name string, mode Mode, policy AcquirePolicy, l logger.Logger) (Port, error) {
	if opener == nil {
		return nil, ErrOpenerNil
	}
	if l == nil {
		l = logger.NewNop()
	}

	attempts := max(policy.Attempts, 1)

	var errs error
	for attempt := 1; attempt <= attempts; attempt++ {
		if policy.PrimeAlternate {
			prime(opener, name, mode.Alternate(), l)
		}

		p, err := opener.Open(name, mode)
		if err == nil {
			if attempt > 1 {
				l.Info("transport: port acquired after retry", "port", name, "attempt", attempt)
			}

			return p, nil
		}

		errs = errors.Join(errs, err)
		l.Warn("transport: failed to open port", "port", name, "attempt", attempt, "error", err)

		if attempt == attempts {
			break
		}

		if policy.OnRetry != nil {
			policy.OnRetry(attempt, err)
		}

		pool.Sleep(nil, policy.RetryDelay)
	}

	return nil, fmt.Errorf("transport: acquire %s failed after %d attempt(s): %w", name, attempts, errs)
}

func prime(opener Opener, name string, alt Mode, l logger.Logger) {
	p, err := opener.Open(name, alt)
	if err != nil {
		l.Debug("transport: priming open failed", "port", name, "mode", alt.String(), "error", err)
		return
	}

	if err := p.Close(); err != nil {
		l.Debug("transport: priming close failed", "port", name, "error", err)
	}
}
