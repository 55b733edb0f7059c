package aigw

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultMaxRetries is the number of additional attempts after the
// first failure.
const DefaultMaxRetries = 4

// DefaultBaseDelay is the initial backoff interval; each retry doubles
// it (1s, 2s, 4s, 8s, ...).
const DefaultBaseDelay = time.Second

// Supervisor wraps upstream calls with bounded exponential-backoff
// retries. Only transient parse failures (empty, malformed, or
// truncated model output) are retried; auth, quota, and connectivity
// failures propagate immediately. This is the single home of retry
// logic — callers never layer their own.
type Supervisor struct {
	MaxRetries uint64
	BaseDelay  time.Duration

	// timer overrides the backoff sleep source in tests.
	timer backoff.Timer
}

// NewSupervisor returns a supervisor with the default policy.
func NewSupervisor() *Supervisor {
	return &Supervisor{MaxRetries: DefaultMaxRetries, BaseDelay: DefaultBaseDelay}
}

// Do invokes op, retrying transient failures with exponential backoff
// until success, a fatal error, or retry exhaustion (which re-raises
// the last transient error). Backoff sleeps are scheduled on a timer,
// not a blocking spin, so concurrent work proceeds.
func (s *Supervisor) Do(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.BaseDelay
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxInterval = s.BaseDelay << s.MaxRetries
	policy.MaxElapsedTime = 0 // bounded by attempt count, not wall clock

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(policy, s.MaxRetries), ctx)
	return backoff.RetryNotifyWithTimer(wrapped, b, nil, s.timer)
}
