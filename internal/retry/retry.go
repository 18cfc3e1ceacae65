// Package retry wraps idempotent operations (upserts keyed by a stable
// conflict column) in a bounded, linearly increasing backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultAttempts  = 3
	DefaultBaseDelay = 500 * time.Millisecond
)

// Policy bounds a retry loop. The wait before attempt n+1 is n × BaseDelay.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
}

// DefaultPolicy is used for subscription sync and daily generation counters.
func DefaultPolicy() Policy {
	return Policy{Attempts: DefaultAttempts, BaseDelay: DefaultBaseDelay}
}

// Permanent marks err as not worth retrying; Do returns it unwrapped.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Notify is called after every failed attempt that will be retried.
type Notify func(attempt int, err error, wait time.Duration)

// Do runs op until it succeeds, returns a Permanent error, the attempts are
// exhausted, or ctx is done. The last error is returned.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error, notify Notify) error {
	if p.Attempts <= 0 {
		p.Attempts = DefaultAttempts
	}

	lin := &linearBackOff{base: p.BaseDelay}
	b := backoff.WithContext(backoff.WithMaxRetries(lin, uint64(p.Attempts-1)), ctx)

	return backoff.RetryNotify(func() error {
		return op(ctx)
	}, b, func(err error, wait time.Duration) {
		if notify != nil {
			notify(lin.attempt, err, wait)
		}
	})
}

type linearBackOff struct {
	base    time.Duration
	attempt int
}

func (l *linearBackOff) NextBackOff() time.Duration {
	l.attempt++
	return time.Duration(l.attempt) * l.base
}

func (l *linearBackOff) Reset() {
	l.attempt = 0
}
