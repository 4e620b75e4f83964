// Package backoff implements the exponential connect-retry delay used by the
// connection supervisor (spec §4.1). Per-association auto-task retries do not
// use it: a failed auto task is re-armed immediately. Grounded on
// `_examples/original_source/src/master/tcp/mod.rs`'s ExponentialBackOff.
package backoff

import "time"

// Strategy bounds the delay schedule.
type Strategy struct {
	MinDelay time.Duration
	MaxDelay time.Duration
}

// DefaultConnectStrategy matches the spec §4.1 default (1s, 10s).
func DefaultConnectStrategy() Strategy {
	return Strategy{MinDelay: time.Second, MaxDelay: 10 * time.Second}
}

// ExponentialBackoff doubles the delay on each consecutive failure,
// saturating at MaxDelay, and resets on success.
type ExponentialBackoff struct {
	strategy Strategy
	last     time.Duration
	armed    bool
}

func New(strategy Strategy) *ExponentialBackoff {
	return &ExponentialBackoff{strategy: strategy}
}

// OnSuccess clears the backoff so the next failure starts from MinDelay
// (spec §8 scenario 5: "on connect succeeding, next failure starts again at
// the minimum").
func (b *ExponentialBackoff) OnSuccess() {
	b.armed = false
	b.last = 0
}

// OnFailure returns the delay to wait before the next attempt, doubling the
// previous delay (or starting at MinDelay on the first failure).
func (b *ExponentialBackoff) OnFailure() time.Duration {
	if !b.armed {
		b.armed = true
		b.last = b.strategy.MinDelay
		return b.last
	}
	next := b.last * 2
	if next > b.strategy.MaxDelay || next <= 0 {
		next = b.strategy.MaxDelay
	}
	b.last = next
	return next
}

// MinDelay returns the strategy's minimum delay, the first delay after a
// reset; it is unaffected by OnFailure's doubling. (The supervisor's wait
// after a clean link loss is ConnectStrategy.ReconnectDelay, not this value.)
func (b *ExponentialBackoff) MinDelay() time.Duration { return b.strategy.MinDelay }
