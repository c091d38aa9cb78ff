package eventstream

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// retryBackoff holds the delay the next scheduled retry will use.
type retryBackoff struct {
	bo   *backoff.ExponentialBackOff
	next time.Duration
}

func newRetryBackoff(floor, ceiling time.Duration) *retryBackoff {
	b := &retryBackoff{bo: &backoff.ExponentialBackOff{
		InitialInterval:     floor,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         ceiling,
	}}
	b.Reset()
	return b
}

// Reset restores the floor delay.
func (b *retryBackoff) Reset() {
	b.bo.Reset()
	b.next = b.bo.NextBackOff()
}

// Peek returns the delay of the next retry without consuming it.
func (b *retryBackoff) Peek() time.Duration { return b.next }

// Advance returns the delay for the retry being scheduled now and doubles the
// one after it, up to the ceiling.
func (b *retryBackoff) Advance() time.Duration {
	d := b.next
	b.next = b.bo.NextBackOff()
	return d
}

// scheduler abstracts time.AfterFunc so retries can be driven by tests.
type scheduler interface {
	AfterFunc(d time.Duration, f func()) stopper
}

type stopper interface {
	Stop() bool
}

type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, f func()) stopper { return time.AfterFunc(d, f) }
