// Package retry provides the bounded, fixed-delay retry combinator shared
// by the producer and consumer clients, plus a circuit breaker wrapper for
// the underlying transport call. It generalizes the teacher's
// providers/common.go doRequestWithResilience (exponential backoff) to the
// fixed delay/count contract the specification pins exactly.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weatherfabric/internal/common"
)

// ErrExhausted is returned when every attempt failed and no more specific
// error survived.
var ErrExhausted = errors.New("retry: attempts exhausted")

// Attempt is a fallible operation; n is the zero-based attempt index.
type Attempt func(n int) error

// BoundedWithDelay runs attempt up to maxAttempts times, waiting delay
// between attempts (never after the last one), and returns the final
// attempt's error if none succeeded. It is not specific to any one
// operation — both clients' PUT/GET calls are wrapped with it.
func BoundedWithDelay(ctx context.Context, maxAttempts int, delay time.Duration, attempt Attempt) error {
	var lastErr error
	for n := 0; n < maxAttempts; n++ {
		lastErr = attempt(n)
		if lastErr == nil {
			return nil
		}
		if n < maxAttempts-1 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	if lastErr == nil {
		lastErr = ErrExhausted
	}
	return lastErr
}

// Breaker wraps a client's repeated calls to the same aggregator so that
// a wedged server trips the breaker instead of being hammered on every
// retry cycle. An open breaker still counts as one failed Attempt in
// BoundedWithDelay — it does not change the MAX_RETRIES/RETRY_DELAY_MS
// contract, it just short-circuits the doomed network call.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker returns a Breaker named for logging, tripping after 5
// consecutive failures and staying open for one retry-delay window.
func NewBreaker(name string, cooldown time.Duration) *Breaker {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Breaker{cb: cb}
}

// Execute runs op through the breaker, translating gobreaker's
// open-circuit sentinel into a plain transport error.
func (b *Breaker) Execute(op func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, op()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.New("retry: circuit open, aggregator appears unreachable")
	}
	return err
}

// IsTransport classifies an error as a transport-layer failure (the
// Transport class in the error taxonomy) by checking common dial/timeout
// substrings. BoundedWithDelay does not consult it: every failed attempt
// is retried, whatever its class.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	return common.HasAny(err.Error(),
		"connection refused", "timeout", "no such host", "EOF", "reset by peer", "circuit open")
}
