// Package retry re-runs an operation with exponential backoff. Three
// policies cover the federation hub: waiting for PostgreSQL at boot,
// re-running transactions that lost a serialization race, and waiting out
// another import of the same record book.
package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Policy decides whether and when to re-run an operation.
type Policy struct {
	// Attempts includes the first call.
	Attempts int

	// Initial is the wait after the first failure; each later wait grows by
	// Multiplier up to Max.
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64

	// Jitter spreads each wait by up to ±Jitter of its length.
	Jitter float64

	// ShouldRetry reports errors worth another attempt. Nil retries every error.
	ShouldRetry func(error) bool

	// OnRetry observes each wait before it happens.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Do runs fn until it succeeds, returns an error ShouldRetry rejects, the
// attempts run out or ctx ends. It returns fn's last error.
func (p Policy) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := max(p.Attempts, 1)

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt >= attempts || (p.ShouldRetry != nil && !p.ShouldRetry(err)) {
			return err
		}

		wait := p.Wait(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

// Value is Do for operations that return a result.
func Value[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Wait returns the pause after the given failed attempt.
func (p Policy) Wait(attempt int) time.Duration {
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.Initial) * math.Pow(mult, float64(attempt-1))
	if p.Max > 0 && d > float64(p.Max) {
		d = float64(p.Max)
	}
	if p.Jitter > 0 {
		d += d * p.Jitter * (rand.Float64()*2 - 1)
	}
	return time.Duration(max(d, 0))
}

// Startup waits for a backing service that is still booting. Containers
// often start before the database accepts connections.
func Startup(onRetry func(attempt int, err error, wait time.Duration)) Policy {
	return Policy{
		Attempts:   6,
		Initial:    500 * time.Millisecond,
		Max:        8 * time.Second,
		Multiplier: 2,
		Jitter:     0.2,
		OnRetry:    onRetry,
	}
}

// Transaction re-runs a short transaction that lost to a concurrent one.
func Transaction(conflict func(error) bool) Policy {
	return Policy{
		Attempts:    3,
		Initial:     50 * time.Millisecond,
		Max:         time.Second,
		Multiplier:  2,
		Jitter:      0.05,
		ShouldRetry: conflict,
	}
}

// Busy waits for another writer to release a resource, such as an import
// holding a record book.
func Busy(busy func(error) bool, onRetry func(attempt int, err error, wait time.Duration)) Policy {
	return Policy{
		Attempts:    5,
		Initial:     time.Second,
		Max:         15 * time.Second,
		Multiplier:  2,
		Jitter:      0.1,
		ShouldRetry: busy,
		OnRetry:     onRetry,
	}
}
