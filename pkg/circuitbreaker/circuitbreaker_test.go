package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

var errDown = errors.New("connection refused")

func fail(context.Context) error { return errDown }
func ok(context.Context) error   { return nil }

func newTestBreaker(clock *fakeClock, transitions *[]string) *Breaker {
	return New("test",
		WithFailureThreshold(2),
		WithCooldown(10*time.Second),
		WithClock(clock.now),
		WithOnStateChange(func(_ string, from, to State) {
			*transitions = append(*transitions, from.String()+"->"+to.String())
		}),
	)
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 9, 20, 10, 0, 0, 0, time.UTC)}
	var transitions []string
	b := newTestBreaker(clock, &transitions)
	ctx := context.Background()

	assert.ErrorIs(t, b.Execute(ctx, fail), errDown)
	assert.Equal(t, StateClosed, b.State())
	require.NoError(t, b.Execute(ctx, ok), "a success resets the streak")
	assert.ErrorIs(t, b.Execute(ctx, fail), errDown)
	assert.Equal(t, StateClosed, b.State())
	assert.ErrorIs(t, b.Execute(ctx, fail), errDown)
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
	assert.Equal(t, []string{"closed->open"}, transitions)
}

func TestBreaker_ProbeClosesOrReopens(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 9, 20, 10, 0, 0, 0, time.UTC)}
	var transitions []string
	b := newTestBreaker(clock, &transitions)
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, fail)
	require.Equal(t, StateOpen, b.State())

	clock.advance(10 * time.Second)
	assert.ErrorIs(t, b.Execute(ctx, fail), errDown)
	assert.Equal(t, StateOpen, b.State(), "failed probe reopens")

	clock.advance(5 * time.Second)
	assert.ErrorIs(t, b.Execute(ctx, ok), ErrOpen, "cooldown restarts on reopen")

	clock.advance(5 * time.Second)
	require.NoError(t, b.Execute(ctx, ok))
	assert.Equal(t, StateClosed, b.State())

	assert.Equal(t, []string{
		"closed->open",
		"open->half-open",
		"half-open->open",
		"open->half-open",
		"half-open->closed",
	}, transitions)
}

func TestBreaker_HalfOpenAdmitsLimitedProbes(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 9, 20, 10, 0, 0, 0, time.UTC)}
	var transitions []string
	b := newTestBreaker(clock, &transitions)
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, fail)
	clock.advance(time.Minute)

	err := b.Execute(ctx, func(ctx context.Context) error {
		assert.ErrorIs(t, b.Execute(ctx, ok), ErrOpen, "second probe rejected while first in flight")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateClosed, b.State())
}

func TestCacheBreaker_IgnoresCancellation(t *testing.T) {
	b := CacheBreaker(nil)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = b.Execute(ctx, func(context.Context) error { return context.Canceled })
	}
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "results-cache", b.Name())
}
