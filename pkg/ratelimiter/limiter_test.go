package ratelimiter_test

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayhq/chathub/pkg/ratelimiter"
)

func TestLimiter_Allow(t *testing.T) {
	t.Parallel()

	t.Run("burst drains then rejects", func(t *testing.T) {
		mock := clock.NewMock()
		limiter := ratelimiter.New(
			ratelimiter.Config{Rate: 10, Burst: 10},
			ratelimiter.WithClock(mock),
		)

		for i := 0; i < 10; i++ {
			assert.True(t, limiter.Allow(), "call %d should pass within burst", i+1)
		}
		assert.False(t, limiter.Allow(), "11th immediate call must be rejected")
	})

	t.Run("refills exactly rate tokens per second", func(t *testing.T) {
		mock := clock.NewMock()
		limiter := ratelimiter.New(
			ratelimiter.Config{Rate: 10, Burst: 10},
			ratelimiter.WithClock(mock),
		)

		for it37 := 0; it37 < 10; it37++ {
			require.True(t, limiter.Allow())
		}
		require.False(t, limiter.Allow())

		mock.Add(time.Second)

		for i := 0; i < 10; i++ {
			assert.True(t, limiter.Allow(), "call %d after refill should pass", i+1)
		}
		assert.False(t, limiter.Allow())
	})

	t.Run("rejected calls do not lose accrued tokens", func(t *testing.T) {
		mock := clock.NewMock()
		limiter := ratelimiter.New(
			ratelimiter.Config{Rate: 2, Burst: 2},
			ratelimiter.WithClock(mock),
		)

		require.True(t, limiter.Allow())
		require.True(t, limiter.Allow())

		mock.Add(250 * time.Millisecond)
		assert.False(t, limiter.Allow()) // 0.5 tokens accrued
		mock.Add(250 * time.Millisecond)
		assert.True(t, limiter.Allow()) // 1.0 token accrued in total
	})

	t.Run("refill is capped at burst", func(t *testing.T) {
		mock := clock.NewMock()
		limiter := ratelimiter.New(
			ratelimiter.Config{Rate: 10, Burst: 5},
			ratelimiter.WithClock(mock),
		)

		mock.Add(time.Hour)
		assert.InDelta(t, 5, limiter.Tokens(), 1e-9)
	})

	t.Run("zero config falls back to defaults", func(t *testing.T) {
		mock := clock.NewMock()
		limiter := ratelimiter.New(ratelimiter.Config{}, ratelimiter.WithClock(mock))
		assert.InDelta(t, ratelimiter.DefaultBurst, limiter.Tokens(), 1e-9)
	})
}

func TestLimiter_AllowN(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	limiter := ratelimiter.New(
		ratelimiter.Config{Rate: 1, Burst: 10},
		ratelimiter.WithClock(mock),
	)

	assert.True(t, limiter.AllowN(7))
	assert.False(t, limiter.AllowN(4))
	assert.True(t, limiter.AllowN(3))
	assert.True(t, limiter.AllowN(0), "non-positive n is always allowed")
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ratelimiter.Config{Rate: 1, Burst: 1}.Validate())
	assert.ErrorIs(t, ratelimiter.Config{Rate: 0, Burst: 1}.Validate(), ratelimiter.ErrInvalidRate)
	assert.ErrorIs(t, ratelimiter.Config{Rate: 1, Burst: -1}.Validate(), ratelimiter.ErrInvalidBurst)
}
