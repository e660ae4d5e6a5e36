package ratelimiter_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"

	"github.com/relayhq/chathub/pkg/ratelimiter"
)

// TestLimiter_ConcurrentConsume hammers one bucket from many goroutines
// and checks that exactly burst tokens are handed out in total: no
// corruption, no double spend.
func TestLimiter_ConcurrentConsume(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	limiter := ratelimiter.New(
		ratelimiter.Config{Rate: 1, Burst: 100},
		ratelimiter.WithClock(mock),
	)

	const goroutines = 20
	const attemptsEach = 50 // 1000 attempts against 100 tokens

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for it31 := 0; it31 < goroutines; it31++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it35 := 0; it35 < attemptsEach; it35++ {
				if limiter.Allow() {
					allowed.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), allowed.Load())
	assert.InDelta(t, 0, limiter.Tokens(), 1e-9)
}
