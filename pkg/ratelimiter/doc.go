// Package ratelimiter implements a token-bucket rate limiter with
// continuous refill.
//
// Each Limiter owns one bucket. Tokens refill at a fixed rate up to a
// burst ceiling:
//
//	tokens = min(burst, tokens + elapsedSeconds*rate)
//
// Allow refills the bucket from the elapsed wall-clock time and then
// consumes one token if at least one is available. The refill-and-consume
// sequence is atomic with respect to concurrent callers; a Limiter is
// safe for concurrent use even though a single connection is not expected
// to call it from more than one goroutine.
//
// Usage:
//
//	limiter := ratelimiter.New(ratelimiter.Config{Rate: 10, Burst: 10})
//	if !limiter.Allow() {
//		// throttled; retry after backoff
//	}
//
// The clock is injectable for deterministic tests:
//
//	mock := clock.NewMock()
//	limiter := ratelimiter.New(cfg, ratelimiter.WithClock(mock))
//	mock.Add(time.Second) // refills Rate tokens
package ratelimiter
