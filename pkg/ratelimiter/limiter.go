package ratelimiter

import (
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Default bucket parameters: ten messages per second with a burst of ten.
const (
	DefaultRate  = 10.0
	DefaultBurst = 10.0
)

// Config holds token bucket parameters with environment variable support.
type Config struct {
	// Rate is the refill rate in tokens per second.
	Rate float64 `env:"RATE_LIMIT_RATE" envDefault:"10"`
	// Burst is the bucket capacity; also the initial token count.
	Burst float64 `env:"RATE_LIMIT_BURST" envDefault:"10"`
}

// Validate reports whether the configuration is usable.
func (c Config) Validate() error {
	if c.Rate <= 0 {
		return ErrInvalidRate
	}
	if c.Burst <= 0 {
		return ErrInvalidBurst
	}
	return nil
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the wall clock, primarily for tests.
func WithClock(c clock.Clock) Option {
	return func(l *Limiter) {
		if c != nil {
			l.clock = c
		}
	}
}

// Limiter is a single token bucket. It starts full.
type Limiter struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
	rate       float64
	burst      float64
	clock      clock.Clock
}

// New creates a Limiter from cfg. Non-positive Rate or Burst fall back to
// the package defaults so a zero Config yields a working limiter.
func New(cfg Config, opts ...Option) *Limiter {
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultRate
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}

	l := &Limiter{
		tokens: cfg.Burst,
		rate:   cfg.Rate,
		burst:  cfg.Burst,
		clock:  clock.New(),
	}

	for _, opt := range opts {
		opt(l)
	}

	l.lastRefill = l.clock.Now()
	return l
}

// Allow refills the bucket from elapsed time and consumes one token if
// available. It returns false when the bucket is empty; the refill is
// still recorded so repeated rejected calls do not lose accrued tokens.
func (l *Limiter) Allow() bool {
	return l.AllowN(1)
}

// AllowN consumes n tokens if available. n must be positive.
func (l *Limiter) AllowN(n float64) bool {
	if n <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.refillLocked()
	if l.tokens < n {
		return false
	}
	l.tokens -= n
	return true
}

// Tokens returns the current token count after applying pending refill.
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refillLocked()
	return l.tokens
}

// refillLocked applies elapsed-time refill. Caller must hold l.mu.
func (l *Limiter) refillLocked() {
	now := l.clock.Now()
	elapsed := now.Sub(l.lastRefill)
	if elapsed <= 0 {
		return
	}
	l.tokens = min(l.burst, l.tokens+elapsed.Seconds()*l.rate)
	l.lastRefill = now
}

// IsLimitError reports whether err signals an invalid limiter setup.
func IsLimitError(err error) bool {
	return errors.Is(err, ErrInvalidRate) || errors.Is(err, ErrInvalidBurst)
}
