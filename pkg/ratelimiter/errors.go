package ratelimiter

import "errors"

// Package-level error definitions for rate limiter operations.
var (
	ErrInvalidRate  = errors.New("rate must be positive")
	ErrInvalidBurst = errors.New("burst must be positive")
)
