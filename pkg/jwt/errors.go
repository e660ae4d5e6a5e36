package jwt

import "errors"

// Package-level error definitions for token operations.
var (
	ErrEmptySigningKey     = errors.New("signing key cannot be empty")
	ErrMalformedToken      = errors.New("token is malformed")
	ErrUnsupportedAlg      = errors.New("unsupported signing algorithm")
	ErrSignatureInvalid    = errors.New("token signature is invalid")
	ErrExpiredToken        = errors.New("token has expired")
	ErrTokenNotYetValid    = errors.New("token is not valid yet")
	ErrFailedToSignToken   = errors.New("failed to sign token")
	ErrFailedToParseClaims = errors.New("failed to parse token claims")
)
