package connection

import "errors"

// Package-level error definitions for the connection registry.
var (
	ErrCapacityExceeded = errors.New("connection registry is at capacity")
	ErrChannelFull      = errors.New("outbound channel is full")
	ErrChannelClosed    = errors.New("outbound channel is closed")
	ErrRegistryClosed   = errors.New("connection registry is closed")
)
