package room

import "errors"

// Package-level error definitions for room operations.
var (
	ErrRoomFull     = errors.New("room is at its member limit")
	ErrRoomNotFound = errors.New("room not found")
)
