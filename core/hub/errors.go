package hub

import (
	"errors"

	"github.com/relayhq/chathub/core/auth"
	"github.com/relayhq/chathub/core/connection"
	"github.com/relayhq/chathub/core/room"
)

// Package-level error definitions for hub operations.
var (
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrNotAMember         = errors.New("not a member of the room")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInvalidCommand     = errors.New("invalid command")
	ErrUserNotFound       = errors.New("user not found")
	ErrSlowMode           = errors.New("slow mode interval not elapsed")
	ErrShuttingDown       = errors.New("hub is shutting down")
	ErrConnectionUnknown  = errors.New("connection not registered")
)

// Wire codes are the stable machine-readable identifiers carried by
// error events. Clients match on these, never on error strings.
const (
	CodeCapacityExceeded   = "capacity_exceeded"
	CodeRateLimited        = "rate_limited"
	CodeUnauthorized       = "unauthorized"
	CodeNotAMember         = "not_a_member"
	CodeRoomFull           = "room_full"
	CodeStorageUnavailable = "storage_unavailable"
	CodeInvalidCommand     = "invalid_command"
	CodePermissionDenied   = "permission_denied"
	CodeUserNotFound       = "user_not_found"
	CodeSlowMode           = "slow_mode"
	CodeShuttingDown       = "shutting_down"
	CodeInternal           = "internal"
)

// errorCode maps an operation error to its wire code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, connection.ErrCapacityExceeded):
		return CodeCapacityExceeded
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, auth.ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrNotAMember):
		return CodeNotAMember
	case errors.Is(err, room.ErrRoomFull):
		return CodeRoomFull
	case errors.Is(err, ErrStorageUnavailable):
		return CodeStorageUnavailable
	case errors.Is(err, ErrInvalidCommand):
		return CodeInvalidCommand
	case errors.Is(err, ErrPermissionDenied):
		return CodePermissionDenied
	case errors.Is(err, ErrUserNotFound):
		return CodeUserNotFound
	case errors.Is(err, ErrSlowMode):
		return CodeSlowMode
	case errors.Is(err, ErrShuttingDown), errors.Is(err, connection.ErrRegistryClosed):
		return CodeShuttingDown
	default:
		return CodeInternal
	}
}
