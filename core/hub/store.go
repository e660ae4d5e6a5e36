package hub

import (
	"context"

	"github.com/relayhq/chathub/core/message"
)

// Store is the persistence collaborator. Implementations report any
// backend failure as an error wrapping ErrStorageUnavailable; the hub
// never broadcasts a message the store did not acknowledge.
type Store interface {
	// InsertRoomMessage durably records a room message and returns the
	// envelope with its authoritative id and timestamp.
	InsertRoomMessage(ctx context.Context, roomID string, authorID int64, authorName, content string) (message.Message, error)

	// InsertDirectMessage durably records a direct message between two
	// users.
	InsertDirectMessage(ctx context.Context, fromID int64, fromName string, toID int64, content string) (message.Message, error)

	// FetchRoomHistory returns up to limit most recent room messages in
	// chronological order.
	FetchRoomHistory(ctx context.Context, roomID string, limit int) ([]message.Message, error)

	// FetchDMHistory returns up to limit most recent messages between two
	// users in chronological order.
	FetchDMHistory(ctx context.Context, userA, userB int64, limit int) ([]message.Message, error)

	// UserExists reports whether the user id is known.
	UserExists(ctx context.Context, userID int64) (bool, error)

	// RoomExists reports whether the room name is known.
	RoomExists(ctx context.Context, roomID string) (bool, error)

	// AddReaction records one user's emoji on a message, idempotently, and
	// returns the reaction with its current count. Each user may hold at
	// most ten distinct reactions per message; adds beyond the cap are
	// ignored and return the unchanged state.
	AddReaction(ctx context.Context, messageID string, userID int64, emoji string) (message.Reaction, error)

	// RemoveReaction removes one user's emoji from a message. Removing an
	// absent reaction is a no-op returning the current count, never a
	// negative one.
	RemoveReaction(ctx context.Context, messageID string, userID int64, emoji string) (message.Reaction, error)
}
