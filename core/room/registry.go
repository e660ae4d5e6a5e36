package room

import (
	"io"
	"log/slog"

	"github.com/benbjohnson/clock"

	"github.com/relayhq/chathub/core/logger"
	"github.com/relayhq/chathub/core/message"
	"github.com/relayhq/chathub/pkg/shard"
)

// Config holds room defaults with environment variable support.
type Config struct {
	// DefaultMaxMembers caps membership of auto-created rooms; zero means
	// unlimited.
	DefaultMaxMembers int `env:"ROOM_DEFAULT_MAX_MEMBERS" envDefault:"0"`
	// HistoryCapacity sizes the recent-message buffer of auto-created
	// rooms.
	HistoryCapacity int `env:"ROOM_HISTORY_CAPACITY" envDefault:"1000"`
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger for room operations.
func WithLogger(log *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// WithClock replaces the wall clock, primarily for tests.
func WithClock(c clock.Clock) RegistryOption {
	return func(r *Registry) {
		if c != nil {
			r.clock = c
		}
	}
}

// JoinResult describes the effect of a successful join.
type JoinResult struct {
	// FirstOfUser is true when this was the user's first live connection
	// in the room; the caller upgrades room-scoped presence to Online.
	FirstOfUser bool
	// Created is true when the join auto-created the room.
	Created bool
}

// LeaveResult describes the effect of a leave.
type LeaveResult struct {
	WasMember bool
	// LastOfUser is true when no other connection of the same user
	// remains in the room; the caller downgrades room-scoped presence.
	LastOfUser bool
	UserID     int64
}

// Registry owns the room table. The table is sharded by room id; each
// room serializes its own mutations with a narrow per-room lock.
type Registry struct {
	rooms    *shard.Map[string, *Room]
	defaults Settings
	clock    clock.Clock
	log      *slog.Logger
}

// NewRegistry creates a room registry from cfg.
func NewRegistry(cfg Config, opts ...RegistryOption) *Registry {
	r := &Registry{
		rooms: shard.NewMap[string, *Room](shard.DefaultShardCount),
		defaults: Settings{
			MaxMembers:      cfg.DefaultMaxMembers,
			HistoryCapacity: cfg.HistoryCapacity,
		},
		clock: clock.New(),
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Create makes a room with explicit settings. Idempotent: an existing
// room is returned unchanged, its original settings preserved.
func (r *Registry) Create(id string, settings Settings) *Room {
	room, created := r.rooms.GetOrCreate(id, func() *Room {
		return newRoom(id, settings)
	})
	if created {
		r.log.Info("room created",
			logger.Component("room"),
			logger.RoomID(id),
			slog.String("visibility", string(room.Settings().Visibility)),
		)
	}
	return room
}

// Get returns the room for id.
func (r *Registry) Get(id string) (*Room, bool) {
	return r.rooms.Get(id)
}

// Join adds a connection to a room, auto-creating the room with default
// settings on first use. Rejects with ErrRoomFull when the member cap is
// reached. Joining a room the connection is already in is idempotent.
func (r *Registry) Join(roomID, connID string, userID int64, perms PermissionSet) (JoinResult, error) {
	room, created := r.rooms.GetOrCreate(roomID, func() *Room {
		return newRoom(roomID, r.defaults)
	})

	firstOfUser, err := room.join(connID, userID, perms, r.clock.Now())
	if err != nil {
		return JoinResult{}, err
	}

	r.log.Debug("member joined",
		logger.Component("room"),
		logger.RoomID(roomID),
		logger.ConnID(connID),
		logger.UserID(userID),
		logger.Count("members", room.MemberCount()),
	)
	return JoinResult{FirstOfUser: firstOfUser, Created: created}, nil
}

// Leave removes a connection from a room. No-op when the room does not
// exist or the connection is not a member.
func (r *Registry) Leave(roomID, connID string) LeaveResult {
	room, ok := r.rooms.Get(roomID)
	if !ok {
		return LeaveResult{}
	}

	wasMember, lastOfUser, userID := room.leave(connID)
	if wasMember {
		r.log.Debug("member left",
			logger.Component("room"),
			logger.RoomID(roomID),
			logger.ConnID(connID),
			logger.UserID(userID),
			logger.Count("members", room.MemberCount()),
		)
	}
	return LeaveResult{WasMember: wasMember, LastOfUser: lastOfUser, UserID: userID}
}

// Members returns a consistent snapshot of member connection ids for
// fan-out. Unknown rooms yield an empty snapshot.
func (r *Registry) Members(roomID string) []string {
	room, ok := r.rooms.Get(roomID)
	if !ok {
		return nil
	}
	return room.MemberConnections()
}

// IsMember reports whether the connection currently belongs to the room.
func (r *Registry) IsMember(roomID, connID string) bool {
	room, ok := r.rooms.Get(roomID)
	if !ok {
		return false
	}
	_, ok = room.Membership(connID)
	return ok
}

// Membership returns the membership record for a connection in a room.
func (r *Registry) Membership(roomID, connID string) (Membership, bool) {
	room, ok := r.rooms.Get(roomID)
	if !ok {
		return Membership{}, false
	}
	return room.Membership(connID)
}

// RecordRecent appends a delivered message to the room's recent buffer.
// No-op for unknown rooms.
func (r *Registry) RecordRecent(roomID string, msg message.Message) {
	if room, ok := r.rooms.Get(roomID); ok {
		room.RecordRecent(msg)
	}
}

// Recent returns the newest <=limit buffered messages of a room in
// chronological order.
func (r *Registry) Recent(roomID string, limit int) []message.Message {
	room, ok := r.rooms.Get(roomID)
	if !ok {
		return nil
	}
	return room.Recent(limit)
}

// Len returns the number of rooms.
func (r *Registry) Len() int {
	return r.rooms.Len()
}
