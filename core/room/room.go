package room

import (
	"sync"
	"time"

	"github.com/relayhq/chathub/core/message"
)

// DefaultHistoryCapacity is the recent-message buffer size fixed at room
// creation when settings do not override it.
const DefaultHistoryCapacity = 1000

// Visibility controls who may discover a room.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Kind distinguishes channel flavors.
type Kind string

const (
	KindStandard     Kind = "standard"
	KindAnnouncement Kind = "announcement"
)

// Settings are fixed at room creation.
type Settings struct {
	DisplayName string
	Visibility  Visibility
	Kind        Kind
	// MaxMembers caps the member set; zero means unlimited.
	MaxMembers int
	// SlowMode is the minimum interval between messages per user; zero
	// disables slow mode.
	SlowMode time.Duration
	// HistoryCapacity sizes the recent-message ring buffer.
	HistoryCapacity int
}

func (s Settings) withDefaults(id string) Settings {
	if s.DisplayName == "" {
		s.DisplayName = id
	}
	if s.Visibility == "" {
		s.Visibility = VisibilityPublic
	}
	if s.Kind == "" {
		s.Kind = KindStandard
	}
	if s.HistoryCapacity <= 0 {
		s.HistoryCapacity = DefaultHistoryCapacity
	}
	return s
}

// Membership associates one connection with one room.
type Membership struct {
	ConnID      string
	UserID      int64
	JoinedAt    time.Time
	Permissions PermissionSet
}

// HasPermission reports whether the membership grants p.
func (m Membership) HasPermission(p Permission) bool {
	return m.Permissions.Has(p)
}

// Room is one named channel. All state is guarded by a single short-held
// mutex; operations on other rooms never touch it.
type Room struct {
	id       string
	settings Settings

	mu        sync.RWMutex
	members   map[string]Membership // connection id -> membership
	userConns map[int64]int         // user id -> live connection count in this room
	lastSent  map[int64]time.Time   // user id -> last accepted message (slow mode)
	recent    *ring
}

func newRoom(id string, settings Settings) *Room {
	settings = settings.withDefaults(id)
	return &Room{
		id:        id,
		settings:  settings,
		members:   make(map[string]Membership),
		userConns: make(map[int64]int),
		lastSent:  make(map[int64]time.Time),
		recent:    newRing(settings.HistoryCapacity),
	}
}

// ID returns the room id.
func (r *Room) ID() string { return r.id }

// Settings returns the room's immutable settings.
func (r *Room) Settings() Settings { return r.settings }

// join inserts or overwrites the membership record. Returns whether this
// is the user's first live connection in the room.
func (r *Room) join(connID string, userID int64, perms PermissionSet, now time.Time) (firstOfUser bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.members[connID]; exists {
		// Idempotent re-join refreshes permissions only.
		m := r.members[connID]
		m.Permissions = perms
		r.members[connID] = m
		return false, nil
	}

	if r.settings.MaxMembers > 0 && len(r.members) >= r.settings.MaxMembers {
		return false, ErrRoomFull
	}

	r.members[connID] = Membership{
		ConnID:      connID,
		UserID:      userID,
		JoinedAt:    now,
		Permissions: perms,
	}
	r.userConns[userID]++
	return r.userConns[userID] == 1, nil
}

// leave removes the membership. Returns whether the connection was a
// member and whether it was the user's last connection in the room.
func (r *Room) leave(connID string) (wasMember, lastOfUser bool, userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[connID]
	if !ok {
		return false, false, 0
	}
	delete(r.members, connID)

	userID = m.UserID
	r.userConns[userID]--
	if r.userConns[userID] <= 0 {
		delete(r.userConns, userID)
		delete(r.lastSent, userID)
		return true, true, userID
	}
	return true, false, userID
}

// MemberConnections returns a point-in-time snapshot of member connection
// ids for fan-out.
func (r *Room) MemberConnections() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.members))
	for id := range r.members {
		out = append(out, id)
	}
	return out
}

// MemberUsers returns the distinct user ids present in the room.
func (r *Room) MemberUsers() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]int64, 0, len(r.userConns))
	for id := range r.userConns {
		out = append(out, id)
	}
	return out
}

// Membership returns the membership record for a connection.
func (r *Room) Membership(connID string) (Membership, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.members[connID]
	return m, ok
}

// MemberCount returns the current member set size.
func (r *Room) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// AllowSend applies slow mode: when enabled, a user's message is accepted
// only if the configured interval has passed since their previous one.
// Accepting records the send time.
func (r *Room) AllowSend(userID int64, now time.Time) bool {
	if r.settings.SlowMode <= 0 {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if last, ok := r.lastSent[userID]; ok && now.Sub(last) < r.settings.SlowMode {
		return false
	}
	r.lastSent[userID] = now
	return true
}

// RecordRecent appends msg to the recent-message buffer, evicting the
// oldest entry once at capacity.
func (r *Room) RecordRecent(msg message.Message) {
	r.mu.Lock()
	r.recent.push(msg)
	r.mu.Unlock()
}

// Recent returns the newest <=limit buffered messages in chronological
// order.
func (r *Room) Recent(limit int) []message.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.recent.recent(limit)
}
