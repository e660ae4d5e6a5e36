package presence

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/relayhq/chathub/core/logger"
	"github.com/relayhq/chathub/pkg/shard"
)

// Status is a user's availability as seen by other members.
type Status string

const (
	StatusOnline       Status = "online"
	StatusIdle         Status = "idle"
	StatusDoNotDisturb Status = "do_not_disturb"
	StatusInvisible    Status = "invisible"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusIdle, StatusDoNotDisturb, StatusInvisible:
		return true
	}
	return false
}

// Config holds presence tuning with environment variable support.
type Config struct {
	// TypingWindow is how long a typing indicator stays live without
	// renewal.
	TypingWindow time.Duration `env:"PRESENCE_TYPING_WINDOW" envDefault:"5s"`
	// InactivityThreshold is how long without activity before a periodic
	// sweep demotes an Online user to Idle.
	InactivityThreshold time.Duration `env:"PRESENCE_INACTIVITY_THRESHOLD" envDefault:"10m"`
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger for presence transitions.
func WithLogger(log *slog.Logger) Option {
	return func(t *Tracker) {
		if log != nil {
			t.log = log
		}
	}
}

// WithClock replaces the wall clock, primarily for tests.
func WithClock(c clock.Clock) Option {
	return func(t *Tracker) {
		if c != nil {
			t.clock = c
		}
	}
}

// userState is one user's availability record. Like typingSet, it
// carries its own mutex: status churn by one user never blocks another.
type userState struct {
	mu           sync.Mutex
	status       Status
	manual       bool // explicit SetStatus pins the status until full disconnect
	rooms        int  // rooms the user is currently in, across connections
	lastActivity time.Time
}

// typingSet tracks who is typing in one room. Guarded by its own mutex
// so typing churn in a busy room never blocks status reads elsewhere.
type typingSet struct {
	mu      sync.Mutex
	entries map[int64]time.Time // user id -> indicator expiry
}

// Tracker maintains availability and typing state for all users. Both
// tables are sharded; no operation takes a global lock.
type Tracker struct {
	cfg    Config
	users  *shard.Map[int64, *userState]
	typing *shard.Map[string, *typingSet]
	clock  clock.Clock
	log    *slog.Logger
}

// NewTracker creates a presence tracker from cfg.
func NewTracker(cfg Config, opts ...Option) *Tracker {
	if cfg.TypingWindow <= 0 {
		cfg.TypingWindow = 5 * time.Second
	}
	if cfg.InactivityThreshold <= 0 {
		cfg.InactivityThreshold = 10 * time.Minute
	}

	t := &Tracker{
		cfg:    cfg,
		users:  shard.NewMap[int64, *userState](shard.DefaultShardCount),
		typing: shard.NewMap[string, *typingSet](shard.DefaultShardCount),
		clock:  clock.New(),
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *Tracker) state(userID int64) *userState {
	s, _ := t.users.GetOrCreate(userID, func() *userState {
		return &userState{status: StatusInvisible, lastActivity: t.clock.Now()}
	})
	return s
}

// RoomJoined records that the user entered a room (their first
// connection there). Promotes an Invisible user with no manual override
// to Online.
func (t *Tracker) RoomJoined(userID int64) {
	s := t.state(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rooms++
	s.lastActivity = t.clock.Now()
	if !s.manual && s.status == StatusInvisible {
		s.status = StatusOnline
		t.log.Debug("presence transition",
			logger.Component("presence"),
			logger.UserID(userID),
			slog.String("status", string(StatusOnline)),
		)
	}
}

// RoomLeft records that the user's last connection left a room. When no
// rooms remain the user returns to Invisible and any manual override is
// cleared.
func (t *Tracker) RoomLeft(userID int64) {
	s, ok := t.users.Get(userID)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rooms > 0 {
		s.rooms--
	}
	if s.rooms == 0 {
		s.status = StatusInvisible
		s.manual = false
		t.log.Debug("presence transition",
			logger.Component("presence"),
			logger.UserID(userID),
			slog.String("status", string(StatusInvisible)),
		)
	}
}

// SetStatus pins the user's status explicitly. The pin survives room
// churn and is cleared only when the user's last room membership ends.
func (t *Tracker) SetStatus(userID int64, status Status) bool {
	if !status.Valid() {
		return false
	}

	s := t.state(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = status
	s.manual = true
	s.lastActivity = t.clock.Now()
	return true
}

// StatusOf returns the user's current status. Unknown users are
// Invisible.
func (t *Tracker) StatusOf(userID int64) Status {
	s, ok := t.users.Get(userID)
	if !ok {
		return StatusInvisible
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Touch records user activity, used by the inactivity sweep. An Idle
// user producing activity returns to Online unless manually pinned.
func (t *Tracker) Touch(userID int64) {
	s, ok := t.users.Get(userID)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActivity = t.clock.Now()
	if !s.manual && s.status == StatusIdle {
		s.status = StatusOnline
	}
}

// Forget drops all state for the user, called on full disconnect.
func (t *Tracker) Forget(userID int64) {
	t.users.Delete(userID)
}

// CleanupInactive demotes Online users with no activity for the
// configured threshold to Idle. Returns how many users were demoted.
// Intended to run from a periodic sweep.
func (t *Tracker) CleanupInactive() int {
	now := t.clock.Now()
	demoted := 0

	t.users.Range(func(userID int64, s *userState) bool {
		s.mu.Lock()
		if !s.manual && s.status == StatusOnline && now.Sub(s.lastActivity) >= t.cfg.InactivityThreshold {
			s.status = StatusIdle
			demoted++
		}
		s.mu.Unlock()
		return true
	})

	if demoted > 0 {
		t.log.Debug("inactivity sweep",
			logger.Component("presence"),
			logger.Count("demoted", demoted),
		)
	}
	return demoted
}

// StartTyping marks the user as typing in the room, renewing the window
// if already typing.
func (t *Tracker) StartTyping(roomID string, userID int64) {
	set, _ := t.typing.GetOrCreate(roomID, func() *typingSet {
		return &typingSet{entries: make(map[int64]time.Time)}
	})

	set.mu.Lock()
	set.entries[userID] = t.clock.Now().Add(t.cfg.TypingWindow)
	set.mu.Unlock()
}

// StopTyping clears the user's typing indicator in the room.
func (t *Tracker) StopTyping(roomID string, userID int64) {
	set, ok := t.typing.Get(roomID)
	if !ok {
		return
	}

	set.mu.Lock()
	delete(set.entries, userID)
	set.mu.Unlock()
}

// TypingUsers returns the users currently typing in the room. Expired
// indicators are evicted on the way out.
func (t *Tracker) TypingUsers(roomID string) []int64 {
	set, ok := t.typing.Get(roomID)
	if !ok {
		return nil
	}

	now := t.clock.Now()

	set.mu.Lock()
	defer set.mu.Unlock()

	out := make([]int64, 0, len(set.entries))
	for userID, expiry := range set.entries {
		if now.After(expiry) {
			delete(set.entries, userID)
			continue
		}
		out = append(out, userID)
	}
	return out
}
