package connection

import (
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/relayhq/chathub/core/logger"
	"github.com/relayhq/chathub/pkg/ratelimiter"
	"github.com/relayhq/chathub/pkg/shard"
)

// Config holds registry limits with environment variable support.
type Config struct {
	// MaxConnections is the hard ceiling on simultaneous connections.
	MaxConnections int `env:"HUB_MAX_CONNECTIONS" envDefault:"100000"`
	// OutboundBuffer is the per-connection outbound channel capacity.
	OutboundBuffer int `env:"HUB_OUTBOUND_BUFFER" envDefault:"1024"`
	// IdleTimeout is how long a connection may stay silent before the
	// periodic sweep may force-remove it.
	IdleTimeout time.Duration `env:"HUB_IDLE_TIMEOUT" envDefault:"5m"`
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger for registry operations.
func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// WithClock replaces the wall clock, primarily for tests.
func WithClock(c clock.Clock) Option {
	return func(r *Registry) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithLimiterConfig sets the token bucket parameters applied to every
// new connection.
func WithLimiterConfig(cfg ratelimiter.Config) Option {
	return func(r *Registry) {
		r.limiterCfg = cfg
	}
}

// Registry owns the set of live connections. Lookups and mutations on
// unrelated connections never contend: the table is sharded and the only
// global state is an atomic counter guarding the capacity ceiling.
type Registry struct {
	conns  *shard.Map[string, *Connection]
	byUser *shard.Map[int64, map[string]struct{}]

	count  atomic.Int64
	closed atomic.Bool

	maxConnections int
	outboundBuffer int
	limiterCfg     ratelimiter.Config
	clock          clock.Clock
	log            *slog.Logger
}

// NewRegistry creates a connection registry from cfg.
func NewRegistry(cfg Config, opts ...Option) *Registry {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 100_000
	}
	if cfg.OutboundBuffer <= 0 {
		cfg.OutboundBuffer = 1024
	}

	r := &Registry{
		conns:          shard.NewMap[string, *Connection](shard.DefaultShardCount),
		byUser:         shard.NewMap[int64, map[string]struct{}](shard.DefaultShardCount),
		maxConnections: cfg.MaxConnections,
		outboundBuffer: cfg.OutboundBuffer,
		clock:          clock.New(),
		log:            slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Add registers a new connection for userID and returns it. The returned
// connection's Outbound channel is the handle the transport layer drains.
// Fails with ErrCapacityExceeded at the configured maximum, leaving the
// registry unchanged.
func (r *Registry) Add(userID int64, username string, meta Metadata) (*Connection, error) {
	if r.closed.Load() {
		return nil, ErrRegistryClosed
	}

	// Reserve a slot first; roll back if over the ceiling. This keeps the
	// capacity check lock-free without ever admitting more than max.
	if r.count.Add(1) > int64(r.maxConnections) {
		r.count.Add(-1)
		return nil, ErrCapacityExceeded
	}

	id := uuid.NewString()
	conn := newConnection(id, userID, username, meta,
		r.outboundBuffer,
		ratelimiter.New(r.limiterCfg, ratelimiter.WithClock(r.clock)),
		r.clock.Now(),
	)
	r.conns.Set(id, conn)
	// Copy-on-write: ConnectionsOfUser iterates the stored set outside
	// the shard lock, so mutations must never touch a published map.
	r.byUser.Update(userID, func(set map[string]struct{}, ok bool) (map[string]struct{}, bool) {
		next := make(map[string]struct{}, len(set)+1)
		for k := range set {
			next[k] = struct{}{}
		}
		next[id] = struct{}{}
		return next, true
	})

	r.log.Debug("connection registered",
		logger.Component("connection"),
		logger.ConnID(id),
		logger.UserID(userID),
		slog.String("remote_addr", meta.RemoteAddr),
	)
	return conn, nil
}

// Remove unregisters a connection, closes its outbound channel, and
// returns the room ids it was subscribed to so the caller can prune
// membership. Idempotent: removing an unknown id returns nil.
func (r *Registry) Remove(id string) []string {
	conn, ok := r.conns.Delete(id)
	if !ok {
		return nil
	}
	r.count.Add(-1)
	r.byUser.Update(conn.UserID(), func(set map[string]struct{}, ok bool) (map[string]struct{}, bool) {
		if !ok {
			return nil, false
		}
		next := make(map[string]struct{}, len(set))
		for k := range set {
			if k != id {
				next[k] = struct{}{}
			}
		}
		return next, len(next) > 0
	})

	rooms := conn.Rooms()
	conn.close()

	r.log.Debug("connection removed",
		logger.Component("connection"),
		logger.ConnID(id),
		logger.UserID(conn.UserID()),
		logger.Count("rooms", len(rooms)),
	)
	return rooms
}

// Get returns the live connection for id. Absence is not an error: the
// member is simply undeliverable right now.
func (r *Registry) Get(id string) (*Connection, bool) {
	return r.conns.Get(id)
}

// ConnectionsOfUser returns the ids of every live connection owned by
// userID, for direct-message delivery.
func (r *Registry) ConnectionsOfUser(userID int64) []string {
	set, ok := r.byUser.Get(userID)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// Touch refreshes the connection's last-activity timestamp. Used by
// heartbeat handling; unknown ids are ignored.
func (r *Registry) Touch(id string) {
	if conn, ok := r.conns.Get(id); ok {
		conn.touch(r.clock.Now())
	}
}

// IsIdle reports whether the connection's last activity is older than
// timeout. Unknown connections are not idle; they are gone.
func (r *Registry) IsIdle(id string, timeout time.Duration) bool {
	conn, ok := r.conns.Get(id)
	if !ok {
		return false
	}
	return r.clock.Now().Sub(conn.LastActivity()) > timeout
}

// IdleConnections returns the ids of connections idle past timeout. The
// caller decides what to do with them (typically a forced disconnect).
func (r *Registry) IdleConnections(timeout time.Duration) []string {
	now := r.clock.Now()
	var idle []string
	r.conns.Range(func(id string, conn *Connection) bool {
		if now.Sub(conn.LastActivity()) > timeout {
			idle = append(idle, id)
		}
		return true
	})
	return idle
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	return int(r.count.Load())
}

// Close stops accepting registrations and closes every outbound channel.
func (r *Registry) Close() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}
	r.conns.Range(func(id string, conn *Connection) bool {
		conn.close()
		return true
	})
}
