package connection

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/relayhq/chathub/pkg/ratelimiter"
)

// Metadata carries opaque transport-level details about a connection.
// The core passes it through to logs and never interprets it.
type Metadata struct {
	RemoteAddr string
	Platform   string
}

// Connection is one physical client link. All methods are safe for
// concurrent use. A Connection maps to exactly one live outbound channel
// from registration until removal.
type Connection struct {
	id       string
	userID   int64
	username string
	meta     Metadata
	limiter  *ratelimiter.Limiter

	outbound chan []byte

	lastActivity atomic.Int64 // unix nanoseconds

	mu     sync.RWMutex
	rooms  map[string]struct{}
	closed bool
}

func newConnection(id string, userID int64, username string, meta Metadata, bufferSize int, limiter *ratelimiter.Limiter, now time.Time) *Connection {
	c := &Connection{
		id:       id,
		userID:   userID,
		username: username,
		meta:     meta,
		limiter:  limiter,
		outbound: make(chan []byte, bufferSize),
		rooms:    make(map[string]struct{}),
	}
	c.lastActivity.Store(now.UnixNano())
	return c
}

// ID returns the registry-assigned connection id.
func (c *Connection) ID() string { return c.id }

// UserID returns the authenticated owner of the connection.
func (c *Connection) UserID() int64 { return c.userID }

// Username returns the owner's display name from the validated claims.
func (c *Connection) Username() string { return c.username }

// Metadata returns the transport metadata captured at registration.
func (c *Connection) Metadata() Metadata { return c.meta }

// Limiter returns the connection's dedicated rate limiter. The token
// state is exclusively owned by this connection.
func (c *Connection) Limiter() *ratelimiter.Limiter { return c.limiter }

// Outbound is the delivery channel the transport layer drains. It is
// closed exactly once, when the connection is removed.
func (c *Connection) Outbound() <-chan []byte { return c.outbound }

// Send enqueues payload without blocking. It fails with ErrChannelFull
// when the consumer is too slow and with ErrChannelClosed after removal.
// Payloads accepted by successive Send calls are delivered in FIFO order.
func (c *Connection) Send(payload []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrChannelClosed
	}
	select {
	case c.outbound <- payload:
		return nil
	default:
		return ErrChannelFull
	}
}

// close closes the outbound channel. Idempotent; the send lock guarantees
// no Send races the close.
func (c *Connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.outbound)
}

func (c *Connection) touch(now time.Time) {
	c.lastActivity.Store(now.UnixNano())
}

// LastActivity returns the time of the most recent heartbeat or send.
func (c *Connection) LastActivity() time.Time {
	return time.Unix(0, c.lastActivity.Load())
}

// AddRoom records a room subscription on the connection.
func (c *Connection) AddRoom(roomID string) {
	c.mu.Lock()
	c.rooms[roomID] = struct{}{}
	c.mu.Unlock()
}

// RemoveRoom drops a room subscription. No-op when not subscribed.
func (c *Connection) RemoveRoom(roomID string) {
	c.mu.Lock()
	delete(c.rooms, roomID)
	c.mu.Unlock()
}

// Rooms returns a snapshot of the subscribed room ids.
func (c *Connection) Rooms() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		out = append(out, id)
	}
	return out
}
