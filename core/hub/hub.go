package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/relayhq/chathub/core/auth"
	"github.com/relayhq/chathub/core/broadcast"
	"github.com/relayhq/chathub/core/connection"
	"github.com/relayhq/chathub/core/logger"
	"github.com/relayhq/chathub/core/message"
	"github.com/relayhq/chathub/core/presence"
	"github.com/relayhq/chathub/core/room"
	"github.com/relayhq/chathub/pkg/ratelimiter"
	"github.com/relayhq/chathub/pkg/shard"
)

// Config aggregates the tuning of every component the hub owns, plus
// its own knobs, with environment variable support.
type Config struct {
	Connection connection.Config
	Room       room.Config
	Presence   presence.Config
	Broadcast  broadcast.Config
	Limiter    ratelimiter.Config

	// RecentOnJoin is how many buffered messages a joiner receives.
	RecentOnJoin int `env:"HUB_RECENT_ON_JOIN" envDefault:"50"`
	// HistoryLimit caps history fetches regardless of the client's ask.
	HistoryLimit int `env:"HUB_HISTORY_LIMIT" envDefault:"100"`
	// IdleSweepInterval is how often idle connections are force-removed.
	IdleSweepInterval time.Duration `env:"HUB_IDLE_SWEEP_INTERVAL" envDefault:"1m"`
	// PresenceSweepInterval is how often inactive users are demoted.
	PresenceSweepInterval time.Duration `env:"HUB_PRESENCE_SWEEP_INTERVAL" envDefault:"1m"`
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the logger shared by the hub and its components.
func WithLogger(log *slog.Logger) Option {
	return func(h *Hub) {
		if log != nil {
			h.log = log
		}
	}
}

// WithClock replaces the wall clock across all components, primarily
// for tests.
func WithClock(c clock.Clock) Option {
	return func(h *Hub) {
		if c != nil {
			h.clock = c
		}
	}
}

// Hub coordinates the chat core. All exported methods are safe for
// concurrent use; operations on different rooms never contend.
type Hub struct {
	cfg   Config
	store Store

	conns    *connection.Registry
	rooms    *room.Registry
	presence *presence.Tracker
	engine   *broadcast.Engine

	// sequencers holds one mutex per room, serializing the
	// persist-record-broadcast step so members see each room's messages
	// in acceptance order.
	sequencers *shard.Map[string, *sync.Mutex]

	// opsMu drains in-flight operations on shutdown: operations hold it
	// for reading, Shutdown takes it for writing to flip closed.
	opsMu  sync.RWMutex
	closed bool

	clock clock.Clock
	log   *slog.Logger
}

// New creates a hub over the given persistence store.
func New(store Store, cfg Config, opts ...Option) *Hub {
	if cfg.RecentOnJoin <= 0 {
		cfg.RecentOnJoin = 50
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 100
	}
	if cfg.IdleSweepInterval <= 0 {
		cfg.IdleSweepInterval = time.Minute
	}
	if cfg.PresenceSweepInterval <= 0 {
		cfg.PresenceSweepInterval = time.Minute
	}

	h := &Hub{
		cfg:        cfg,
		store:      store,
		sequencers: shard.NewMap[string, *sync.Mutex](shard.DefaultShardCount),
		clock:      clock.New(),
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(h)
	}

	h.conns = connection.NewRegistry(cfg.Connection,
		connection.WithLogger(h.log),
		connection.WithClock(h.clock),
		connection.WithLimiterConfig(cfg.Limiter),
	)
	h.rooms = room.NewRegistry(cfg.Room,
		room.WithLogger(h.log),
		room.WithClock(h.clock),
	)
	h.presence = presence.NewTracker(cfg.Presence,
		presence.WithLogger(h.log),
		presence.WithClock(h.clock),
	)
	h.engine = broadcast.NewEngine(h.conns, h.rooms, cfg.Broadcast,
		broadcast.WithLogger(h.log),
	)

	return h
}

// Connections exposes the connection registry to the transport layer.
func (h *Hub) Connections() *connection.Registry { return h.conns }

// Rooms exposes the room registry, primarily for administrative
// creation with explicit settings.
func (h *Hub) Rooms() *room.Registry { return h.rooms }

// Presence exposes the presence tracker.
func (h *Hub) Presence() *presence.Tracker { return h.presence }

func (h *Hub) begin() error {
	h.opsMu.RLock()
	if h.closed {
		h.opsMu.RUnlock()
		return ErrShuttingDown
	}
	return nil
}

func (h *Hub) end() { h.opsMu.RUnlock() }

// RegisterConnection admits an authenticated client and returns its
// connection. The transport drains conn.Outbound() and feeds inbound
// frames to HandleCommand. Claims must come from the auth collaborator;
// the hub trusts them as-is.
func (h *Hub) RegisterConnection(claims auth.Claims, meta connection.Metadata) (*connection.Connection, error) {
	if err := h.begin(); err != nil {
		return nil, err
	}
	defer h.end()

	conn, err := h.conns.Add(claims.UserID, claims.Username, meta)
	if err != nil {
		return nil, err
	}

	h.log.Info("connection registered",
		logger.Component("hub"),
		logger.ConnID(conn.ID()),
		logger.UserID(claims.UserID),
		slog.String("username", claims.Username),
	)
	return conn, nil
}

// Disconnect removes a connection, prunes its room memberships, and
// updates presence. Idempotent; safe to call from both explicit client
// close and the idle sweep.
func (h *Hub) Disconnect(ctx context.Context, connID string) {
	if err := h.begin(); err != nil {
		return
	}
	defer h.end()

	conn, ok := h.conns.Get(connID)
	if !ok {
		return
	}
	userID := conn.UserID()
	username := conn.Username()

	roomIDs := h.conns.Remove(connID)
	for _, roomID := range roomIDs {
		res := h.rooms.Leave(roomID, connID)
		if !res.WasMember {
			continue
		}
		if res.LastOfUser {
			h.presence.RoomLeft(userID)
			h.broadcastEvent(ctx, roomID, EventRoomLeft, RoomEvent{
				Room: roomID, User: userID, Username: username,
			})
		}
	}

	if len(h.conns.ConnectionsOfUser(userID)) == 0 {
		h.presence.Forget(userID)
	}

	h.log.Info("connection closed",
		logger.Component("hub"),
		logger.ConnID(connID),
		logger.UserID(userID),
		logger.Count("rooms", len(roomIDs)),
	)
}

// JoinRoom subscribes the connection to a room, auto-creating it with
// default settings on first use. The joiner receives a confirmation and
// the room's recent messages; the room receives a room_joined event.
func (h *Hub) JoinRoom(ctx context.Context, connID, roomID string) error {
	if err := h.begin(); err != nil {
		return err
	}
	defer h.end()

	conn, ok := h.conns.Get(connID)
	if !ok {
		return ErrConnectionUnknown
	}
	if roomID == "" {
		return fmt.Errorf("%w: empty room id", ErrInvalidCommand)
	}

	res, err := h.rooms.Join(roomID, connID, conn.UserID(), room.DefaultMemberPermissions())
	if err != nil {
		return err
	}
	conn.AddRoom(roomID)
	if res.FirstOfUser {
		h.presence.RoomJoined(conn.UserID())
	}
	h.conns.Touch(connID)

	h.sendEvent(connID, EventActionConfirmed, ActionConfirmedEvent{Action: CmdJoinRoom, Success: true})
	if recent := h.rooms.Recent(roomID, h.cfg.RecentOnJoin); len(recent) > 0 {
		h.sendEvent(connID, EventRoomHistory, RoomHistoryEvent{Room: roomID, Messages: recent})
	}
	h.broadcastEvent(ctx, roomID, EventRoomJoined, RoomEvent{
		Room: roomID, User: conn.UserID(), Username: conn.Username(),
	})
	return nil
}

// LeaveRoom unsubscribes the connection from a room.
func (h *Hub) LeaveRoom(ctx context.Context, connID, roomID string) error {
	if err := h.begin(); err != nil {
		return err
	}
	defer h.end()

	conn, ok := h.conns.Get(connID)
	if !ok {
		return ErrConnectionUnknown
	}

	res := h.rooms.Leave(roomID, connID)
	if !res.WasMember {
		return ErrNotAMember
	}
	conn.RemoveRoom(roomID)
	if res.LastOfUser {
		h.presence.RoomLeft(conn.UserID())
	}
	h.conns.Touch(connID)

	h.sendEvent(connID, EventActionConfirmed, ActionConfirmedEvent{Action: CmdLeaveRoom, Success: true})
	h.broadcastEvent(ctx, roomID, EventRoomLeft, RoomEvent{
		Room: roomID, User: conn.UserID(), Username: conn.Username(),
	})
	return nil
}

// SendMessage persists a room message and fans it out to every current
// member, the sender included. The broadcast message event is the
// sender's success signal. Rejections happen before the store is
// touched: a rate-limited or slow-moded message is never persisted.
func (h *Hub) SendMessage(ctx context.Context, connID, roomID, content string) error {
	if err := h.begin(); err != nil {
		return err
	}
	defer h.end()

	conn, ok := h.conns.Get(connID)
	if !ok {
		return ErrConnectionUnknown
	}
	if content == "" {
		return fmt.Errorf("%w: empty content", ErrInvalidCommand)
	}

	if !conn.Limiter().Allow() {
		return ErrRateLimited
	}

	membership, ok := h.rooms.Membership(roomID, connID)
	if !ok {
		return ErrNotAMember
	}
	if !membership.HasPermission(room.PermSendMessage) {
		return fmt.Errorf("%w: cannot send in %s", ErrPermissionDenied, roomID)
	}

	rm, _ := h.rooms.Get(roomID)
	if !rm.AllowSend(conn.UserID(), h.clock.Now()) {
		return ErrSlowMode
	}

	h.conns.Touch(connID)
	h.presence.Touch(conn.UserID())
	h.presence.StopTyping(roomID, conn.UserID())

	// Per-room critical section: persist, record, broadcast. Guarantees
	// every member observes this room's messages in acceptance order.
	seq := h.sequencerFor(roomID)
	seq.Lock()
	defer seq.Unlock()

	msg, err := h.store.InsertRoomMessage(ctx, roomID, conn.UserID(), conn.Username(), content)
	if err != nil {
		return storeErr("insert room message", err)
	}
	h.rooms.RecordRecent(roomID, msg)

	payload, err := encodeEvent(EventMessage, msg)
	if err != nil {
		return err
	}
	report := h.engine.Broadcast(ctx, roomID, payload)

	h.log.Debug("message broadcast",
		logger.Component("hub"),
		logger.RoomID(roomID),
		logger.MessageID(msg.ID),
		logger.Count("delivered", report.Delivered),
		logger.Count("failed", report.Failed),
		logger.Duration(report.Elapsed),
	)
	return nil
}

// SendDirect persists a direct message and delivers it to every live
// connection of the target user. An offline target is not an error: the
// message is stored and the sender still gets a confirmation.
func (h *Hub) SendDirect(ctx context.Context, connID string, toUser int64, content string) error {
	if err := h.begin(); err != nil {
		return err
	}
	defer h.end()

	conn, ok := h.conns.Get(connID)
	if !ok {
		return ErrConnectionUnknown
	}
	if content == "" || toUser <= 0 {
		return fmt.Errorf("%w: direct message needs a target and content", ErrInvalidCommand)
	}

	if !conn.Limiter().Allow() {
		return ErrRateLimited
	}

	exists, err := h.store.UserExists(ctx, toUser)
	if err != nil {
		return storeErr("check user", err)
	}
	if !exists {
		return fmt.Errorf("%w: user %d", ErrUserNotFound, toUser)
	}

	h.conns.Touch(connID)
	h.presence.Touch(conn.UserID())

	msg, err := h.store.InsertDirectMessage(ctx, conn.UserID(), conn.Username(), toUser, content)
	if err != nil {
		return storeErr("insert direct message", err)
	}

	payload, err := encodeEvent(EventDM, msg)
	if err != nil {
		return err
	}
	h.engine.Direct(ctx, toUser, payload)

	h.sendEvent(connID, EventActionConfirmed, ActionConfirmedEvent{Action: CmdDirectMessage, Success: true})
	return nil
}

// RoomHistory fetches persisted room messages and delivers them to the
// requesting connection as a room_history event.
func (h *Hub) RoomHistory(ctx context.Context, connID, roomID string, limit int) error {
	if err := h.begin(); err != nil {
		return err
	}
	defer h.end()

	conn, ok := h.conns.Get(connID)
	if !ok {
		return ErrConnectionUnknown
	}

	membership, ok := h.rooms.Membership(roomID, connID)
	if !ok {
		return ErrNotAMember
	}
	if !membership.HasPermission(room.PermViewHistory) {
		return fmt.Errorf("%w: cannot view history of %s", ErrPermissionDenied, roomID)
	}

	msgs, err := h.store.FetchRoomHistory(ctx, roomID, h.clampLimit(limit))
	if err != nil {
		return storeErr("fetch room history", err)
	}
	h.conns.Touch(connID)
	h.presence.Touch(conn.UserID())

	h.sendEvent(connID, EventRoomHistory, RoomHistoryEvent{Room: roomID, Messages: msgs})
	return nil
}

// DMHistory fetches the recent conversation between the caller and
// another user.
func (h *Hub) DMHistory(ctx context.Context, connID string, with int64, limit int) error {
	if err := h.begin(); err != nil {
		return err
	}
	defer h.end()

	conn, ok := h.conns.Get(connID)
	if !ok {
		return ErrConnectionUnknown
	}
	if with <= 0 {
		return fmt.Errorf("%w: dm history needs a counterpart", ErrInvalidCommand)
	}

	msgs, err := h.store.FetchDMHistory(ctx, conn.UserID(), with, h.clampLimit(limit))
	if err != nil {
		return storeErr("fetch dm history", err)
	}
	h.conns.Touch(connID)

	h.sendEvent(connID, EventDMHistory, DMHistoryEvent{With: with, Messages: msgs})
	return nil
}

// StartTyping marks the sender as typing and announces it to the room.
func (h *Hub) StartTyping(ctx context.Context, connID, roomID string) error {
	return h.typing(ctx, connID, roomID, true)
}

// StopTyping clears the sender's typing indicator and announces it.
func (h *Hub) StopTyping(ctx context.Context, connID, roomID string) error {
	return h.typing(ctx, connID, roomID, false)
}

func (h *Hub) typing(ctx context.Context, connID, roomID string, start bool) error {
	if err := h.begin(); err != nil {
		return err
	}
	defer h.end()

	conn, ok := h.conns.Get(connID)
	if !ok {
		return ErrConnectionUnknown
	}
	if !h.rooms.IsMember(roomID, connID) {
		return ErrNotAMember
	}

	event := EventTypingStart
	if start {
		h.presence.StartTyping(roomID, conn.UserID())
	} else {
		h.presence.StopTyping(roomID, conn.UserID())
		event = EventTypingStop
	}
	h.conns.Touch(connID)
	h.presence.Touch(conn.UserID())

	h.broadcastEvent(ctx, roomID, event, TypingEvent{
		Room: roomID, User: conn.UserID(), Username: conn.Username(),
	})
	return nil
}

// UpdatePresence pins the sender's availability and announces it to
// every room the connection is in.
func (h *Hub) UpdatePresence(ctx context.Context, connID, status, activity string) error {
	if err := h.begin(); err != nil {
		return err
	}
	defer h.end()

	conn, ok := h.conns.Get(connID)
	if !ok {
		return ErrConnectionUnknown
	}
	if !h.presence.SetStatus(conn.UserID(), presence.Status(status)) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidCommand, status)
	}
	h.conns.Touch(connID)

	update := PresenceUpdateEvent{User: conn.UserID(), Status: status, Activity: activity}
	for _, roomID := range conn.Rooms() {
		h.broadcastEvent(ctx, roomID, EventPresenceUpdate, update)
	}
	h.sendEvent(connID, EventActionConfirmed, ActionConfirmedEvent{Action: CmdUpdatePresence, Success: true})
	return nil
}

// AddReaction records the sender's emoji on a message and announces the
// updated count to the room.
func (h *Hub) AddReaction(ctx context.Context, connID, roomID, messageID, emoji string) error {
	return h.react(ctx, connID, roomID, messageID, emoji, true)
}

// RemoveReaction removes the sender's emoji from a message. Removing an
// absent reaction is a confirmed no-op.
func (h *Hub) RemoveReaction(ctx context.Context, connID, roomID, messageID, emoji string) error {
	return h.react(ctx, connID, roomID, messageID, emoji, false)
}

func (h *Hub) react(ctx context.Context, connID, roomID, messageID, emoji string, add bool) error {
	if err := h.begin(); err != nil {
		return err
	}
	defer h.end()

	conn, ok := h.conns.Get(connID)
	if !ok {
		return ErrConnectionUnknown
	}
	if messageID == "" || emoji == "" {
		return fmt.Errorf("%w: reaction needs a message id and emoji", ErrInvalidCommand)
	}

	membership, ok := h.rooms.Membership(roomID, connID)
	if !ok {
		return ErrNotAMember
	}
	if !membership.HasPermission(room.PermAddReactions) {
		return fmt.Errorf("%w: cannot react in %s", ErrPermissionDenied, roomID)
	}

	var (
		reaction message.Reaction
		err      error
		action   = CmdAddReaction
		event    = EventReactionAdded
	)
	if add {
		reaction, err = h.store.AddReaction(ctx, messageID, conn.UserID(), emoji)
	} else {
		reaction, err = h.store.RemoveReaction(ctx, messageID, conn.UserID(), emoji)
		action, event = CmdRemoveReaction, EventReactionRemoved
	}
	if err != nil {
		return storeErr("reaction", err)
	}
	reaction.Room = roomID
	h.conns.Touch(connID)

	h.broadcastEvent(ctx, roomID, event, reaction)
	h.sendEvent(connID, EventActionConfirmed, ActionConfirmedEvent{Action: action, Success: true})
	return nil
}

// Touch refreshes activity on heartbeat, keeping the connection out of
// the idle sweep and the user out of the inactivity demotion.
func (h *Hub) Touch(connID string) {
	h.conns.Touch(connID)
	if conn, ok := h.conns.Get(connID); ok {
		h.presence.Touch(conn.UserID())
	}
}

// RecentMessages returns the in-memory recent buffer of a room.
func (h *Hub) RecentMessages(roomID string, limit int) []message.Message {
	return h.rooms.Recent(roomID, limit)
}

// Run returns an errgroup-compatible loop driving the idle-connection
// sweep and the presence inactivity sweep.
func (h *Hub) Run(ctx context.Context) func() error {
	return func() error {
		idle := h.clock.Ticker(h.cfg.IdleSweepInterval)
		defer idle.Stop()
		inactive := h.clock.Ticker(h.cfg.PresenceSweepInterval)
		defer inactive.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-idle.C:
				h.sweepIdle(ctx)
			case <-inactive.C:
				h.presence.CleanupInactive()
			}
		}
	}
}

func (h *Hub) sweepIdle(ctx context.Context) {
	idle := h.conns.IdleConnections(h.cfg.Connection.IdleTimeout)
	for _, connID := range idle {
		h.Disconnect(ctx, connID)
	}
	if len(idle) > 0 {
		h.log.Info("idle sweep",
			logger.Component("hub"),
			logger.Count("removed", len(idle)),
		)
	}
}

// Shutdown stops accepting new connections and commands, waits for
// in-flight operations to drain, and closes every outbound channel.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.opsMu.Lock()
	already := h.closed
	h.closed = true
	h.opsMu.Unlock()
	if already {
		return nil
	}

	h.conns.Close()
	h.log.Info("hub shut down", logger.Component("hub"))
	return ctx.Err()
}

func (h *Hub) sequencerFor(roomID string) *sync.Mutex {
	mu, _ := h.sequencers.GetOrCreate(roomID, func() *sync.Mutex {
		return &sync.Mutex{}
	})
	return mu
}

func (h *Hub) clampLimit(limit int) int {
	if limit <= 0 || limit > h.cfg.HistoryLimit {
		return h.cfg.HistoryLimit
	}
	return limit
}

// sendEvent delivers one event to one connection. Delivery failure is a
// slow-consumer condition, logged and not propagated.
func (h *Hub) sendEvent(connID, eventType string, data any) {
	payload, err := encodeEvent(eventType, data)
	if err != nil {
		h.log.Error("event encoding failed", logger.Component("hub"), logger.Error(err))
		return
	}
	if err := h.engine.Send(connID, payload); err != nil {
		h.log.Debug("event undeliverable",
			logger.Component("hub"),
			logger.ConnID(connID),
			logger.Event(eventType),
			logger.Error(err),
		)
	}
}

func (h *Hub) broadcastEvent(ctx context.Context, roomID, eventType string, data any) {
	payload, err := encodeEvent(eventType, data)
	if err != nil {
		h.log.Error("event encoding failed", logger.Component("hub"), logger.Error(err))
		return
	}
	h.engine.Broadcast(ctx, roomID, payload)
}

// sendError reports a rejected command to its issuer as exactly one
// error event.
func (h *Hub) sendError(connID string, err error) {
	h.sendEvent(connID, EventError, ErrorEvent{
		Code:    errorCode(err),
		Message: err.Error(),
	})
}

func storeErr(op string, err error) error {
	if errors.Is(err, ErrStorageUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
