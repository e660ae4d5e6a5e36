package ws

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relayhq/chathub/core/auth"
	"github.com/relayhq/chathub/core/connection"
	"github.com/relayhq/chathub/core/hub"
	"github.com/relayhq/chathub/core/logger"
)

// Config holds transport settings with environment variable support.
type Config struct {
	ReadBufferSize  int           `env:"WS_READ_BUFFER" envDefault:"1024"`
	WriteBufferSize int           `env:"WS_WRITE_BUFFER" envDefault:"1024"`
	// MaxMessageSize caps one inbound frame.
	MaxMessageSize int64 `env:"WS_MAX_MESSAGE_SIZE" envDefault:"4096"`
	// WriteWait bounds a single socket write.
	WriteWait time.Duration `env:"WS_WRITE_WAIT" envDefault:"10s"`
	// PongWait is how long to wait for a pong before dropping the
	// connection. PingPeriod must be shorter.
	PongWait   time.Duration `env:"WS_PONG_WAIT" envDefault:"60s"`
	PingPeriod time.Duration `env:"WS_PING_PERIOD" envDefault:"54s"`
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger for transport diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// WithOriginCheck overrides the upgrader's origin policy.
func WithOriginCheck(fn func(r *http.Request) bool) Option {
	return func(h *Handler) {
		h.upgrader.CheckOrigin = fn
	}
}

// Handler upgrades HTTP requests and bridges sockets to the hub.
type Handler struct {
	hub      *hub.Hub
	auth     *auth.Service
	cfg      Config
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// New creates the WebSocket handler.
func New(h *hub.Hub, authSvc *auth.Service, cfg Config, opts ...Option) *Handler {
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 4096
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = cfg.PongWait * 9 / 10
	}

	handler := &Handler{
		hub:  h,
		auth: authSvc,
		cfg:  cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
		},
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(handler)
	}

	return handler
}

// ServeHTTP authenticates, upgrades, registers, and runs the pumps
// until the client disconnects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, err := h.auth.ValidateToken(tokenFromRequest(r))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.log.Debug("upgrade failed", logger.Component("ws"), logger.Error(err))
		return
	}

	conn, err := h.hub.RegisterConnection(claims, connection.Metadata{
		RemoteAddr: r.RemoteAddr,
		Platform:   r.UserAgent(),
	})
	if err != nil {
		code := websocket.CloseTryAgainLater
		if errors.Is(err, auth.ErrUnauthorized) {
			code = websocket.ClosePolicyViolation
		}
		_ = socket.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, err.Error()),
			time.Now().Add(h.cfg.WriteWait))
		_ = socket.Close()
		return
	}

	h.log.Info("websocket session started",
		logger.Component("ws"),
		logger.ConnID(conn.ID()),
		logger.UserID(claims.UserID),
		slog.String("remote_addr", r.RemoteAddr),
	)

	go h.writePump(socket, conn)
	h.readPump(r.Context(), socket, conn)
}

// readPump feeds inbound frames to the hub until the socket errors or
// closes. It owns the disconnect: the hub is always told exactly once.
func (h *Handler) readPump(ctx context.Context, socket *websocket.Conn, conn *connection.Connection) {
	defer func() {
		h.hub.Disconnect(ctx, conn.ID())
		_ = socket.Close()
	}()

	socket.SetReadLimit(h.cfg.MaxMessageSize)
	_ = socket.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	socket.SetPongHandler(func(string) error {
		_ = socket.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
		h.hub.Touch(conn.ID())
		return nil
	})

	for {
		msgType, frame, err := socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.log.Debug("read pump closed",
					logger.Component("ws"),
					logger.ConnID(conn.ID()),
					logger.Error(err),
				)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		// Rejections are reported to the client by the hub; nothing to
		// do here beyond logging.
		if err := h.hub.HandleCommand(ctx, conn.ID(), frame); err != nil {
			h.log.Debug("command rejected",
				logger.Component("ws"),
				logger.ConnID(conn.ID()),
				logger.Error(err),
			)
		}
	}
}

// writePump drains the outbound channel onto the socket and keeps the
// connection alive with pings. It exits when the channel closes (hub
// removed the connection) or a write fails.
func (h *Handler) writePump(socket *websocket.Conn, conn *connection.Connection) {
	ticker := time.NewTicker(h.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = socket.Close()
	}()

	for {
		select {
		case payload, ok := <-conn.Outbound():
			_ = socket.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			if !ok {
				_ = socket.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutting down"))
				return
			}
			if err := socket.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = socket.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			if err := socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// tokenFromRequest accepts the token from the Authorization header or,
// for browser clients that cannot set headers on WebSocket handshakes,
// the token query parameter.
func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return token
		}
	}
	return r.URL.Query().Get("token")
}
