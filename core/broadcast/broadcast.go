package broadcast

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relayhq/chathub/core/connection"
	"github.com/relayhq/chathub/core/logger"
	"github.com/relayhq/chathub/core/room"
)

// DefaultConcurrency caps the delivery workers per fan-out call.
const DefaultConcurrency = 64

// Config holds fan-out tuning with environment variable support.
type Config struct {
	// Concurrency is the maximum number of parallel delivery workers per
	// broadcast call.
	Concurrency int `env:"BROADCAST_CONCURRENCY" envDefault:"64"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for fan-out reporting.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// DeliveryReport summarizes one fan-out call.
type DeliveryReport struct {
	// Delivered counts recipients whose outbound channel accepted the
	// payload.
	Delivered int
	// Failed counts recipients skipped because their channel was full or
	// already closed.
	Failed int
	// Elapsed is the wall time of the fan-out.
	Elapsed time.Duration
}

// Engine delivers payloads to live connections. Safe for concurrent use;
// concurrent calls on different rooms proceed fully in parallel.
type Engine struct {
	conns *connection.Registry
	rooms *room.Registry

	concurrency int
	log         *slog.Logger
}

// NewEngine creates a fan-out engine over the given registries.
func NewEngine(conns *connection.Registry, rooms *room.Registry, cfg Config, opts ...Option) *Engine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}

	e := &Engine{
		conns:       conns,
		rooms:       rooms,
		concurrency: cfg.Concurrency,
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Broadcast delivers payload to every current member of the room,
// including the sender's own connections. The member set is snapshotted
// once at the start; joins and leaves during the fan-out do not affect
// it. A broadcast to an unknown or empty room is a no-op.
func (e *Engine) Broadcast(ctx context.Context, roomID string, payload []byte) DeliveryReport {
	members := e.rooms.Members(roomID)
	report := e.deliver(ctx, members, payload)

	if report.Failed > 0 {
		e.log.Warn("fan-out had undeliverable recipients",
			logger.Component("broadcast"),
			logger.RoomID(roomID),
			logger.Count("delivered", report.Delivered),
			logger.Count("failed", report.Failed),
			logger.Duration(report.Elapsed),
		)
	}
	return report
}

// Direct delivers payload to every live connection of a single user.
func (e *Engine) Direct(ctx context.Context, userID int64, payload []byte) DeliveryReport {
	return e.deliver(ctx, e.conns.ConnectionsOfUser(userID), payload)
}

// Send delivers payload to one specific connection.
func (e *Engine) Send(connID string, payload []byte) error {
	conn, ok := e.conns.Get(connID)
	if !ok {
		return connection.ErrChannelClosed
	}
	return conn.Send(payload)
}

func (e *Engine) deliver(ctx context.Context, recipients []string, payload []byte) DeliveryReport {
	start := time.Now()
	if len(recipients) == 0 {
		return DeliveryReport{Elapsed: time.Since(start)}
	}

	var delivered, failed atomic.Int64

	workers := min(e.concurrency, len(recipients))
	queue := make(chan string)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for connID := range queue {
				conn, ok := e.conns.Get(connID)
				if !ok {
					failed.Add(1)
					continue
				}
				if err := conn.Send(payload); err != nil {
					failed.Add(1)
					continue
				}
				delivered.Add(1)
			}
		}()
	}

feed:
	for i, connID := range recipients {
		select {
		case queue <- connID:
		case <-ctx.Done():
			// Remaining recipients count as failures; workers finish the
			// payloads already queued.
			failed.Add(int64(len(recipients) - i))
			break feed
		}
	}
	close(queue)
	wg.Wait()

	return DeliveryReport{
		Delivered: int(delivered.Load()),
		Failed:    int(failed.Load()),
		Elapsed:   time.Since(start),
	}
}
