package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/relayhq/chathub/core/hub"
	"github.com/relayhq/chathub/core/logger"
	"github.com/relayhq/chathub/core/message"
)

// Config holds cache tuning with environment variable support.
type Config struct {
	// HistoryTTL bounds staleness when an invalidation is lost.
	HistoryTTL time.Duration `env:"CACHE_HISTORY_TTL" envDefault:"5m"`
	// KeyPrefix namespaces cache keys when the Redis instance is shared.
	KeyPrefix string `env:"CACHE_KEY_PREFIX" envDefault:"chathub"`
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for cache diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// Store wraps an inner hub.Store with Redis-backed history caching.
type Store struct {
	inner  hub.Store
	client *redis.Client
	cfg    Config
	log    *slog.Logger
}

// New creates the caching decorator over inner.
func New(inner hub.Store, client *redis.Client, cfg Config, opts ...Option) *Store {
	if cfg.HistoryTTL <= 0 {
		cfg.HistoryTTL = 5 * time.Minute
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "chathub"
	}

	s := &Store{
		inner:  inner,
		client: client,
		cfg:    cfg,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Store) historyKey(roomID string, limit int) string {
	return fmt.Sprintf("%s:history:%s:%d", s.cfg.KeyPrefix, roomID, limit)
}

func (s *Store) invalidationPattern(roomID string) string {
	return fmt.Sprintf("%s:history:%s:*", s.cfg.KeyPrefix, roomID)
}

// InsertRoomMessage writes through to the inner store and invalidates
// the room's cached history.
func (s *Store) InsertRoomMessage(ctx context.Context, roomID string, authorID int64, authorName, content string) (message.Message, error) {
	msg, err := s.inner.InsertRoomMessage(ctx, roomID, authorID, authorName, content)
	if err != nil {
		return message.Message{}, err
	}
	s.invalidate(ctx, roomID)
	return msg, nil
}

// FetchRoomHistory serves cached history when fresh, falling back to
// the inner store on miss or on any cache failure.
func (s *Store) FetchRoomHistory(ctx context.Context, roomID string, limit int) ([]message.Message, error) {
	key := s.historyKey(roomID, limit)

	cached, err := s.client.Get(ctx, key).Bytes()
	if err == nil {
		var msgs []message.Message
		if err := json.Unmarshal(cached, &msgs); err == nil {
			return msgs, nil
		}
		// Undecodable entry: drop it and fall through.
		s.client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn("history cache read failed",
			logger.Component("rediscache"),
			logger.RoomID(roomID),
			logger.Error(err),
		)
	}

	msgs, err := s.inner.FetchRoomHistory(ctx, roomID, limit)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(msgs); err == nil {
		if err := s.client.Set(ctx, key, encoded, s.cfg.HistoryTTL).Err(); err != nil {
			s.log.Warn("history cache write failed",
				logger.Component("rediscache"),
				logger.RoomID(roomID),
				logger.Error(err),
			)
		}
	}
	return msgs, nil
}

func (s *Store) invalidate(ctx context.Context, roomID string) {
	iter := s.client.Scan(ctx, 0, s.invalidationPattern(roomID), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		s.log.Warn("history cache invalidation scan failed",
			logger.Component("rediscache"),
			logger.RoomID(roomID),
			logger.Error(err),
		)
		return
	}
	if len(keys) > 0 {
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			s.log.Warn("history cache invalidation failed",
				logger.Component("rediscache"),
				logger.RoomID(roomID),
				logger.Error(err),
			)
		}
	}
}

// The remaining operations pass through to the inner store unchanged.

func (s *Store) InsertDirectMessage(ctx context.Context, fromID int64, fromName string, toID int64, content string) (message.Message, error) {
	return s.inner.InsertDirectMessage(ctx, fromID, fromName, toID, content)
}

func (s *Store) FetchDMHistory(ctx context.Context, userA, userB int64, limit int) ([]message.Message, error) {
	return s.inner.FetchDMHistory(ctx, userA, userB, limit)
}

func (s *Store) UserExists(ctx context.Context, userID int64) (bool, error) {
	return s.inner.UserExists(ctx, userID)
}

func (s *Store) RoomExists(ctx context.Context, roomID string) (bool, error) {
	return s.inner.RoomExists(ctx, roomID)
}

func (s *Store) AddReaction(ctx context.Context, messageID string, userID int64, emoji string) (message.Reaction, error) {
	return s.inner.AddReaction(ctx, messageID, userID, emoji)
}

func (s *Store) RemoveReaction(ctx context.Context, messageID string, userID int64, emoji string) (message.Reaction, error) {
	return s.inner.RemoveReaction(ctx, messageID, userID, emoji)
}
