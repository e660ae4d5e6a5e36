package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relayhq/chathub/core/hub"
	"github.com/relayhq/chathub/core/message"
	"github.com/relayhq/chathub/integration/database/pg"
)

// maxReactionsPerUser caps distinct reactions one user may hold on one
// message.
const maxReactionsPerUser = 10

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so every
// method transparently joins a transaction attached via pg.WithTx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists messages, users, rooms, and reactions in PostgreSQL.
// It implements hub.Store.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a store over an established connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) db(ctx context.Context) querier {
	if tx, ok := pg.TxFromContext(ctx); ok {
		return tx
	}
	return s.pool
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, hub.ErrStorageUnavailable, err)
}

// InsertRoomMessage records a room message, creating the room row on
// first use. The returned envelope carries the database-assigned id and
// timestamp.
func (s *Store) InsertRoomMessage(ctx context.Context, roomID string, authorID int64, authorName, content string) (message.Message, error) {
	db := s.db(ctx)

	if _, err := db.Exec(ctx,
		`INSERT INTO rooms (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`,
		roomID,
	); err != nil {
		return message.Message{}, unavailable("ensure room", err)
	}

	msg := message.Message{
		AuthorID:   authorID,
		AuthorName: authorName,
		Room:       roomID,
		Content:    content,
		Kind:       message.KindText,
	}
	err := db.QueryRow(ctx,
		`INSERT INTO messages (author_id, author_name, room, content, kind)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		authorID, authorName, roomID, content, message.KindText,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return message.Message{}, unavailable("insert room message", err)
	}
	return msg, nil
}

// InsertDirectMessage records a direct message between two users.
func (s *Store) InsertDirectMessage(ctx context.Context, fromID int64, fromName string, toID int64, content string) (message.Message, error) {
	msg := message.Message{
		AuthorID:   fromID,
		AuthorName: fromName,
		Recipient:  toID,
		Content:    content,
		Kind:       message.KindText,
	}
	err := s.db(ctx).QueryRow(ctx,
		`INSERT INTO messages (author_id, author_name, recipient, content, kind)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		fromID, fromName, toID, content, message.KindText,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return message.Message{}, unavailable("insert direct message", err)
	}
	return msg, nil
}

// FetchRoomHistory returns up to limit most recent room messages in
// chronological order.
func (s *Store) FetchRoomHistory(ctx context.Context, roomID string, limit int) ([]message.Message, error) {
	rows, err := s.db(ctx).Query(ctx,
		`SELECT id, author_id, author_name, room, content, kind, created_at
		 FROM messages
		 WHERE room = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		roomID, limit,
	)
	if err != nil {
		return nil, unavailable("fetch room history", err)
	}
	msgs, err := scanMessages(rows, false)
	if err != nil {
		return nil, unavailable("fetch room history", err)
	}
	return msgs, nil
}

// FetchDMHistory returns up to limit most recent messages between two
// users in chronological order.
func (s *Store) FetchDMHistory(ctx context.Context, userA, userB int64, limit int) ([]message.Message, error) {
	rows, err := s.db(ctx).Query(ctx,
		`SELECT id, author_id, author_name, recipient, content, kind, created_at
		 FROM messages
		 WHERE (author_id = $1 AND recipient = $2)
		    OR (author_id = $2 AND recipient = $1)
		 ORDER BY created_at DESC, id DESC
		 LIMIT $3`,
		userA, userB, limit,
	)
	if err != nil {
		return nil, unavailable("fetch dm history", err)
	}
	msgs, err := scanMessages(rows, true)
	if err != nil {
		return nil, unavailable("fetch dm history", err)
	}
	return msgs, nil
}

// UserExists reports whether the user id is known.
func (s *Store) UserExists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := s.db(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`,
		userID,
	).Scan(&exists)
	if err != nil {
		return false, unavailable("check user", err)
	}
	return exists, nil
}

// RoomExists reports whether the room name is known.
func (s *Store) RoomExists(ctx context.Context, roomID string) (bool, error) {
	var exists bool
	err := s.db(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM rooms WHERE name = $1)`,
		roomID,
	).Scan(&exists)
	if err != nil {
		return false, unavailable("check room", err)
	}
	return exists, nil
}

// AddReaction records one user's emoji on a message. Re-adding the same
// emoji is a no-op; adds beyond the per-user cap are silently ignored.
// The returned count is derived, never incremented in place.
func (s *Store) AddReaction(ctx context.Context, messageID string, userID int64, emoji string) (message.Reaction, error) {
	db := s.db(ctx)

	if _, err := db.Exec(ctx,
		`INSERT INTO message_reactions (message_id, user_id, emoji)
		 SELECT $1, $2, $3
		 WHERE (SELECT count(*) FROM message_reactions
		        WHERE message_id = $1 AND user_id = $2) < $4
		 ON CONFLICT (message_id, user_id, emoji) DO NOTHING`,
		messageID, userID, emoji, maxReactionsPerUser,
	); err != nil {
		return message.Reaction{}, unavailable("add reaction", err)
	}

	return s.reactionState(ctx, messageID, userID, emoji)
}

// RemoveReaction removes one user's emoji from a message. Removing an
// absent reaction is a no-op.
func (s *Store) RemoveReaction(ctx context.Context, messageID string, userID int64, emoji string) (message.Reaction, error) {
	if _, err := s.db(ctx).Exec(ctx,
		`DELETE FROM message_reactions
		 WHERE message_id = $1 AND user_id = $2 AND emoji = $3`,
		messageID, userID, emoji,
	); err != nil {
		return message.Reaction{}, unavailable("remove reaction", err)
	}

	return s.reactionState(ctx, messageID, userID, emoji)
}

func (s *Store) reactionState(ctx context.Context, messageID string, userID int64, emoji string) (message.Reaction, error) {
	reaction := message.Reaction{MessageID: messageID, Emoji: emoji, UserID: userID}
	err := s.db(ctx).QueryRow(ctx,
		`SELECT count(*) FROM message_reactions WHERE message_id = $1 AND emoji = $2`,
		messageID, emoji,
	).Scan(&reaction.Count)
	if err != nil {
		return message.Reaction{}, unavailable("count reactions", err)
	}
	return reaction, nil
}

// scanMessages collects rows in reverse (the queries sort newest first)
// so callers receive chronological order.
func scanMessages(rows pgx.Rows, direct bool) ([]message.Message, error) {
	defer rows.Close()

	var out []message.Message
	for rows.Next() {
		var m message.Message
		var err error
		if direct {
			err = rows.Scan(&m.ID, &m.AuthorID, &m.AuthorName, &m.Recipient, &m.Content, &m.Kind, &m.CreatedAt)
		} else {
			err = rows.Scan(&m.ID, &m.AuthorID, &m.AuthorName, &m.Room, &m.Content, &m.Kind, &m.CreatedAt)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
