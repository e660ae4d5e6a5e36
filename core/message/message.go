// Package message defines the message envelope shared by the hub, the
// room buffers, and the persistence layer.
package message

import "time"

// Kind classifies a message envelope.
type Kind string

const (
	KindText   Kind = "text"
	KindSystem Kind = "system"
)

// Message is one chat message. ID and CreatedAt are authoritative only
// after the persistence store has acknowledged the write; in-memory
// buffering treats both as opaque.
type Message struct {
	ID         string    `json:"id"`
	AuthorID   int64     `json:"author_id"`
	AuthorName string    `json:"author_name,omitempty"`
	Room       string    `json:"room,omitempty"`
	Recipient  int64     `json:"recipient,omitempty"`
	Content    string    `json:"content"`
	Kind       Kind      `json:"kind"`
	CreatedAt  time.Time `json:"created_at"`
}

// Reaction is the state of one emoji on one message after an add or
// remove operation. Count is derived by the store, never decremented
// in place, so concurrent removals cannot drive it negative.
type Reaction struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
	UserID    int64  `json:"user_id"`
	Count     int    `json:"count"`
	Room      string `json:"room,omitempty"`
}
