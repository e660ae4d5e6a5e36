package hub

import (
	"encoding/json"
	"fmt"

	"github.com/relayhq/chathub/core/message"
)

// Outbound event types. Every payload the hub emits is a JSON envelope
// {"type": ..., "data": ...} tagged with one of these.
const (
	EventMessage         = "message"
	EventDM              = "dm"
	EventPresenceUpdate  = "presence_update"
	EventTypingStart     = "typing_start"
	EventTypingStop      = "typing_stop"
	EventRoomJoined      = "room_joined"
	EventRoomLeft        = "room_left"
	EventRoomHistory     = "room_history"
	EventDMHistory       = "dm_history"
	EventReactionAdded   = "reaction_added"
	EventReactionRemoved = "reaction_removed"
	EventActionConfirmed = "action_confirmed"
	EventError           = "error"
)

// Envelope is the wire frame shared by both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// PresenceUpdateEvent announces a user's availability change to every
// room the user shares with the recipient.
type PresenceUpdateEvent struct {
	User     int64  `json:"user"`
	Status   string `json:"status"`
	Activity string `json:"activity,omitempty"`
}

// TypingEvent announces typing start or stop in a room.
type TypingEvent struct {
	Room     string `json:"room"`
	User     int64  `json:"user"`
	Username string `json:"username,omitempty"`
}

// RoomEvent announces a join or leave.
type RoomEvent struct {
	Room     string `json:"room"`
	User     int64  `json:"user"`
	Username string `json:"username,omitempty"`
}

// RoomHistoryEvent carries recent room messages to one requester.
type RoomHistoryEvent struct {
	Room     string            `json:"room"`
	Messages []message.Message `json:"messages"`
}

// DMHistoryEvent carries the recent conversation with one user.
type DMHistoryEvent struct {
	With     int64             `json:"with"`
	Messages []message.Message `json:"messages"`
}

// ActionConfirmedEvent acknowledges an accepted state-changing command.
type ActionConfirmedEvent struct {
	Action  string `json:"action"`
	Success bool   `json:"success"`
}

// ErrorEvent reports a rejected command. Code is stable and
// machine-readable; Message is for humans.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// encodeEvent serializes an outbound envelope once, so fan-out shares
// the same bytes across all recipients.
func encodeEvent(eventType string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", eventType, err)
	}
	payload, err := json.Marshal(Envelope{Type: eventType, Data: raw})
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", eventType, err)
	}
	return payload, nil
}
