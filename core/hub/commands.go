package hub

import (
	"context"
	"encoding/json"
	"fmt"
)

// Inbound command types accepted by HandleCommand.
const (
	CmdJoinRoom       = "join_room"
	CmdLeaveRoom      = "leave_room"
	CmdRoomMessage    = "room_message"
	CmdDirectMessage  = "direct_message"
	CmdRoomHistory    = "room_history"
	CmdDMHistory      = "dm_history"
	CmdStartTyping    = "start_typing"
	CmdStopTyping     = "stop_typing"
	CmdUpdatePresence = "update_presence"
	CmdAddReaction    = "add_reaction"
	CmdRemoveReaction = "remove_reaction"
)

type roomCmd struct {
	Room string `json:"room"`
}

type roomMessageCmd struct {
	Room    string `json:"room"`
	Content string `json:"content"`
}

type directMessageCmd struct {
	ToUser  int64  `json:"to_user"`
	Content string `json:"content"`
}

type roomHistoryCmd struct {
	Room  string `json:"room"`
	Limit int    `json:"limit"`
}

type dmHistoryCmd struct {
	With  int64 `json:"with"`
	Limit int   `json:"limit"`
}

type updatePresenceCmd struct {
	Status   string `json:"status"`
	Activity string `json:"activity,omitempty"`
}

type reactionCmd struct {
	Room      string `json:"room"`
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

// HandleCommand decodes one inbound frame from the connection and runs
// the matching operation. Any rejection, including an undecodable
// frame, is reported back to the connection as exactly one error
// event; the returned error mirrors it for transport-level logging.
func (h *Hub) HandleCommand(ctx context.Context, connID string, raw []byte) error {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		wrapped := fmt.Errorf("%w: %w", ErrInvalidCommand, err)
		h.sendError(connID, wrapped)
		return wrapped
	}

	err := h.dispatch(ctx, connID, env)
	if err != nil {
		h.sendError(connID, err)
	}
	return err
}

func (h *Hub) dispatch(ctx context.Context, connID string, env Envelope) error {
	switch env.Type {
	case CmdJoinRoom:
		var cmd roomCmd
		if err := decode(env, &cmd); err != nil {
			return err
		}
		return h.JoinRoom(ctx, connID, cmd.Room)

	case CmdLeaveRoom:
		var cmd roomCmd
		if err := decode(env, &cmd); err != nil {
			return err
		}
		return h.LeaveRoom(ctx, connID, cmd.Room)

	case CmdRoomMessage:
		var cmd roomMessageCmd
		if err := decode(env, &cmd); err != nil {
			return err
		}
		return h.SendMessage(ctx, connID, cmd.Room, cmd.Content)

	case CmdDirectMessage:
		var cmd directMessageCmd
		if err := decode(env, &cmd); err != nil {
			return err
		}
		return h.SendDirect(ctx, connID, cmd.ToUser, cmd.Content)

	case CmdRoomHistory:
		var cmd roomHistoryCmd
		if err := decode(env, &cmd); err != nil {
			return err
		}
		return h.RoomHistory(ctx, connID, cmd.Room, cmd.Limit)

	case CmdDMHistory:
		var cmd dmHistoryCmd
		if err := decode(env, &cmd); err != nil {
			return err
		}
		return h.DMHistory(ctx, connID, cmd.With, cmd.Limit)

	case CmdStartTyping:
		var cmd roomCmd
		if err := decode(env, &cmd); err != nil {
			return err
		}
		return h.StartTyping(ctx, connID, cmd.Room)

	case CmdStopTyping:
		var cmd roomCmd
		if err := decode(env, &cmd); err != nil {
			return err
		}
		return h.StopTyping(ctx, connID, cmd.Room)

	case CmdUpdatePresence:
		var cmd updatePresenceCmd
		if err := decode(env, &cmd); err != nil {
			return err
		}
		return h.UpdatePresence(ctx, connID, cmd.Status, cmd.Activity)

	case CmdAddReaction:
		var cmd reactionCmd
		if err := decode(env, &cmd); err != nil {
			return err
		}
		return h.AddReaction(ctx, connID, cmd.Room, cmd.MessageID, cmd.Emoji)

	case CmdRemoveReaction:
		var cmd reactionCmd
		if err := decode(env, &cmd); err != nil {
			return err
		}
		return h.RemoveReaction(ctx, connID, cmd.Room, cmd.MessageID, cmd.Emoji)

	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidCommand, env.Type)
	}
}

func decode(env Envelope, dst any) error {
	if len(env.Data) == 0 {
		return fmt.Errorf("%w: %s has no data", ErrInvalidCommand, env.Type)
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidCommand, env.Type, err)
	}
	return nil
}
