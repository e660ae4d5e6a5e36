package logger

import (
	"log/slog"
	"time"
)

// Attribute helpers use the empty Attr pattern for nil safety, so call
// sites never need explicit nil checks.

// Error creates an attribute for a single error under the key "error".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component creates an attribute for component names.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event creates an attribute for event names.
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// Duration creates an attribute for a duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Elapsed logs the duration since start.
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}

// Count creates a generic counter attribute.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// UserID identifies the acting user.
func UserID(id int64) slog.Attr {
	return slog.Int64("user_id", id)
}

// RoomID identifies the room a record relates to.
func RoomID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("room_id", id)
}

// ConnID identifies a connection.
func ConnID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("conn_id", id)
}

// MessageID identifies a persisted message.
func MessageID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("message_id", id)
}
