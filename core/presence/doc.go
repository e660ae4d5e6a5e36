// Package presence tracks per-user availability and typing activity.
//
// A user's effective status is derived from their live connections and
// any manual override: users with no room membership anywhere appear
// Invisible, a first room join promotes them to Online, and an explicit
// SetStatus call pins the status until the user disconnects entirely.
//
// Typing indicators are room-scoped and expire after a short window
// without renewal; expiry is evaluated lazily on read, so no background
// goroutine is needed for correctness. CleanupInactive exists for the
// hub's periodic sweep that demotes users idle past a threshold.
//
// Usage:
//
//	tracker := presence.NewTracker(presence.Config{})
//	tracker.RoomJoined(userID)
//	tracker.StartTyping("general", userID)
//	users := tracker.TypingUsers("general")
package presence
