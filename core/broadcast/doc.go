// Package broadcast fans encoded payloads out to room members and to a
// user's connections.
//
// The engine takes a point-in-time snapshot of the recipient set, then
// delivers to each recipient's bounded outbound channel in parallel with
// a capped worker count. Slow consumers never block the fan-out: a full
// channel is a counted failure for that recipient, and everyone else
// still receives the payload.
//
// The engine does not order concurrent broadcasts; callers that need
// per-room ordering serialize their Broadcast calls per room.
//
// Usage:
//
//	engine := broadcast.NewEngine(conns, rooms, broadcast.Config{})
//	report := engine.Broadcast(ctx, "general", payload)
//	log.Info("fan-out done", "delivered", report.Delivered)
package broadcast
