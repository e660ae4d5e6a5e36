// Package hub is the composition root of the chat core. It wires the
// connection registry, room registry, presence tracker, and broadcast
// engine behind the operations the transport layer consumes: register,
// disconnect, join, leave, send, history, typing, presence, reactions.
//
// Message sends are sequenced per room: the persistence write, the
// recent-buffer append, and the fan-out happen under a per-room lock,
// so every member observes one room's messages in the order the hub
// accepted them. Different rooms never contend.
//
// The hub owns the event policy: every rejected command produces
// exactly one error event with a stable machine-readable code, and
// every accepted state-changing command produces exactly one
// confirmation or domain event for the sender.
//
// Persistence and token validation are collaborators behind interfaces;
// the hub never touches a database or parses a token itself.
package hub
