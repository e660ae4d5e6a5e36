// Package room owns the table of rooms: bounded member sets, per-room
// settings, and a fixed-capacity buffer of recently delivered messages
// for late joiners.
//
// Rooms are created on first join with default settings; Create exists
// for callers that need non-default settings and is idempotent. Rooms are
// never implicitly destroyed when empty.
//
// Membership mutations take a short exclusive lock on the one room they
// touch; the room table itself is sharded, so joins in unrelated rooms do
// not contend. Member snapshots are point-in-time consistent: a snapshot
// never observes a half-inserted or half-removed member.
package room
