// Package shard provides a sharded concurrent map keyed by strings or
// integers. Keys are distributed across a fixed number of shards by
// FNV-1a hash, so operations on unrelated keys take unrelated locks and
// never contend on a single global mutex.
//
// The map is intended for large hot tables (connections, rooms, presence
// records) where a plain sync.RWMutex around one map would serialize the
// whole system.
//
// Basic usage:
//
//	m := shard.NewMap[string, *Session](32)
//	m.Set("sess-1", s)
//	if s, ok := m.Get("sess-1"); ok { ... }
//	m.Delete("sess-1")
//
// Update mutates a single entry under its shard lock:
//
//	m.Update("room-1", func(r *Room, ok bool) (*Room, bool) {
//		if !ok {
//			r = newRoom()
//		}
//		r.members++
//		return r, true
//	})
//
// All operations are safe for concurrent use. Range iterates a
// point-in-time snapshot of each shard in turn; it never holds more than
// one shard lock at a time.
package shard
