// Package rediscache decorates a hub.Store with a Redis read-through
// cache for room history.
//
// History fetches are the hottest read path (every reconnecting client
// issues one), so results are cached per room with a short TTL and
// invalidated whenever a new message lands in the room. Every other
// store operation passes through untouched.
//
// Cache failures degrade to the underlying store: a Redis outage makes
// history reads slower, never wrong and never unavailable.
package rediscache
