// Package postgres implements the hub's persistence store on
// PostgreSQL via pgx.
//
// Message ids and timestamps are assigned by the database, making them
// authoritative the moment the insert returns. Reaction writes are
// idempotent at the schema level: adds use ON CONFLICT DO NOTHING with
// a per-user cap, removes are plain deletes, and counts are always
// derived with an aggregate instead of maintained in place, so
// concurrent removals can never drive a count negative.
//
// Every backend failure is reported wrapped in hub.ErrStorageUnavailable
// so the hub refuses to broadcast anything the database did not
// acknowledge.
package postgres
