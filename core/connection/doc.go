// Package connection owns the table of live client connections and their
// outbound delivery channels.
//
// The registry enforces a hard connection ceiling, allocates connection
// ids, and creates a bounded outbound channel plus a dedicated rate
// limiter per connection. The transport layer drains Outbound() to feed
// the physical socket; the broadcast engine resolves connections here to
// deliver fan-out payloads.
//
// Sends never block: a full or closed channel fails the individual
// delivery and the caller counts it, so one slow consumer cannot stall a
// broadcast or grow memory without bound.
package connection
