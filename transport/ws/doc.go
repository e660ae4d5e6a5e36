// Package ws is the WebSocket transport in front of the hub.
//
// The handler authenticates the handshake (bearer header or ?token=
// query parameter, validated once, never per message), registers the
// connection with the hub, and runs the two pumps: the read pump feeds
// inbound frames to hub.HandleCommand and refreshes activity on pongs,
// the write pump drains the connection's outbound channel onto the
// socket and emits pings.
//
// The transport owns all framing concerns; the hub never sees a
// websocket type.
package ws
