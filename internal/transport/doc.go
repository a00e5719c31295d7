// Package transport implements the WebSocket transport under the
// realtime sync service.
//
// The transport:
//   - Dials the configured endpoint with an optional bearer token
//   - Delivers received frames on a buffered channel, timestamped
//   - Serializes writes and applies a write deadline
//   - Reports read failures on an error channel exactly once
//
// It holds no reconnect or heartbeat policy; the realtime service
// owns connection lifecycle.
package transport
