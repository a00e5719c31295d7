// Package realtime implements the real-time synchronization client.
//
// The Service:
//   - Owns a single WebSocket transport and its connection lifecycle
//   - Reconnects with capped exponential backoff (1s base, 30s cap)
//   - Replays all registered subscriptions after every reconnect
//   - Buffers outbound messages in a bounded queue while disconnected,
//     evicting oldest on overflow
//   - Sends application-level ping frames every 30s while connected
//   - Publishes inbound frames on the local event bus keyed by type
package realtime
