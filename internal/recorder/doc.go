// Package recorder implements the event journal writer.
//
// The recorder subscribes to the wildcard bus topic and batch-inserts
// every application event into the fleet_events table (append-only).
// It is an optional collaborator of the sync core: disabling it has
// no effect on delivery to other bus consumers.
package recorder
