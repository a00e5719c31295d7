// Package database provides the PostgreSQL connection pool for the
// event journal. Only constructed when the recorder is enabled.
package database
