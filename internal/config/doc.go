// Package config loads and validates the syncd YAML configuration.
//
// Files are read with ${VAR} environment expansion so secrets (the
// realtime token, database password) can live outside the file.
package config
