package config

import "time"

// SyncdConfig is the root configuration for a sync daemon instance.
type SyncdConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Database DatabaseConfig `yaml:"database"`
	Recorder RecorderConfig `yaml:"recorder"`
	Health   HealthConfig   `yaml:"health"`
}

// InstanceConfig identifies this daemon.
type InstanceConfig struct {
	ID     string `yaml:"id"`
	Region string `yaml:"region"`
}

// RealtimeConfig holds the realtime sync client settings.
type RealtimeConfig struct {
	WSURL              string               `yaml:"ws_url"`
	Token              string               `yaml:"token"` // Bearer token for the Authorization header
	ReconnectBaseDelay time.Duration        `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration        `yaml:"reconnect_max_delay"`
	HeartbeatInterval  time.Duration        `yaml:"heartbeat_interval"`
	MaxQueueSize       int                  `yaml:"max_queue_size"`
	WriteTimeout       time.Duration        `yaml:"write_timeout"`
	HandshakeTimeout   time.Duration        `yaml:"handshake_timeout"`
	ReceiveBufferSize  int                  `yaml:"receive_buffer_size"`
	Subscriptions      []SubscriptionConfig `yaml:"subscriptions"`
}

// SubscriptionConfig is an entity subscription established at startup.
type SubscriptionConfig struct {
	Entity string `yaml:"entity"`
	ID     string `yaml:"id"`
}

// DatabaseConfig holds the event journal database.
// Only used when the recorder is enabled.
type DatabaseConfig struct {
	Journal DBConfig `yaml:"journal"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// RecorderConfig holds event journal writer settings.
type RecorderConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// HealthConfig holds the diagnostics HTTP endpoint settings.
type HealthConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
