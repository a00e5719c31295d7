package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: syncd-test-1
  region: us-east-1
realtime:
  ws_url: wss://rt.example.com/ws
  token: abc123
  max_queue_size: 50
  subscriptions:
    - entity: vehicle
      id: V-1
health:
  port: 9090
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "syncd-test-1" {
		t.Errorf("Instance.ID = %s, want syncd-test-1", cfg.Instance.ID)
	}
	if cfg.Realtime.WSURL != "wss://rt.example.com/ws" {
		t.Errorf("WSURL = %s", cfg.Realtime.WSURL)
	}
	if cfg.Realtime.MaxQueueSize != 50 {
		t.Errorf("MaxQueueSize = %d, want 50", cfg.Realtime.MaxQueueSize)
	}
	if len(cfg.Realtime.Subscriptions) != 1 || cfg.Realtime.Subscriptions[0].Entity != "vehicle" {
		t.Errorf("Subscriptions = %+v", cfg.Realtime.Subscriptions)
	}
	if cfg.Health.Port != 9090 {
		t.Errorf("Health.Port = %d, want 9090", cfg.Health.Port)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("FLEET_RT_TOKEN", "env-secret")

	yaml := `
instance:
  id: syncd-test-1
realtime:
  ws_url: wss://rt.example.com/ws
  token: ${FLEET_RT_TOKEN}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Realtime.Token != "env-secret" {
		t.Errorf("Token = %q, want env-secret", cfg.Realtime.Token)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: syncd-test-1
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Realtime.WSURL != DefaultWSURL {
		t.Errorf("WSURL = %s, want %s", cfg.Realtime.WSURL, DefaultWSURL)
	}
	if cfg.Realtime.ReconnectBaseDelay != 1*time.Second {
		t.Errorf("ReconnectBaseDelay = %v, want 1s", cfg.Realtime.ReconnectBaseDelay)
	}
	if cfg.Realtime.ReconnectMaxDelay != 30*time.Second {
		t.Errorf("ReconnectMaxDelay = %v, want 30s", cfg.Realtime.ReconnectMaxDelay)
	}
	if cfg.Realtime.HeartbeatInterval != 30*time.Second {
		t.Errorf("HeartbeatInterval = %v, want 30s", cfg.Realtime.HeartbeatInterval)
	}
	if cfg.Realtime.MaxQueueSize != DefaultMaxQueueSize {
		t.Errorf("MaxQueueSize = %d, want %d", cfg.Realtime.MaxQueueSize, DefaultMaxQueueSize)
	}
	if cfg.Database.Journal.Port != DefaultDBPort {
		t.Errorf("Journal.Port = %d, want %d", cfg.Database.Journal.Port, DefaultDBPort)
	}
	if cfg.Recorder.BatchSize != DefaultRecorderBatchSize {
		t.Errorf("Recorder.BatchSize = %d, want %d", cfg.Recorder.BatchSize, DefaultRecorderBatchSize)
	}
	if cfg.Health.Port != DefaultHealthPort {
		t.Errorf("Health.Port = %d, want %d", cfg.Health.Port, DefaultHealthPort)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *SyncdConfig {
		cfg := &SyncdConfig{}
		cfg.Instance.ID = "syncd-test-1"
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*SyncdConfig)
		wantErr string
	}{
		{
			name:    "valid",
			mutate:  func(c *SyncdConfig) {},
			wantErr: "",
		},
		{
			name:    "missing instance id",
			mutate:  func(c *SyncdConfig) { c.Instance.ID = "" },
			wantErr: "instance.id",
		},
		{
			name:    "bad ws url scheme",
			mutate:  func(c *SyncdConfig) { c.Realtime.WSURL = "https://rt.example.com" },
			wantErr: "ws_url",
		},
		{
			name:    "zero queue size",
			mutate:  func(c *SyncdConfig) { c.Realtime.MaxQueueSize = -1 },
			wantErr: "max_queue_size",
		},
		{
			name: "max delay below base delay",
			mutate: func(c *SyncdConfig) {
				c.Realtime.ReconnectBaseDelay = 10 * time.Second
				c.Realtime.ReconnectMaxDelay = 1 * time.Second
			},
			wantErr: "reconnect_max_delay",
		},
		{
			name: "subscription missing id",
			mutate: func(c *SyncdConfig) {
				c.Realtime.Subscriptions = []SubscriptionConfig{{Entity: "vehicle"}}
			},
			wantErr: "subscriptions",
		},
		{
			name: "recorder enabled without database",
			mutate: func(c *SyncdConfig) {
				c.Recorder.Enabled = true
			},
			wantErr: "database.journal.host",
		},
		{
			name:    "health port out of range",
			mutate:  func(c *SyncdConfig) { c.Health.Port = 70000 },
			wantErr: "health.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadAndValidate(t *testing.T) {
	yaml := `
realtime:
  ws_url: wss://rt.example.com/ws
`
	path := writeTempFile(t, yaml)

	// Missing instance.id must fail validation
	if _, err := LoadAndValidate(path); err == nil {
		t.Error("expected validation error")
	}
}
