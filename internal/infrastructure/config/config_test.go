package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfigFile writes YAML content to a temp file and returns its path.
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

const minimalConfig = `
homeassistant:
  token: "test-token"
`

func TestLoad_Defaults(t *testing.T) {
	path := writeConfigFile(t, minimalConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "./data/irrigation.db" {
		t.Errorf("Database.Path = %q, want default", cfg.Database.Path)
	}
	if !cfg.Database.WALMode {
		t.Error("Database.WALMode should default to true")
	}
	if cfg.HomeAssistant.BaseURL != "http://supervisor/core/api" {
		t.Errorf("HomeAssistant.BaseURL = %q, want supervisor proxy", cfg.HomeAssistant.BaseURL)
	}
	if cfg.HomeAssistant.MaxRetries != 3 {
		t.Errorf("HomeAssistant.MaxRetries = %d, want 3", cfg.HomeAssistant.MaxRetries)
	}
	if cfg.API.Port != 8099 {
		t.Errorf("API.Port = %d, want 8099", cfg.API.Port)
	}
	if cfg.Engine.SchedulerInterval != 60 {
		t.Errorf("Engine.SchedulerInterval = %d, want 60", cfg.Engine.SchedulerInterval)
	}
	if cfg.Engine.QueueTick != 1 {
		t.Errorf("Engine.QueueTick = %d, want 1", cfg.Engine.QueueTick)
	}
	if cfg.Engine.LockTimeout != 300 {
		t.Errorf("Engine.LockTimeout = %d, want 300", cfg.Engine.LockTimeout)
	}
	if cfg.MQTT.Enabled {
		t.Error("MQTT.Enabled should default to false")
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
database:
  path: "/tmp/test.db"
homeassistant:
  token: "test-token"
  max_retries: 5
api:
  port: 9000
engine:
  scheduler_interval: 30
  lock_timeout: 120
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want /tmp/test.db", cfg.Database.Path)
	}
	if cfg.HomeAssistant.MaxRetries != 5 {
		t.Errorf("HomeAssistant.MaxRetries = %d, want 5", cfg.HomeAssistant.MaxRetries)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("API.Port = %d, want 9000", cfg.API.Port)
	}
	if cfg.Engine.SchedulerInterval != 30 {
		t.Errorf("Engine.SchedulerInterval = %d, want 30", cfg.Engine.SchedulerInterval)
	}
	if cfg.GetLockTimeout() != 120*time.Second {
		t.Errorf("GetLockTimeout() = %v, want 2m", cfg.GetLockTimeout())
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfigFile(t, minimalConfig)

	t.Setenv("IRRIGATION_DATABASE_PATH", "/env/irrigation.db")
	t.Setenv("IRRIGATION_API_PORT", "8200")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/env/irrigation.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if cfg.API.Port != 8200 {
		t.Errorf("API.Port = %d, want 8200", cfg.API.Port)
	}
}

func TestLoad_SupervisorToken(t *testing.T) {
	path := writeConfigFile(t, "api:\n  port: 8099\n")

	t.Setenv("SUPERVISOR_TOKEN", "supervisor-secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HomeAssistant.Token != "supervisor-secret" {
		t.Errorf("Token = %q, want supervisor token", cfg.HomeAssistant.Token)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(_ *Config) {},
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "missing token",
			mutate:  func(c *Config) { c.HomeAssistant.Token = "" },
			wantErr: "homeassistant.token",
		},
		{
			name:    "invalid qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: "api.port",
		},
		{
			name:    "zero scheduler interval",
			mutate:  func(c *Config) { c.Engine.SchedulerInterval = 0 },
			wantErr: "scheduler_interval",
		},
		{
			name:    "zero queue tick",
			mutate:  func(c *Config) { c.Engine.QueueTick = 0 },
			wantErr: "queue_tick",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.HomeAssistant.Token = "test-token"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
