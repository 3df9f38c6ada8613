package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the irrigation controller.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	HomeAssistant HomeAssistantConfig `yaml:"homeassistant"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	API           APIConfig           `yaml:"api"`
	Engine        EngineConfig        `yaml:"engine"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// HomeAssistantConfig contains connection settings for the Home Assistant
// actuation/state API. When running as an addon the supervisor proxy URL and
// the SUPERVISOR_TOKEN environment variable are used.
type HomeAssistantConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`

	// Timeout is the per-request timeout in seconds.
	Timeout int `yaml:"timeout"`

	// MaxRetries is the number of retry attempts for transient failures.
	MaxRetries int `yaml:"max_retries"`

	// RetryDelay is the initial backoff delay in seconds; it doubles on
	// each subsequent attempt.
	RetryDelay int `yaml:"retry_delay"`
}

// MQTTConfig contains settings for the optional MQTT status bus.
// When enabled, job lifecycle and pump status events are published so
// Home Assistant dashboards can subscribe to them.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// EngineConfig contains irrigation engine timing settings.
//
// SchedulerInterval and the pump/zone delays have runtime-editable
// counterparts in the system_settings table; the values here are the
// defaults seeded on first start.
type EngineConfig struct {
	// SchedulerInterval is how often the event evaluator runs, in seconds.
	SchedulerInterval int `yaml:"scheduler_interval"`

	// QueueTick is the queue processor cadence in seconds.
	QueueTick int `yaml:"queue_tick"`

	// LockTimeout is how long a pump lock may be held before the watchdog
	// forces it off, in seconds.
	LockTimeout int `yaml:"lock_timeout"`

	// ShutdownGrace is how long to wait for in-flight jobs to reach their
	// cleanup path during shutdown, in seconds.
	ShutdownGrace int `yaml:"shutdown_grace"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: IRRIGATION_SECTION_KEY
// For example: IRRIGATION_DATABASE_PATH, IRRIGATION_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/irrigation.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		HomeAssistant: HomeAssistantConfig{
			BaseURL:    "http://supervisor/core/api",
			Timeout:    10,
			MaxRetries: 3,
			RetryDelay: 1,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "irrigationd",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8099,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Engine: EngineConfig{
			SchedulerInterval: 60,
			QueueTick:         1,
			LockTimeout:       300,
			ShutdownGrace:     30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: IRRIGATION_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("IRRIGATION_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Home Assistant
	if v := os.Getenv("IRRIGATION_HA_BASE_URL"); v != "" {
		cfg.HomeAssistant.BaseURL = v
	}
	if v := os.Getenv("IRRIGATION_HA_TOKEN"); v != "" {
		cfg.HomeAssistant.Token = v
	}
	// SUPERVISOR_TOKEN is injected by the Home Assistant supervisor when
	// running as an addon; it is the usual token source in production.
	if cfg.HomeAssistant.Token == "" {
		cfg.HomeAssistant.Token = os.Getenv("SUPERVISOR_TOKEN")
	}

	// MQTT
	if v := os.Getenv("IRRIGATION_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("IRRIGATION_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("IRRIGATION_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("IRRIGATION_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("IRRIGATION_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// Home Assistant validation
	if c.HomeAssistant.BaseURL == "" {
		errs = append(errs, "homeassistant.base_url is required")
	}
	if c.HomeAssistant.Token == "" {
		errs = append(errs, "homeassistant.token is required (set SUPERVISOR_TOKEN or IRRIGATION_HA_TOKEN)")
	}
	if c.HomeAssistant.MaxRetries < 0 {
		errs = append(errs, "homeassistant.max_retries must not be negative")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Engine validation
	if c.Engine.SchedulerInterval < 1 {
		errs = append(errs, "engine.scheduler_interval must be at least 1 second")
	}
	if c.Engine.QueueTick < 1 {
		errs = append(errs, "engine.queue_tick must be at least 1 second")
	}
	if c.Engine.LockTimeout < 1 {
		errs = append(errs, "engine.lock_timeout must be at least 1 second")
	}
	if c.Engine.ShutdownGrace < 0 {
		errs = append(errs, "engine.shutdown_grace must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetHATimeout returns the Home Assistant request timeout as a Duration.
func (c *Config) GetHATimeout() time.Duration {
	return time.Duration(c.HomeAssistant.Timeout) * time.Second
}

// GetLockTimeout returns the pump lock watchdog timeout as a Duration.
func (c *Config) GetLockTimeout() time.Duration {
	return time.Duration(c.Engine.LockTimeout) * time.Second
}

// GetQueueTick returns the queue processor cadence as a Duration.
func (c *Config) GetQueueTick() time.Duration {
	return time.Duration(c.Engine.QueueTick) * time.Second
}

// GetShutdownGrace returns the engine shutdown grace period as a Duration.
func (c *Config) GetShutdownGrace() time.Duration {
	return time.Duration(c.Engine.ShutdownGrace) * time.Second
}
