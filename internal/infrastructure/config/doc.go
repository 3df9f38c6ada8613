// Package config provides configuration loading for the irrigation controller.
//
// Configuration is read from a YAML file with hardcoded defaults applied
// first and environment variable overrides applied last:
//
//	defaults -> config.yaml -> IRRIGATION_* environment variables
//
// # Sections
//
//   - database:       SQLite path and pragmas
//   - homeassistant:  actuation/state API endpoint, token, retry policy
//   - mqtt:           optional status bus for job lifecycle events
//   - api:            HTTP server binding and timeouts
//   - engine:         scheduler/queue cadences and safety timeouts
//   - logging:        level, format, destination
//
// The Home Assistant token is normally provided by the supervisor via the
// SUPERVISOR_TOKEN environment variable; a literal token in config.yaml is
// only intended for development against a standalone instance.
//
// Timing values that operators are expected to tune at runtime (scheduler
// interval, pump startup delay, zone switch delay) live in the
// system_settings database table; the engine section only seeds defaults
// and holds the values that require a restart to change safely.
package config
