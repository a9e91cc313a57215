// Package config provides configuration management for the scene engine
// process: scalar environment settings (config.go, following the
// teacher's getEnv* helper shape) plus a structured, hot-reloadable
// output-destination list (destinations.go) built on spf13/viper and
// fsnotify, since the teacher itself has no nested/list configuration
// to draw from.
package config

import (
	"os"
	"strconv"
)

// Config holds the scalar settings the engine needs at startup: where
// the control-ingress socket listens, and defaults applied when a scene
// bundle omits a field (§6).
type Config struct {
	Env string

	// ControlListenAddr is the UDP address the control ingress (C8)
	// binds, e.g. ":6455".
	ControlListenAddr string

	// DestinationsFile points at the output-destinations document
	// (§6's "environment... loaded at startup"). Empty disables fan-out
	// config loading; destinations must then be set some other way.
	DestinationsFile string

	// DefaultLEDCount and DefaultFPS backstop a scene document that
	// omits led_count/fps (§6).
	DefaultLEDCount int
	DefaultFPS      int

	// HealthAddr is the address the health/metrics HTTP surface binds
	// (internal/healthapi).
	HealthAddr string
}

// Load loads configuration from environment variables with sensible
// defaults.
func Load() *Config {
	return &Config{
		Env:               getEnv("ENV", "development"),
		ControlListenAddr: getEnv("CONTROL_LISTEN_ADDR", ":6455"),
		DestinationsFile:  getEnv("LED_DESTINATIONS_FILE", "configs/destinations.yaml"),
		DefaultLEDCount:   getEnvInt("DEFAULT_LED_COUNT", 225),
		DefaultFPS:        getEnvInt("DEFAULT_FPS", 60),
		HealthAddr:        getEnv("HEALTH_ADDR", ":8080"),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv returns the value of an environment variable or a default value
// when the variable is unset or empty.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a
// default value.
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
