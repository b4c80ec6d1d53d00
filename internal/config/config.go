// Package config loads the server configuration from a YAML file with
// environment overrides.
package config

import "time"

// ServerSection configures the HTTP listener.
type ServerSection struct {
	// Address is the listen address, e.g. ":8080".
	Address string `yaml:"address"`

	// ReadHeaderTimeout uses Go duration format: "5s", "1m".
	ReadHeaderTimeout string `yaml:"read_header_timeout"`

	// MetricsPath serves Prometheus metrics. Empty disables the endpoint.
	MetricsPath string `yaml:"metrics_path"`
}

// StorageSection configures the SQLite database.
type StorageSection struct {
	Path string `yaml:"path"`
}

// AuthSection configures session tokens.
type AuthSection struct {
	JWTSecret string `yaml:"jwt_secret"`

	// TokenTTL uses Go duration format. Defaults to 24h.
	TokenTTL string `yaml:"token_ttl"`
}

// RecurringSection configures the catch-up engine.
type RecurringSection struct {
	// MaxOccurrencesPerRule caps how many occurrences a single rule may emit
	// in one invocation.
	MaxOccurrencesPerRule int `yaml:"max_occurrences_per_rule"`
}

// LogSection configures logging.
type LogSection struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// Config is the server configuration file.
type Config struct {
	Version int `yaml:"version,omitempty"`

	Server    ServerSection    `yaml:"server"`
	Storage   StorageSection   `yaml:"storage"`
	Auth      AuthSection      `yaml:"auth"`
	Recurring RecurringSection `yaml:"recurring"`
	Log       LogSection       `yaml:"log"`
}

// ReadHeaderTimeout returns the parsed server.read_header_timeout.
// Call Validate first; an invalid value yields the default.
func (c Config) ReadHeaderTimeout() time.Duration {
	return durationOr(c.Server.ReadHeaderTimeout, defaultReadHeaderTimeout)
}

// TokenTTL returns the parsed auth.token_ttl.
func (c Config) TokenTTL() time.Duration {
	return durationOr(c.Auth.TokenTTL, defaultTokenTTL)
}

func durationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
