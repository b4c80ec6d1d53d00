package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// MinJWTSecretLength is the shortest accepted auth.jwt_secret.
const MinJWTSecretLength = 16

// Validate checks a loaded configuration.
//
// Ensures:
//   - server.address and storage.path are set
//   - durations parse and are positive
//   - auth.jwt_secret is at least MinJWTSecretLength bytes
//   - recurring.max_occurrences_per_rule is positive
//   - log.level is known
func (c Config) Validate() error {
	if c.Server.Address == "" {
		return errors.New("server.address must be set")
	}
	if c.Storage.Path == "" {
		return errors.New("storage.path must be set")
	}
	if err := validateDuration("server.read_header_timeout", c.Server.ReadHeaderTimeout); err != nil {
		return err
	}
	if err := validateDuration("auth.token_ttl", c.Auth.TokenTTL); err != nil {
		return err
	}
	if len(c.Auth.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("auth.jwt_secret must be at least %d bytes (or set JWT_SECRET)", MinJWTSecretLength)
	}
	if c.Recurring.MaxOccurrencesPerRule <= 0 {
		return fmt.Errorf("recurring.max_occurrences_per_rule must be positive, got %d", c.Recurring.MaxOccurrencesPerRule)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

func validateDuration(key, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", key, value)
	}
	return nil
}

// ParseLevel maps a log.level value to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log.level %q: want debug, info, warn or error", s)
	}
}
