package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mmynk/groupledger/internal/recurring"
)

const (
	defaultAddress           = ":8080"
	defaultReadHeaderTimeout = 10 * time.Second
	defaultMetricsPath       = "/metrics"
	defaultDBPath            = "./data/ledger.db"
	defaultTokenTTL          = 24 * time.Hour
	defaultLogLevel          = "info"
)

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Version: 1,
		Server: ServerSection{
			Address:           defaultAddress,
			ReadHeaderTimeout: defaultReadHeaderTimeout.String(),
			MetricsPath:       defaultMetricsPath,
		},
		Storage:   StorageSection{Path: defaultDBPath},
		Auth:      AuthSection{TokenTTL: defaultTokenTTL.String()},
		Recurring: RecurringSection{MaxOccurrencesPerRule: recurring.DefaultMaxOccurrences},
		Log:       LogSection{Level: defaultLogLevel},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path, or a path that does not exist when optional is true, yields
// the defaults plus environment.
func Load(path string, optional bool) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config file: %w", err)
			}
		case optional && errors.Is(err, fs.ErrNotExist):
		default:
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables if set.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("RECURRING_MAX_OCCURRENCES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RECURRING_MAX_OCCURRENCES %q: %w", v, err)
		}
		cfg.Recurring.MaxOccurrencesPerRule = n
	}
	return nil
}
