package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override file values.
const (
	EnvPort        = "DWELL_PORT"
	EnvAuthToken   = "DWELL_AUTH_TOKEN"
	EnvLogLevel    = "DWELL_LOG_LEVEL"
	EnvStoragePath = "DWELL_STORAGE_PATH"
)

// LoadEnvFile loads KEY=VALUE pairs from a .env file next to the config file.
// Variables already present in the environment win. A missing file is fine.
func LoadEnvFile(configPath string) error {
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", envPath, err)
	}
	return nil
}

// ApplyEnv overlays DWELL_* environment variables onto cfg.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		c.Daemon.Port = port
	}
	if v := os.Getenv(EnvAuthToken); v != "" {
		c.Daemon.AuthToken = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvStoragePath); v != "" {
		c.Storage.Path = v
	}
	return c.Validate()
}
