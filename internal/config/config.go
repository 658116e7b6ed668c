package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/dwell/config.yaml"

// Config holds all daemon configuration. User-facing preferences (goals,
// limits, privacy level) live in the persisted Settings record instead.
type Config struct {
	Storage    StorageConfig     `yaml:"storage"`
	Daemon     DaemonConfig      `yaml:"daemon"`
	Logging    LoggingConfig     `yaml:"logging"`
	Tracking   TrackingConfig    `yaml:"tracking"`
	Schedule   ScheduleConfig    `yaml:"schedule"`
	Report     ReportConfig      `yaml:"report"`
	Capture    CaptureConfig     `yaml:"capture"`
	Categories map[string]string `yaml:"categories"`
}

type StorageConfig struct {
	Path              string `yaml:"path"`
	SQLiteFile        string `yaml:"sqlite_file"`
	SQLiteJournalMode string `yaml:"sqlite_journal_mode"`
}

// DaemonConfig controls the HTTP listener. AllowedOrigins lists web origins
// trusted besides browser extension pages.
type DaemonConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AuthToken      string   `yaml:"auth_token"`
	MaxRequestSize int      `yaml:"max_request_size"`
	BlockedPageURL string   `yaml:"blocked_page_url"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type TrackingConfig struct {
	TickIntervalSeconds int  `yaml:"tick_interval_seconds"`
	MinIntervalMillis   int  `yaml:"min_interval_ms"`
	StorageRetries      int  `yaml:"storage_retries"`
	RetryBackoffMillis  int  `yaml:"retry_backoff_ms"`
	ExcludeIncognito    bool `yaml:"exclude_incognito"`
}

type ScheduleConfig struct {
	WeeklyRecomputeMinutes int `yaml:"weekly_recompute_minutes"`
	WeeklySummaryMinutes   int `yaml:"weekly_summary_minutes"`
	DailySummaryMinutes    int `yaml:"daily_summary_minutes"`
}

type ReportConfig struct {
	DownloadDir string `yaml:"download_dir"`
}

type CaptureConfig struct {
	DenylistDomains []string `yaml:"denylist_domains"`
}

// TickInterval returns the periodic flush interval.
func (t TrackingConfig) TickInterval() time.Duration {
	return time.Duration(t.TickIntervalSeconds) * time.Second
}

// MinInterval returns the noise floor below which intervals are discarded.
func (t TrackingConfig) MinInterval() time.Duration {
	return time.Duration(t.MinIntervalMillis) * time.Millisecond
}

// RetryBackoff returns the base delay between storage retries.
func (t TrackingConfig) RetryBackoff() time.Duration {
	return time.Duration(t.RetryBackoffMillis) * time.Millisecond
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read or contains invalid YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Incognito tabs are never recorded, whatever the file says.
	cfg.Tracking.ExcludeIncognito = true

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Daemon.Port <= 0 || c.Daemon.Port > 65535 {
		return fmt.Errorf("invalid daemon port %d", c.Daemon.Port)
	}
	if c.Tracking.TickIntervalSeconds <= 0 {
		return fmt.Errorf("tick_interval_seconds must be positive")
	}
	if c.Tracking.MinIntervalMillis < 0 {
		return fmt.Errorf("min_interval_ms must not be negative")
	}
	if c.Tracking.StorageRetries < 0 {
		return fmt.Errorf("storage_retries must not be negative")
	}
	return nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// DBPath resolves the SQLite database file location.
func (c *Config) DBPath() (string, error) {
	dir, err := ExpandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// LogPath resolves the log file location. Relative names live next to the database.
func (c *Config) LogPath() (string, error) {
	if c.Logging.File == "" {
		return "", nil
	}
	if filepath.IsAbs(c.Logging.File) || c.Logging.File[0] == '~' {
		return ExpandPath(c.Logging.File)
	}
	dir, err := ExpandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Logging.File), nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := ExpandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}
