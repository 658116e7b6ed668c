package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path:              "~/.config/dwell",
			SQLiteFile:        "dwell.db",
			SQLiteJournalMode: "wal",
		},
		Daemon: DaemonConfig{
			Host:           "127.0.0.1",
			Port:           8722,
			AuthToken:      "",
			MaxRequestSize: 1048576,
			BlockedPageURL: "focus-blocked.html",
			AllowedOrigins: []string{},
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "dwell.log",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Tracking: TrackingConfig{
			TickIntervalSeconds: 60,
			MinIntervalMillis:   1000,
			StorageRetries:      3,
			RetryBackoffMillis:  50,
			ExcludeIncognito:    true,
		},
		Schedule: ScheduleConfig{
			WeeklyRecomputeMinutes: 60,
			WeeklySummaryMinutes:   10080,
			DailySummaryMinutes:    1440,
		},
		Report: ReportConfig{
			DownloadDir: "~/Downloads",
		},
		Capture: CaptureConfig{
			DenylistDomains: []string{},
		},
		Categories: map[string]string{},
	}
}

// SensitiveDomains merges the built-in denylist with user additions.
func (c *Config) SensitiveDomains() []string {
	domains := DefaultDenylistDomains()
	return append(domains, c.Capture.DenylistDomains...)
}
