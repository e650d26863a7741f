// Package config defines process configuration and loading.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBPath locates the SQLite database file.
	DBPath string `koanf:"db_path"`

	// DeviceMode selects the event source: evdev or sim.
	DeviceMode string `koanf:"device_mode"`

	// Layout is the initial keyboard layout (us, de).
	Layout string `koanf:"layout"`

	// EncryptionKey is the hex-encoded 32-byte key the word hasher
	// derives its per-user salt from.
	EncryptionKey string `koanf:"encryption_key"`

	// EventQueueSize bounds the listener hand-off queue.
	EventQueueSize int `koanf:"queue_size"`

	// DedupeSize bounds the burst idempotency tracker.
	DedupeSize int `koanf:"dedupe_size"`

	// FlushIntervalMS is the aggregator's periodic flush tick.
	FlushIntervalMS int `koanf:"flush_interval_ms"`

	// BurstTimeoutMS is the inter-key gap that closes a burst.
	// Required; there is no sensible universal default.
	BurstTimeoutMS int64 `koanf:"burst_timeout_ms"`

	// DurationMethod selects the burst duration formula:
	// total_time or active_time.
	DurationMethod string `koanf:"duration_calculation_method"`

	// ActiveTimeThresholdMS caps which gaps count as active typing
	// when DurationMethod is active_time.
	ActiveTimeThresholdMS int64 `koanf:"active_time_threshold_ms"`

	// MinKeyCount and MinDurationMS gate which bursts persist.
	MinKeyCount   int   `koanf:"min_key_count"`
	MinDurationMS int64 `koanf:"min_duration_ms"`

	// HighScoreMinDurationMS is the stricter gate for high scores.
	HighScoreMinDurationMS int64 `koanf:"high_score_min_duration_ms"`

	// Word detection settings.
	WordBoundaryTimeoutMS  int64 `koanf:"word_boundary_timeout_ms"`
	WordMinLength          int   `koanf:"word_min_length"`
	WordCorrectionWindowMS int64 `koanf:"word_correction_window_ms"`
	WordActiveThresholdMS  int64 `koanf:"word_active_time_threshold_ms"`

	// RetentionDays bounds the persisted burst history. Zero keeps
	// everything.
	RetentionDays int `koanf:"retention_days"`
}

// New creates a Config with defaults. BurstTimeoutMS is deliberately
// left zero so a missing value fails validation instead of silently
// picking a timeout for the user.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":9080",
		DBPath:                 "typepulse.db",
		DeviceMode:             "evdev",
		Layout:                 "us",
		EventQueueSize:         8192,
		DedupeSize:             10_000,
		FlushIntervalMS:        1000,
		DurationMethod:         "total_time",
		ActiveTimeThresholdMS:  2000,
		MinKeyCount:            10,
		MinDurationMS:          5000,
		HighScoreMinDurationMS: 10_000,
		WordBoundaryTimeoutMS:  1000,
		WordMinLength:          3,
		WordCorrectionWindowMS: 3000,
		WordActiveThresholdMS:  2000,
		RetentionDays:          0,
	}
}
