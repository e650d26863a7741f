package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/typepulse/typepulse/internal/domain/burst"
	"github.com/typepulse/typepulse/internal/domain/layout"
	"github.com/typepulse/typepulse/internal/domain/privacy"
	"github.com/typepulse/typepulse/internal/domain/words"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if TYPEPULSE_CONFIG is set
//  3. env (prefix TYPEPULSE_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("TYPEPULSE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: TYPEPULSE_ADDR, TYPEPULSE_BURST_TIMEOUT_MS, ...
	// Map env keys like TYPEPULSE_QUEUE_SIZE -> queue_size (flat keys).
	envProvider := env.Provider("TYPEPULSE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "typepulse_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	}
	if c.DeviceMode != "evdev" && c.DeviceMode != "sim" {
		return fmt.Errorf("%w: device_mode must be evdev or sim, got %q", ErrInvalidConfig, c.DeviceMode)
	}
	if !layout.IsSupported(c.Layout) {
		return fmt.Errorf("%w: unsupported layout %q", ErrInvalidConfig, c.Layout)
	}
	if c.BurstTimeoutMS <= 0 {
		return fmt.Errorf("%w: burst_timeout_ms is required and must be positive", ErrInvalidConfig)
	}
	if _, err := burst.ParseDurationMethod(c.DurationMethod); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	key, err := hex.DecodeString(c.EncryptionKey)
	if err != nil {
		return fmt.Errorf("%w: encryption_key must be hex", ErrInvalidConfig)
	}
	if len(key) != privacy.KeySize {
		return fmt.Errorf("%w: encryption_key must be %d bytes, got %d", ErrInvalidConfig, privacy.KeySize, len(key))
	}
	return nil
}

// Key returns the decoded encryption key. Validate must have passed.
func (c *Config) Key() []byte {
	key, _ := hex.DecodeString(c.EncryptionKey)
	return key
}

// WordConfig maps the flat settings onto the word detector's config.
func (c *Config) WordConfig() words.Config {
	return words.Config{
		BoundaryTimeoutMS:     c.WordBoundaryTimeoutMS,
		MinWordLength:         c.WordMinLength,
		MaxCorrectionWindowMS: c.WordCorrectionWindowMS,
		ActiveTimeThresholdMS: c.WordActiveThresholdMS,
	}
}

// BurstConfig maps the flat settings onto the segmenter's config.
func (c *Config) BurstConfig() (burst.Config, error) {
	method, err := burst.ParseDurationMethod(c.DurationMethod)
	if err != nil {
		return burst.Config{}, err
	}
	return burst.Config{
		BurstTimeoutMS:         c.BurstTimeoutMS,
		Method:                 method,
		ActiveTimeThresholdMS:  c.ActiveTimeThresholdMS,
		MinKeyCount:            c.MinKeyCount,
		MinDurationMS:          c.MinDurationMS,
		HighScoreMinDurationMS: c.HighScoreMinDurationMS,
	}, nil
}
