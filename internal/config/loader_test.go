package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/typepulse/typepulse/internal/domain/burst"
)

const testKeyHex = "7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "TYPEPULSE_") {
			name, _, _ := strings.Cut(kv, "=")
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
}

func TestLoadRequiresBurstTimeout(t *testing.T) {
	clearEnv(t)
	t.Setenv("TYPEPULSE_ENCRYPTION_KEY", testKeyHex)

	_, err := Load()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig for missing burst_timeout_ms", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TYPEPULSE_BURST_TIMEOUT_MS", "3000")
	t.Setenv("TYPEPULSE_ENCRYPTION_KEY", testKeyHex)
	t.Setenv("TYPEPULSE_DEVICE_MODE", "sim")
	t.Setenv("TYPEPULSE_LAYOUT", "de")
	t.Setenv("TYPEPULSE_ADDR", ":7070")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BurstTimeoutMS != 3000 {
		t.Errorf("BurstTimeoutMS = %d, want 3000", cfg.BurstTimeoutMS)
	}
	if cfg.DeviceMode != "sim" || cfg.Layout != "de" || cfg.Addr != ":7070" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	// Defaults survive for unset keys.
	if cfg.MinKeyCount != 10 || cfg.MinDurationMS != 5000 {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if len(cfg.Key()) != 32 {
		t.Errorf("decoded key length = %d, want 32", len(cfg.Key()))
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
burst_timeout_ms: 2500
duration_calculation_method: active_time
active_time_threshold_ms: 500
device_mode: sim
encryption_key: "` + testKeyHex + `"
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TYPEPULSE_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	bc, err := cfg.BurstConfig()
	if err != nil {
		t.Fatalf("BurstConfig: %v", err)
	}
	if bc.BurstTimeoutMS != 2500 || bc.Method != burst.ActiveTime || bc.ActiveTimeThresholdMS != 500 {
		t.Errorf("burst config = %+v", bc)
	}
	if err := bc.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
burst_timeout_ms: 2500
device_mode: sim
encryption_key: "` + testKeyHex + `"
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TYPEPULSE_CONFIG", path)
	t.Setenv("TYPEPULSE_BURST_TIMEOUT_MS", "4000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BurstTimeoutMS != 4000 {
		t.Errorf("BurstTimeoutMS = %d, want env override 4000", cfg.BurstTimeoutMS)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Addr = "" }},
		{"empty db path", func(c *Config) { c.DBPath = "" }},
		{"bad device mode", func(c *Config) { c.DeviceMode = "serial" }},
		{"bad layout", func(c *Config) { c.Layout = "fr" }},
		{"zero burst timeout", func(c *Config) { c.BurstTimeoutMS = 0 }},
		{"bad duration method", func(c *Config) { c.DurationMethod = "wall_clock" }},
		{"non-hex key", func(c *Config) { c.EncryptionKey = "zz" }},
		{"short key", func(c *Config) { c.EncryptionKey = "deadbeef" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := New()
			cfg.BurstTimeoutMS = 3000
			cfg.EncryptionKey = testKeyHex
			tc.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestWordConfigMapping(t *testing.T) {
	cfg := New()
	wc := cfg.WordConfig()
	if wc.BoundaryTimeoutMS != 1000 || wc.MinWordLength != 3 {
		t.Errorf("word config = %+v", wc)
	}
}
