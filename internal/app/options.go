package service

import (
	"time"

	"github.com/typepulse/typepulse/internal/adapters/device"
	repository "github.com/typepulse/typepulse/internal/adapters/repository"
	"github.com/typepulse/typepulse/internal/domain/burst"
	"github.com/typepulse/typepulse/internal/domain/words"
	"github.com/typepulse/typepulse/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithBurstConfig sets the burst segmentation parameters.
func WithBurstConfig(cfg burst.Config) Option {
	return func(s *Service) {
		s.burstCfg = cfg
	}
}

// WithWordConfig sets the word detection parameters.
func WithWordConfig(cfg words.Config) Option {
	return func(s *Service) {
		s.wordCfg = cfg
	}
}

// WithQueueSize sets the capacity of the listener hand-off queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the burst idempotency tracker.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithFlushInterval sets the aggregator's periodic flush tick.
func WithFlushInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.flushInterval = d
		}
	}
}

// WithVisibilityTTL sets how long one observed stats request keeps the
// listener on its short wait timeout.
func WithVisibilityTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.visibilityTTL = d
		}
	}
}

// WithRetentionDays enables the burst retention sweep. Zero disables it.
func WithRetentionDays(days int) Option {
	return func(s *Service) {
		if days >= 0 {
			s.retentionDays = days
		}
	}
}

// WithDeviceMode selects the event source: ModeEvdev or ModeSim.
func WithDeviceMode(mode string) Option {
	return func(s *Service) {
		if mode != "" {
			s.deviceMode = mode
		}
	}
}

// WithLayout sets the initial keyboard layout.
func WithLayout(layoutID string) Option {
	return func(s *Service) {
		if layoutID != "" {
			s.layoutID = layoutID
		}
	}
}

// WithDBPath sets the SQLite database location.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithEncryptionKey sets the key the word hasher derives its salt from.
func WithEncryptionKey(key []byte) Option {
	return func(s *Service) {
		s.encryptionKey = key
	}
}

// WithSource injects a prepared event source, bypassing discovery.
func WithSource(src device.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithGateway injects a prepared persistence gateway.
func WithGateway(gw repository.Gateway) Option {
	return func(s *Service) {
		if gw != nil {
			s.gateway = gw
		}
	}
}

// WithVisibility injects a shared observer-visibility flag.
func WithVisibility(v *device.Visibility) Option {
	return func(s *Service) {
		if v != nil {
			s.visibility = v
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
