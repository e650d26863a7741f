// Package service wires the device listener, the hand-off queue and
// the aggregation consumer into one runnable engine, and implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/typepulse/typepulse/internal/adapters/device"
	eventqueue "github.com/typepulse/typepulse/internal/adapters/mq/queue"
	repository "github.com/typepulse/typepulse/internal/adapters/repository"
	"github.com/typepulse/typepulse/internal/domain/burst"
	"github.com/typepulse/typepulse/internal/domain/dedupe"
	"github.com/typepulse/typepulse/internal/domain/layout"
	"github.com/typepulse/typepulse/internal/domain/privacy"
	"github.com/typepulse/typepulse/internal/domain/stats"
	"github.com/typepulse/typepulse/internal/domain/types"
	"github.com/typepulse/typepulse/internal/domain/words"
	"github.com/typepulse/typepulse/pkg/logger"
)

// Device source modes.
const (
	ModeEvdev = "evdev"
	ModeSim   = "sim"
)

// Default service configuration constants.
const (
	defaultQueueSize       = 8192
	defaultDedupeSize      = 10000
	defaultFlushInterval   = time.Second
	defaultVisibilityTTL   = 30 * time.Second
	retentionSweepInterval = 6 * time.Hour
	millisPerDay           = 24 * 60 * 60 * 1000
	shutdownDrainTimeout   = 10 * time.Second
)

// Service owns the listener goroutine and the single aggregation
// consumer. All burst and statistic state lives on the consumer side;
// the listener never touches it.
type Service struct {
	mu sync.RWMutex

	// Core components
	source     device.Source
	queue      eventqueue.Queue
	gateway    repository.Gateway
	tracker    dedupe.Tracker
	filter     *privacy.Filter
	segmenter  *burst.Segmenter
	detector   *words.Detector
	keys       *stats.KeyAggregator
	digraphs   *stats.DigraphAggregator
	wordStats  *stats.WordAggregator
	layouts    *layout.Tracker
	visibility *device.Visibility

	// Configuration
	burstCfg      burst.Config
	wordCfg       words.Config
	queueSize     int
	dedupeSize    int
	flushInterval time.Duration
	visibilityTTL time.Duration
	retentionDays int
	deviceMode    string
	layoutID      string
	dbPath        string
	encryptionKey []byte

	// State
	started        bool
	cancel         context.CancelFunc
	listenerDone   chan struct{}
	aggregatorDone chan struct{}
	sweeperDone    chan struct{}

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		wordCfg:       words.DefaultConfig(),
		queueSize:     defaultQueueSize,
		dedupeSize:    defaultDedupeSize,
		flushInterval: defaultFlushInterval,
		visibilityTTL: defaultVisibilityTTL,
		deviceMode:    ModeEvdev,
		layoutID:      "us",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Named("engine")
	}

	segmenter, err := burst.NewSegmenter(s.burstCfg)
	if err != nil {
		return fmt.Errorf("burst config: %w", err)
	}
	s.segmenter = segmenter
	s.detector = words.NewDetector(s.wordCfg)
	s.keys = stats.NewKeyAggregator()
	s.digraphs = stats.NewDigraphAggregator()
	s.wordStats = stats.NewWordAggregator()
	s.layouts = layout.NewTracker(s.layoutID)
	if s.visibility == nil {
		s.visibility = device.NewVisibility()
	}

	if s.gateway == nil {
		gw, err := repository.Open(s.dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		s.gateway = gw
	}

	hasher, err := privacy.NewHasher(s.encryptionKey)
	if err != nil {
		return fmt.Errorf("privacy key: %w", err)
	}
	hashes, err := s.gateway.LoadIgnoredWordHashes(ctx)
	if err != nil {
		return fmt.Errorf("load ignored words: %w", err)
	}
	s.filter = privacy.NewFilter(hasher, privacy.NewIgnoredWords(hashes))

	if s.source == nil {
		src, err := s.openSource()
		if err != nil {
			return err
		}
		s.source = src
	}

	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.tracker = dedupe.NewInMemoryTracker(dedupe.WithMaxSize(s.dedupeSize))

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.listenerDone = make(chan struct{})
	s.aggregatorDone = make(chan struct{})
	s.sweeperDone = make(chan struct{})

	go s.runListener(runCtx)
	go s.runAggregator()
	go s.runRetentionSweeper(runCtx)

	s.started = true
	s.logger.Info(ctx, "typing engine started",
		logger.String("mode", s.deviceMode),
		logger.String("layout", s.layoutID),
		logger.Int("queueSize", s.queueSize),
		logger.Int64("burstTimeoutMS", s.burstCfg.BurstTimeoutMS),
	)
	return nil
}

// openSource builds the event source for the configured device mode.
func (s *Service) openSource() (device.Source, error) {
	if s.deviceMode == ModeSim {
		return device.NewSimSource(), nil
	}

	handles, failed, err := device.OpenDiscovered()
	if err != nil {
		return nil, fmt.Errorf("discover devices: %w", err)
	}
	for _, path := range failed {
		s.logger.Warn(context.Background(), "cannot open input device",
			logger.String("path", path))
	}
	if len(handles) == 0 {
		return nil, device.ErrNoDevices
	}

	set := device.NewSet(handles...)

	opts := []device.MultiplexerOption{}
	watcher, err := device.NewWatcher()
	if err != nil {
		// Hotplug is best-effort; the discovered set still works.
		s.logger.Warn(context.Background(), "hotplug watch unavailable",
			logger.Error(err))
	} else {
		opts = append(opts, device.WithHotplugWatcher(watcher))
	}

	return device.NewMultiplexer(set, s.visibility, opts...)
}

// Stop gracefully shuts down the service. The open burst and any
// pending word are finalized and persisted before the database closes.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping typing engine...")

	s.cancel()
	_ = s.source.Close()
	<-s.listenerDone

	// Closing the queue lets the aggregator drain and finish.
	_ = s.queue.Close()
	select {
	case <-s.aggregatorDone:
	case <-time.After(shutdownDrainTimeout):
		s.logger.Warn(ctx, "aggregator drain timed out")
	}
	<-s.sweeperDone

	if err := s.gateway.Close(); err != nil {
		s.logger.Error(ctx, "closing database", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "typing engine stopped")
}

// runRetentionSweeper deletes bursts past the retention horizon.
func (s *Service) runRetentionSweeper(ctx context.Context) {
	defer close(s.sweeperDone)
	if s.retentionDays <= 0 {
		return
	}

	ticker := time.NewTicker(retentionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UnixMilli() - int64(s.retentionDays)*millisPerDay
			swept, err := s.gateway.DeleteOlderThan(ctx, cutoff)
			if err != nil {
				s.logger.Error(ctx, "retention sweep failed", logger.Error(err))
				continue
			}
			if swept > 0 {
				s.logger.Info(ctx, "retention sweep", logger.Int64("bursts", swept))
			}
		}
	}
}

// MarkObserved flags that a consumer is actively watching the stats,
// shortening the listener's wait timeout for fresher aggregates.
func (s *Service) MarkObserved() {
	s.visibility.MarkVisible(s.visibilityTTL)
}

// SetLayout switches the active layout for subsequently captured events.
func (s *Service) SetLayout(layoutID string) error {
	if !layout.IsSupported(layoutID) {
		return fmt.Errorf("%w: %s", layout.ErrUnsupported, layoutID)
	}
	s.layouts.Set(layoutID)
	return nil
}

// IgnoreWord adds a word to the privacy ignore-list; only its hash is
// retained in memory and on disk.
func (s *Service) IgnoreWord(ctx context.Context, word string) error {
	hash, added := s.filter.Ignore(word)
	if !added {
		return nil
	}
	return s.gateway.AddIgnoredWordHash(ctx, hash, time.Now().UnixMilli())
}

// SlowestKeys returns the slowest keys with enough exposure.
func (s *Service) SlowestKeys(ctx context.Context, n int) ([]types.KeyEntry, error) {
	s.MarkObserved()
	ranked, err := s.gateway.SlowestKeys(ctx, n, stats.MinSamples)
	if err != nil {
		return nil, err
	}
	out := make([]types.KeyEntry, len(ranked))
	for i, st := range ranked {
		out[i] = types.KeyEntry{
			Rank:           i + 1,
			KeyName:        st.KeyName,
			Layout:         st.Layout,
			MeanIntervalMS: st.MeanIntervalMS,
			SampleCount:    st.SampleCount,
		}
	}
	return out, nil
}

// SlowestDigraphs returns the slowest key pairs with enough exposure.
func (s *Service) SlowestDigraphs(ctx context.Context, n int) ([]types.DigraphEntry, error) {
	s.MarkObserved()
	ranked, err := s.gateway.SlowestDigraphs(ctx, n, stats.MinSamples)
	if err != nil {
		return nil, err
	}
	out := make([]types.DigraphEntry, len(ranked))
	for i, st := range ranked {
		out[i] = types.DigraphEntry{
			Rank:           i + 1,
			Digraph:        st.FirstKey + st.SecondKey,
			Layout:         st.Layout,
			MeanIntervalMS: st.MeanIntervalMS,
			SampleCount:    st.SampleCount,
		}
	}
	return out, nil
}

// SlowestWords returns the slowest words with enough exposure.
func (s *Service) SlowestWords(ctx context.Context, n int) ([]types.WordEntry, error) {
	s.MarkObserved()
	ranked, err := s.gateway.SlowestWords(ctx, n, stats.MinSamples)
	if err != nil {
		return nil, err
	}
	out := make([]types.WordEntry, len(ranked))
	for i, st := range ranked {
		out[i] = types.WordEntry{
			Rank:            i + 1,
			Word:            st.Word,
			Layout:          st.Layout,
			MeanMSPerLetter: st.MeanMSPerLetter,
			SampleCount:     st.SampleCount,
		}
	}
	return out, nil
}

// Totals returns aggregate figures over the persisted history.
func (s *Service) Totals(ctx context.Context) (repository.Totals, error) {
	s.MarkObserved()
	return s.gateway.Totals(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	layoutID := s.layoutID
	if s.layouts != nil {
		layoutID = s.layouts.Current()
	}
	out := map[string]interface{}{
		"started":    s.started,
		"deviceMode": s.deviceMode,
		"layout":     layoutID,
		"queueSize":  s.queueSize,
	}
	if s.started {
		out["queueLength"] = s.queue.Len(context.Background())
		out["dedupeSize"] = s.tracker.Size()
	}
	return out
}
