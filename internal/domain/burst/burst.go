// Package burst segments the key-press stream into typing bursts.
//
// A burst is a maximal run of keystrokes with no inter-key gap exceeding
// the configured timeout. The segmenter is a two-state machine (idle /
// open) owned by the single aggregation goroutine; it is not safe for
// concurrent use and does not need to be.
package burst

import (
	"fmt"

	"github.com/typepulse/typepulse/internal/domain/model"
)

// DurationMethod selects how a burst's duration is computed. It is a
// tagged value chosen once at construction, never a string compared at
// call sites.
type DurationMethod int

const (
	// TotalTime measures end minus start.
	TotalTime DurationMethod = iota
	// ActiveTime sums only inter-key gaps strictly below the active
	// threshold, excluding thinking pauses that keep the burst open.
	ActiveTime
)

// ParseDurationMethod converts the configuration string form.
func ParseDurationMethod(s string) (DurationMethod, error) {
	switch s {
	case "", "total_time":
		return TotalTime, nil
	case "active_time":
		return ActiveTime, nil
	default:
		return TotalTime, fmt.Errorf("%w: duration_calculation_method %q", ErrInvalidConfig, s)
	}
}

// String returns the configuration form of the method.
func (m DurationMethod) String() string {
	if m == ActiveTime {
		return "active_time"
	}
	return "total_time"
}

// Config carries the segmentation thresholds. BurstTimeoutMS has no
// default: the operator must set it explicitly.
type Config struct {
	BurstTimeoutMS         int64
	Method                 DurationMethod
	ActiveTimeThresholdMS  int64
	MinKeyCount            int
	MinDurationMS          int64
	HighScoreMinDurationMS int64
}

// Validate rejects threshold combinations that would corrupt metrics at
// runtime. Called once at startup.
func (c Config) Validate() error {
	if c.BurstTimeoutMS <= 0 {
		return fmt.Errorf("%w: burst_timeout_ms must be set and positive, got %d", ErrInvalidConfig, c.BurstTimeoutMS)
	}
	if c.Method == ActiveTime && c.ActiveTimeThresholdMS <= 0 {
		return fmt.Errorf("%w: active_time_threshold_ms must be positive, got %d", ErrInvalidConfig, c.ActiveTimeThresholdMS)
	}
	if c.Method == ActiveTime && c.ActiveTimeThresholdMS > c.BurstTimeoutMS {
		return fmt.Errorf("%w: active_time_threshold_ms (%d) must not exceed burst_timeout_ms (%d)",
			ErrInvalidConfig, c.ActiveTimeThresholdMS, c.BurstTimeoutMS)
	}
	if c.MinKeyCount < 1 {
		return fmt.Errorf("%w: min_key_count must be at least 1, got %d", ErrInvalidConfig, c.MinKeyCount)
	}
	if c.MinDurationMS < 0 {
		return fmt.Errorf("%w: min_duration_ms must not be negative, got %d", ErrInvalidConfig, c.MinDurationMS)
	}
	if c.HighScoreMinDurationMS < 0 {
		return fmt.Errorf("%w: high_score_min_duration_ms must not be negative, got %d", ErrInvalidConfig, c.HighScoreMinDurationMS)
	}
	return nil
}

// Segmenter maintains the open-burst state across the event stream.
type Segmenter struct {
	cfg Config

	current       *model.Burst
	lastKeyTimeMS int64
	// Active typing time accumulated incrementally; a gap is fixed the
	// moment it is observed, so no per-press timestamps are retained.
	activeMS int64
}

// NewSegmenter validates the configuration and returns a segmenter in
// the idle state.
func NewSegmenter(cfg Config) (*Segmenter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Segmenter{cfg: cfg}, nil
}

// ProcessPress advances the state machine with one key press. It returns
// the finalized burst when the gap since the previous press exceeded the
// timeout, or nil while the burst stays open. Every finalized burst is
// returned, qualifying or not; callers gate persistence with Qualifies.
//
// Non-monotonic timestamps are rejected with ErrNonMonotonic and leave
// the burst counts untouched.
func (s *Segmenter) ProcessPress(timestampMS int64, isBackspace bool) (*model.Burst, error) {
	if s.current == nil {
		s.open(timestampMS, isBackspace)
		return nil, nil
	}

	if timestampMS < s.lastKeyTimeMS {
		return nil, fmt.Errorf("%w: timestamp %d before last press %d", ErrNonMonotonic, timestampMS, s.lastKeyTimeMS)
	}

	gap := timestampMS - s.lastKeyTimeMS
	if gap > s.cfg.BurstTimeoutMS {
		done := s.finalize()
		s.open(timestampMS, isBackspace)
		return done, nil
	}

	b := s.current
	b.KeyCount++
	if isBackspace {
		b.BackspaceCount++
	}
	b.NetKeyCount = NetKeystrokes(b.KeyCount, b.BackspaceCount)
	b.BackspaceRatio = float64(b.BackspaceCount) / float64(b.KeyCount)
	b.EndTimeMS = timestampMS
	if gap < s.cfg.ActiveTimeThresholdMS {
		s.activeMS += gap
	}
	b.DurationMS = s.duration()
	s.lastKeyTimeMS = timestampMS
	return nil, nil
}

// CloseIfIdle finalizes the open burst when no press has arrived for the
// burst timeout. Driven by the consumer's periodic flush tick so a burst
// ends even when the keyboard stays silent afterwards.
func (s *Segmenter) CloseIfIdle(nowMS int64) *model.Burst {
	if s.current == nil {
		return nil
	}
	if nowMS-s.lastKeyTimeMS < s.cfg.BurstTimeoutMS {
		return nil
	}
	done := s.finalize()
	s.reset()
	return done
}

// Flush finalizes any open burst unconditionally. Called on shutdown so
// in-flight work is never lost.
func (s *Segmenter) Flush() *model.Burst {
	if s.current == nil {
		return nil
	}
	done := s.finalize()
	s.reset()
	return done
}

// Open reports whether a burst is currently in progress.
func (s *Segmenter) Open() bool {
	return s.current != nil
}

// Current returns a copy of the open burst for live display, or false
// when idle.
func (s *Segmenter) Current() (model.Burst, bool) {
	if s.current == nil {
		return model.Burst{}, false
	}
	return *s.current, true
}

// Qualifies reports whether a finalized burst meets the persistence
// thresholds. Bursts that fail still contribute to aggregate statistics.
func (s *Segmenter) Qualifies(b *model.Burst) bool {
	return b.KeyCount >= s.cfg.MinKeyCount && b.DurationMS >= s.cfg.MinDurationMS
}

func (s *Segmenter) open(timestampMS int64, isBackspace bool) {
	backspaces := 0
	net := 1
	if isBackspace {
		backspaces = 1
		net = 0
	}
	s.current = &model.Burst{
		StartTimeMS:    timestampMS,
		EndTimeMS:      timestampMS,
		KeyCount:       1,
		BackspaceCount: backspaces,
		NetKeyCount:    net,
		BackspaceRatio: float64(backspaces),
	}
	s.lastKeyTimeMS = timestampMS
	s.activeMS = 0
}

func (s *Segmenter) finalize() *model.Burst {
	b := s.current
	b.EndTimeMS = s.lastKeyTimeMS
	b.DurationMS = s.duration()
	b.AvgWPM = WPM(b.NetKeyCount, b.DurationMS)
	b.QualifiesForHighScore = b.DurationMS >= s.cfg.HighScoreMinDurationMS
	return b
}

func (s *Segmenter) reset() {
	s.current = nil
	s.lastKeyTimeMS = 0
	s.activeMS = 0
}

// duration computes the open burst's duration under the configured
// method. ActiveTime counts only gaps strictly below the active
// threshold; a gap at or above it keeps the burst open but does not
// count as typing time.
func (s *Segmenter) duration() int64 {
	if s.current == nil {
		return 0
	}
	if s.cfg.Method == ActiveTime {
		return s.activeMS
	}
	d := s.current.EndTimeMS - s.current.StartTimeMS
	if d < 0 {
		return 0
	}
	return d
}
