package device

import (
	"context"
	"math/rand"
	"time"

	"github.com/typepulse/typepulse/internal/domain/model"
)

// Source yields decoded key events. Both the evdev multiplexer and the
// synthetic simulator satisfy it.
type Source interface {
	NextBatch(ctx context.Context) ([]model.RawKeyEvent, error)
	Close() error
}

// Simulator tuning defaults.
const (
	simDefaultSeed         = 1
	simMinIntervalMS       = 60
	simIntervalJitterMS    = 120
	simPauseChance         = 12 // percent, after a word
	simMinPauseMS          = 3500
	simPauseJitterMS       = 2500
	simBackspaceChance     = 6 // percent, per letter
	simBatchWords          = 2
	simRealTimeCompression = 20
	simDeviceID            = "sim0"
)

// simWords drive the synthetic stream; lowercase letters map cleanly
// onto the us layout table.
var simWords = []string{
	"the", "quick", "brown", "fox", "jumps", "over", "lazy", "dog",
	"typing", "practice", "keyboard", "burst", "metric", "speed",
}

// letterCodes maps a lowercase letter to its keycode on the us layout.
var letterCodes = map[rune]uint16{
	'a': 30, 'b': 48, 'c': 46, 'd': 32, 'e': 18, 'f': 33, 'g': 34,
	'h': 35, 'i': 23, 'j': 36, 'k': 37, 'l': 38, 'm': 50, 'n': 49,
	'o': 24, 'p': 25, 'q': 16, 'r': 19, 's': 31, 't': 20, 'u': 22,
	'v': 47, 'w': 17, 'x': 45, 'y': 21, 'z': 44,
}

const (
	simCodeBackspace = 14
	simCodeSpace     = 57
)

// SimSource produces a deterministic synthetic typing stream for
// development machines with no readable input devices. Timestamps
// advance on a virtual clock; wall-clock pacing is compressed so
// sessions unfold quickly.
type SimSource struct {
	rng    *rand.Rand
	nowMS  int64
	closed chan struct{}
}

// SimOption applies a configuration option to the SimSource.
type SimOption func(*SimSource)

// WithSimSeed fixes the random seed for a reproducible stream.
func WithSimSeed(seed int64) SimOption {
	return func(s *SimSource) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// WithSimStartTime pins the virtual clock's starting point so two
// simulators with the same seed emit identical timestamps. Values <= 0
// keep the wall-clock default.
func WithSimStartTime(startMS int64) SimOption {
	return func(s *SimSource) {
		if startMS > 0 {
			s.nowMS = startMS
		}
	}
}

// NewSimSource creates a simulator starting at the current wall clock.
func NewSimSource(opts ...SimOption) *SimSource {
	s := &SimSource{
		rng:    rand.New(rand.NewSource(simDefaultSeed)),
		nowMS:  time.Now().UnixMilli(),
		closed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NextBatch emits a couple of typed words, occasionally with a
// correction or a burst-breaking pause.
func (s *SimSource) NextBatch(ctx context.Context) ([]model.RawKeyEvent, error) {
	select {
	case <-s.closed:
		return nil, ErrClosed
	default:
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var batch []model.RawKeyEvent
	startMS := s.nowMS

	for w := 0; w < simBatchWords; w++ {
		word := simWords[s.rng.Intn(len(simWords))]
		for _, r := range word {
			code, ok := letterCodes[r]
			if !ok {
				continue
			}
			s.advance()
			batch = append(batch, s.press(code)...)

			if s.rng.Intn(100) < simBackspaceChance {
				s.advance()
				batch = append(batch, s.press(simCodeBackspace)...)
				s.advance()
				batch = append(batch, s.press(code)...)
			}
		}
		s.advance()
		batch = append(batch, s.press(simCodeSpace)...)

		if s.rng.Intn(100) < simPauseChance {
			s.nowMS += simMinPauseMS + int64(s.rng.Intn(simPauseJitterMS))
		}
	}

	// Compressed real-time pacing keeps the consumer loop realistic
	// without typing-speed waits.
	elapsed := time.Duration(s.nowMS-startMS) * time.Millisecond / simRealTimeCompression
	select {
	case <-time.After(elapsed):
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.closed:
		return nil, ErrClosed
	}
	return batch, nil
}

func (s *SimSource) advance() {
	s.nowMS += simMinIntervalMS + int64(s.rng.Intn(simIntervalJitterMS))
}

// press emits a press/release pair for a keycode.
func (s *SimSource) press(code uint16) []model.RawKeyEvent {
	press := model.RawKeyEvent{
		DeviceID:    simDeviceID,
		Code:        code,
		TimestampMS: s.nowMS,
		IsPress:     true,
	}
	release := press
	release.IsPress = false
	release.TimestampMS = s.nowMS + 40
	return []model.RawKeyEvent{press, release}
}

// Close stops the simulator.
func (s *SimSource) Close() error {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
	return nil
}
