// Package words detects completed words in the keystroke stream and
// tracks the backspace editing that went into them.
//
// The detector accumulates letter presses into a candidate word and
// finalizes it on a boundary key (space, punctuation, enter), on a long
// pause, or when the word is backspaced away entirely. Editing time is
// tracked separately from typing time so corrections do not inflate the
// per-letter speed figure.
package words

import (
	"github.com/typepulse/typepulse/internal/domain/model"
)

// minMSPerLetter floors the active duration so a burst of key repeats
// cannot produce an implausible 0ms word.
const minMSPerLetter = 50

type keystroke struct {
	key         string
	timestampMS int64
	backspace   bool
}

// Config carries the word detection thresholds.
type Config struct {
	// BoundaryTimeoutMS splits a word when the pause between two letters
	// exceeds it.
	BoundaryTimeoutMS int64
	// MinWordLength is the minimum letter count for a word to be reported.
	MinWordLength int
	// MaxCorrectionWindowMS bounds how long before a backspace still
	// counts as editing time.
	MaxCorrectionWindowMS int64
	// ActiveTimeThresholdMS is the largest inter-letter gap counted as
	// active typing when deriving the word's speed.
	ActiveTimeThresholdMS int64
}

// DefaultConfig mirrors the thresholds the coaching heuristics were
// tuned against.
func DefaultConfig() Config {
	return Config{
		BoundaryTimeoutMS:     1000,
		MinWordLength:         3,
		MaxCorrectionWindowMS: 3000,
		ActiveTimeThresholdMS: 2000,
	}
}

// wordState tracks one word in progress.
type wordState struct {
	word            []rune
	startTimeMS     int64
	lastKeystrokeMS int64
	keystrokes      []keystroke
	backspaceCount  int
	editingTimeMS   int64
	layout          string
}

// Detector is owned by the single aggregation goroutine; it is not safe
// for concurrent use.
type Detector struct {
	cfg     Config
	current *wordState
}

// NewDetector returns an idle detector.
func NewDetector(cfg Config) *Detector {
	if cfg.BoundaryTimeoutMS <= 0 {
		cfg.BoundaryTimeoutMS = DefaultConfig().BoundaryTimeoutMS
	}
	if cfg.MinWordLength <= 0 {
		cfg.MinWordLength = DefaultConfig().MinWordLength
	}
	if cfg.MaxCorrectionWindowMS <= 0 {
		cfg.MaxCorrectionWindowMS = DefaultConfig().MaxCorrectionWindowMS
	}
	if cfg.ActiveTimeThresholdMS <= 0 {
		cfg.ActiveTimeThresholdMS = DefaultConfig().ActiveTimeThresholdMS
	}
	return &Detector{cfg: cfg}
}

// ProcessLetter handles a letter press. It returns a finalized WordInfo
// when the pause before this letter split the previous word.
func (d *Detector) ProcessLetter(keyName string, timestampMS int64, layoutID string) *model.WordInfo {
	if d.current == nil {
		d.current = d.newState(timestampMS, layoutID)
		d.current.addLetter(keyName, timestampMS)
		return nil
	}

	state := d.current
	if state.lastKeystrokeMS > 0 && timestampMS-state.lastKeystrokeMS > d.cfg.BoundaryTimeoutMS {
		finalized := d.finalize(state.lastKeystrokeMS)
		d.current = d.newState(timestampMS, layoutID)
		d.current.addLetter(keyName, timestampMS)
		return finalized
	}

	state.addLetter(keyName, timestampMS)
	return nil
}

// ProcessBackspace handles a backspace press. It returns a finalized
// WordInfo when the word was erased completely, which closes the
// editing episode.
func (d *Detector) ProcessBackspace(timestampMS int64) *model.WordInfo {
	if d.current == nil {
		return nil
	}

	state := d.current
	if len(state.word) > 0 {
		state.backspaceCount++
		if state.lastKeystrokeMS > 0 {
			sinceLast := timestampMS - state.lastKeystrokeMS
			if sinceLast <= d.cfg.MaxCorrectionWindowMS {
				state.editingTimeMS += sinceLast
			}
		}
		state.word = state.word[:len(state.word)-1]
		state.keystrokes = append(state.keystrokes, keystroke{key: "BACKSPACE", timestampMS: timestampMS, backspace: true})
		state.lastKeystrokeMS = timestampMS
	}

	if len(state.word) == 0 && state.backspaceCount > 0 {
		finalized := d.finalize(state.lastKeystrokeMS)
		d.current = nil
		return finalized
	}
	return nil
}

// ProcessBoundary handles any non-letter, non-backspace press and
// finalizes the word in progress. The boundary key's own timestamp is
// ignored so a pause before the space does not count as typing time.
func (d *Detector) ProcessBoundary(timestampMS int64) *model.WordInfo {
	if d.current == nil {
		return nil
	}
	finalized := d.finalize(d.current.lastKeystrokeMS)
	d.current = nil
	return finalized
}

// Flush finalizes any word in progress; called on shutdown.
func (d *Detector) Flush() *model.WordInfo {
	if d.current == nil {
		return nil
	}
	finalized := d.finalize(d.current.lastKeystrokeMS)
	d.current = nil
	return finalized
}

// Reset discards any word in progress without reporting it. Used when
// the privacy filter invalidates the current context.
func (d *Detector) Reset() {
	d.current = nil
}

func (d *Detector) newState(startMS int64, layoutID string) *wordState {
	return &wordState{
		startTimeMS:     startMS,
		lastKeystrokeMS: startMS,
		layout:          layoutID,
	}
}

func (d *Detector) finalize(endTimeMS int64) *model.WordInfo {
	state := d.current
	if state == nil || len(state.word) < d.cfg.MinWordLength {
		return nil
	}

	total := endTimeMS - state.startTimeMS
	if total < 0 {
		total = 0
	}

	return &model.WordInfo{
		Word:             string(state.word),
		Layout:           state.layout,
		TotalDurationMS:  total,
		ActiveDurationMS: state.activeDuration(d.cfg.ActiveTimeThresholdMS),
		EditingTimeMS:    state.editingTimeMS,
		BackspaceCount:   state.backspaceCount,
		NumLetters:       len(state.word),
	}
}

func (s *wordState) addLetter(keyName string, timestampMS int64) {
	s.word = append(s.word, []rune(keyName)...)
	s.keystrokes = append(s.keystrokes, keystroke{key: keyName, timestampMS: timestampMS})
	s.lastKeystrokeMS = timestampMS
}

// activeDuration sums inter-letter gaps at or below the threshold,
// skipping backspaces, with a floor of 50ms per letter.
func (s *wordState) activeDuration(thresholdMS int64) int64 {
	letters := make([]keystroke, 0, len(s.keystrokes))
	for _, ks := range s.keystrokes {
		if !ks.backspace {
			letters = append(letters, ks)
		}
	}
	if len(letters) < 2 {
		return 0
	}

	var active int64
	for i := 1; i < len(letters); i++ {
		gap := letters[i].timestampMS - letters[i-1].timestampMS
		if gap <= thresholdMS {
			active += gap
		}
	}
	floor := int64(minMSPerLetter * len(letters))
	if active < floor {
		return floor
	}
	return active
}
