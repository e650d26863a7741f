// Package model contains domain models passed between layers.
package model

// RawKeyEvent is a single decoded key press or release as it leaves the
// device listener. Ephemeral; never persisted directly.
type RawKeyEvent struct {
	DeviceID          string // device node path, e.g. /dev/input/event3
	Code              uint16 // evdev keycode
	TimestampMS       int64  // wall-clock milliseconds
	IsPress           bool   // false for release
	IsPasswordContext bool   // set by the accessibility collaborator
	Layout            string // layout active when the event was captured
}

// Burst is a maximal run of keystrokes with no inter-key gap exceeding the
// configured timeout. Mutable while open, immutable once finalized.
type Burst struct {
	StartTimeMS           int64
	EndTimeMS             int64
	KeyCount              int
	BackspaceCount        int
	NetKeyCount           int
	DurationMS            int64
	AvgWPM                float64
	BackspaceRatio        float64
	QualifiesForHighScore bool
}

// KeyStat is the running statistic for one key under one layout.
// Interval samples are the elapsed time between two consecutive presses
// of the same key.
type KeyStat struct {
	Code           uint16
	KeyName        string
	Layout         string
	MeanIntervalMS float64
	SampleCount    int64
	MinMS          float64
	MaxMS          float64
}

// DigraphStat is the running statistic for an ordered key pair pressed
// consecutively within a single burst.
type DigraphStat struct {
	FirstCode      uint16
	SecondCode     uint16
	FirstKey       string
	SecondKey      string
	Layout         string
	MeanIntervalMS float64
	SampleCount    int64
	MinMS          float64
	MaxMS          float64
}

// WordStat is the running statistic for a completed word under one layout.
// Speed is measured in milliseconds per letter, with editing time tracked
// separately so corrections do not pollute the pure typing figure.
type WordStat struct {
	Word            string
	Layout          string
	MeanMSPerLetter float64
	TotalLetters    int64
	TotalDurationMS int64
	SampleCount     int64
	BackspaceCount  int64
	EditingTimeMS   int64
	LastSeenMS      int64
}

// WordInfo is a single completed-word observation emitted by the word
// detector and consumed by the word aggregator.
type WordInfo struct {
	Word             string
	Layout           string
	TotalDurationMS  int64
	ActiveDurationMS int64
	EditingTimeMS    int64
	BackspaceCount   int
	NumLetters       int
}

// HighScore records the best qualifying burst for a day.
type HighScore struct {
	Date        string // YYYY-MM-DD
	WPM         float64
	DurationMS  int64
	KeyCount    int
	TimestampMS int64
}
