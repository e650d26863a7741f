// Package repository defines the persistence gateway and its SQLite
// implementation.
package repository

import (
	"context"

	"github.com/typepulse/typepulse/internal/domain/model"
)

// Totals summarizes the persisted burst history for the stats surface.
type Totals struct {
	Bursts          int64   `json:"bursts"`
	Keystrokes      int64   `json:"keystrokes"`
	AvgWPM          float64 `json:"avg_wpm"`
	BestWPM         float64 `json:"best_wpm"`
	TotalTypingMS   int64   `json:"total_typing_ms"`
	TrackedKeys     int64   `json:"tracked_keys"`
	TrackedDigraphs int64   `json:"tracked_digraphs"`
	TrackedWords    int64   `json:"tracked_words"`
}

// Gateway provides durable storage for bursts and running statistics.
//
// Writes are acknowledged or surfaced as errors; a failed write never
// rolls back in-memory aggregates, the caller decides whether to retry.
type Gateway interface {
	// AppendBurst stores a finalized burst at most once per start
	// time. Returns false with a nil error when the burst was already
	// present.
	AppendBurst(ctx context.Context, b model.Burst) (bool, error)

	// UpsertKeyStat replaces the running statistic for (code, layout).
	UpsertKeyStat(ctx context.Context, s model.KeyStat) error

	// UpsertDigraphStat replaces the running statistic for the ordered
	// pair under a layout.
	UpsertDigraphStat(ctx context.Context, s model.DigraphStat) error

	// UpsertWordStat replaces the running statistic for (word, layout).
	UpsertWordStat(ctx context.Context, s model.WordStat) error

	// RecordHighScore stores a qualifying burst's score, at most once
	// per burst timestamp.
	RecordHighScore(ctx context.Context, hs model.HighScore) error

	// LoadIgnoredWordHashes returns every persisted ignore-list hash.
	LoadIgnoredWordHashes(ctx context.Context) ([]string, error)

	// AddIgnoredWordHash persists one ignore-list hash.
	AddIgnoredWordHash(ctx context.Context, hash string, addedAtMS int64) error

	// SlowestKeys returns up to n keys ordered by mean interval
	// descending, restricted to minSamples exposure.
	SlowestKeys(ctx context.Context, n int, minSamples int64) ([]model.KeyStat, error)

	// SlowestDigraphs is SlowestKeys for ordered key pairs.
	SlowestDigraphs(ctx context.Context, n int, minSamples int64) ([]model.DigraphStat, error)

	// SlowestWords returns up to n words ordered by mean milliseconds
	// per letter descending, restricted to minSamples exposure.
	SlowestWords(ctx context.Context, n int, minSamples int64) ([]model.WordStat, error)

	// Totals returns aggregate figures over the persisted history.
	Totals(ctx context.Context) (Totals, error)

	// DeleteOlderThan removes bursts that ended before cutoffMS,
	// returning how many rows were swept.
	DeleteOlderThan(ctx context.Context, cutoffMS int64) (int64, error)

	// Close releases the underlying database.
	Close() error
}
