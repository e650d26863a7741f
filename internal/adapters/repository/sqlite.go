package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/typepulse/typepulse/internal/domain/model"
	"github.com/typepulse/typepulse/pkg/metrics"

	_ "modernc.org/sqlite" // SQLite driver.
)

// SQLiteGateway implements Gateway on a local SQLite database.
type SQLiteGateway struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*SQLiteGateway, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Single writer; a second connection would only contend on the
	// file lock.
	db.SetMaxOpenConns(1)

	g := &SQLiteGateway{db: db}
	if err := g.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return g, nil
}

// Close closes the underlying database.
func (g *SQLiteGateway) Close() error {
	return g.db.Close()
}

func (g *SQLiteGateway) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bursts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			start_time INTEGER NOT NULL UNIQUE,
			end_time INTEGER NOT NULL,
			key_count INTEGER NOT NULL,
			backspace_count INTEGER NOT NULL DEFAULT 0,
			net_key_count INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL,
			avg_wpm REAL,
			qualifies_for_high_score INTEGER DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS statistics (
			keycode INTEGER NOT NULL,
			key_name TEXT NOT NULL,
			layout TEXT NOT NULL,
			avg_press_time REAL,
			total_presses INTEGER,
			slowest_ms REAL,
			fastest_ms REAL,
			last_updated INTEGER,
			PRIMARY KEY (keycode, layout)
		);`,
		`CREATE TABLE IF NOT EXISTS digraph_statistics (
			first_keycode INTEGER NOT NULL,
			second_keycode INTEGER NOT NULL,
			first_key TEXT NOT NULL,
			second_key TEXT NOT NULL,
			layout TEXT NOT NULL,
			avg_interval_ms REAL NOT NULL,
			total_sequences INTEGER NOT NULL DEFAULT 1,
			slowest_ms REAL,
			fastest_ms REAL,
			last_updated INTEGER,
			PRIMARY KEY (first_keycode, second_keycode, layout)
		);`,
		`CREATE TABLE IF NOT EXISTS word_statistics (
			word TEXT NOT NULL,
			layout TEXT NOT NULL,
			avg_speed_ms_per_letter REAL NOT NULL,
			total_letters INTEGER NOT NULL,
			total_duration_ms INTEGER NOT NULL,
			observation_count INTEGER NOT NULL,
			last_seen INTEGER NOT NULL,
			backspace_count INTEGER DEFAULT 0,
			editing_time_ms INTEGER DEFAULT 0,
			PRIMARY KEY (word, layout)
		);`,
		`CREATE TABLE IF NOT EXISTS high_scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date TEXT NOT NULL,
			fastest_burst_wpm REAL,
			burst_key_count INTEGER,
			burst_duration_ms INTEGER,
			timestamp INTEGER NOT NULL UNIQUE
		);`,
		`CREATE TABLE IF NOT EXISTS ignored_words (
			word_hash TEXT PRIMARY KEY,
			added_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_bursts_end_time ON bursts(end_time);`,
	}
	for _, stmt := range stmts {
		if _, err := g.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// instrument wraps a write with latency and error accounting.
func instrument(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	if err != nil {
		metrics.RecordPersistError()
		metrics.RecordErrorByComponent("repository", op)
		return err
	}
	metrics.RecordPersistWrite(float64(time.Since(start).Milliseconds()))
	return nil
}

// AppendBurst stores a finalized burst, keyed by its unique start time.
func (g *SQLiteGateway) AppendBurst(ctx context.Context, b model.Burst) (bool, error) {
	var inserted bool
	err := instrument("append_burst", func() error {
		res, err := g.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO bursts
			 (start_time, end_time, key_count, backspace_count, net_key_count, duration_ms, avg_wpm, qualifies_for_high_score)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			b.StartTimeMS, b.EndTimeMS, b.KeyCount, b.BackspaceCount, b.NetKeyCount,
			b.DurationMS, b.AvgWPM, boolToInt(b.QualifiesForHighScore),
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		inserted = n > 0
		return nil
	})
	return inserted, err
}

// UpsertKeyStat replaces the running statistic for (code, layout).
func (g *SQLiteGateway) UpsertKeyStat(ctx context.Context, s model.KeyStat) error {
	return instrument("upsert_key_stat", func() error {
		_, err := g.db.ExecContext(ctx,
			`INSERT INTO statistics (keycode, key_name, layout, avg_press_time, total_presses, slowest_ms, fastest_ms, last_updated)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(keycode, layout) DO UPDATE SET
			   key_name = excluded.key_name,
			   avg_press_time = excluded.avg_press_time,
			   total_presses = excluded.total_presses,
			   slowest_ms = excluded.slowest_ms,
			   fastest_ms = excluded.fastest_ms,
			   last_updated = excluded.last_updated`,
			s.Code, s.KeyName, s.Layout, s.MeanIntervalMS, s.SampleCount, s.MaxMS, s.MinMS, time.Now().UnixMilli(),
		)
		return err
	})
}

// UpsertDigraphStat replaces the running statistic for an ordered pair.
func (g *SQLiteGateway) UpsertDigraphStat(ctx context.Context, s model.DigraphStat) error {
	return instrument("upsert_digraph_stat", func() error {
		_, err := g.db.ExecContext(ctx,
			`INSERT INTO digraph_statistics
			 (first_keycode, second_keycode, first_key, second_key, layout, avg_interval_ms, total_sequences, slowest_ms, fastest_ms, last_updated)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(first_keycode, second_keycode, layout) DO UPDATE SET
			   first_key = excluded.first_key,
			   second_key = excluded.second_key,
			   avg_interval_ms = excluded.avg_interval_ms,
			   total_sequences = excluded.total_sequences,
			   slowest_ms = excluded.slowest_ms,
			   fastest_ms = excluded.fastest_ms,
			   last_updated = excluded.last_updated`,
			s.FirstCode, s.SecondCode, s.FirstKey, s.SecondKey, s.Layout,
			s.MeanIntervalMS, s.SampleCount, s.MaxMS, s.MinMS, time.Now().UnixMilli(),
		)
		return err
	})
}

// UpsertWordStat replaces the running statistic for (word, layout).
func (g *SQLiteGateway) UpsertWordStat(ctx context.Context, s model.WordStat) error {
	return instrument("upsert_word_stat", func() error {
		_, err := g.db.ExecContext(ctx,
			`INSERT INTO word_statistics
			 (word, layout, avg_speed_ms_per_letter, total_letters, total_duration_ms, observation_count, last_seen, backspace_count, editing_time_ms)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(word, layout) DO UPDATE SET
			   avg_speed_ms_per_letter = excluded.avg_speed_ms_per_letter,
			   total_letters = excluded.total_letters,
			   total_duration_ms = excluded.total_duration_ms,
			   observation_count = excluded.observation_count,
			   last_seen = excluded.last_seen,
			   backspace_count = excluded.backspace_count,
			   editing_time_ms = excluded.editing_time_ms`,
			s.Word, s.Layout, s.MeanMSPerLetter, s.TotalLetters, s.TotalDurationMS,
			s.SampleCount, s.LastSeenMS, s.BackspaceCount, s.EditingTimeMS,
		)
		return err
	})
}

// RecordHighScore stores a qualifying burst's score.
func (g *SQLiteGateway) RecordHighScore(ctx context.Context, hs model.HighScore) error {
	return instrument("record_high_score", func() error {
		_, err := g.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO high_scores (date, fastest_burst_wpm, burst_key_count, burst_duration_ms, timestamp)
			 VALUES (?, ?, ?, ?, ?)`,
			hs.Date, hs.WPM, hs.KeyCount, hs.DurationMS, hs.TimestampMS,
		)
		return err
	})
}

// LoadIgnoredWordHashes returns every persisted ignore-list hash.
func (g *SQLiteGateway) LoadIgnoredWordHashes(ctx context.Context) ([]string, error) {
	rows, err := g.db.QueryContext(ctx, `SELECT word_hash FROM ignored_words`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

// AddIgnoredWordHash persists one ignore-list hash.
func (g *SQLiteGateway) AddIgnoredWordHash(ctx context.Context, hash string, addedAtMS int64) error {
	return instrument("add_ignored_word", func() error {
		_, err := g.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO ignored_words (word_hash, added_at) VALUES (?, ?)`,
			hash, addedAtMS,
		)
		return err
	})
}

// SlowestKeys returns up to n keys ordered by mean interval descending.
func (g *SQLiteGateway) SlowestKeys(ctx context.Context, n int, minSamples int64) ([]model.KeyStat, error) {
	rows, err := g.db.QueryContext(ctx,
		`SELECT keycode, key_name, layout, avg_press_time, total_presses, slowest_ms, fastest_ms
		 FROM statistics
		 WHERE total_presses >= ?
		 ORDER BY avg_press_time DESC
		 LIMIT ?`, minSamples, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.KeyStat
	for rows.Next() {
		var s model.KeyStat
		if err := rows.Scan(&s.Code, &s.KeyName, &s.Layout, &s.MeanIntervalMS, &s.SampleCount, &s.MaxMS, &s.MinMS); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SlowestDigraphs returns up to n ordered pairs by mean interval descending.
func (g *SQLiteGateway) SlowestDigraphs(ctx context.Context, n int, minSamples int64) ([]model.DigraphStat, error) {
	rows, err := g.db.QueryContext(ctx,
		`SELECT first_keycode, second_keycode, first_key, second_key, layout, avg_interval_ms, total_sequences, slowest_ms, fastest_ms
		 FROM digraph_statistics
		 WHERE total_sequences >= ?
		 ORDER BY avg_interval_ms DESC
		 LIMIT ?`, minSamples, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DigraphStat
	for rows.Next() {
		var s model.DigraphStat
		if err := rows.Scan(&s.FirstCode, &s.SecondCode, &s.FirstKey, &s.SecondKey, &s.Layout,
			&s.MeanIntervalMS, &s.SampleCount, &s.MaxMS, &s.MinMS); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SlowestWords returns up to n words by mean ms-per-letter descending.
func (g *SQLiteGateway) SlowestWords(ctx context.Context, n int, minSamples int64) ([]model.WordStat, error) {
	rows, err := g.db.QueryContext(ctx,
		`SELECT word, layout, avg_speed_ms_per_letter, total_letters, total_duration_ms, observation_count, last_seen, backspace_count, editing_time_ms
		 FROM word_statistics
		 WHERE observation_count >= ?
		 ORDER BY avg_speed_ms_per_letter DESC
		 LIMIT ?`, minSamples, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WordStat
	for rows.Next() {
		var s model.WordStat
		if err := rows.Scan(&s.Word, &s.Layout, &s.MeanMSPerLetter, &s.TotalLetters, &s.TotalDurationMS,
			&s.SampleCount, &s.LastSeenMS, &s.BackspaceCount, &s.EditingTimeMS); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Totals returns aggregate figures over the persisted history.
func (g *SQLiteGateway) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	err := g.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(key_count), 0), COALESCE(AVG(avg_wpm), 0), COALESCE(MAX(avg_wpm), 0), COALESCE(SUM(duration_ms), 0)
		 FROM bursts`).
		Scan(&t.Bursts, &t.Keystrokes, &t.AvgWPM, &t.BestWPM, &t.TotalTypingMS)
	if err != nil {
		return Totals{}, err
	}
	if err := g.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM statistics`).Scan(&t.TrackedKeys); err != nil {
		return Totals{}, err
	}
	if err := g.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM digraph_statistics`).Scan(&t.TrackedDigraphs); err != nil {
		return Totals{}, err
	}
	if err := g.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM word_statistics`).Scan(&t.TrackedWords); err != nil {
		return Totals{}, err
	}
	return t, nil
}

// DeleteOlderThan sweeps bursts that ended before cutoffMS.
func (g *SQLiteGateway) DeleteOlderThan(ctx context.Context, cutoffMS int64) (int64, error) {
	res, err := g.db.ExecContext(ctx, `DELETE FROM bursts WHERE end_time < ?`, cutoffMS)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
