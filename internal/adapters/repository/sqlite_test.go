package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/typepulse/typepulse/internal/domain/model"
)

func openTestGateway(t *testing.T) *SQLiteGateway {
	t.Helper()
	g, err := Open(filepath.Join(t.TempDir(), "typepulse.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestAppendBurstAtMostOnce(t *testing.T) {
	g := openTestGateway(t)
	ctx := context.Background()

	b := model.Burst{
		StartTimeMS: 1000, EndTimeMS: 7000, KeyCount: 60, BackspaceCount: 2,
		NetKeyCount: 56, DurationMS: 6000, AvgWPM: 112, QualifiesForHighScore: true,
	}

	inserted, err := g.AppendBurst(ctx, b)
	if err != nil || !inserted {
		t.Fatalf("first append: inserted=%v err=%v", inserted, err)
	}

	// Same start time: at most once.
	inserted, err = g.AppendBurst(ctx, b)
	if err != nil {
		t.Fatalf("second append: %v", err)
	}
	if inserted {
		t.Error("duplicate start time inserted twice")
	}

	totals, err := g.Totals(ctx)
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if totals.Bursts != 1 || totals.Keystrokes != 60 {
		t.Errorf("totals = %+v, want 1 burst / 60 keystrokes", totals)
	}
	if totals.BestWPM != 112 {
		t.Errorf("BestWPM = %v, want 112", totals.BestWPM)
	}
}

func TestUpsertKeyStat(t *testing.T) {
	g := openTestGateway(t)
	ctx := context.Background()

	s := model.KeyStat{Code: 30, KeyName: "a", Layout: "us", MeanIntervalMS: 210, SampleCount: 3, MinMS: 180, MaxMS: 260}
	if err := g.UpsertKeyStat(ctx, s); err != nil {
		t.Fatalf("insert: %v", err)
	}

	s.MeanIntervalMS = 199
	s.SampleCount = 4
	if err := g.UpsertKeyStat(ctx, s); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := g.SlowestKeys(ctx, 10, 2)
	if err != nil {
		t.Fatalf("SlowestKeys: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("rows = %d, want 1 (upsert, not insert)", len(got))
	}
	if got[0].MeanIntervalMS != 199 || got[0].SampleCount != 4 {
		t.Errorf("row = %+v, want updated values", got[0])
	}
}

func TestSlowestRankingsHonorExposureThreshold(t *testing.T) {
	g := openTestGateway(t)
	ctx := context.Background()

	seen := model.KeyStat{Code: 30, KeyName: "a", Layout: "us", MeanIntervalMS: 300, SampleCount: 5}
	rare := model.KeyStat{Code: 44, KeyName: "z", Layout: "us", MeanIntervalMS: 900, SampleCount: 1}
	fast := model.KeyStat{Code: 18, KeyName: "e", Layout: "us", MeanIntervalMS: 120, SampleCount: 9}
	for _, s := range []model.KeyStat{seen, rare, fast} {
		if err := g.UpsertKeyStat(ctx, s); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	got, err := g.SlowestKeys(ctx, 10, 2)
	if err != nil {
		t.Fatalf("SlowestKeys: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows = %d, want 2 (single-sample key excluded)", len(got))
	}
	if got[0].KeyName != "a" || got[1].KeyName != "e" {
		t.Errorf("order = %s, %s; want a then e", got[0].KeyName, got[1].KeyName)
	}
}

func TestDigraphAndWordRoundTrip(t *testing.T) {
	g := openTestGateway(t)
	ctx := context.Background()

	d := model.DigraphStat{
		FirstCode: 20, SecondCode: 35, FirstKey: "t", SecondKey: "h",
		Layout: "us", MeanIntervalMS: 140, SampleCount: 6, MinMS: 90, MaxMS: 200,
	}
	if err := g.UpsertDigraphStat(ctx, d); err != nil {
		t.Fatalf("UpsertDigraphStat: %v", err)
	}
	digraphs, err := g.SlowestDigraphs(ctx, 5, 2)
	if err != nil || len(digraphs) != 1 {
		t.Fatalf("SlowestDigraphs: %v, rows=%d", err, len(digraphs))
	}
	if digraphs[0].FirstKey != "t" || digraphs[0].SecondKey != "h" {
		t.Errorf("digraph = %+v", digraphs[0])
	}

	w := model.WordStat{
		Word: "the", Layout: "us", MeanMSPerLetter: 130, TotalLetters: 9,
		TotalDurationMS: 1170, SampleCount: 3, BackspaceCount: 1, EditingTimeMS: 200, LastSeenMS: 5000,
	}
	if err := g.UpsertWordStat(ctx, w); err != nil {
		t.Fatalf("UpsertWordStat: %v", err)
	}
	words, err := g.SlowestWords(ctx, 5, 2)
	if err != nil || len(words) != 1 {
		t.Fatalf("SlowestWords: %v, rows=%d", err, len(words))
	}
	if words[0].Word != "the" || words[0].MeanMSPerLetter != 130 {
		t.Errorf("word = %+v", words[0])
	}
}

func TestHighScoreAtMostOncePerTimestamp(t *testing.T) {
	g := openTestGateway(t)
	ctx := context.Background()

	hs := model.HighScore{Date: "2025-01-15", WPM: 96.5, DurationMS: 12000, KeyCount: 120, TimestampMS: 1000}
	if err := g.RecordHighScore(ctx, hs); err != nil {
		t.Fatalf("RecordHighScore: %v", err)
	}
	if err := g.RecordHighScore(ctx, hs); err != nil {
		t.Fatalf("duplicate RecordHighScore: %v", err)
	}

	var count int64
	if err := g.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM high_scores`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("high score rows = %d, want 1", count)
	}
}

func TestIgnoredWordHashes(t *testing.T) {
	g := openTestGateway(t)
	ctx := context.Background()

	hashes, err := g.LoadIgnoredWordHashes(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if len(hashes) != 0 {
		t.Fatalf("fresh database has %d hashes", len(hashes))
	}

	if err := g.AddIgnoredWordHash(ctx, "deadbeef", 1000); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := g.AddIgnoredWordHash(ctx, "deadbeef", 2000); err != nil {
		t.Fatalf("duplicate add: %v", err)
	}

	hashes, err = g.LoadIgnoredWordHashes(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(hashes) != 1 || hashes[0] != "deadbeef" {
		t.Errorf("hashes = %v, want [deadbeef]", hashes)
	}
}

func TestDeleteOlderThan(t *testing.T) {
	g := openTestGateway(t)
	ctx := context.Background()

	old := model.Burst{StartTimeMS: 1000, EndTimeMS: 2000, KeyCount: 10, DurationMS: 1000}
	recent := model.Burst{StartTimeMS: 9000, EndTimeMS: 10000, KeyCount: 10, DurationMS: 1000}
	for _, b := range []model.Burst{old, recent} {
		if _, err := g.AppendBurst(ctx, b); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	swept, err := g.DeleteOlderThan(ctx, 5000)
	if err != nil {
		t.Fatalf("DeleteOlderThan: %v", err)
	}
	if swept != 1 {
		t.Errorf("swept = %d, want 1", swept)
	}

	totals, err := g.Totals(ctx)
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if totals.Bursts != 1 {
		t.Errorf("remaining bursts = %d, want 1", totals.Bursts)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "typepulse.db")
	ctx := context.Background()

	g, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := g.AppendBurst(ctx, model.Burst{StartTimeMS: 100, EndTimeMS: 200, KeyCount: 12, DurationMS: 100}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := g.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	g, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer g.Close()

	totals, err := g.Totals(ctx)
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if totals.Bursts != 1 {
		t.Errorf("bursts after reopen = %d, want 1", totals.Bursts)
	}
}
