package service

import (
	"context"
	"errors"
	"time"

	"github.com/typepulse/typepulse/internal/domain/burst"
	"github.com/typepulse/typepulse/internal/domain/layout"
	"github.com/typepulse/typepulse/internal/domain/model"
	"github.com/typepulse/typepulse/pkg/logger"
	"github.com/typepulse/typepulse/pkg/metrics"
)

// runAggregator is the single consumer of the hand-off queue. It owns
// the segmenter, the word detector and every aggregator; no other
// goroutine mutates them. Shutdown is driven by queue closure so the
// backlog drains before the session is finalized.
func (s *Service) runAggregator() {
	defer close(s.aggregatorDone)
	ctx := context.Background()
	log := s.logger.Named("aggregator")

	events := s.queue.Dequeue(ctx)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				s.finishSession(ctx, log)
				return
			}
			s.handleEvent(ctx, log, ev)
		case <-ticker.C:
			if closed := s.segmenter.CloseIfIdle(time.Now().UnixMilli()); closed != nil {
				s.finalizeBurst(ctx, log, closed)
			}
		}
	}
}

// handleEvent runs one key press through the full pipeline: burst
// segmentation, per-key and digraph intervals, word detection.
func (s *Service) handleEvent(ctx context.Context, log logger.Logger, ev model.RawKeyEvent) {
	isBackspace := layout.IsBackspace(ev.Code)

	closed, err := s.segmenter.ProcessPress(ev.TimestampMS, isBackspace)
	if err != nil {
		if errors.Is(err, burst.ErrNonMonotonic) {
			metrics.RecordEventMalformed()
			log.Warn(ctx, "dropping out-of-order event",
				logger.String("device", ev.DeviceID),
				logger.Int64("timestampMS", ev.TimestampMS))
			return
		}
		log.Error(ctx, "segmenter rejected event", logger.Error(err))
		return
	}
	if closed != nil {
		s.finalizeBurst(ctx, log, closed)
	}

	if st, updated := s.keys.RecordPress(ev.Code, ev.TimestampMS, ev.Layout); updated {
		if err := s.gateway.UpsertKeyStat(ctx, st); err != nil {
			log.Error(ctx, "persisting key stat", logger.Error(err))
		}
	}
	if st, updated := s.digraphs.RecordPress(ev.Code, ev.TimestampMS, ev.Layout); updated {
		if err := s.gateway.UpsertDigraphStat(ctx, st); err != nil {
			log.Error(ctx, "persisting digraph stat", logger.Error(err))
		}
	}

	name := layout.KeyName(ev.Code, ev.Layout)
	var completed *model.WordInfo
	switch {
	case isBackspace:
		completed = s.detector.ProcessBackspace(ev.TimestampMS)
	case layout.IsWordBoundary(ev.Code, name):
		completed = s.detector.ProcessBoundary(ev.TimestampMS)
	case layout.IsLetterKey(name):
		completed = s.detector.ProcessLetter(name, ev.TimestampMS, ev.Layout)
	}
	if completed != nil {
		s.recordWord(ctx, log, *completed)
	}
}

// recordWord folds a completed word into the word statistics unless
// the ignore-list suppresses it.
func (s *Service) recordWord(ctx context.Context, log logger.Logger, info model.WordInfo) {
	if !s.filter.AllowWord(info.Word) {
		metrics.RecordWordIgnored()
		return
	}
	st, ok := s.wordStats.Record(info, time.Now().UnixMilli())
	if !ok {
		return
	}
	metrics.RecordWordAggregated()
	if err := s.gateway.UpsertWordStat(ctx, st); err != nil {
		log.Error(ctx, "persisting word stat", logger.Error(err))
	}
}

// finalizeBurst handles one closed burst: boundary resets, the
// qualification gates, and the at-most-once append.
func (s *Service) finalizeBurst(ctx context.Context, log logger.Logger, b *model.Burst) {
	// An inter-burst gap is not typing time: clear interval timers so
	// the pause never becomes a sample, and close any pending word.
	s.keys.ResetTimers()
	s.digraphs.ResetBurst()
	if pending := s.detector.Flush(); pending != nil {
		s.recordWord(ctx, log, *pending)
	}

	metrics.RecordBurstFinalized(b.AvgWPM, b.DurationMS)
	metrics.UpdateAggregatorSizes(s.keys.Len(), s.digraphs.Len(), s.wordStats.Len())

	if !s.segmenter.Qualifies(b) {
		metrics.RecordBurstDiscarded()
		return
	}

	if s.tracker.SeenAndRecord(ctx, b.StartTimeMS) {
		return
	}
	inserted, err := s.gateway.AppendBurst(ctx, *b)
	if err != nil {
		s.tracker.Unrecord(ctx, b.StartTimeMS)
		log.Error(ctx, "persisting burst",
			logger.Int64("startTimeMS", b.StartTimeMS),
			logger.Error(err))
		return
	}
	if !inserted {
		return
	}

	log.Info(ctx, "burst recorded",
		logger.Int("keyCount", b.KeyCount),
		logger.Int64("durationMS", b.DurationMS),
		logger.Float64("wpm", b.AvgWPM))

	if b.QualifiesForHighScore {
		metrics.RecordBurstHighScore()
		hs := model.HighScore{
			Date:        time.UnixMilli(b.StartTimeMS).Format("2006-01-02"),
			WPM:         b.AvgWPM,
			DurationMS:  b.DurationMS,
			KeyCount:    b.KeyCount,
			TimestampMS: b.StartTimeMS,
		}
		if err := s.gateway.RecordHighScore(ctx, hs); err != nil {
			log.Error(ctx, "persisting high score", logger.Error(err))
		}
	}
}

// finishSession finalizes the open burst and pending word after the
// queue has drained.
func (s *Service) finishSession(ctx context.Context, log logger.Logger) {
	if closed := s.segmenter.Flush(); closed != nil {
		s.finalizeBurst(ctx, log, closed)
	} else if pending := s.detector.Flush(); pending != nil {
		s.recordWord(ctx, log, *pending)
	}
}
