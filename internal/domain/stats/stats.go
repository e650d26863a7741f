// Package stats maintains incremental running statistics per key, per
// digraph and per word.
//
// All aggregators use the same constant-memory update: the running mean
// moves by (sample - mean) / n and the bounds clamp, so no raw samples
// are retained however long the process runs. State is exclusively owned
// by the aggregation goroutine; snapshots are copies.
package stats

import (
	"sort"

	"github.com/typepulse/typepulse/internal/domain/layout"
	"github.com/typepulse/typepulse/internal/domain/model"
)

// MinSamples is the exposure threshold: an aggregate is not surfaced to
// readers until it has at least this many samples, so a single slow
// observation cannot dominate a ranking.
const MinSamples = 2

type keyIdentity struct {
	code     uint16
	layoutID string
}

// KeyAggregator tracks the interval between consecutive presses of the
// same key, per layout.
type KeyAggregator struct {
	stats     map[keyIdentity]*model.KeyStat
	lastPress map[keyIdentity]int64
}

// NewKeyAggregator returns an empty aggregator.
func NewKeyAggregator() *KeyAggregator {
	return &KeyAggregator{
		stats:     make(map[keyIdentity]*model.KeyStat),
		lastPress: make(map[keyIdentity]int64),
	}
}

// RecordPress observes one press of a key. The first press of a key
// under a layout only arms the interval measurement; from the second
// press on, the updated stat is returned for persistence.
func (a *KeyAggregator) RecordPress(code uint16, timestampMS int64, layoutID string) (model.KeyStat, bool) {
	id := keyIdentity{code: code, layoutID: layoutID}
	last, seen := a.lastPress[id]
	a.lastPress[id] = timestampMS
	if !seen {
		return model.KeyStat{}, false
	}

	interval := float64(timestampMS - last)
	st, ok := a.stats[id]
	if !ok {
		st = &model.KeyStat{
			Code:    code,
			KeyName: layout.KeyName(code, layoutID),
			Layout:  layoutID,
			MinMS:   interval,
			MaxMS:   interval,
		}
		a.stats[id] = st
	}
	st.SampleCount++
	st.MeanIntervalMS += (interval - st.MeanIntervalMS) / float64(st.SampleCount)
	if interval < st.MinMS {
		st.MinMS = interval
	}
	if interval > st.MaxMS {
		st.MaxMS = interval
	}
	return *st, true
}

// ResetTimers clears the per-key last-press markers so an idle gap does
// not produce an artificial interval sample. Aggregate values survive.
func (a *KeyAggregator) ResetTimers() {
	clear(a.lastPress)
}

// Slowest returns up to n exposed keys by descending mean interval.
func (a *KeyAggregator) Slowest(n int) []model.KeyStat {
	return a.ranked(n, func(x, y *model.KeyStat) bool { return x.MeanIntervalMS > y.MeanIntervalMS })
}

// Fastest returns up to n exposed keys by ascending mean interval.
func (a *KeyAggregator) Fastest(n int) []model.KeyStat {
	return a.ranked(n, func(x, y *model.KeyStat) bool { return x.MeanIntervalMS < y.MeanIntervalMS })
}

// Len returns the number of tracked keys, exposed or not.
func (a *KeyAggregator) Len() int { return len(a.stats) }

func (a *KeyAggregator) ranked(n int, less func(x, y *model.KeyStat) bool) []model.KeyStat {
	out := make([]model.KeyStat, 0, len(a.stats))
	for _, st := range a.stats {
		if st.SampleCount >= MinSamples {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(&out[i], &out[j]) })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

type digraphIdentity struct {
	first    uint16
	second   uint16
	layoutID string
}

// DigraphAggregator tracks the interval between two different keys
// pressed consecutively within one burst. The previous-press marker is
// cleared across bursts: a digraph never spans an idle gap.
type DigraphAggregator struct {
	stats    map[digraphIdentity]*model.DigraphStat
	prevCode uint16
	prevTime int64
	armed    bool
}

// NewDigraphAggregator returns an empty aggregator.
func NewDigraphAggregator() *DigraphAggregator {
	return &DigraphAggregator{stats: make(map[digraphIdentity]*model.DigraphStat)}
}

// RecordPress observes one press. When the previous press in the same
// burst was a different key, the ordered pair's stat is updated and
// returned.
func (a *DigraphAggregator) RecordPress(code uint16, timestampMS int64, layoutID string) (model.DigraphStat, bool) {
	defer func() {
		a.prevCode = code
		a.prevTime = timestampMS
		a.armed = true
	}()

	if !a.armed || a.prevCode == code {
		return model.DigraphStat{}, false
	}

	interval := float64(timestampMS - a.prevTime)
	id := digraphIdentity{first: a.prevCode, second: code, layoutID: layoutID}
	st, ok := a.stats[id]
	if !ok {
		st = &model.DigraphStat{
			FirstCode:  a.prevCode,
			SecondCode: code,
			FirstKey:   layout.KeyName(a.prevCode, layoutID),
			SecondKey:  layout.KeyName(code, layoutID),
			Layout:     layoutID,
			MinMS:      interval,
			MaxMS:      interval,
		}
		a.stats[id] = st
	}
	st.SampleCount++
	st.MeanIntervalMS += (interval - st.MeanIntervalMS) / float64(st.SampleCount)
	if interval < st.MinMS {
		st.MinMS = interval
	}
	if interval > st.MaxMS {
		st.MaxMS = interval
	}
	return *st, true
}

// ResetBurst clears the previous-press marker at burst boundaries.
func (a *DigraphAggregator) ResetBurst() {
	a.armed = false
}

// Slowest returns up to n exposed digraphs by descending mean interval.
func (a *DigraphAggregator) Slowest(n int) []model.DigraphStat {
	return a.ranked(n, func(x, y *model.DigraphStat) bool { return x.MeanIntervalMS > y.MeanIntervalMS })
}

// Fastest returns up to n exposed digraphs by ascending mean interval.
func (a *DigraphAggregator) Fastest(n int) []model.DigraphStat {
	return a.ranked(n, func(x, y *model.DigraphStat) bool { return x.MeanIntervalMS < y.MeanIntervalMS })
}

// Len returns the number of tracked digraphs, exposed or not.
func (a *DigraphAggregator) Len() int { return len(a.stats) }

func (a *DigraphAggregator) ranked(n int, less func(x, y *model.DigraphStat) bool) []model.DigraphStat {
	out := make([]model.DigraphStat, 0, len(a.stats))
	for _, st := range a.stats {
		if st.SampleCount >= MinSamples {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(&out[i], &out[j]) })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

type wordIdentity struct {
	word     string
	layoutID string
}

// WordAggregator tracks milliseconds per letter for completed words.
// The speed sample uses active typing duration only; editing time and
// backspaces accumulate separately.
type WordAggregator struct {
	stats map[wordIdentity]*model.WordStat
}

// NewWordAggregator returns an empty aggregator.
func NewWordAggregator() *WordAggregator {
	return &WordAggregator{stats: make(map[wordIdentity]*model.WordStat)}
}

// Record observes one completed word and returns the updated stat.
func (a *WordAggregator) Record(info model.WordInfo, nowMS int64) (model.WordStat, bool) {
	if info.NumLetters == 0 {
		return model.WordStat{}, false
	}
	sample := float64(info.ActiveDurationMS) / float64(info.NumLetters)

	id := wordIdentity{word: info.Word, layoutID: info.Layout}
	st, ok := a.stats[id]
	if !ok {
		st = &model.WordStat{Word: info.Word, Layout: info.Layout}
		a.stats[id] = st
	}
	st.SampleCount++
	st.MeanMSPerLetter += (sample - st.MeanMSPerLetter) / float64(st.SampleCount)
	st.TotalLetters += int64(info.NumLetters)
	st.TotalDurationMS += info.TotalDurationMS
	st.BackspaceCount += int64(info.BackspaceCount)
	st.EditingTimeMS += info.EditingTimeMS
	st.LastSeenMS = nowMS
	return *st, true
}

// Slowest returns up to n exposed words by descending ms per letter.
func (a *WordAggregator) Slowest(n int) []model.WordStat {
	return a.ranked(n, func(x, y *model.WordStat) bool { return x.MeanMSPerLetter > y.MeanMSPerLetter })
}

// Fastest returns up to n exposed words by ascending ms per letter.
func (a *WordAggregator) Fastest(n int) []model.WordStat {
	return a.ranked(n, func(x, y *model.WordStat) bool { return x.MeanMSPerLetter < y.MeanMSPerLetter })
}

// Len returns the number of tracked words, exposed or not.
func (a *WordAggregator) Len() int { return len(a.stats) }

func (a *WordAggregator) ranked(n int, less func(x, y *model.WordStat) bool) []model.WordStat {
	out := make([]model.WordStat, 0, len(a.stats))
	for _, st := range a.stats {
		if st.SampleCount >= MinSamples {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(&out[i], &out[j]) })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
