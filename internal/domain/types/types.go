// Package types contains common types used across the application
package types

// KeyEntry is a per-key ranking row surfaced by the stats API.
type KeyEntry struct {
	Rank           int     `json:"rank"`
	KeyName        string  `json:"key_name"`
	Layout         string  `json:"layout"`
	MeanIntervalMS float64 `json:"mean_interval_ms"`
	SampleCount    int64   `json:"sample_count"`
}

// DigraphEntry is a per-digraph ranking row surfaced by the stats API.
type DigraphEntry struct {
	Rank           int     `json:"rank"`
	Digraph        string  `json:"digraph"`
	Layout         string  `json:"layout"`
	MeanIntervalMS float64 `json:"mean_interval_ms"`
	SampleCount    int64   `json:"sample_count"`
}

// WordEntry is a per-word ranking row surfaced by the stats API.
type WordEntry struct {
	Rank            int     `json:"rank"`
	Word            string  `json:"word"`
	Layout          string  `json:"layout"`
	MeanMSPerLetter float64 `json:"mean_ms_per_letter"`
	SampleCount     int64   `json:"sample_count"`
}
