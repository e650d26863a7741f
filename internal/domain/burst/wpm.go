package burst

// charsPerWord is the typing-industry convention of five characters per
// word.
const charsPerWord = 5.0

// NetKeystrokes models the characters actually present after
// corrections: each backspace removes one character and is itself a
// wasted keystroke, so it costs two. Never negative.
func NetKeystrokes(keyCount, backspaceCount int) int {
	net := keyCount - 2*backspaceCount
	if net < 0 {
		return 0
	}
	return net
}

// WPM converts net keystrokes over a duration into words per minute.
// This is the single throughput formula for the whole engine; every
// reported WPM value goes through it.
func WPM(netKeys int, durationMS int64) float64 {
	if durationMS <= 0 {
		return 0.0
	}
	words := float64(netKeys) / charsPerWord
	minutes := float64(durationMS) / 60000.0
	return words / minutes
}
