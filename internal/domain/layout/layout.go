// Package layout maps evdev keycodes to key names for the supported
// keyboard layouts and tracks the active layout for the session.
//
// The same physical code can produce different characters under different
// layouts, so every aggregate downstream is additionally keyed by the
// layout identifier returned by the Tracker.
package layout

import (
	"sync"
	"unicode"
)

// Well-known evdev keycodes the engine treats specially.
const (
	CodeBackspace uint16 = 14
	CodeEnter     uint16 = 28
	CodeSpace     uint16 = 57
	CodeTab       uint16 = 15
)

var usKeycodeToName = map[uint16]string{
	1: "ESC",
	2: "1", 3: "2", 4: "3", 5: "4", 6: "5",
	7: "6", 8: "7", 9: "8", 10: "9", 11: "0",
	12: "-", 13: "=", 14: "BACKSPACE",
	15: "TAB", 16: "q", 17: "w", 18: "e", 19: "r",
	20: "t", 21: "y", 22: "u", 23: "i", 24: "o",
	25: "p", 26: "[", 27: "]", 28: "ENTER",
	29: "LEFT_CTRL",
	30: "a", 31: "s", 32: "d", 33: "f", 34: "g",
	35: "h", 36: "j", 37: "k", 38: "l", 39: ";", 40: "'",
	41: "`", 42: "LEFT_SHIFT", 43: "\\", 44: "z", 45: "x",
	46: "c", 47: "v", 48: "b", 49: "n", 50: "m", 51: ",",
	52: ".", 53: "/", 54: "RIGHT_SHIFT", 55: "*", 56: "LEFT_ALT",
	57: "SPACE", 58: "CAPS_LOCK",
	59: "F1", 60: "F2", 61: "F3", 62: "F4", 63: "F5",
	64: "F6", 65: "F7", 66: "F8", 67: "F9", 68: "F10",
	69: "NUM_LOCK", 70: "SCROLL_LOCK",
	71: "KP_7", 72: "KP_8", 73: "KP_9", 74: "KP_-",
	75: "KP_4", 76: "KP_5", 77: "KP_6", 78: "KP_+",
	79: "KP_1", 80: "KP_2", 81: "KP_3", 82: "KP_0",
	83: "KP_.",
	87: "F11", 88: "F12",
	97: "RIGHT_CTRL",
	98: "KP_DIV", 99: "KP_ENTER", 100: "RIGHT_ALT",
	102: "HOME", 103: "UP", 104: "PAGE_UP", 105: "LEFT",
	106: "RIGHT", 107: "END", 108: "DOWN", 109: "PAGE_DOWN",
	110: "INSERT", 111: "DELETE",
	127: "PAUSE",
}

// deKeycodeToName differs from the US table only where the German layout
// remaps a position (y/z swap, umlauts, ß).
var deKeycodeToName = func() map[uint16]string {
	m := make(map[uint16]string, len(usKeycodeToName))
	for k, v := range usKeycodeToName {
		m[k] = v
	}
	m[12] = "ß"
	m[13] = "'"
	m[21] = "z"
	m[26] = "ü"
	m[27] = "+"
	m[39] = "ö"
	m[40] = "ä"
	m[41] = "^"
	m[43] = "#"
	m[44] = "y"
	m[53] = "-"
	return m
}()

var layoutTables = map[string]map[uint16]string{
	"us": usKeycodeToName,
	"de": deKeycodeToName,
}

// KeyName returns the human-readable key name for a keycode under the
// given layout. Unknown codes map to "KEY_<code>"; unknown layouts fall
// back to the US table.
func KeyName(code uint16, layoutID string) string {
	table, ok := layoutTables[layoutID]
	if !ok {
		table = usKeycodeToName
	}
	if name, ok := table[code]; ok {
		return name
	}
	return "KEY_" + itoa(code)
}

// IsSupported reports whether a keycode table exists for the layout.
func IsSupported(layoutID string) bool {
	_, ok := layoutTables[layoutID]
	return ok
}

// IsLetterKey reports whether a key name is a letter (a-z plus the German
// umlauts and ß).
func IsLetterKey(name string) bool {
	runes := []rune(name)
	if len(runes) != 1 {
		return false
	}
	return unicode.IsLetter(runes[0])
}

// IsBackspace reports whether the keycode is the "delete previous
// character" key.
func IsBackspace(code uint16) bool {
	return code == CodeBackspace
}

// IsWordBoundary reports whether a key name terminates a word in
// progress. Letters and backspace are the only keys that do not.
func IsWordBoundary(code uint16, name string) bool {
	if IsBackspace(code) {
		return false
	}
	return !IsLetterKey(name)
}

// itoa avoids strconv for the single hot-path fallback.
func itoa(n uint16) string {
	if n == 0 {
		return "0"
	}
	var buf [5]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// Tracker holds the active layout identifier. The layout collaborator
// updates it at any time; readers take a snapshot per event.
type Tracker struct {
	mu     sync.RWMutex
	layout string
}

// NewTracker creates a tracker starting at the given layout. Empty input
// defaults to "us".
func NewTracker(initial string) *Tracker {
	if initial == "" {
		initial = "us"
	}
	return &Tracker{layout: initial}
}

// Current returns the active layout identifier.
func (t *Tracker) Current() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.layout
}

// Set updates the active layout. Unknown layouts are accepted; keycode
// lookups for them fall back to the US table.
func (t *Tracker) Set(layoutID string) {
	if layoutID == "" {
		return
	}
	t.mu.Lock()
	t.layout = layoutID
	t.mu.Unlock()
}
