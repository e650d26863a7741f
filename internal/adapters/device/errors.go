package device

import "errors"

// Error definitions for the device package.
var (
	// ErrNoDevices is terminal: every handle was pruned and the wait
	// loop must stop rather than spin.
	ErrNoDevices = errors.New("no input devices available")

	// ErrClosed is returned after the multiplexer has been closed.
	ErrClosed = errors.New("multiplexer closed")
)
