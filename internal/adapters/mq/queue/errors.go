package queue

import "errors"

// Error definitions for the queue package.
var (
	ErrClosed = errors.New("queue closed")
)
