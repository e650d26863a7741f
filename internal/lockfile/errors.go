package lockfile

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrHeld      = errors.New("lock held by another process")
	ErrNotOwner  = errors.New("lock not owned by this instance")
	ErrMalformed = errors.New("malformed lock file")
)
