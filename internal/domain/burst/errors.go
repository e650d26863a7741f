package burst

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidConfig = errors.New("invalid burst config")
	ErrNonMonotonic  = errors.New("non-monotonic timestamp")
)
