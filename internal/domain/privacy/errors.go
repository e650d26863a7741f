package privacy

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrBadKey = errors.New("bad encryption key")
)
