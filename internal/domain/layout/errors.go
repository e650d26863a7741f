package layout

import "errors"

// Error definitions for the layout package.
var (
	ErrUnsupported = errors.New("unsupported layout")
)
