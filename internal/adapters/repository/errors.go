package repository

import "errors"

// Error definitions for the repository package.
var (
	ErrNotFound = errors.New("not found")
)
