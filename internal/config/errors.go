package config

import (
	"errors"
)

// Sentinel error kinds for configuration loading and validation.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrLoadConfig    = errors.New("configuration load failed")
)
