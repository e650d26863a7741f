package lockfile

import (
	"github.com/typepulse/typepulse/pkg/logger"
)

// Option configures a Lock.
type Option func(*Lock)

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(l *Lock) {
		if log != nil {
			l.logger = log
		}
	}
}
