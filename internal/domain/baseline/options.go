package baseline

import (
	"time"

	"github.com/okian/driftwatch/pkg/logger"
)

// Option configures a Manager.
type Option func(*Manager)

// WithWindowDays sets how many days of rows the captured signals average over.
func WithWindowDays(days int) Option {
	return func(m *Manager) {
		if days > 0 {
			m.windowDays = days
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the manager's logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}
