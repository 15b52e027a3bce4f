package history

import (
	"time"

	"github.com/okian/driftwatch/pkg/logger"
)

// Option configures a Tracker.
type Option func(*Tracker)

// WithRetentionDays sets how long entries are kept.
func WithRetentionDays(days int) Option {
	return func(t *Tracker) {
		if days > 0 {
			t.retentionDays = days
		}
	}
}

// WithMaxEntries caps the series length after the time prune; 0 leaves it
// bounded by retention only.
func WithMaxEntries(n int) Option {
	return func(t *Tracker) {
		if n >= 0 {
			t.maxEntries = n
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithLogger sets the tracker's logger.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.log = l
		}
	}
}
