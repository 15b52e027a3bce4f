package repository

import (
	"context"
	"errors"
	"time"

	"github.com/okian/driftwatch/pkg/metrics"
)

// WithRetry runs a write and retries it exactly once if it fails with
// ErrTransient. The op name labels metrics.
func WithRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
	}()

	err := fn(ctx)
	if errors.Is(err, ErrTransient) && ctx.Err() == nil {
		metrics.RecordStoreRetry(op)
		err = fn(ctx)
	}
	if err != nil && !errors.Is(err, ErrDuplicate) {
		metrics.RecordStoreError(op)
	}
	return err
}
