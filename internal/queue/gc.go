package queue

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// purgeTimeout bounds one DLQ drain so a stuck broker cannot stall the loop
const purgeTimeout = 2 * time.Minute

// GarbageCollector drops dead-lettered mood jobs once they are older than the retention
// window. Failed mood labels are not worth keeping: the pending-mood sweeper re-enqueues
// anything still unlabeled.
type GarbageCollector struct {
	purger    DLQPurger
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
	purged    atomic.Int64
}

// NewGarbageCollector creates a collector that runs every interval
func NewGarbageCollector(purger DLQPurger, interval, retention time.Duration, logger *zap.Logger) *GarbageCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GarbageCollector{
		purger:    purger,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// Start runs one pass immediately and then every interval until ctx is cancelled.
// It always returns the context error.
func (gc *GarbageCollector) Start(ctx context.Context) error {
	gc.runOnce(ctx)

	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			gc.runOnce(ctx)
		}
	}
}

// Purged returns the number of messages removed since the collector was created
func (gc *GarbageCollector) Purged() int64 {
	return gc.purged.Load()
}

func (gc *GarbageCollector) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := gc.collect(ctx); err != nil {
		gc.logger.Error("dlq_gc_failed", zap.Error(err))
	}
}

func (gc *GarbageCollector) collect(ctx context.Context) error {
	if gc.purger == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, purgeTimeout)
	defer cancel()

	n, err := gc.purger.PurgeOlderThan(ctx, gc.retention)
	if n > 0 {
		gc.purged.Add(int64(n))
		gc.logger.Info("dlq_gc_purged", zap.Int("count", n), zap.Duration("retention", gc.retention))
	}
	if err != nil {
		return fmt.Errorf("DLQ purge after %d message(s): %w", n, err)
	}
	return nil
}
