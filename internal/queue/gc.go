package queue

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// GarbageCollector periodically drains the notification DLQ of entries
// older than retention. A reminder that could not be delivered for that
// long is stale and should not be replayed.
type GarbageCollector struct {
	purger    DLQPurger
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
}

// NewGarbageCollector creates a collector that purges through purger every
// interval. Pass the RabbitMQ queue (it implements DLQPurger) or another
// implementation.
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

// Start runs the purge loop until ctx is cancelled.
func (gc *GarbageCollector) Start(ctx context.Context) error {
	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			gc.collect(ctx)
		}
	}
}

func (gc *GarbageCollector) collect(ctx context.Context) {
	if gc.purger == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	n, err := gc.purger.PurgeOlderThan(ctx, gc.retention)
	if err != nil {
		gc.logger.Error("dlq_purge_failed", zap.Error(err))
		return
	}
	if n > 0 {
		gc.logger.Info("dlq_purged_stale_notifications",
			zap.Int("count", n),
			zap.Duration("retention", gc.retention))
	}
}
