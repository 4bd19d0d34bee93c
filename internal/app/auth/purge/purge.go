// Package purge removes expired sessions in the background.
package purge

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type expirer interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Run deletes sessions that expired before the current tick, every interval,
// until ctx is cancelled. It always returns nil so it can share an errgroup
// with the HTTP server.
func Run(ctx context.Context, store expirer, interval time.Duration, log *zap.Logger) error {
	return run(ctx, store, interval, log, time.Now)
}

func run(ctx context.Context, store expirer, interval time.Duration, log *zap.Logger, now func() time.Time) error {
	log.Debug("starting session purge worker", zap.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// give one pass at most half the interval
			passCtx, cancel := context.WithTimeout(ctx, interval/2)
			n, err := store.DeleteExpired(passCtx, now().UTC())
			cancel()
			switch {
			case err != nil && ctx.Err() == nil:
				log.Error("failed to purge expired sessions", zap.Error(err))
			case n > 0:
				log.Info("purged expired sessions", zap.Int64("count", n))
			}
		case <-ctx.Done():
			log.Info("stopping session purge worker")
			return nil
		}
	}
}
