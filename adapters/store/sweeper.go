package store

import (
	"context"
	"log/slog"
	"time"
)

// Purger is anything holding expiring records that can be swept
type Purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// RunSweeper calls PurgeExpired on every interval until ctx is done.
// Lazy expiry on read still applies, the sweep only bounds memory.
func RunSweeper(ctx context.Context, name string, p Purger, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("sweep failed", "store", name, "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("swept expired records", "store", name, "count", n)
			}
		}
	}
}
