package sage

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/colonyops/sage/internal/data/stores"
)

// Sweeper removes expired entries from a store.
type Sweeper interface {
	SweepExpired(ctx context.Context) error
}

// StartSweep periodically removes expired KV entries, such as access tokens
// stored without a refresh token. It blocks until ctx is cancelled.
func StartSweep(ctx context.Context, store Sweeper, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := store.SweepExpired(ctx)
			switch {
			case err == nil:
				continue
			case stores.IsBusyError(err):
				// Another sage process is writing; the next tick retries.
				log.Debug().Err(err).Msg("kv sweep skipped, database busy")
			default:
				log.Warn().Err(err).Msg("kv sweep failed")
			}
		}
	}
}
