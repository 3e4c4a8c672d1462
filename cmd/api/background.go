package main

import (
	"context"
	"time"
)

// sweepCartsEvery evicts idle carts from memory and purges expired snapshots
// from the store until ctx is cancelled.
func (app *application) sweepCartsEvery(ctx context.Context, every time.Duration) {
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				app.sweepCarts(ctx, now)
			}
		}
	}()
}

func (app *application) sweepCarts(ctx context.Context, now time.Time) {
	if n := app.carts.EvictIdle(now); n > 0 {
		app.logger.Infof("Evicted %d idle carts at %s", n, now.Format(time.RFC1123))
	}

	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := app.carts.DeleteExpired(sweepCtx)
	if err != nil {
		app.logger.Errorf("Error deleting expired cart snapshots: %v", err)
		return
	}
	if n > 0 {
		app.logger.Infof("Deleted %d expired cart snapshots", n)
	}
}
