package middleware

import (
	"context"
	"time"
)

// reloadEvery calls load every interval until ctx is cancelled. A non-positive interval disables reloading.
func reloadEvery(ctx context.Context, interval time.Duration, load func(context.Context)) {
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
			load(ctx)
		}
	}
}
