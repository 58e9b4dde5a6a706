package internal

import (
	"context"
	"time"
)

// WithTimeout returns a context with timeout, defaulting to 30 seconds if
// duration is zero or negative. Every gateway call runs under one of these;
// the remote API has no other deadline.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 30 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
