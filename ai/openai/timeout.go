package openai

import (
	"context"
	"time"
)

// boundedContext derives a context that expires after timeout. Every
// external call in this package goes through it, so a hung service cannot
// stall a batch indefinitely. A non-positive timeout leaves ctx unchanged.
func boundedContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
