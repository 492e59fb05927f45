package ports

import (
	"context"

	"github.com/layer-3/walletauth/core"
)

// RateLimiter is a fixed-window attempt counter keyed by address or client identity
type RateLimiter interface {
	TryAcquire(ctx context.Context, key string) (core.RateLimitDecision, error)
}
