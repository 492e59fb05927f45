package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

type options struct {
	logger  *slog.Logger
	metrics ports.Metrics
	now     func() time.Time
}

// Option configures the ambient dependencies of a service
type Option func(*options)

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics sets the metrics sink
func WithMetrics(m ports.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func newOptions(opts []Option) options {
	o := options{
		logger:  slog.Default(),
		metrics: nopMetrics{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// acquire takes one slot from limiter or returns a *core.RateLimitedError
func (o *options) acquire(ctx context.Context, limiter ports.RateLimiter, scope, key string) error {
	if limiter == nil {
		return nil
	}

	decision, err := limiter.TryAcquire(ctx, key)
	if err != nil {
		return fmt.Errorf("%s rate limiter: %w", scope, err)
	}
	if !decision.Allowed {
		o.metrics.ObserveThrottle(scope)
		o.logger.Info("rate limited", "scope", scope, "key", key, "reset_at", decision.ResetAt)
		return core.NewRateLimitedError(scope, decision, o.now())
	}

	return nil
}

type nopMetrics struct{}

func (nopMetrics) ObserveAuth(step, outcome string) {}
func (nopMetrics) ObserveThrottle(scope string)     {}
