package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

// Limit is a fixed-window ceiling
type Limit struct {
	Max    int
	Window time.Duration
}

func (l Limit) normalized() Limit {
	if l.Max < 1 {
		l.Max = 1
	}
	if l.Window <= 0 {
		l.Window = time.Minute
	}
	return l
}

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is an in-memory fixed-window rate limiter
type MemoryLimiter struct {
	limit   Limit
	windows map[string]*window
	mu      sync.Mutex
	now     func() time.Time
}

var _ ports.RateLimiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter creates a limiter allowing limit.Max attempts per key per window.
// A nil clock defaults to time.Now.
func NewMemoryLimiter(limit Limit, now func() time.Time) *MemoryLimiter {
	if now == nil {
		now = time.Now
	}
	return &MemoryLimiter{
		limit:   limit.normalized(),
		windows: make(map[string]*window),
		now:     now,
	}
}

// TryAcquire counts one attempt for key. Denied attempts are not counted.
func (l *MemoryLimiter) TryAcquire(ctx context.Context, key string) (core.RateLimitDecision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, exists := l.windows[key]
	if !exists || !now.Before(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(l.limit.Window)}
		l.windows[key] = w
		return core.RateLimitDecision{Allowed: true, Remaining: l.limit.Max - 1, ResetAt: w.resetAt}, nil
	}

	if w.count >= l.limit.Max {
		return core.RateLimitDecision{Allowed: false, Remaining: 0, ResetAt: w.resetAt}, nil
	}

	w.count++
	return core.RateLimitDecision{Allowed: true, Remaining: l.limit.Max - w.count, ResetAt: w.resetAt}, nil
}

// PurgeExpired drops windows that have elapsed
func (l *MemoryLimiter) PurgeExpired(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	purged := 0
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
			purged++
		}
	}
	return purged, nil
}
