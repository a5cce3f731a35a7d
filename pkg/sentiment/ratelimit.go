package sentiment

import (
	"context"
	"sync"
	"time"
)

// WindowLimiter enforces a fixed request budget per sliding time window.
// Callers block in Acquire until the window resets; requests are never
// dropped and never rerouted to another provider.
type WindowLimiter struct {
	mu          sync.Mutex
	limit       int
	window      time.Duration
	count       int
	windowStart time.Time
	now         func() time.Time
}

// NewWindowLimiter creates a limiter allowing limit requests per window.
// A non-positive limit disables limiting.
func NewWindowLimiter(limit int, window time.Duration) *WindowLimiter {
	return &WindowLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Acquire blocks until a request slot is available or the context is done.
// The count increments atomically under the limiter's mutex so concurrent
// callers observe an accurate window total.
func (l *WindowLimiter) Acquire(ctx context.Context) error {
	if l == nil || l.limit <= 0 {
		return nil
	}
	for {
		l.mu.Lock()
		now := l.now()
		if l.windowStart.IsZero() || now.Sub(l.windowStart) > l.window {
			l.windowStart = now
			l.count = 0
		}
		if l.count < l.limit {
			l.count++
			l.mu.Unlock()
			return nil
		}
		wait := l.window - now.Sub(l.windowStart)
		l.mu.Unlock()

		if wait <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Remaining reports how many request slots are left in the current window.
func (l *WindowLimiter) Remaining() int {
	if l == nil || l.limit <= 0 {
		return -1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.windowStart.IsZero() || l.now().Sub(l.windowStart) > l.window {
		return l.limit
	}
	return l.limit - l.count
}
