package crawler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// hostThrottle spaces out requests to the same host by at least delay.
type hostThrottle struct {
	mu       sync.Mutex
	delay    time.Duration
	limiters map[string]*rate.Limiter
}

func newHostThrottle(delay time.Duration) *hostThrottle {
	return &hostThrottle{
		delay:    delay,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until host may be requested again or ctx is done.
func (t *hostThrottle) Wait(ctx context.Context, host string) error {
	if t == nil || t.delay <= 0 {
		return ctx.Err()
	}
	t.mu.Lock()
	l, ok := t.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Every(t.delay), 1)
		t.limiters[host] = l
	}
	t.mu.Unlock()
	return l.Wait(ctx)
}
