package whttp

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter enforces a minimum interval between requests to the same host.
// Requests to different hosts do not wait on each other.
type HostLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	limiters map[string]*rate.Limiter
}

// NewHostLimiter creates a limiter. A non-positive interval disables spacing.
func NewHostLimiter(interval time.Duration) *HostLimiter {
	return &HostLimiter{
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (h *HostLimiter) limiter(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	host = strings.ToLower(host)
	l, ok := h.limiters[host]
	if !ok {
		limit := rate.Inf
		if h.interval > 0 {
			limit = rate.Every(h.interval)
		}
		l = rate.NewLimiter(limit, 1)
		h.limiters[host] = l
	}
	return l
}

// Wait blocks until a request to host may start.
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	return h.limiter(host).Wait(ctx)
}

// Interval returns the configured spacing.
func (h *HostLimiter) Interval() time.Duration { return h.interval }
