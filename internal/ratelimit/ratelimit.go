package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/amishk599/jobintake/internal/model"
)

// HostLimiter spaces out requests to the same host by at least minDelay.
// Requests to different hosts do not block each other.
type HostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	minDelay time.Duration
}

// NewHostLimiter creates a limiter allowing one request per host every minDelay.
func NewHostLimiter(minDelay time.Duration) *HostLimiter {
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		minDelay: minDelay,
	}
}

// Wait blocks until a request to host is allowed or ctx is done.
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	if h.minDelay <= 0 {
		return nil
	}
	if err := h.limiter(host).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", host, err)
	}
	return nil
}

func (h *HostLimiter) limiter(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := strings.ToLower(host)
	l, ok := h.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Every(h.minDelay), 1)
		h.limiters[key] = l
	}
	return l
}

// LimitedFetcher is a decorator that waits on the HostLimiter before
// delegating to the wrapped FeedFetcher.
type LimitedFetcher struct {
	inner   model.FeedFetcher
	limiter *HostLimiter
}

// NewLimitedFetcher wraps a FeedFetcher with per-host rate limiting.
func NewLimitedFetcher(inner model.FeedFetcher, limiter *HostLimiter) *LimitedFetcher {
	return &LimitedFetcher{inner: inner, limiter: limiter}
}

// Fetch waits for the feed host's slot, then fetches.
func (f *LimitedFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}
	if err := f.limiter.Wait(ctx, host); err != nil {
		return nil, err
	}
	return f.inner.Fetch(ctx, rawURL)
}
