// Package retry re-attempts feed downloads that failed for transient reasons.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/amishk599/jobintake/internal/model"
)

// maxWait bounds one pause so a single feed host cannot stall a poll. A
// Retry-After longer than this ends the retries for that feed.
const maxWait = 2 * time.Minute

// Fetcher wraps a FeedFetcher and retries throttled, server-side and network
// failures with jittered exponential backoff.
type Fetcher struct {
	next      model.FeedFetcher
	retries   int
	baseDelay time.Duration
	logger    *slog.Logger
}

// NewFetcher returns a Fetcher making at most retries extra attempts per feed.
// The first pause is baseDelay and doubles from there.
func NewFetcher(next model.FeedFetcher, retries int, baseDelay time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{next: next, retries: retries, baseDelay: baseDelay, logger: logger}
}

// Fetch implements model.FeedFetcher.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) ([]byte, error) {
	host := feedHost(feedURL)
	for attempt := 1; ; attempt++ {
		data, err := f.next.Fetch(ctx, feedURL)
		if err == nil {
			if attempt > 1 {
				f.logger.Debug("feed recovered", "feed_host", host, "attempts", attempt)
			}
			return data, nil
		}
		if attempt > f.retries || !transient(err) {
			return nil, err
		}

		wait, ok := f.pause(attempt, err)
		if !ok {
			f.logger.Warn("feed host asked for a long back-off, giving up",
				"feed_host", host,
				"feed", feedURL,
				"status", statusOf(err),
			)
			return nil, err
		}
		f.logger.Warn("feed fetch failed, retrying",
			"feed_host", host,
			"feed", feedURL,
			"attempt", attempt,
			"retries", f.retries,
			"status", statusOf(err),
			"wait", wait,
			"error", err,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("feed %s: retry cancelled: %w", host, ctx.Err())
		case <-timer.C:
		}
	}
}

// pause returns how long to wait before the next attempt. A Retry-After hint
// wins when it fits under maxWait; a longer one reports ok=false.
// Computed back-off carries ±30% jitter and is clamped to maxWait.
func (f *Fetcher) pause(attempt int, err error) (wait time.Duration, ok bool) {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter, httpErr.RetryAfter <= maxWait
	}

	wait = f.baseDelay << (attempt - 1)
	if wait <= 0 || wait > maxWait {
		wait = maxWait
	}
	jitter := (rand.Float64()*2 - 1) * 0.3 * float64(wait)
	return time.Duration(float64(wait) + jitter), true
}

// transient reports whether another attempt at the same feed could succeed.
func transient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) {
		return true // dial, DNS, TLS, reset
	}
	switch code := httpErr.StatusCode; {
	case code == http.StatusRequestTimeout, code == http.StatusTooEarly, code == http.StatusTooManyRequests:
		return true
	case code == http.StatusNotImplemented, code == http.StatusHTTPVersionNotSupported:
		return false
	default:
		return code >= 500
	}
}

func statusOf(err error) int {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

func feedHost(feedURL string) string {
	if u, err := url.Parse(feedURL); err == nil && u.Host != "" {
		return u.Hostname()
	}
	return feedURL
}
