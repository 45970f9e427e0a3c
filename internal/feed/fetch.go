package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/amishk599/jobintake/internal/model"
)

// maxFeedBytes caps how much of a feed response is read.
const maxFeedBytes = 10 << 20

const userAgent = "jobintake/1.0 (+feed reader)"

// HTTPFetcher retrieves feed documents over HTTP.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher returns a fetcher using client.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	return &HTTPFetcher{client: client}
}

// Fetch implements model.FeedFetcher. Non-2xx responses are returned as
// *model.HTTPError so the retry decorator can inspect them.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("feed fetch %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: model.ParseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("feed fetch %s: unexpected status", url),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("feed fetch %s: read body: %w", url, err)
	}
	return data, nil
}
