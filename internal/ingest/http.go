// Package ingest writes accepted job links to the downstream job tracker.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/amishk599/jobintake/internal/dispatch"
	"github.com/amishk599/jobintake/internal/model"
)

// HTTPIngester POSTs ingestion requests as JSON to a job-tracker endpoint.
type HTTPIngester struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPIngester returns an ingester for endpoint. apiKey, when set, is sent
// as a bearer token.
func NewHTTPIngester(endpoint, apiKey string, client *http.Client) *HTTPIngester {
	return &HTTPIngester{endpoint: endpoint, apiKey: apiKey, client: client}
}

// Ingest implements model.Ingester. The response body is decoded loosely;
// any counter the tracker omits or mistypes is read as zero.
func (h *HTTPIngester) Ingest(ctx context.Context, reqBody model.IngestRequest) (model.IngestResult, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return model.IngestResult{}, fmt.Errorf("marshal ingest request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return model.IngestResult{}, fmt.Errorf("create ingest request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return model.IngestResult{}, fmt.Errorf("ingest request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return model.IngestResult{}, fmt.Errorf("read ingest response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := respBytes
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return model.IngestResult{}, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: model.ParseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("ingest: %s", snippet),
		}
	}

	if len(bytes.TrimSpace(respBytes)) == 0 {
		return model.IngestResult{}, nil
	}
	var raw map[string]any
	if err := json.Unmarshal(respBytes, &raw); err != nil {
		return model.IngestResult{}, fmt.Errorf("parse ingest response: %w", err)
	}
	return dispatch.CoerceResult(raw), nil
}
