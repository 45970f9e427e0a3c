package ingest

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/amishk599/jobintake/internal/model"
)

// LogIngester logs each request instead of writing it anywhere. Every URL is
// reported as a link-only outcome so summaries stay meaningful in dry runs.
type LogIngester struct {
	logger *slog.Logger
}

// NewLogIngester returns a LogIngester.
func NewLogIngester(logger *slog.Logger) *LogIngester {
	return &LogIngester{logger: logger}
}

// Ingest implements model.Ingester.
func (l *LogIngester) Ingest(_ context.Context, req model.IngestRequest) (model.IngestResult, error) {
	res := model.IngestResult{LinkOnly: len(req.URLs)}
	for _, raw := range req.URLs {
		res.Results = append(res.Results, model.ResultRow{
			SourceDomain: domainOf(raw),
			Action:       "logged",
			Status:       "link_only",
		})
		l.logger.Info("job link", "subject", req.Subject, "url", raw)
	}
	return res, nil
}

func domainOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
