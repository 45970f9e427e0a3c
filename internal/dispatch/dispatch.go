// Package dispatch hands kept job links to the ingester and folds the
// results into the run summary.
package dispatch

import (
	"context"
	"fmt"

	"github.com/amishk599/jobintake/internal/model"
)

// Dispatcher sends one item's kept candidates to an Ingester.
type Dispatcher struct {
	ingester model.Ingester
}

// New returns a Dispatcher writing through ingester.
func New(ingester model.Ingester) *Dispatcher {
	return &Dispatcher{ingester: ingester}
}

// Dispatch calls the ingester when any candidate survived the quotas. With no
// candidates it skips the call and returns a synthesized result counting the
// item as one ignored outcome; dispatched is false in that case.
func (d *Dispatcher) Dispatch(ctx context.Context, item *model.SourceItem, kept []model.Candidate) (res model.IngestResult, dispatched bool, err error) {
	if len(kept) == 0 {
		return model.IngestResult{Ignored: 1}, false, nil
	}

	urls := make([]string, len(kept))
	for i, c := range kept {
		urls[i] = c.RawURL
	}
	req := model.IngestRequest{
		URLs:    urls,
		Text:    item.Text,
		HTML:    item.HTML,
		Subject: item.Subject,
		From:    item.From,
	}
	res, err = d.ingester.Ingest(ctx, req)
	if err != nil {
		return model.IngestResult{}, true, fmt.Errorf("ingest item %s: %w", item.ID, err)
	}
	return res, true, nil
}

// JobKeys returns the job keys reported in res, falling back to the kept
// candidates' keys when the ingester reported none.
func JobKeys(res model.IngestResult, kept []model.Candidate) []string {
	keys := make([]string, 0, len(kept))
	for _, row := range res.Results {
		if row.JobKey != "" {
			keys = append(keys, row.JobKey)
		}
	}
	if len(keys) > 0 {
		return keys
	}
	for _, c := range kept {
		keys = append(keys, c.Key())
	}
	return keys
}
