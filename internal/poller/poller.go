// Package poller runs one ingestion pass over a source: adapter output is
// classified, trimmed to quota, dispatched, and folded into a RunSummary.
//
// A poller holds no lock across runs. At most one run per source may be in
// flight; the caller enforces that.
package poller

import (
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/jobintake/internal/canon"
	"github.com/amishk599/jobintake/internal/model"
)

// newRunID returns a time-ordered run identifier.
func newRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// clock and run-id hooks, replaced in tests.
type hooks struct {
	now   func() time.Time
	runID func() string
}

func defaultHooks() hooks {
	return hooks{now: time.Now, runID: newRunID}
}

// countURLs folds one item's classification counters into s.
func countURLs(s *model.RunSummary, found int, res canon.Result) {
	s.URLsFound += found
	s.URLsUnique += res.Unique
	s.URLsClassifiedJob += res.Accepted
	s.URLsIgnored += res.Ignored
	s.URLsIgnoredDomain += res.DomainRejected
}

// rawURLs returns the raw URLs of the kept candidates.
func rawURLs(kept []model.Candidate) []string {
	out := make([]string, len(kept))
	for i, c := range kept {
		out[i] = c.RawURL
	}
	return out
}
