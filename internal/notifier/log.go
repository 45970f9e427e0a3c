package notifier

import (
	"context"
	"log/slog"
	"time"

	"github.com/amishk599/jobintake/internal/model"
)

var _ model.Reporter = (*LogReporter)(nil)

// LogReporter writes run summaries to the given logger as one structured line.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter returns a reporter that logs each summary via slog.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

// Report logs the headline counters of s. It never fails.
func (r *LogReporter) Report(_ context.Context, s *model.RunSummary) error {
	if s == nil {
		return nil
	}
	r.logger.Info("run summary",
		"run_id", s.RunID,
		"source", s.Source,
		"duration", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond),
		"scanned", s.ItemsScanned,
		"processed", s.Processed,
		"skipped_existing", s.SkippedAlreadyIngested,
		"skipped_promotional", s.SkippedPromotional,
		"candidates_kept", s.CandidatesKept,
		"inserted_or_updated", s.InsertedOrUpdated,
		"link_only", s.LinkOnly,
		"stopped_at_global_cap", s.StoppedAtGlobalCap,
	)
	return nil
}
