package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/amishk599/jobintake/internal/model"
)

// Poller is one ingestion source the scheduler can drive.
type Poller interface {
	Source() string
	Poll(ctx context.Context) (*model.RunSummary, error)
}

// Scheduler owns the main loop: ticks on an interval and runs each poller
// sequentially, so a source never has two runs in flight within this process.
type Scheduler struct {
	pollers  []Poller
	reporter model.Reporter
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a scheduler that runs all pollers at the given interval
// and hands each finished summary to reporter.
func NewScheduler(pollers []Poller, reporter model.Reporter, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		pollers:  pollers,
		reporter: reporter,
		interval: interval,
		logger:   logger,
	}
}

// Run starts the polling loop. It runs one immediate cycle, then waits the
// configured interval between cycles. It returns nil when ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	sources := make([]string, len(s.pollers))
	for i, p := range s.pollers {
		sources[i] = p.Source()
	}
	s.logger.Info("starting scheduler",
		"interval", s.interval.String(),
		"sources", sources,
	)

	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down scheduler")
			return nil
		case <-time.After(s.interval):
			s.RunOnce(ctx)
		}
	}
}

// RunOnce polls every source in order and returns the summaries of the runs
// that completed. Failed runs are logged and skipped.
func (s *Scheduler) RunOnce(ctx context.Context) []*model.RunSummary {
	var done []*model.RunSummary
	for _, p := range s.pollers {
		if ctx.Err() != nil {
			return done
		}

		summary, err := p.Poll(ctx)
		if err != nil {
			s.logger.Error("poll failed", "source", p.Source(), "error", err)
			continue
		}
		done = append(done, summary)

		if s.reporter == nil {
			continue
		}
		if err := s.reporter.Report(ctx, summary); err != nil {
			s.logger.Error("report failed", "source", p.Source(), "run_id", summary.RunID, "error", err)
		}
	}
	return done
}
