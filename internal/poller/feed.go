package poller

import (
	"context"
	"log/slog"

	"github.com/amishk599/jobintake/internal/canon"
	"github.com/amishk599/jobintake/internal/dispatch"
	"github.com/amishk599/jobintake/internal/feed"
	"github.com/amishk599/jobintake/internal/filter"
	"github.com/amishk599/jobintake/internal/model"
	"github.com/amishk599/jobintake/internal/quota"
)

// FeedConfig is the effective configuration of a feed run.
type FeedConfig struct {
	URLs          []string
	MaxItems      int
	PerItemCap    int
	PerRunCap     int
	SummaryMaxLen int
	JobDomains    []string
	AllowKeywords []string
	BlockKeywords []string
}

// FeedDeps are the collaborators of a FeedPoller. All are required.
type FeedDeps struct {
	Fetcher    model.FeedFetcher
	Normalizer model.URLNormalizer
	Ingester   model.Ingester
}

// FeedPoller ingests job links from a list of RSS/Atom feeds. Feeds have no
// cursor and no idempotency log: every run re-reads every feed.
type FeedPoller struct {
	cfg        FeedConfig
	fetcher    model.FeedFetcher
	urls       *canon.Classifier
	keywords   *filter.KeywordFilter
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
	hooks      hooks
}

// NewFeedPoller validates cfg and deps and returns a poller.
func NewFeedPoller(cfg FeedConfig, deps FeedDeps, logger *slog.Logger) (*FeedPoller, error) {
	switch {
	case deps.Fetcher == nil:
		return nil, &model.ConfigError{Field: "feeds", Reason: "feed fetcher is required"}
	case deps.Normalizer == nil:
		return nil, &model.ConfigError{Field: "feeds", Reason: "url normalizer is required"}
	case deps.Ingester == nil:
		return nil, &model.ConfigError{Field: "ingest", Reason: "ingester is required"}
	case len(cfg.JobDomains) == 0:
		return nil, &model.ConfigError{Field: "feeds.job_domains", Reason: "at least one job board domain is required"}
	case cfg.MaxItems <= 0:
		return nil, &model.ConfigError{Field: "feeds.max_items", Reason: "must be positive"}
	}
	return &FeedPoller{
		cfg:        cfg,
		fetcher:    deps.Fetcher,
		urls:       canon.NewClassifier(deps.Normalizer, cfg.JobDomains, logger),
		keywords:   filter.NewKeywordFilter(cfg.AllowKeywords, cfg.BlockKeywords),
		dispatcher: dispatch.New(deps.Ingester),
		logger:     logger,
		hooks:      defaultHooks(),
	}, nil
}

// Source returns model.SourceFeeds.
func (p *FeedPoller) Source() string { return model.SourceFeeds }

// Poll runs one pass over the configured feeds, in list order, until the
// item budget is spent. Feed and ingest failures are counted, not returned;
// only cancellation aborts the run.
func (p *FeedPoller) Poll(ctx context.Context) (*model.RunSummary, error) {
	s := model.NewRunSummary(p.hooks.runID(), model.SourceFeeds, p.hooks.now(), model.RunConfig{
		FeedURLs:   p.cfg.URLs,
		MaxItems:   p.cfg.MaxItems,
		PerItemCap: p.cfg.PerItemCap,
		PerRunCap:  p.cfg.PerRunCap,
	})
	defer func() { s.FinishedAt = p.hooks.now() }()

	agg := dispatch.NewAggregator(s)
	budget := quota.NewBudget(p.cfg.PerItemCap, p.cfg.PerRunCap)
	itemsLeft := p.cfg.MaxItems

	for _, feedURL := range p.cfg.URLs {
		if itemsLeft <= 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return s, err
		}
		s.FeedsTotal++

		entries, err := p.read(ctx, feedURL)
		if err != nil {
			if ctx.Err() != nil {
				return s, ctx.Err()
			}
			s.FeedsFailed++
			p.logger.Warn("feed failed", "feed", feedURL, "error", err)
			continue
		}

		for _, e := range entries {
			if itemsLeft <= 0 {
				break
			}
			item, ok := feed.ToItem(e, feedURL, p.cfg.SummaryMaxLen)
			if !ok {
				s.ItemsDiscarded++
				continue
			}
			s.ItemsScanned++
			itemsLeft--

			switch p.keywords.Evaluate(item.Text) {
			case filter.Blocked:
				s.ItemsFilteredBlock++
				continue
			case filter.NotAllowed:
				s.ItemsFilteredAllow++
				continue
			}

			res := p.urls.Classify(ctx, item.URLs)
			countURLs(s, len(item.URLs), res)

			kept, droppedItem, droppedRun := budget.Take(res.Candidates)
			s.CandidatesKept += len(kept)
			s.DroppedItemCap += droppedItem
			s.DroppedGlobalCap += droppedRun

			out, _, err := p.dispatcher.Dispatch(ctx, item, kept)
			if err != nil {
				if ctx.Err() != nil {
					return s, ctx.Err()
				}
				s.IngestFailed++
				p.logger.Warn("feed item ingest failed", "feed", feedURL, "item", item.ID, "error", err)
				continue
			}
			agg.Fold(out)
			s.Processed++
		}
	}

	p.logger.Info("polled feeds",
		"run_id", s.RunID,
		"feeds", s.FeedsTotal,
		"feeds_failed", s.FeedsFailed,
		"scanned", s.ItemsScanned,
		"processed", s.Processed,
		"filtered", s.ItemsFilteredBlock+s.ItemsFilteredAllow,
		"kept", s.CandidatesKept,
		"ingest_failed", s.IngestFailed,
	)
	return s, nil
}

func (p *FeedPoller) read(ctx context.Context, feedURL string) ([]feed.Entry, error) {
	data, err := p.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	return feed.Parse(data)
}
