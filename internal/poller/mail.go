package poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amishk599/jobintake/internal/canon"
	"github.com/amishk599/jobintake/internal/dispatch"
	"github.com/amishk599/jobintake/internal/model"
	"github.com/amishk599/jobintake/internal/quota"
)

// MailConfig is the effective configuration of a mailbox run.
type MailConfig struct {
	Query       string
	MaxMessages int
	PerItemCap  int
	PerRunCap   int
}

// MailDeps are the collaborators of a MailPoller. Normalizer and Classifier
// are optional: a nil Normalizer selects the structural job-board matcher,
// and a nil Classifier never rejects.
type MailDeps struct {
	Tokens     model.TokenProvider
	Dialer     model.MailboxDialer
	Log        model.IdempotencyLog
	Cursor     model.CursorStore
	Normalizer model.URLNormalizer
	Classifier model.MessageClassifier
	Ingester   model.Ingester
}

// MailPoller ingests job links from the configured mailbox.
type MailPoller struct {
	cfg        MailConfig
	deps       MailDeps
	urls       *canon.Classifier
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
	hooks      hooks
}

// NewMailPoller validates deps and returns a poller. Missing collaborators are
// reported as *model.ConfigError.
func NewMailPoller(cfg MailConfig, deps MailDeps, logger *slog.Logger) (*MailPoller, error) {
	switch {
	case deps.Tokens == nil:
		return nil, &model.ConfigError{Field: "mailbox", Reason: "token provider is required"}
	case deps.Dialer == nil:
		return nil, &model.ConfigError{Field: "mailbox", Reason: "mailbox dialer is required"}
	case deps.Log == nil || deps.Cursor == nil:
		return nil, &model.ConfigError{Field: "database", Reason: "idempotency log and cursor store are required"}
	case deps.Ingester == nil:
		return nil, &model.ConfigError{Field: "ingest", Reason: "ingester is required"}
	}
	if cfg.MaxMessages <= 0 {
		return nil, &model.ConfigError{Field: "mailbox.max_messages", Reason: "must be positive"}
	}
	return &MailPoller{
		cfg:        cfg,
		deps:       deps,
		urls:       canon.NewClassifier(deps.Normalizer, nil, logger),
		dispatcher: dispatch.New(deps.Ingester),
		logger:     logger,
		hooks:      defaultHooks(),
	}, nil
}

// Source returns model.SourceMailbox.
func (p *MailPoller) Source() string { return model.SourceMailbox }

// Poll runs one pass over the mailbox. On a fatal error the partial summary
// is returned alongside the error; items already logged stay logged and the
// cursor is left untouched.
func (p *MailPoller) Poll(ctx context.Context) (*model.RunSummary, error) {
	s := model.NewRunSummary(p.hooks.runID(), model.SourceMailbox, p.hooks.now(), model.RunConfig{
		Query:      p.cfg.Query,
		MaxItems:   p.cfg.MaxMessages,
		PerItemCap: p.cfg.PerItemCap,
		PerRunCap:  p.cfg.PerRunCap,
	})
	defer func() { s.FinishedAt = p.hooks.now() }()

	token, err := p.deps.Tokens.AccessToken(ctx)
	if err != nil {
		return s, fmt.Errorf("mailbox access token: %w", err)
	}
	mb, err := p.deps.Dialer.Dial(ctx, token)
	if err != nil {
		return s, fmt.Errorf("open mailbox: %w", err)
	}

	cursor, hasCursor, err := p.deps.Cursor.GetCursor(ctx, model.SourceMailbox)
	if err != nil {
		return s, fmt.Errorf("read cursor: %w", err)
	}
	s.CursorBefore = cursor
	s.CursorAfter = cursor

	ids, err := mb.ListMessageIDs(ctx, p.cfg.Query, p.cfg.MaxMessages)
	if err != nil {
		return s, fmt.Errorf("list messages: %w", err)
	}

	run := &mailRun{
		poller:    p,
		mb:        mb,
		summary:   s,
		agg:       dispatch.NewAggregator(s),
		budget:    quota.NewBudget(p.cfg.PerItemCap, p.cfg.PerRunCap),
		cursor:    cursor,
		hasCursor: hasCursor,
		maxSeen:   cursor,
	}
	for _, id := range ids {
		if run.budget.Exhausted() {
			s.StoppedAtGlobalCap = true
			break
		}
		if err := run.item(ctx, id); err != nil {
			return s, err
		}
	}

	if run.maxSeen > cursor {
		if err := p.deps.Cursor.PutCursor(ctx, model.SourceMailbox, run.maxSeen); err != nil {
			return s, fmt.Errorf("advance cursor: %w", err)
		}
		s.CursorAfter = run.maxSeen
	}

	p.logger.Info("polled mailbox",
		"run_id", s.RunID,
		"listed", len(ids),
		"scanned", s.ItemsScanned,
		"processed", s.Processed,
		"skipped_existing", s.SkippedAlreadyIngested,
		"skipped_promotional", s.SkippedPromotional,
		"fetch_failed", s.SkippedFetchFailed,
		"kept", s.CandidatesKept,
		"cursor", s.CursorAfter,
		"stopped_at_cap", s.StoppedAtGlobalCap,
	)
	return s, nil
}

// mailRun is the state threaded through one mailbox pass.
type mailRun struct {
	poller    *MailPoller
	mb        model.Mailbox
	summary   *model.RunSummary
	agg       *dispatch.Aggregator
	budget    *quota.Budget
	cursor    int64
	hasCursor bool
	maxSeen   int64
}

// item processes one listed message id. Only store failures, ingest failures
// and cancellation are returned; everything else is counted.
func (r *mailRun) item(ctx context.Context, id string) error {
	p, s := r.poller, r.summary
	s.ItemsScanned++

	seen, err := p.deps.Log.HasRecord(ctx, id)
	if err != nil {
		return fmt.Errorf("check idempotency log for %s: %w", id, err)
	}
	if seen {
		s.SkippedAlreadyIngested++
		return nil
	}

	item, err := r.mb.FetchMessage(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.SkippedFetchFailed++
		p.logger.Warn("message fetch failed", "message_id", id, "error", err)
		return nil
	}

	if item.ID == "" {
		item.ID = id
	}
	if item.OrderKey > r.maxSeen {
		r.maxSeen = item.OrderKey
	}
	if r.hasCursor && item.OrderKey <= r.cursor {
		s.SkippedAlreadyIngested++
		return nil
	}

	res := p.urls.Classify(ctx, item.URLs)
	countURLs(s, len(item.URLs), res)

	if verdict := r.classify(ctx, item, res); verdict.Reject {
		s.SkippedPromotional++
		switch verdict.By {
		case model.VerdictByHeuristic:
			s.SkippedPromotionalHeuristic++
		case model.VerdictByAI:
			s.SkippedPromotionalAI++
		}
		p.logger.Debug("message rejected as promotional", "message_id", id, "by", verdict.By, "reason", verdict.Reason)
		return r.record(ctx, item, nil, nil)
	}

	kept, droppedItem, droppedRun := r.budget.Take(res.Candidates)
	s.CandidatesKept += len(kept)
	s.DroppedItemCap += droppedItem
	s.DroppedGlobalCap += droppedRun

	out, _, err := p.dispatcher.Dispatch(ctx, item, kept)
	if err != nil {
		return err
	}
	r.agg.Fold(out)
	s.Processed++

	var keys []string
	if len(kept) > 0 {
		keys = dispatch.JobKeys(out, kept)
	}
	return r.record(ctx, item, rawURLs(kept), keys)
}

// classify consults the optional message classifier. Errors never reject.
func (r *mailRun) classify(ctx context.Context, item *model.SourceItem, res canon.Result) model.Verdict {
	c := r.poller.deps.Classifier
	if c == nil {
		return model.Verdict{By: model.VerdictByNone}
	}
	v, err := c.ClassifyMessage(ctx, model.MessageFeatures{
		Subject:     item.Subject,
		From:        item.From,
		Text:        item.Text,
		URLCount:    res.Unique,
		JobURLCount: len(res.Candidates),
	})
	if err != nil {
		r.poller.logger.Warn("message classifier failed", "message_id", item.ID, "error", err)
		return model.Verdict{By: model.VerdictByNone}
	}
	return v
}

func (r *mailRun) record(ctx context.Context, item *model.SourceItem, urls, keys []string) error {
	rec := model.IdempotencyRecord{
		ItemID:      item.ID,
		ThreadID:    item.ThreadID,
		OrderKey:    item.OrderKey,
		Subject:     item.Subject,
		From:        item.From,
		URLs:        urls,
		JobKeys:     keys,
		ProcessedAt: r.poller.hooks.now(),
	}
	if err := r.poller.deps.Log.InsertRecord(ctx, rec); err != nil {
		return fmt.Errorf("write idempotency record for %s: %w", item.ID, err)
	}
	return nil
}
