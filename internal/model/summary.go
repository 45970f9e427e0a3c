package model

import (
	"context"
	"time"
)

// RunConfig is the effective configuration of one poll run.
type RunConfig struct {
	Query      string   `json:"query,omitempty"`
	FeedURLs   []string `json:"feed_urls,omitempty"`
	MaxItems   int      `json:"max_items"`
	PerItemCap int      `json:"per_item_cap"`
	PerRunCap  int      `json:"per_run_cap"`
}

// RunSummary is the flat record returned by every poll run.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Source     string    `json:"source"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Config     RunConfig `json:"config"`

	ItemsScanned                int `json:"items_scanned"`
	Processed                   int `json:"processed"`
	SkippedAlreadyIngested      int `json:"skipped_already_ingested"`
	SkippedFetchFailed          int `json:"skipped_fetch_failed"`
	SkippedPromotional          int `json:"skipped_promotional"`
	SkippedPromotionalHeuristic int `json:"skipped_promotional_heuristic"`
	SkippedPromotionalAI        int `json:"skipped_promotional_ai"`
	IngestFailed                int `json:"ingest_failed"`

	FeedsTotal         int `json:"feeds_total"`
	FeedsFailed        int `json:"feeds_failed"`
	ItemsDiscarded     int `json:"items_discarded"`
	ItemsFilteredBlock int `json:"items_filtered_block"`
	ItemsFilteredAllow int `json:"items_filtered_allow"`

	URLsFound         int `json:"urls_found"`
	URLsUnique        int `json:"urls_unique"`
	URLsClassifiedJob int `json:"urls_classified_job"`
	URLsIgnored       int `json:"urls_ignored"`
	URLsIgnoredDomain int `json:"urls_ignored_domain"`

	CandidatesKept     int  `json:"candidates_kept"`
	DroppedItemCap     int  `json:"dropped_item_cap"`
	DroppedGlobalCap   int  `json:"dropped_global_cap"`
	StoppedAtGlobalCap bool `json:"stopped_at_global_cap"`

	InsertedOrUpdated int                     `json:"inserted_or_updated"`
	Inserted          int                     `json:"inserted"`
	Updated           int                     `json:"updated"`
	Ignored           int                     `json:"ignored"`
	LinkOnly          int                     `json:"link_only"`
	JobKeysSample     []string                `json:"job_keys_sample"`
	SourceDomains     map[string]*DomainStats `json:"source_domains"`

	CursorBefore int64 `json:"cursor_before,omitempty"`
	CursorAfter  int64 `json:"cursor_after,omitempty"`
}

// NewRunSummary starts an empty summary for one run.
func NewRunSummary(runID, source string, started time.Time, cfg RunConfig) *RunSummary {
	return &RunSummary{
		RunID:         runID,
		Source:        source,
		StartedAt:     started,
		Config:        cfg,
		JobKeysSample: []string{},
		SourceDomains: make(map[string]*DomainStats),
	}
}

// Reporter publishes a finished run summary.
type Reporter interface {
	Report(ctx context.Context, s *RunSummary) error
}
