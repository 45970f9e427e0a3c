package model

import "context"

// Descriptor is the normalization oracle's verdict on one candidate URL.
type Descriptor struct {
	Ignored      bool
	JobURL       string // canonical URL, required when not ignored
	JobKey       string // optional identity stronger than the URL
	JobID        string // explicit posting id, if the URL carries one
	SourceDomain string
}

// Candidate is an accepted job link together with the raw URL it came from.
type Candidate struct {
	RawURL string
	Descriptor
	Score int
}

// Key returns the dedup identity: the job key when present, else the URL.
func (c Candidate) Key() string {
	if c.JobKey != "" {
		return c.JobKey
	}
	return c.JobURL
}

// URLNormalizer classifies a URL as a job posting or not. Implementations may
// fail; callers treat any error as an ignored URL.
type URLNormalizer interface {
	NormalizeURL(ctx context.Context, rawURL string) (*Descriptor, error)
}

// Verdict sources reported by a MessageClassifier.
const (
	VerdictByHeuristic = "heuristic"
	VerdictByAI        = "ai"
	VerdictByNone      = "none"
)

// MessageFeatures are the signals a MessageClassifier sees for one message.
type MessageFeatures struct {
	Subject     string
	From        string
	Text        string
	URLCount    int
	JobURLCount int
}

// Verdict is a MessageClassifier decision.
type Verdict struct {
	Reject bool
	By     string
	Reason string
}

// MessageClassifier flags promotional, non-job mail.
type MessageClassifier interface {
	ClassifyMessage(ctx context.Context, f MessageFeatures) (Verdict, error)
}

// IngestRequest is handed to the job store writer for one source item.
type IngestRequest struct {
	URLs    []string `json:"raw_urls"`
	Text    string   `json:"email_text"`
	HTML    string   `json:"email_html,omitempty"`
	Subject string   `json:"email_subject"`
	From    string   `json:"email_from"`
}

// DomainStats is a per-source-domain outcome rollup.
type DomainStats struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Ignored  int `json:"ignored"`
	LinkOnly int `json:"link_only"`
}

// ResultRow is one per-URL outcome reported by the ingester.
type ResultRow struct {
	JobKey         string
	SourceDomain   string
	Action         string
	Status         string
	FallbackReason string
}

// IngestResult is what an Ingester reports for one item. SourceSummary is nil
// when the ingester does not aggregate per domain.
type IngestResult struct {
	InsertedOrUpdated int
	Inserted          int
	Updated           int
	Ignored           int
	LinkOnly          int
	Results           []ResultRow
	SourceSummary     map[string]DomainStats
}

// Ingester writes job links to the downstream job-tracking store.
type Ingester interface {
	Ingest(ctx context.Context, req IngestRequest) (IngestResult, error)
}
