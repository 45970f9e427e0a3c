package canon

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/amishk599/jobintake/internal/jobboard"
	"github.com/amishk599/jobintake/internal/model"
)

// Classifier turns the raw URLs of one source item into job candidates.
type Classifier struct {
	normalizer   model.URLNormalizer // nil selects the structural fallback
	allowDomains []string            // nil means any domain
	logger       *slog.Logger
}

// NewClassifier returns a Classifier. A nil normalizer falls back to
// jobboard.Match; a non-empty allowDomains restricts accepted source domains.
func NewClassifier(normalizer model.URLNormalizer, allowDomains []string, logger *slog.Logger) *Classifier {
	var domains []string
	for _, d := range allowDomains {
		if d = normalizeDomain(d); d != "" {
			domains = append(domains, d)
		}
	}
	return &Classifier{normalizer: normalizer, allowDomains: domains, logger: logger}
}

// Result summarizes the classification of one item's URLs.
type Result struct {
	Unique         int               // distinct raw URLs seen
	Accepted       int               // raw URLs accepted as job links
	Ignored        int               // raw URLs the oracle did not accept
	DomainRejected int               // accepted by the oracle but outside the domain allow-set
	Candidates     []model.Candidate // ranked, de-duplicated
}

// Classify de-duplicates rawURLs, classifies each, and returns the ranked
// unique candidates.
func (c *Classifier) Classify(ctx context.Context, rawURLs []string) Result {
	var res Result
	seen := make(map[string]bool, len(rawURLs))
	var cands []model.Candidate
	for _, raw := range rawURLs {
		raw = strings.TrimSpace(raw)
		if raw == "" || seen[raw] {
			continue
		}
		seen[raw] = true
		res.Unique++

		cand, outcome := c.classifyOne(ctx, raw)
		switch outcome {
		case outcomeAccepted:
			res.Accepted++
			cands = append(cands, cand)
		case outcomeDomainRejected:
			res.DomainRejected++
		default:
			res.Ignored++
		}
	}
	res.Candidates = Rank(cands)
	return res
}

type outcome int

const (
	outcomeIgnored outcome = iota
	outcomeAccepted
	outcomeDomainRejected
)

func (c *Classifier) classifyOne(ctx context.Context, raw string) (model.Candidate, outcome) {
	if c.normalizer == nil {
		d, ok := jobboard.Match(raw)
		if !ok {
			return model.Candidate{}, outcomeIgnored
		}
		return c.admit(raw, d)
	}

	// An accepted descriptor outside the domain allow-set does not end the
	// search: a redirector the oracle recognizes may still wrap a job board.
	miss := outcomeIgnored
	for _, candidate := range Expand(raw) {
		d, err := c.safeNormalize(ctx, candidate)
		if err != nil {
			c.logger.Debug("normalizer failed", "url", candidate, "error", err)
			continue
		}
		if d == nil || d.Ignored || d.JobURL == "" {
			continue
		}
		cand, out := c.admit(raw, *d)
		if out == outcomeAccepted {
			return cand, out
		}
		miss = out
	}
	return model.Candidate{}, miss
}

func (c *Classifier) admit(raw string, d model.Descriptor) (model.Candidate, outcome) {
	if !c.domainAllowed(d.SourceDomain) {
		return model.Candidate{}, outcomeDomainRejected
	}
	return model.Candidate{RawURL: raw, Descriptor: d, Score: Score(d)}, outcomeAccepted
}

// safeNormalize treats a panicking normalizer like one that returned an error.
func (c *Classifier) safeNormalize(ctx context.Context, rawURL string) (d *model.Descriptor, err error) {
	defer func() {
		if r := recover(); r != nil {
			d, err = nil, fmt.Errorf("normalizer panic: %v", r)
		}
	}()
	return c.normalizer.NormalizeURL(ctx, rawURL)
}

func (c *Classifier) domainAllowed(domain string) bool {
	if len(c.allowDomains) == 0 {
		return true
	}
	domain = normalizeDomain(domain)
	if domain == "" {
		return false
	}
	for _, allowed := range c.allowDomains {
		if domain == allowed || strings.HasSuffix(domain, "."+allowed) {
			return true
		}
	}
	return false
}

func normalizeDomain(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	return strings.TrimPrefix(d, "www.")
}

// Score ranks a descriptor: +10 when the canonical URL has a board's strict
// detail-page shape, +5 when the posting id is explicit.
func Score(d model.Descriptor) int {
	score := 0
	if jobboard.IsStrict(d.JobURL) {
		score += 10
	}
	if d.JobID != "" {
		score += 5
	}
	return score
}

// Rank stable-sorts candidates by score, highest first, and keeps the first
// occurrence of each job key and each canonical URL.
func Rank(cands []model.Candidate) []model.Candidate {
	sorted := make([]model.Candidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	seenKeys := make(map[string]bool, len(sorted))
	seenURLs := make(map[string]bool, len(sorted))
	out := make([]model.Candidate, 0, len(sorted))
	for _, cand := range sorted {
		if seenKeys[cand.Key()] || seenURLs[cand.JobURL] {
			continue
		}
		seenKeys[cand.Key()] = true
		seenURLs[cand.JobURL] = true
		out = append(out, cand)
	}
	return out
}
