package dispatch

import (
	"strings"

	"github.com/amishk599/jobintake/internal/model"
)

// SampleSize caps the distinct job keys kept in a run summary.
const SampleSize = 5

const unknownDomain = "unknown"

// Aggregator folds ingest results into a RunSummary.
type Aggregator struct {
	summary *model.RunSummary
	sampled map[string]bool
}

// NewAggregator folds into summary.
func NewAggregator(summary *model.RunSummary) *Aggregator {
	if summary.SourceDomains == nil {
		summary.SourceDomains = make(map[string]*model.DomainStats)
	}
	sampled := make(map[string]bool, SampleSize)
	for _, k := range summary.JobKeysSample {
		sampled[k] = true
	}
	return &Aggregator{summary: summary, sampled: sampled}
}

// Fold adds res to the running totals. Negative counters count as zero.
func (a *Aggregator) Fold(res model.IngestResult) {
	s := a.summary
	s.InsertedOrUpdated += nonNegative(res.InsertedOrUpdated)
	s.Inserted += nonNegative(res.Inserted)
	s.Updated += nonNegative(res.Updated)
	s.Ignored += nonNegative(res.Ignored)
	s.LinkOnly += nonNegative(res.LinkOnly)

	for _, row := range res.Results {
		if row.JobKey == "" || a.sampled[row.JobKey] || len(s.JobKeysSample) >= SampleSize {
			continue
		}
		a.sampled[row.JobKey] = true
		s.JobKeysSample = append(s.JobKeysSample, row.JobKey)
	}

	perDomain := res.SourceSummary
	if perDomain == nil {
		perDomain = DeriveDomainStats(res.Results)
	}
	for domain, st := range perDomain {
		acc, ok := s.SourceDomains[domain]
		if !ok {
			acc = &model.DomainStats{}
			s.SourceDomains[domain] = acc
		}
		acc.Inserted += nonNegative(st.Inserted)
		acc.Updated += nonNegative(st.Updated)
		acc.Ignored += nonNegative(st.Ignored)
		acc.LinkOnly += nonNegative(st.LinkOnly)
	}
}

// DeriveDomainStats builds a per-domain rollup from result rows, for
// ingesters that do not report one.
func DeriveDomainStats(rows []model.ResultRow) map[string]model.DomainStats {
	out := make(map[string]model.DomainStats)
	for _, row := range rows {
		domain := strings.ToLower(strings.TrimSpace(row.SourceDomain))
		if domain == "" {
			domain = unknownDomain
		}
		st := out[domain]
		switch strings.ToLower(row.Action) {
		case "inserted", "insert", "created":
			st.Inserted++
		case "updated", "update":
			st.Updated++
		case "ignored", "skipped", "duplicate":
			st.Ignored++
		}
		if strings.EqualFold(row.Status, "link_only") || row.FallbackReason != "" {
			st.LinkOnly++
		}
		out[domain] = st
	}
	return out
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
