// Package classify decides whether a mailbox message is promotional mail
// that should be recorded but not ingested.
package classify

import (
	"context"
	"regexp"
	"strings"

	"github.com/amishk599/jobintake/internal/model"
)

var (
	promoSubject = regexp.MustCompile(`(?i)(\d+\s*% off|\bsale\b|\bdiscount|\bwebinar\b|\bnewsletter\b|\bdigest\b|limited[- ]time|free trial|\bpremium\b|black friday|cyber monday|\bcoupon\b|\bpromo\b)`)
	promoSender  = regexp.MustCompile(`(?i)(newsletter|marketing|promo|offers|deals|news@|digest@)`)
	unsubscribe  = regexp.MustCompile(`(?i)unsubscribe|opt[- ]out|manage (your )?(email )?preferences`)
)

// Heuristic rejects obvious marketing mail using subject, sender and body
// signals. Messages with recognized job links are only rejected when both
// subject and sender look promotional.
type Heuristic struct{}

// NewHeuristic returns the rule-based classifier.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// ClassifyMessage implements model.MessageClassifier.
func (Heuristic) ClassifyMessage(_ context.Context, f model.MessageFeatures) (model.Verdict, error) {
	subject := promoSubject.MatchString(f.Subject)
	sender := promoSender.MatchString(f.From)

	if subject && sender {
		return reject("promotional subject and sender"), nil
	}
	if f.JobURLCount > 0 {
		return model.Verdict{By: model.VerdictByNone}, nil
	}
	switch {
	case subject:
		return reject("promotional subject, no job links"), nil
	case sender:
		return reject("marketing sender, no job links"), nil
	case f.URLCount > 0 && unsubscribe.MatchString(f.Text) && strings.Count(strings.ToLower(f.Text), "job") == 0:
		return reject("bulk mail without job content"), nil
	}
	return model.Verdict{By: model.VerdictByNone}, nil
}

func reject(reason string) model.Verdict {
	return model.Verdict{Reject: true, By: model.VerdictByHeuristic, Reason: reason}
}
