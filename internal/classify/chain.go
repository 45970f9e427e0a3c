package classify

import (
	"context"
	"log/slog"

	"github.com/amishk599/jobintake/internal/model"
)

// Chain runs classifiers in order and returns the first rejection. A failing
// classifier is logged and treated as not rejecting.
type Chain struct {
	classifiers []model.MessageClassifier
	logger      *slog.Logger
}

// NewChain returns a Chain. Nil entries are skipped.
func NewChain(logger *slog.Logger, classifiers ...model.MessageClassifier) *Chain {
	c := &Chain{logger: logger}
	for _, cl := range classifiers {
		if cl != nil {
			c.classifiers = append(c.classifiers, cl)
		}
	}
	return c
}

// Len reports how many classifiers the chain holds.
func (c *Chain) Len() int { return len(c.classifiers) }

// ClassifyMessage implements model.MessageClassifier.
func (c *Chain) ClassifyMessage(ctx context.Context, f model.MessageFeatures) (model.Verdict, error) {
	for _, cl := range c.classifiers {
		v, err := cl.ClassifyMessage(ctx, f)
		if err != nil {
			c.logger.Warn("message classifier failed", "subject", f.Subject, "error", err)
			continue
		}
		if v.Reject {
			return v, nil
		}
	}
	return model.Verdict{By: model.VerdictByNone}, nil
}
