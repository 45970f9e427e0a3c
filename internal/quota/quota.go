// Package quota enforces the per-item and per-run job link caps.
package quota

import "github.com/amishk599/jobintake/internal/model"

// Budget tracks the remaining per-run allowance. It is not safe for
// concurrent use; one Budget belongs to one run.
type Budget struct {
	perItem   int
	remaining int
}

// NewBudget returns a Budget allowing perItem links per item and perRun links
// in total.
func NewBudget(perItem, perRun int) *Budget {
	if perItem < 0 {
		perItem = 0
	}
	if perRun < 0 {
		perRun = 0
	}
	return &Budget{perItem: perItem, remaining: perRun}
}

// Take keeps the leading candidates that fit both caps and reports how many
// were cut by each. Candidates must already be ranked.
func (b *Budget) Take(cands []model.Candidate) (kept []model.Candidate, droppedItem, droppedRun int) {
	n := len(cands)
	if n > b.perItem {
		droppedItem = n - b.perItem
		n = b.perItem
	}
	if n > b.remaining {
		droppedRun = n - b.remaining
		n = b.remaining
	}
	b.remaining -= n
	return cands[:n:n], droppedItem, droppedRun
}

// Remaining returns the unused per-run allowance.
func (b *Budget) Remaining() int { return b.remaining }

// Exhausted reports whether the per-run allowance is used up.
func (b *Budget) Exhausted() bool { return b.remaining <= 0 }
