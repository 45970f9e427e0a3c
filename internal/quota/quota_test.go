package quota

import (
	"fmt"
	"testing"

	"github.com/amishk599/jobintake/internal/model"
)

func candidates(n int) []model.Candidate {
	out := make([]model.Candidate, n)
	for i := range out {
		out[i] = model.Candidate{Descriptor: model.Descriptor{JobURL: fmt.Sprintf("https://j.test/%d", i)}}
	}
	return out
}

func TestBudget_Take(t *testing.T) {
	b := NewBudget(3, 5)

	kept, dItem, dRun := b.Take(candidates(4))
	if len(kept) != 3 || dItem != 1 || dRun != 0 {
		t.Fatalf("first Take = %d kept, %d item, %d run", len(kept), dItem, dRun)
	}
	if kept[0].JobURL != "https://j.test/0" || kept[2].JobURL != "https://j.test/2" {
		t.Errorf("kept should be the leading candidates, got %+v", kept)
	}

	kept, dItem, dRun = b.Take(candidates(3))
	if len(kept) != 2 || dItem != 0 || dRun != 1 {
		t.Fatalf("second Take = %d kept, %d item, %d run", len(kept), dItem, dRun)
	}
	if !b.Exhausted() {
		t.Error("budget should be exhausted")
	}

	kept, _, dRun = b.Take(candidates(2))
	if len(kept) != 0 || dRun != 2 {
		t.Errorf("Take after exhaustion = %d kept, %d run dropped", len(kept), dRun)
	}
}

func TestBudget_Empty(t *testing.T) {
	b := NewBudget(5, 5)
	kept, dItem, dRun := b.Take(nil)
	if len(kept) != 0 || dItem != 0 || dRun != 0 || b.Remaining() != 5 {
		t.Errorf("Take(nil) = %d, %d, %d; remaining %d", len(kept), dItem, dRun, b.Remaining())
	}
}

func TestBudget_KeptIsNotAliased(t *testing.T) {
	b := NewBudget(1, 10)
	src := candidates(3)
	kept, _, _ := b.Take(src)
	kept = append(kept, model.Candidate{})
	if src[1].JobURL != "https://j.test/1" {
		t.Error("appending to kept must not overwrite the input slice")
	}
}
