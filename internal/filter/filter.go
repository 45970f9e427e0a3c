package filter

import "strings"

// Decision is the outcome of evaluating a feed entry against keyword lists.
type Decision int

const (
	Pass       Decision = iota
	Blocked             // matched a block keyword
	NotAllowed          // allow list present and nothing matched
)

// KeywordFilter applies block and allow keyword lists to feed entry text.
// Matching is a case-insensitive substring test. The block list is checked
// first; an empty allow list admits everything.
type KeywordFilter struct {
	allow []string
	block []string
}

// NewKeywordFilter returns a filter for the given lists. Blank keywords are dropped.
func NewKeywordFilter(allow, block []string) *KeywordFilter {
	return &KeywordFilter{allow: lowerAll(allow), block: lowerAll(block)}
}

// Evaluate classifies text.
func (f *KeywordFilter) Evaluate(text string) Decision {
	lower := strings.ToLower(text)
	for _, kw := range f.block {
		if strings.Contains(lower, kw) {
			return Blocked
		}
	}
	if len(f.allow) == 0 {
		return Pass
	}
	for _, kw := range f.allow {
		if strings.Contains(lower, kw) {
			return Pass
		}
	}
	return NotAllowed
}

func lowerAll(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
