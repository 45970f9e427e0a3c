package feed

import (
	"net/url"
	"strings"

	"github.com/amishk599/jobintake/internal/extract"
	"github.com/amishk599/jobintake/internal/model"
)

// DefaultSummaryLen bounds the plain-text summary kept per entry.
const DefaultSummaryLen = 2000

// ToItem converts an entry into a SourceItem. Links are extracted from the
// full description and content before the summary is truncated. ok is false
// when the entry has no title, no link and no summary.
func ToItem(e Entry, feedURL string, summaryLen int) (item *model.SourceItem, ok bool) {
	if summaryLen <= 0 {
		summaryLen = DefaultSummaryLen
	}

	title := e.Title
	if strings.Contains(title, "<") {
		title = extract.HTMLText(title)
	}
	rawSummary := e.Summary
	if rawSummary == "" {
		rawSummary = e.Content
	}
	summary := extract.Truncate(extract.HTMLText(stripCDATA(rawSummary)), summaryLen)

	if title == "" && e.Link == "" && summary == "" {
		return nil, false
	}

	urls := make([]string, 0, 4)
	if e.Link != "" {
		urls = append(urls, e.Link)
	}
	for _, body := range []string{e.Summary, e.Content} {
		body = stripCDATA(body)
		if body == "" {
			continue
		}
		urls = append(urls, extract.Links(extract.HTMLText(body), body)...)
	}

	id := e.GUID
	if id == "" {
		id = e.Link
	}
	if id == "" {
		id = title
	}

	text := title
	if summary != "" {
		if text != "" {
			text += "\n"
		}
		text += summary
	}

	return &model.SourceItem{
		ID:      id,
		Subject: title,
		From:    hostOf(e.Link, feedURL),
		Text:    text,
		URLs:    urls,
	}, true
}

func stripCDATA(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "<![CDATA[", "")
	return strings.ReplaceAll(s, "]]>", "")
}

func hostOf(candidates ...string) string {
	for _, c := range candidates {
		if u, err := url.Parse(c); err == nil && u.Hostname() != "" {
			return strings.ToLower(u.Hostname())
		}
	}
	return ""
}
