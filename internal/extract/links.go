package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var urlPattern = regexp.MustCompile(`(?i)https?://[^\s<>"'\[\]{}|\\^` + "`" + `]+`)

const trailingPunct = ".,;:!?'\""

// Links returns every absolute http(s) URL found in the text and in the
// anchor hrefs of the HTML body, in order of appearance. Duplicates are kept
// so callers can count occurrences.
func Links(text, htmlBody string) []string {
	var out []string
	for _, m := range urlPattern.FindAllString(text, -1) {
		if u := trimURL(m); u != "" {
			out = append(out, u)
		}
	}
	out = append(out, anchorLinks(htmlBody)...)
	return out
}

func anchorLinks(htmlBody string) []string {
	if strings.TrimSpace(htmlBody) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return nil
	}
	var out []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		lower := strings.ToLower(href)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
			out = append(out, href)
		}
	})
	return out
}

func trimURL(u string) string {
	u = strings.TrimRight(u, trailingPunct)
	// Keep a closing paren only when the URL opened one.
	for strings.HasSuffix(u, ")") && strings.Count(u, "(") < strings.Count(u, ")") {
		u = strings.TrimRight(strings.TrimSuffix(u, ")"), trailingPunct)
	}
	if strings.Contains(u, "://") && !strings.HasSuffix(u, "://") {
		return u
	}
	return ""
}
