// Package extract turns message and feed bodies into plain text and raw URLs.
package extract

import (
	"html"
	"regexp"
	"strings"

	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Li: true, atom.Ul: true, atom.Ol: true,
	atom.Tr: true, atom.Table: true, atom.Section: true, atom.Article: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Blockquote: true, atom.Pre: true, atom.Header: true, atom.Footer: true, atom.Hr: true,
}

// HTMLText renders an HTML fragment or document as readable plain text.
// Block elements and <br> become line breaks, script and style content is
// dropped, and entities are decoded.
func HTMLText(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	doc, err := nethtml.Parse(strings.NewReader(src))
	if err != nil {
		return StripTags(src)
	}

	var sb strings.Builder
	var walk func(*nethtml.Node)
	walk = func(n *nethtml.Node) {
		block := false
		switch n.Type {
		case nethtml.TextNode:
			sb.WriteString(n.Data)
		case nethtml.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Head, atom.Template:
				return
			case atom.Br:
				sb.WriteByte('\n')
				return
			}
			block = blockElements[n.DataAtom]
			if block {
				sb.WriteByte('\n')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			sb.WriteByte('\n')
		}
	}
	walk(doc)
	return tidyLines(sb.String())
}

// StripTags is the regex fallback for input the HTML parser rejects: it
// unescapes entities, removes tags, and collapses whitespace.
func StripTags(content string) string {
	unescaped := html.UnescapeString(content)
	plain := htmlTagRegex.ReplaceAllString(unescaped, " ")
	return strings.Join(strings.Fields(plain), " ")
}

// Combine joins a plain-text body with the text rendering of an HTML body.
func Combine(plain, htmlBody string) string {
	parts := make([]string, 0, 2)
	if p := strings.TrimSpace(plain); p != "" {
		parts = append(parts, p)
	}
	if h := HTMLText(htmlBody); h != "" {
		parts = append(parts, h)
	}
	return strings.Join(parts, "\n\n")
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}

func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if len(out) > 0 && !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
