package mailbox

import (
	"encoding/base64"
	"strings"

	"google.golang.org/api/gmail/v1"

	"github.com/amishk599/jobintake/internal/extract"
	"github.com/amishk599/jobintake/internal/model"
)

// toItem flattens a Gmail message into a SourceItem.
func toItem(m *gmail.Message) *model.SourceItem {
	item := &model.SourceItem{
		ID:       m.Id,
		ThreadID: m.ThreadId,
		OrderKey: m.InternalDate,
	}
	if m.Payload == nil {
		item.Text = m.Snippet
		item.URLs = extract.Links(item.Text, "")
		return item
	}

	item.Subject = header(m.Payload.Headers, "Subject")
	item.From = header(m.Payload.Headers, "From")

	var plain, html []string
	walkParts(m.Payload, &plain, &html)
	item.HTML = strings.Join(html, "\n")
	item.Text = extract.Combine(strings.Join(plain, "\n"), item.HTML)
	if item.Text == "" {
		item.Text = m.Snippet
	}
	item.URLs = extract.Links(item.Text, item.HTML)
	return item
}

// walkParts collects decoded text/plain and text/html bodies depth-first,
// skipping attachments.
func walkParts(p *gmail.MessagePart, plain, html *[]string) {
	if p == nil {
		return
	}
	if p.Filename == "" && p.Body != nil && p.Body.Data != "" {
		mime := strings.ToLower(p.MimeType)
		switch {
		case strings.HasPrefix(mime, "text/plain"):
			if s, ok := decodeBody(p.Body.Data); ok {
				*plain = append(*plain, s)
			}
		case strings.HasPrefix(mime, "text/html"):
			if s, ok := decodeBody(p.Body.Data); ok {
				*html = append(*html, s)
			}
		}
	}
	for _, child := range p.Parts {
		walkParts(child, plain, html)
	}
}

// decodeBody decodes Gmail's base64url body data, padded or not.
func decodeBody(data string) (string, bool) {
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.RawURLEncoding, base64.StdEncoding} {
		if b, err := enc.DecodeString(data); err == nil {
			return string(b), true
		}
	}
	return "", false
}

// header returns the trimmed value of the first header named name,
// case-insensitively.
func header(headers []*gmail.MessagePartHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return strings.TrimSpace(h.Value)
		}
	}
	return ""
}
