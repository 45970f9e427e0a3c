// Package feed fetches RSS and Atom feeds and turns their entries into
// source items.
package feed

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// Entry is one <item> or <entry> block.
type Entry struct {
	GUID    string
	Title   string
	Link    string
	Summary string // raw description or summary, may hold HTML
	Content string // raw content:encoded or Atom content
}

type rssLink struct {
	Href string `xml:"href,attr"`
	Text string `xml:",chardata"`
}

type rssItem struct {
	GUID        string    `xml:"guid"`
	Title       string    `xml:"title"`
	Links       []rssLink `xml:"link"`
	Description string    `xml:"description"`
	Content     string    `xml:"encoded"` // content:encoded
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

// atomText keeps the raw markup of type="xhtml" constructs, whose content is
// child elements rather than escaped text.
type atomText struct {
	Type  string `xml:"type,attr"`
	Text  string `xml:",chardata"`
	Inner string `xml:",innerxml"`
}

func (t atomText) String() string {
	if strings.EqualFold(t.Type, "xhtml") {
		return strings.TrimSpace(t.Inner)
	}
	return strings.TrimSpace(t.Text)
}

type atomEntry struct {
	ID      string     `xml:"id"`
	Title   atomText   `xml:"title"`
	Links   []atomLink `xml:"link"`
	Summary atomText   `xml:"summary"`
	Content atomText   `xml:"content"`
}

// Parse extracts every <item> and <entry> block from an RSS 0.9x/1.0/2.0 or
// Atom document, wherever they appear. Entries decoded before a syntax error
// are returned; the error is reported only when nothing could be read.
func Parse(data []byte) ([]Entry, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("feed: empty document")
	}

	d := xml.NewDecoder(bytes.NewReader(data))
	d.Strict = false
	d.Entity = xml.HTMLEntity
	d.CharsetReader = charset.NewReaderLabel

	var entries []Entry
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if len(entries) > 0 {
				break
			}
			return nil, fmt.Errorf("feed: parse: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch strings.ToLower(se.Name.Local) {
		case "item":
			var it rssItem
			if err := d.DecodeElement(&it, &se); err != nil {
				if len(entries) > 0 {
					return entries, nil
				}
				return nil, fmt.Errorf("feed: parse item: %w", err)
			}
			entries = append(entries, it.entry())
		case "entry":
			var e atomEntry
			if err := d.DecodeElement(&e, &se); err != nil {
				if len(entries) > 0 {
					return entries, nil
				}
				return nil, fmt.Errorf("feed: parse entry: %w", err)
			}
			entries = append(entries, e.entry())
		}
	}
	return entries, nil
}

func (it rssItem) entry() Entry {
	link := ""
	for _, l := range it.Links {
		if t := strings.TrimSpace(l.Text); t != "" {
			link = t
			break
		}
	}
	if link == "" {
		for _, l := range it.Links {
			if h := strings.TrimSpace(l.Href); h != "" {
				link = h
				break
			}
		}
	}
	guid := strings.TrimSpace(it.GUID)
	if link == "" && strings.HasPrefix(guid, "http") {
		link = guid
	}
	return Entry{
		GUID:    guid,
		Title:   strings.TrimSpace(it.Title),
		Link:    link,
		Summary: strings.TrimSpace(it.Description),
		Content: strings.TrimSpace(it.Content),
	}
}

func (e atomEntry) entry() Entry {
	link := ""
	for _, l := range e.Links {
		if l.Rel == "" || l.Rel == "alternate" {
			link = strings.TrimSpace(l.Href)
			break
		}
	}
	if link == "" && len(e.Links) > 0 {
		link = strings.TrimSpace(e.Links[0].Href)
	}
	return Entry{
		GUID:    strings.TrimSpace(e.ID),
		Title:   e.Title.String(),
		Link:    link,
		Summary: e.Summary.String(),
		Content: e.Content.String(),
	}
}
