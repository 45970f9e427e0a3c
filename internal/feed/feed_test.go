package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/amishk599/jobintake/internal/model"
)

const rss2 = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:atom="http://www.w3.org/2005/Atom">
<channel>
  <title>Remote Go Jobs</title>
  <atom:link href="https://feeds.test/rss" rel="self"/>
  <item>
    <title>Backend Engineer &amp; SRE</title>
    <link>https://www.linkedin.com/jobs/view/12345</link>
    <guid>job-1</guid>
    <description><![CDATA[<p>Great role. Apply: <a href="https://boards.greenhouse.io/acme/jobs/4001">here</a></p>]]></description>
  </item>
  <item>
    <title>Frontend Dev</title>
    <atom:link href="https://ignored.test/self"/>
    <link>https://jobs.lever.co/acme/0d5b6c7e-1234-4abc-9def-0123456789ab</link>
    <content:encoded><![CDATA[Details at https://wellfound.com/jobs/2891234-frontend]]></content:encoded>
  </item>
  <item></item>
</channel>
</rss>`

const atom = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Jobs</title>
  <entry>
    <id>urn:1</id>
    <title type="html">Platform &lt;b&gt;Engineer&lt;/b&gt;</title>
    <link rel="self" href="https://feeds.test/entries/1"/>
    <link rel="alternate" href="https://jobs.ashbyhq.com/acme/0d5b6c7e-1234-4abc-9def-0123456789ab"/>
    <summary type="xhtml"><div xmlns="http://www.w3.org/1999/xhtml">Work on <a href="https://apply.workable.com/acme/j/AB12CD34/">infra</a></div></summary>
  </entry>
  <entry>
    <id>urn:2</id>
    <title>Only self link</title>
    <link rel="self" href="https://feeds.test/entries/2"/>
  </entry>
</feed>`

const rdf = `<?xml version="1.0"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns="http://purl.org/rss/1.0/">
  <channel rdf:about="https://feeds.test/"><title>RDF</title></channel>
  <item rdf:about="https://jobs.test/1"><title>Data Engineer</title><link>https://jobs.test/1</link></item>
</rdf:RDF>`

func TestParse_RSS2(t *testing.T) {
	entries, err := Parse([]byte(rss2))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	if entries[0].Title != "Backend Engineer & SRE" || entries[0].Link != "https://www.linkedin.com/jobs/view/12345" {
		t.Errorf("entry[0] = %+v", entries[0])
	}
	if !strings.Contains(entries[0].Summary, `href="https://boards.greenhouse.io/acme/jobs/4001"`) {
		t.Errorf("Summary = %q", entries[0].Summary)
	}
	if entries[1].Link != "https://jobs.lever.co/acme/0d5b6c7e-1234-4abc-9def-0123456789ab" {
		t.Errorf("entry[1].Link = %q, want the text link", entries[1].Link)
	}
	if !strings.Contains(entries[1].Content, "wellfound.com") {
		t.Errorf("entry[1].Content = %q", entries[1].Content)
	}
}

func TestParse_Atom(t *testing.T) {
	entries, err := Parse([]byte(atom))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Link != "https://jobs.ashbyhq.com/acme/0d5b6c7e-1234-4abc-9def-0123456789ab" {
		t.Errorf("Link = %q, want the alternate link", entries[0].Link)
	}
	if entries[0].Title != "Platform <b>Engineer</b>" {
		t.Errorf("Title = %q", entries[0].Title)
	}
	if !strings.Contains(entries[0].Summary, "apply.workable.com") {
		t.Errorf("xhtml Summary = %q", entries[0].Summary)
	}
	if entries[1].Link != "https://feeds.test/entries/2" {
		t.Errorf("fallback Link = %q, want the first link", entries[1].Link)
	}
}

func TestParse_RDF(t *testing.T) {
	entries, err := Parse([]byte(rdf))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 1 || entries[0].Link != "https://jobs.test/1" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestParse_Charset(t *testing.T) {
	// "Développeur" in ISO-8859-1.
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><rss><channel><item><title>D\xe9veloppeur</title></item></channel></rss>"
	entries, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 1 || entries[0].Title != "Développeur" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestParse_Errors(t *testing.T) {
	if _, err := Parse([]byte("   ")); err == nil {
		t.Error("expected error for empty document")
	}
	entries, err := Parse([]byte("<html><body>not a feed</body></html>"))
	if err != nil || len(entries) != 0 {
		t.Errorf("non-feed document = %v, %v; want no entries", entries, err)
	}
}

func TestToItem(t *testing.T) {
	long := strings.Repeat("word ", 600) + `<a href="https://jobs.smartrecruiters.com/Acme/743999-x">late link</a>`
	e := Entry{
		GUID:    "g1",
		Title:   "Backend Engineer",
		Link:    "https://www.linkedin.com/jobs/view/12345",
		Summary: "<![CDATA[" + long + "]]>",
	}

	item, ok := ToItem(e, "https://feeds.test/rss", 100)
	if !ok {
		t.Fatal("ToItem rejected a full entry")
	}
	if item.ID != "g1" || item.Subject != "Backend Engineer" || item.From != "www.linkedin.com" {
		t.Errorf("item = %+v", item)
	}
	if len([]rune(item.Text)) > len("Backend Engineer\n")+100 {
		t.Errorf("Text not truncated: %d runes", len([]rune(item.Text)))
	}
	if strings.Contains(item.Text, "CDATA") {
		t.Errorf("Text keeps CDATA markers: %q", item.Text[:40])
	}
	if item.URLs[0] != e.Link {
		t.Errorf("first URL = %q, want the entry link", item.URLs[0])
	}
	found := false
	for _, u := range item.URLs {
		if u == "https://jobs.smartrecruiters.com/Acme/743999-x" {
			found = true
		}
	}
	if !found {
		t.Errorf("URLs = %v, want link beyond the truncation point", item.URLs)
	}
}

func TestToItem_DiscardsEmpty(t *testing.T) {
	if _, ok := ToItem(Entry{GUID: "only-guid"}, "https://feeds.test/rss", 0); ok {
		t.Error("entry without title, link and summary should be discarded")
	}
	item, ok := ToItem(Entry{Summary: "<p>just text</p>"}, "https://feeds.test/rss", 0)
	if !ok || item.From != "feeds.test" || item.Text != "just text" {
		t.Errorf("summary-only entry = %+v, %v", item, ok)
	}
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent")
		}
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte(rss2))
		case "/slow":
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	f := NewHTTPFetcher(srv.Client())

	data, err := f.Fetch(context.Background(), srv.URL+"/ok")
	if err != nil || !strings.Contains(string(data), "<rss") {
		t.Fatalf("Fetch ok = %d bytes, %v", len(data), err)
	}

	_, err = f.Fetch(context.Background(), srv.URL+"/slow")
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusTooManyRequests || httpErr.RetryAfter.Seconds() != 7 {
		t.Errorf("Fetch slow error = %v", err)
	}

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("Fetch missing error = %v", err)
	}
}
