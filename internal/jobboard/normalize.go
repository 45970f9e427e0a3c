package jobboard

import (
	"context"
	"net/url"
	"strings"

	"github.com/amishk599/jobintake/internal/model"
)

// Normalize maps rawURL to a job descriptor. ok is false when the URL is not
// a posting on any known board.
func Normalize(rawURL string) (model.Descriptor, bool) {
	d, _, ok := normalize(rawURL)
	return d, ok
}

// Match is the structural fallback: it accepts only URLs that already have a
// board's strict detail-page shape.
func Match(rawURL string) (model.Descriptor, bool) {
	d, strict, ok := normalize(rawURL)
	if !ok || !strict {
		return model.Descriptor{}, false
	}
	return d, true
}

// IsStrict reports whether rawURL has a board's strict detail-page shape.
func IsStrict(rawURL string) bool {
	_, strict, ok := normalize(rawURL)
	return ok && strict
}

func normalize(rawURL string) (model.Descriptor, bool, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return model.Descriptor{}, false, false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return model.Descriptor{}, false, false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return model.Descriptor{}, false, false
	}
	u.Host = host

	if b := findBoard(host); b != nil {
		p, ok := b.parse(u)
		if !ok {
			return model.Descriptor{}, false, false
		}
		return model.Descriptor{
			JobURL:       p.canonical,
			JobKey:       b.name + ":" + p.id,
			JobID:        p.id,
			SourceDomain: b.domain,
		}, p.strict, true
	}

	// Greenhouse boards embedded on a company careers site.
	if id := u.Query().Get("gh_jid"); numericID.MatchString(id) {
		return model.Descriptor{
			JobURL:       "https://" + host + u.EscapedPath() + "?gh_jid=" + id,
			JobKey:       "greenhouse:" + id,
			JobID:        id,
			SourceDomain: "greenhouse.io",
		}, false, true
	}
	return model.Descriptor{}, false, false
}

// Normalizer is the built-in URL normalization oracle.
type Normalizer struct{}

// NewNormalizer returns the built-in oracle.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// NormalizeURL implements model.URLNormalizer. Unknown URLs are reported as
// ignored rather than as errors.
func (n *Normalizer) NormalizeURL(_ context.Context, rawURL string) (*model.Descriptor, error) {
	d, ok := Normalize(rawURL)
	if !ok {
		return &model.Descriptor{Ignored: true}, nil
	}
	return &d, nil
}
