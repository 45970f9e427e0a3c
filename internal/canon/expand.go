// Package canon classifies raw URLs into ranked, de-duplicated job candidates.
package canon

import (
	"net/url"
	"strings"
)

// redirectParams are the query parameters tracking redirectors use to carry
// the destination URL, in lookup order.
var redirectParams = []string{
	"url", "u", "redirect", "redirect_url", "redirecturl", "redirect_uri",
	"dest", "destination", "target", "link", "q", "to", "goto", "r",
}

// Expand returns rawURL followed by every destination URL embedded in its
// query string. Parameter values are tried decoded once and decoded twice;
// only absolute http(s) values are kept, without duplicates.
func Expand(rawURL string) []string {
	out := []string{rawURL}
	seen := map[string]bool{rawURL: true}

	u, err := url.Parse(rawURL)
	if err != nil || u.RawQuery == "" {
		return out
	}

	params := rawQueryValues(u.RawQuery)
	add := func(v string) {
		if !isAbsHTTP(v) || seen[v] {
			return
		}
		seen[v] = true
		out = append(out, v)
	}
	for _, name := range redirectParams {
		for _, v := range params[name] {
			once, err := url.QueryUnescape(v)
			if err != nil {
				continue
			}
			add(once)
			if twice, err := url.QueryUnescape(once); err == nil {
				add(twice)
			}
		}
	}
	return out
}

// rawQueryValues splits a query string without decoding values, keyed by
// lower-cased parameter name.
func rawQueryValues(rawQuery string) map[string][]string {
	out := make(map[string][]string)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		key = strings.ToLower(key)
		out[key] = append(out[key], value)
	}
	return out
}

func isAbsHTTP(s string) bool {
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Host != ""
}
