package dispatch

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/amishk599/jobintake/internal/model"
)

// CoerceResult converts a loosely-typed ingest response into an IngestResult.
// Missing or non-numeric counters become zero.
func CoerceResult(raw map[string]any) model.IngestResult {
	res := model.IngestResult{
		InsertedOrUpdated: ToInt(raw["inserted_or_updated"]),
		Inserted:          ToInt(firstPresent(raw, "inserted_count", "inserted")),
		Updated:           ToInt(firstPresent(raw, "updated_count", "updated")),
		Ignored:           ToInt(raw["ignored"]),
		LinkOnly:          ToInt(raw["link_only"]),
	}

	if rows, ok := raw["results"].([]any); ok {
		for _, r := range rows {
			m, ok := r.(map[string]any)
			if !ok {
				continue
			}
			domain := toString(m["source_domain"])
			if domain == "" {
				domain = toString(m["domain"])
			}
			res.Results = append(res.Results, model.ResultRow{
				JobKey:         toString(m["job_key"]),
				SourceDomain:   domain,
				Action:         toString(m["action"]),
				Status:         toString(m["status"]),
				FallbackReason: toString(m["fallback_reason"]),
			})
		}
	}

	if summary, ok := raw["source_summary"].(map[string]any); ok {
		res.SourceSummary = make(map[string]model.DomainStats, len(summary))
		for domain, v := range summary {
			m, ok := v.(map[string]any)
			if !ok {
				continue
			}
			res.SourceSummary[domain] = model.DomainStats{
				Inserted: ToInt(m["inserted"]),
				Updated:  ToInt(m["updated"]),
				Ignored:  ToInt(m["ignored"]),
				LinkOnly: ToInt(m["link_only"]),
			}
		}
	}
	return res
}

// firstPresent returns the value of the first key present in raw.
func firstPresent(raw map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			return v
		}
	}
	return nil
}

// ToInt coerces a decoded JSON value to an int; anything non-numeric is 0.
func ToInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return int(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
		if f, err := n.Float64(); err == nil {
			return int(f)
		}
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.Atoi(s); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return int(f)
		}
	}
	return 0
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
