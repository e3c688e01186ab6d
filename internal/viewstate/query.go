package viewstate

import (
	"net/url"
	"strings"

	"crowdfund/internal/domain"
)

// SortKey selects the listing order.
type SortKey string

const (
	SortNewest     SortKey = "newest"
	SortOldest     SortKey = "oldest"
	SortTargetHigh SortKey = "target_high"
	SortTargetLow  SortKey = "target_low"
	SortProgress   SortKey = "progress"
	SortDeadline   SortKey = "deadline"
)

// SortKeys lists the accepted sort keys in display order.
var SortKeys = []SortKey{SortNewest, SortOldest, SortTargetHigh, SortTargetLow, SortProgress, SortDeadline}

// ParseSortKey falls back to SortNewest for empty or unknown input.
func ParseSortKey(raw string) SortKey {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for _, k := range SortKeys {
		if string(k) == raw {
			return k
		}
	}
	return SortNewest
}

// Query is the shareable listing state: search text, category and sort key.
type Query struct {
	Search   string
	Category string
	Sort     SortKey
	// HideInactive drops campaigns the ledger marked inactive.
	HideInactive bool
}

// ParseQuery reads listing state from URL query parameters. Unknown
// categories are kept so the listing comes back empty rather than unfiltered.
func ParseQuery(v url.Values) Query {
	q := Query{
		Search: v.Get("search"),
		Sort:   ParseSortKey(v.Get("sort")),
	}
	raw := strings.TrimSpace(v.Get("category"))
	if c, ok := domain.ParseCategory(raw); ok {
		q.Category = string(c)
	} else {
		q.Category = strings.ToLower(raw)
	}
	switch strings.ToLower(v.Get("hide_inactive")) {
	case "1", "true", "yes":
		q.HideInactive = true
	}
	return q
}

// Values encodes q back into query parameters, omitting defaults.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Category != "" && q.Category != string(domain.CategoryAll) {
		v.Set("category", q.Category)
	}
	if q.Sort != "" && q.Sort != SortNewest {
		v.Set("sort", string(q.Sort))
	}
	if q.HideInactive {
		v.Set("hide_inactive", "1")
	}
	return v
}

func (q Query) categoryFilter() (string, bool) {
	c := strings.TrimSpace(q.Category)
	if c == "" || strings.EqualFold(c, string(domain.CategoryAll)) {
		return "", false
	}
	return c, true
}
