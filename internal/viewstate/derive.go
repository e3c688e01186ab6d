package viewstate

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"crowdfund/internal/domain"
)

// Stats is the aggregate shown above a listing.
type Stats struct {
	TotalCampaigns  int             `json:"total_campaigns"`
	ActiveCampaigns int             `json:"active_campaigns"`
	TotalRaised     decimal.Decimal `json:"total_raised"`
	TotalBackers    int             `json:"total_backers"`
}

// Filter derives a filtered, sorted copy of campaigns. The input is never
// modified and ties keep their input order. Search text is matched as a raw
// substring, surrounding spaces included; only an empty search matches all.
func Filter(campaigns []domain.Campaign, q Query, now time.Time) []domain.Campaign {
	out := make([]domain.Campaign, 0, len(campaigns))
	fold := cases.Fold()
	needle := fold.String(q.Search)
	category, byCategory := q.categoryFilter()

	for _, c := range campaigns {
		if q.HideInactive && !c.IsActive {
			continue
		}
		if byCategory && !strings.EqualFold(strings.TrimSpace(c.Category), category) {
			continue
		}
		if needle != "" && !matches(fold, c, needle) {
			continue
		}
		out = append(out, c)
	}
	slices.SortStableFunc(out, comparator(q.Sort, now))
	return out
}

func matches(fold cases.Caser, c domain.Campaign, needle string) bool {
	for _, field := range []string{c.Title, c.Description, c.Category} {
		if field != "" && strings.Contains(fold.String(field), needle) {
			return true
		}
	}
	return false
}

func comparator(key SortKey, now time.Time) func(a, b domain.Campaign) int {
	switch key {
	case SortOldest:
		return func(a, b domain.Campaign) int { return a.Deadline.Compare(b.Deadline) }
	case SortTargetHigh:
		return func(a, b domain.Campaign) int { return b.Target.Cmp(a.Target) }
	case SortTargetLow:
		return func(a, b domain.Campaign) int { return a.Target.Cmp(b.Target) }
	case SortProgress:
		return func(a, b domain.Campaign) int { return b.Progress().Cmp(a.Progress()) }
	case SortDeadline:
		return func(a, b domain.Campaign) int {
			ae, be := a.Expired(now), b.Expired(now)
			switch {
			case ae && !be:
				return 1
			case !ae && be:
				return -1
			}
			return a.Deadline.Compare(b.Deadline)
		}
	default:
		return func(a, b domain.Campaign) int { return b.Deadline.Compare(a.Deadline) }
	}
}

// Summarize reduces campaigns to listing totals. Campaigns without a known
// donor count contribute no backers.
func Summarize(campaigns []domain.Campaign, now time.Time) Stats {
	st := Stats{TotalCampaigns: len(campaigns), TotalRaised: decimal.Zero}
	for _, c := range campaigns {
		if !c.Expired(now) {
			st.ActiveCampaigns++
		}
		st.TotalRaised = st.TotalRaised.Add(c.AmountCollected)
		if c.DonorsKnown {
			st.TotalBackers += c.Donors
		}
	}
	return st
}
