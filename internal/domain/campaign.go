package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category enumerates the campaign categories understood by listing filters.
type Category string

const (
	CategoryAll         Category = "all"
	CategoryEducation   Category = "education"
	CategoryHealth      Category = "health"
	CategoryEnvironment Category = "environment"
	CategoryTechnology  Category = "technology"
	CategoryCommunity   Category = "community"
	CategoryEmergency   Category = "emergency"
)

// Categories lists the selectable categories, excluding the "all" sentinel.
var Categories = []Category{
	CategoryEducation,
	CategoryHealth,
	CategoryEnvironment,
	CategoryTechnology,
	CategoryCommunity,
	CategoryEmergency,
}

// ParseCategory normalizes a category name. Empty input yields CategoryAll.
func ParseCategory(raw string) (Category, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == string(CategoryAll) {
		return CategoryAll, true
	}
	for _, c := range Categories {
		if string(c) == raw {
			return c, true
		}
	}
	return "", false
}

// Campaign is a fundraising request as read from the ledger. Amounts are in
// ether (the ledger's smallest unit already divided out).
type Campaign struct {
	PID             int64
	Owner           string
	Title           string
	Description     string
	Category        string
	Target          decimal.Decimal
	AmountCollected decimal.Decimal
	Deadline        time.Time
	Image           string
	IsActive        bool

	// Donors is the donor count carried by the record. DonorsKnown is false
	// when the ledger record did not include it.
	Donors      int
	DonorsKnown bool
}

// Progress returns amountCollected/target as a fraction. A zero target has
// no meaningful progress and reports zero.
func (c Campaign) Progress() decimal.Decimal {
	if !c.Target.IsPositive() {
		return decimal.Zero
	}
	return c.AmountCollected.DivRound(c.Target, 18)
}

// Expired reports whether the deadline is not strictly after now.
func (c Campaign) Expired(now time.Time) bool {
	return !c.Deadline.After(now)
}

// OwnedBy compares account identifiers case-insensitively.
func (c Campaign) OwnedBy(account string) bool {
	account = strings.TrimSpace(account)
	return account != "" && strings.EqualFold(c.Owner, account)
}

// CampaignForm is the typed input for creating a campaign.
type CampaignForm struct {
	Owner       string
	Title       string
	Description string
	Target      decimal.Decimal
	Deadline    time.Time
	Image       string
}
