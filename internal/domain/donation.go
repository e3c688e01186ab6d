package domain

import "github.com/shopspring/decimal"

// Donation represents one funding event recorded by the ledger against a campaign.
type Donation struct {
	PID    int64
	Donor  string
	Amount decimal.Decimal
}
