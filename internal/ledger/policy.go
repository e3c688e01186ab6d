package ledger

import (
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"crowdfund/internal/domain"
)

// Policy holds the client-side, advisory limits applied before submitting.
// The ledger remains the authority; these checks only spare the user a
// transaction that is known to be pointless.
type Policy struct {
	MinDuration time.Duration
	MaxDuration time.Duration
	MinTarget   decimal.Decimal
	MaxTarget   decimal.Decimal
	MinDonation decimal.Decimal
}

// DefaultPolicy mirrors the limits enforced by the campaign creation form.
func DefaultPolicy() Policy {
	return Policy{
		MinDuration: 24 * time.Hour,
		MaxDuration: 365 * 24 * time.Hour,
		MinTarget:   decimal.RequireFromString("0.001"),
		MaxTarget:   decimal.NewFromInt(1000),
		MinDonation: decimal.RequireFromString("0.001"),
	}
}

// ValidateForm checks a creation form against p. The owner match against the
// connected account is done by the gateway since it needs the session.
func (p Policy) ValidateForm(form domain.CampaignForm, now time.Time) []domain.FieldError {
	var fields []domain.FieldError
	add := func(field string, code domain.Code) {
		fields = append(fields, domain.FieldError{Field: field, Code: code})
	}

	if strings.TrimSpace(form.Title) == "" {
		add("title", domain.CodeTitleRequired)
	}
	if strings.TrimSpace(form.Description) == "" {
		add("description", domain.CodeDescriptionRequired)
	}

	switch {
	case !form.Target.IsPositive():
		add("target", domain.CodeTargetInvalid)
	case !p.MinTarget.IsZero() && form.Target.LessThan(p.MinTarget):
		add("target", domain.CodeTargetTooSmall)
	case !p.MaxTarget.IsZero() && form.Target.GreaterThan(p.MaxTarget):
		add("target", domain.CodeTargetTooLarge)
	}

	switch {
	case form.Deadline.IsZero():
		add("deadline", domain.CodeDeadlineRequired)
	case !form.Deadline.After(now):
		add("deadline", domain.CodeDeadlineInvalid)
	case p.MinDuration > 0 && !form.Deadline.After(now.Add(p.MinDuration)):
		add("deadline", domain.CodeDeadlineTooSoon)
	case p.MaxDuration > 0 && form.Deadline.After(now.Add(p.MaxDuration)):
		add("deadline", domain.CodeDeadlineTooFar)
	}

	if img := strings.TrimSpace(form.Image); img != "" && !validImageURL(img) {
		add("image", domain.CodeImageInvalid)
	}
	return fields
}

// ValidateDonation checks the amount only; it never looks at the ledger.
func (p Policy) ValidateDonation(amount decimal.Decimal) []domain.FieldError {
	if !amount.IsPositive() {
		return []domain.FieldError{{Field: "amount", Code: domain.CodeDonationAmountInvalid}}
	}
	if !p.MinDonation.IsZero() && amount.LessThan(p.MinDonation) {
		return []domain.FieldError{{Field: "amount", Code: domain.CodeDonationTooSmall}}
	}
	return nil
}

func validImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
