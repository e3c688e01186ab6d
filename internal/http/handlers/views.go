package handlers

import (
	"time"

	"crowdfund/internal/domain"
	"crowdfund/internal/viewstate"
)

type campaignView struct {
	PID             int64     `json:"pid"`
	Owner           string    `json:"owner"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Category        string    `json:"category,omitempty"`
	Target          string    `json:"target"`
	AmountCollected string    `json:"amount_collected"`
	Progress        string    `json:"progress"`
	Deadline        time.Time `json:"deadline"`
	Expired         bool      `json:"expired"`
	Image           string    `json:"image,omitempty"`
	IsActive        bool      `json:"is_active"`
	Donors          *int      `json:"donors,omitempty"`
}

func newCampaignView(c domain.Campaign, now time.Time) campaignView {
	v := campaignView{
		PID:             c.PID,
		Owner:           c.Owner,
		Title:           c.Title,
		Description:     c.Description,
		Category:        c.Category,
		Target:          c.Target.String(),
		AmountCollected: c.AmountCollected.String(),
		Progress:        c.Progress().Round(4).String(),
		Deadline:        c.Deadline.UTC(),
		Expired:         c.Expired(now),
		Image:           c.Image,
		IsActive:        c.IsActive,
	}
	if c.DonorsKnown {
		n := c.Donors
		v.Donors = &n
	}
	return v
}

func newCampaignViews(list []domain.Campaign, now time.Time) []campaignView {
	out := make([]campaignView, 0, len(list))
	for _, c := range list {
		out = append(out, newCampaignView(c, now))
	}
	return out
}

type donationView struct {
	Donor  string `json:"donor"`
	Amount string `json:"amount"`
}

func newDonationViews(list []domain.Donation) []donationView {
	out := make([]donationView, 0, len(list))
	for _, d := range list {
		out = append(out, donationView{Donor: d.Donor, Amount: d.Amount.String()})
	}
	return out
}

type queryView struct {
	Search       string `json:"search"`
	Category     string `json:"category"`
	Sort         string `json:"sort"`
	HideInactive bool   `json:"hide_inactive,omitempty"`
	Share        string `json:"share,omitempty"`
}

func newQueryView(q viewstate.Query) queryView {
	category := q.Category
	if category == "" {
		category = string(domain.CategoryAll)
	}
	return queryView{
		Search:       q.Search,
		Category:     category,
		Sort:         string(q.Sort),
		HideInactive: q.HideInactive,
		Share:        q.Values().Encode(),
	}
}

type listingView struct {
	State    viewstate.State   `json:"state"`
	LoadedAt time.Time         `json:"loaded_at,omitzero"`
	Query    queryView         `json:"query"`
	Stats    viewstate.Stats   `json:"stats"`
	Items    []campaignView    `json:"items"`
	Notice   *viewstate.Notice `json:"notice,omitempty"`
}
