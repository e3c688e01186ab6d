package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"crowdfund/internal/domain"
	"crowdfund/internal/ledger"
	"crowdfund/internal/middleware"
	"crowdfund/internal/viewstate"
)

type campaignRequest struct {
	Owner       string `json:"owner"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Target      string `json:"target"`
	Deadline    string `json:"deadline"`
	Image       string `json:"image"`
	Category    string `json:"category"`
}

func (c campaignRequest) draft() domain.Draft {
	return domain.Draft{
		Title:       c.Title,
		Description: c.Description,
		Target:      c.Target,
		Deadline:    c.Deadline,
		Image:       c.Image,
		Category:    c.Category,
	}
}

type donateRequest struct {
	Amount string `json:"amount"`
}

func pidParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "pid")
	pid, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || pid < 0 {
		return 0, domain.NewValidationError("campaign id", domain.FieldError{Field: "pid", Code: domain.CodeCampaignIDInvalid})
	}
	return pid, nil
}

func wantsRefresh(r *http.Request) bool {
	switch strings.ToLower(r.URL.Query().Get("refresh")) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// listing renders a store through q, loading it first when needed. A failed
// reload of an already loaded store is reported as a notice next to the
// previous working set.
func (a *App) listing(w http.ResponseWriter, r *http.Request, store *viewstate.Store, q viewstate.Query) {
	if !store.Loaded() || wantsRefresh(r) {
		if err := store.Refresh(r.Context()); err != nil {
			if !store.Loaded() {
				a.fail(w, r, err)
				return
			}
			n := viewstate.NoticeFor(err)
			n.Message = a.Catalog.ErrorMessage(middleware.LocaleFromContext(r.Context()), err)
			store.SetNotice(n.Kind, n.Message, n.Retryable)
		}
	}
	snap := store.Snapshot()
	now := a.Ledger.Now()
	out := listingView{
		State:    snap.State,
		LoadedAt: snap.LoadedAt,
		Query:    newQueryView(q),
		Stats:    viewstate.Summarize(snap.Campaigns, now),
		Items:    newCampaignViews(viewstate.Filter(snap.Campaigns, q, now), now),
	}
	if n, ok := store.Notice(); ok {
		out.Notice = &n
	}
	a.json(w, http.StatusOK, out)
}

// CampaignsList serves the listing view.
func (a *App) CampaignsList(w http.ResponseWriter, r *http.Request) {
	a.listing(w, r, a.Views.All(), viewstate.ParseQuery(r.URL.Query()))
}

// CampaignGet serves the detail view. The campaign and its donations are
// read concurrently.
func (a *App) CampaignGet(w http.ResponseWriter, r *http.Request) {
	pid, err := pidParam(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	var (
		campaign     *domain.Campaign
		found        bool
		donations    []domain.Donation
		donationsErr error
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		c, ok, err := a.Ledger.GetCampaign(ctx, pid)
		campaign, found = c, ok
		return err
	})
	g.Go(func() error {
		// A missing donor list degrades the page rather than failing it.
		donations, donationsErr = a.Ledger.ListDonations(ctx, pid)
		return nil
	})
	if err := g.Wait(); err != nil {
		a.fail(w, r, err)
		return
	}
	if !found {
		a.fail(w, r, &domain.Error{Kind: domain.KindNotFound, Code: domain.CodeNotFound, Op: "get campaign"})
		return
	}

	now := a.Ledger.Now()
	status := a.Ledger.Status(r.Context())
	out := map[string]any{
		"campaign":  newCampaignView(*campaign, now),
		"donations": newDonationViews(donations),
		"viewer": map[string]any{
			"account":    status.Account,
			"is_owner":   campaign.OwnedBy(status.Account),
			"can_donate": status.Ready && campaign.IsActive && !campaign.Expired(now) && !campaign.OwnedBy(status.Account),
		},
	}
	if donationsErr != nil {
		a.Logger.Warn().Err(donationsErr).Int64("pid", pid).Msg("donations unavailable")
		n := viewstate.NoticeFor(donationsErr)
		n.Message = a.Catalog.ErrorMessage(middleware.LocaleFromContext(r.Context()), donationsErr)
		out["donations"] = nil
		out["notice"] = n
	}
	a.json(w, http.StatusOK, out)
}

// CampaignCreate submits a new campaign.
func (a *App) CampaignCreate(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if err := a.decode(r, &req); err != nil {
		a.error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload")
		return
	}
	form, err := req.draft().Form(req.Owner, a.Location)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.create(w, r, form, nil)
}

// create submits form and, when onSuccess is set, runs it before responding.
func (a *App) create(w http.ResponseWriter, r *http.Request, form domain.CampaignForm, onSuccess func(ctx context.Context) error) {
	tx, err := a.Ledger.CreateCampaign(r.Context(), form)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := map[string]any{"tx": tx}
	if onSuccess != nil {
		if err := onSuccess(r.Context()); err != nil {
			out["warning"] = err.Error()
		}
	}
	owner := form.Owner
	if owner == "" {
		owner = a.Ledger.Status(r.Context()).Account
	}
	a.refreshViews(r.Context(), owner)
	a.json(w, http.StatusCreated, out)
}

// FeeEstimate quotes the fee for creating the campaign in the body. An
// incomplete form yields an unavailable quote.
func (a *App) FeeEstimate(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if err := a.decode(r, &req); err != nil {
		a.error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload")
		return
	}
	quote := ledger.FeeQuote{}
	if form, err := req.draft().Form(req.Owner, a.Location); err == nil {
		quote = a.Ledger.EstimateFee(r.Context(), form)
	}
	a.json(w, http.StatusOK, map[string]any{"quote": quote, "display": quote.String()})
}

// CampaignDelete deactivates a campaign owned by the connected account.
func (a *App) CampaignDelete(w http.ResponseWriter, r *http.Request) {
	pid, err := pidParam(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	tx, err := a.Ledger.DeleteCampaign(r.Context(), pid)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.refreshViews(r.Context(), a.Ledger.Status(r.Context()).Account)
	a.json(w, http.StatusOK, map[string]any{"tx": tx})
}

// CampaignDonate donates to a campaign, then returns the campaign as re-read
// from the ledger.
func (a *App) CampaignDonate(w http.ResponseWriter, r *http.Request) {
	pid, err := pidParam(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req donateRequest
	if err := a.decode(r, &req); err != nil {
		a.error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload")
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		a.fail(w, r, domain.NewValidationError("donate", domain.FieldError{Field: "amount", Code: domain.CodeDonationAmountInvalid}))
		return
	}

	last := a.lastKnown(r.Context(), pid)
	tx, err := a.Ledger.Donate(r.Context(), pid, amount, last)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	out := map[string]any{"tx": tx}
	var owner string
	if last != nil {
		owner = last.Owner
	}
	fresh, found, err := a.Ledger.GetCampaign(r.Context(), pid)
	switch {
	case err != nil:
		a.Logger.Warn().Err(err).Int64("pid", pid).Msg("re-read after donation failed")
	case found:
		out["campaign"] = newCampaignView(*fresh, a.Ledger.Now())
		owner = fresh.Owner
	}
	a.refreshViews(r.Context(), owner)
	a.json(w, http.StatusOK, out)
}

// lastKnown returns the campaign the donation checks run against: the
// listing copy when loaded, otherwise a fresh ledger read. A missing or
// unreadable campaign is left for the ledger to reject.
func (a *App) lastKnown(ctx context.Context, pid int64) *domain.Campaign {
	if c, ok := a.Views.All().Find(pid); ok {
		return &c
	}
	c, found, err := a.Ledger.GetCampaign(ctx, pid)
	if err != nil {
		a.Logger.Debug().Err(err).Int64("pid", pid).Msg("pre-donation read failed")
		return nil
	}
	if !found {
		return nil
	}
	return c
}
