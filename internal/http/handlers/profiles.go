package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"crowdfund/internal/domain"
	"crowdfund/internal/ledger"
	"crowdfund/internal/viewstate"
)

// ProfileGet serves the account-scoped listing. "me" resolves to the
// connected account.
func (a *App) ProfileGet(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "account")
	if raw == "me" {
		raw = a.Ledger.Status(r.Context()).Account
		if raw == "" {
			a.fail(w, r, domain.Unavailable("profile", "no account connected"))
			return
		}
	}
	account, ok := ledger.CanonicalAddress(raw)
	if !ok {
		a.fail(w, r, domain.NewValidationError("profile", domain.FieldError{Field: "account", Code: domain.CodeAccountInvalid}))
		return
	}
	a.listing(w, r, a.Views.ForOwner(account), viewstate.ParseQuery(r.URL.Query()))
}
