package handlers

import (
	"net/http"

	"crowdfund/internal/domain"
)

type draftView struct {
	Draft           *domain.Draft `json:"draft"`
	AutosaveSeconds int           `json:"autosave_seconds"`
}

func (a *App) draftView() draftView {
	v := draftView{AutosaveSeconds: int(a.Drafts.Interval().Seconds())}
	if d := a.Drafts.Current(); !d.IsEmpty() {
		v.Draft = &d
	}
	return v
}

// DraftGet returns the form being edited, or a null draft.
func (a *App) DraftGet(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, a.draftView())
}

// DraftPut replaces the form being edited. It is persisted on the next
// autosave tick, or immediately with ?save=1.
func (a *App) DraftPut(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if err := a.decode(r, &req); err != nil {
		a.error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload")
		return
	}
	a.Drafts.Update(req.draft())
	if r.URL.Query().Get("save") == "1" {
		if _, err := a.Drafts.Flush(r.Context()); err != nil {
			a.Logger.Error().Err(err).Msg("draft save failed")
			a.error(w, r, http.StatusInternalServerError, "DRAFT_SAVE_FAILED", "draft could not be saved")
			return
		}
	}
	a.json(w, http.StatusOK, a.draftView())
}

// DraftDelete discards the form and the stored draft.
func (a *App) DraftDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.Drafts.Discard(r.Context()); err != nil {
		a.Logger.Error().Err(err).Msg("draft discard failed")
		a.error(w, r, http.StatusInternalServerError, "DRAFT_CLEAR_FAILED", "draft could not be cleared")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DraftSubmit creates a campaign from the current draft and clears the draft
// once the transaction settles.
func (a *App) DraftSubmit(w http.ResponseWriter, r *http.Request) {
	d := a.Drafts.Current()
	form, err := d.Form("", a.Location)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.create(w, r, form, a.Drafts.Submitted)
}
