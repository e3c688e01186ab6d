package handlers

import (
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status reports the connection state. A session that cannot reach the
// ledger is still a 200; Ready carries the verdict.
func (a *App) Status(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, a.Ledger.Status(r.Context()))
}

// NetworkSwitch moves the session to the configured network.
func (a *App) NetworkSwitch(w http.ResponseWriter, r *http.Request) {
	if err := a.Ledger.SwitchNetwork(r.Context()); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, a.Ledger.Status(r.Context()))
}
