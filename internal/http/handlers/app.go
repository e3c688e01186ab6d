package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"crowdfund/internal/drafts"
	"crowdfund/internal/i18n"
	"crowdfund/internal/infra"
	"crowdfund/internal/ledger"
	"crowdfund/internal/viewstate"
)

// App carries the dependencies shared by every handler.
type App struct {
	Ledger  *ledger.Gateway
	Views   *viewstate.Registry
	Drafts  *drafts.Autosaver
	Catalog *i18n.Catalog
	Logger  *infra.Logger
	// Location interprets draft deadlines entered without a zone.
	Location *time.Location
}

// Options configures NewApp.
type Options struct {
	Ledger   *ledger.Gateway
	Views    *viewstate.Registry
	Drafts   *drafts.Autosaver
	Catalog  *i18n.Catalog
	Logger   *infra.Logger
	Location *time.Location
}

// NewApp validates opts and fills defaults.
func NewApp(opts Options) (*App, error) {
	if opts.Ledger == nil {
		return nil, errors.New("handlers: ledger gateway is required")
	}
	if opts.Views == nil {
		return nil, errors.New("handlers: view registry is required")
	}
	if opts.Drafts == nil {
		return nil, errors.New("handlers: draft autosaver is required")
	}
	catalog := opts.Catalog
	if catalog == nil {
		catalog = i18n.NewCatalog()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &App{
		Ledger:   opts.Ledger,
		Views:    opts.Views,
		Drafts:   opts.Drafts,
		Catalog:  catalog,
		Logger:   logger,
		Location: loc,
	}, nil
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// refreshViews reloads every loaded view after a mutation settles. Failures
// leave the previous working set in place.
func (a *App) refreshViews(ctx context.Context, owners ...string) {
	stores := []*viewstate.Store{a.Views.All()}
	for _, o := range owners {
		if s, ok := a.Views.Lookup(o); ok && o != "" {
			stores = append(stores, s)
		}
	}
	for _, s := range stores {
		if !s.Loaded() {
			continue
		}
		if err := s.Refresh(ctx); err != nil {
			a.Logger.Warn().Err(err).Str("owner", s.Owner()).Msg("refresh after mutation failed")
		}
	}
}
