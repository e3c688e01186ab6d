package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"crowdfund/internal/http/handlers"
	"crowdfund/internal/infra"
	"crowdfund/internal/middleware"
)

// RouterOptions carries the middleware settings.
type RouterOptions struct {
	JWTSecret       string
	CORSOrigins     []string
	RateLimitPerMin int
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	Logger          infra.Logger
}

func NewRouter(app *handlers.App, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
		middleware.RateLimit(opts.RateLimitPerMin, time.Minute),
	)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)
		r.Get("/status", app.Status)
		r.Get("/openapi.json", app.OpenAPIJSON)
		r.Get("/docs", app.OpenAPIDocs)

		r.Get("/campaigns", app.CampaignsList)
		r.Get("/campaigns/{pid}", app.CampaignGet)
		r.Post("/campaigns/fee-estimate", app.FeeEstimate)
		r.Get("/profiles/{account}", app.ProfileGet)
		r.Get("/drafts", app.DraftGet)

		// Mutations sign with the server wallet and require an operator token.
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthJWT(opts.JWTSecret))
			r.Post("/campaigns", app.CampaignCreate)
			r.Delete("/campaigns/{pid}", app.CampaignDelete)
			r.Post("/campaigns/{pid}/donations", app.CampaignDonate)
			r.Put("/drafts", app.DraftPut)
			r.Delete("/drafts", app.DraftDelete)
			r.Post("/drafts/submit", app.DraftSubmit)
			r.Post("/network/switch", app.NetworkSwitch)
		})
	})

	return r
}
