package transporthttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Router wires every route and its middleware stack.
func (d *ServerDeps) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Recover(d.Log))
	r.Use(AccessLog(d.Log))

	r.Get("/healthz", d.HandleHealthz)
	r.Get("/readyz", d.HandleReadyz)

	r.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(d.Cfg.APIKeys))
		r.Use(RequireJSON)
		r.Use(BodyLimit(d.Cfg.MaxBodyBytes))

		r.Post("/transactions", d.HandlePostTransaction)
		r.Post("/transactions/bulk", d.HandlePostTransactionsBulk)
		r.Post("/attribution/classify", d.HandleClassify)
	})

	r.Route("/metrics", func(r chi.Router) {
		r.Use(APIKeyAuth(d.Cfg.APIKeys))
		r.Use(RateLimitPerMinute(d.Cfg.RateLimitMetricsPerMin, d.Now))

		r.Get("/", d.HandleGetMetrics)
		r.Get("/attribution", d.HandleAttribution)
		r.Get("/heatmap", d.HandleHeatmap)
	})

	return r
}
