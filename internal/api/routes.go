package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"insider-watch/config"
)

// NewRouter creates and configures a Chi router with all routes. live serves
// the websocket stream and may be nil.
func NewRouter(h *Handler, live http.Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(CORSMiddleware(cfg.HTTP.CORSAllowedOrigins))
	r.Use(SecurityHeaders)
	r.Use(MetricsMiddleware)

	// Long-lived; no request timeout
	if live != nil {
		r.Handle("/ws/insider-trades", live)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout()))

		// Metrics endpoint for Prometheus
		r.Handle("/metrics", promhttp.Handler())

		r.Route("/api", func(r chi.Router) {
			r.Get("/health", h.HandleHealth)

			r.Get("/insider-trades", h.HandleGetInsiderTrades)
			r.Get("/insider-trades/meta", h.HandleGetInsiderTradesMeta)

			r.Get("/tiingo", h.HandleGetPrices)
			r.Get("/polygon-financials", h.HandleGetFinancials)

			r.Get("/analysis", h.HandleGetAnalysis)
			r.Get("/detail", h.HandleGetDetail)
		})

		// Dashboard assets
		r.Get("/", h.HandleIndex)
		r.Get("/index.html", h.HandleIndex)
		r.Handle("/static/*", h.StaticHandler())
	})

	return r
}
