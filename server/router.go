/*
[AI GENERATED - GOVERNANCE PROTOCOL]
──────────────────────────────────────────────────────────────
Model:       Claude Opus 4.6
Tier:        L3
Logic:       Full API router with middleware chain:
             CORS → Security Headers → Request ID → Recoverer
             → Request Logger → Body Size Limit.
             Routes: brief, events, laws, crawl trigger/status,
             notifications, analytics, health, metrics.
Root Cause:  Sprint task T230 — API surface.
Context:     Router design affects all downstream handlers.
Suitability: L3 model for proper middleware chain design.
──────────────────────────────────────────────────────────────
*/

package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/jnyross/regintel/caching"
	"github.com/jnyross/regintel/config"
	"github.com/jnyross/regintel/observability"
	"github.com/jnyross/regintel/pipeline"
	"github.com/jnyross/regintel/store"
)

// NewRouter returns a configured chi Router with the full middleware chain
// and all API routes mounted. cache and metrics may be nil in tests.
func NewRouter(cfg *config.Config, appLogger zerolog.Logger, st *store.Store,
	coord *pipeline.Coordinator, cache *caching.Engine, metrics *observability.Metrics) http.Handler {
	r := chi.NewRouter()

	// --- Middleware chain (order matters) ---
	r.Use(corsMiddleware([]string{"*"}))
	r.Use(securityHeadersMiddleware)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(appLogger))
	r.Use(maxBodySize(cfg.MaxBodyBytes))

	h := newHandlers(cfg, appLogger, st, coord, cache)

	// --- Health endpoints ---
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"regintel"}`))
	})
	r.Get("/ready", h.Ready)

	if metrics != nil {
		r.Handle("/metrics", metrics.Handler())
	}

	// --- API routes ---
	r.Route("/api", func(r chi.Router) {
		r.Get("/brief", h.Brief)

		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.ListEvents)
			r.Get("/{id}", h.EventDetail)
			r.Patch("/{id}", h.EditEvent)
			r.Post("/{id}/feedback", h.AddFeedback)
		})

		r.Route("/laws", func(r chi.Router) {
			r.Get("/", h.ListLaws)
			r.Post("/rebuild", h.RebuildLaws)
			r.Get("/{lawKey}", h.LawDetail)
		})

		r.Route("/crawl", func(r chi.Router) {
			r.Post("/", h.StartCrawl)
			r.Get("/status", h.CrawlStatus)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.ListNotifications)
			r.Post("/{id}/read", h.MarkNotificationRead)
		})

		r.Get("/analytics/summary", h.AnalyticsSummary)
	})

	return r
}
