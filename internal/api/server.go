// Package api wires the chi router for the admin and health HTTP surface.
package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/kanamidev/gachatimer/internal/api/handler"
	"github.com/kanamidev/gachatimer/internal/config"
	"github.com/kanamidev/gachatimer/internal/db"
	"github.com/kanamidev/gachatimer/internal/event"
	"github.com/kanamidev/gachatimer/internal/game"
	"github.com/kanamidev/gachatimer/internal/notify"
)

// NewRouter creates and configures the chi router with all middleware and
// routes.
func NewRouter(pool *db.Pool, games *game.Registry, events *event.Store, notifs notify.Store, reconciler *notify.Reconciler, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type"},
		ExposedHeaders:   []string{"X-Process-Time"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(pool, games, events, notifs, reconciler, logger)

	// --- Routes ---

	r.Get("/", h.Root)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
	})

	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/notifications", h.ListNotifications)
		r.Delete("/notifications", h.ClearNotifications)
		r.Get("/notifications/pending/count", h.PendingCount)
		r.Post("/reconcile", h.Reconcile)
		r.Get("/events/key/{key}", h.GetEventByKey)
		r.Get("/events/{profile}", h.ListEvents)
	})

	return r
}
