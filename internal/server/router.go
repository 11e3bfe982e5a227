package server

import (
	"net/http"

	"github.com/cloo-solutions/docrag/internal/api/handlers"
	"github.com/cloo-solutions/docrag/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

const (
	maxJSONBodyBytes int64 = 1 << 20
	// multipartOverhead covers boundaries and form fields around the uploaded file.
	multipartOverhead int64 = 64 << 10
)

// Per-client requests per minute.
const (
	healthPerMinute = 100
	uploadPerMinute = 10
	readPerMinute   = 30
	deletePerMinute = 20
	queryPerMinute  = 20
)

type RouterConfig struct {
	// AuthValidator guards every route except /health. Nil disables authentication.
	AuthValidator middleware.AuthValidator
	// RateLimiter applies per-route budgets. Nil disables rate limiting.
	RateLimiter     *middleware.RateLimiter
	MaxUploadBytes  int64
	HealthHandler   *handlers.HealthHandler
	DocumentHandler *handlers.DocumentHandler
	QueryHandler    *handlers.QueryHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	limit := cfg.RateLimiter.Limit

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)

	r.With(limit("health", healthPerMinute)).Get("/health", cfg.HealthHandler.Health)

	r.Group(func(r chi.Router) {
		if cfg.AuthValidator != nil {
			r.Use(middleware.APIKeyAuth(cfg.AuthValidator))
		}

		r.With(limit("stats", readPerMinute)).Get("/stats", cfg.DocumentHandler.Stats)

		r.Route("/documents", func(r chi.Router) {
			r.With(
				limit("upload", uploadPerMinute),
				middleware.MaxBodyBytes(cfg.MaxUploadBytes+multipartOverhead),
			).Post("/", cfg.DocumentHandler.Create)
			r.With(limit("delete", deletePerMinute)).Delete("/{id}", cfg.DocumentHandler.Delete)

			r.Group(func(r chi.Router) {
				r.Use(limit("documents", readPerMinute))
				r.Get("/", cfg.DocumentHandler.List)
				r.Get("/{id}", cfg.DocumentHandler.Get)
				r.Get("/{id}/chunks", cfg.DocumentHandler.Chunks)
				r.Get("/{id}/decision", cfg.DocumentHandler.Decision)
				r.Get("/{id}/source", cfg.DocumentHandler.Source)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(limit("query", queryPerMinute))
			r.Use(middleware.MaxBodyBytes(maxJSONBodyBytes))
			r.Post("/search", cfg.QueryHandler.Search)
			r.Post("/query", cfg.QueryHandler.Query)
		})
	})

	return r
}
