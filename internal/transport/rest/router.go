package rest

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/drastik/donation-gateway/internal/contribution"
	"github.com/drastik/donation-gateway/internal/transport/middleware"
)

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, contributionHandler *contribution.Handler, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if contributionHandler != nil {
			r.Post("/contributions", contributionHandler.Create)
		}
	})
}
