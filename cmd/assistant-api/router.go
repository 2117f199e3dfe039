// Package main provides the API router setup.
package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/supportdesk/qa-assistant/cmd/assistant-api/handlers"
	"github.com/supportdesk/qa-assistant/cmd/assistant-api/middleware"
	"github.com/supportdesk/qa-assistant/internal/api/grpc"
	"github.com/supportdesk/qa-assistant/internal/app"
	"github.com/supportdesk/qa-assistant/internal/observability"
)

// NewRouter creates the main API router with all routes configured.
func NewRouter(logger *observability.Logger, a *app.App) http.Handler {
	timeout := a.Config.Server.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	origins := a.Config.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.TraceID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(origins))
	r.Use(chimiddleware.Timeout(timeout))

	h := handlers.NewAssistantHandler(logger, a.Service, a.Config.Assistant.Variant, a.Ready, a.Reload)

	routes := func(r chi.Router) {
		r.Get("/", h.Home)
		r.Post("/chat", h.Chat)
		r.Post("/feedback", h.Feedback)
		r.Get("/stats", h.Stats)
		r.Get("/learning_stats", h.LearningStats)
		r.Get("/health", h.Health)
		r.Get("/ready", h.Ready)
	}

	routes(r)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		routes(r)
		r.Post("/reload", h.Reload)
	})

	// Connect RPC
	path, rpc := grpc.NewAssistantService(logger, a.Service).Handler()
	r.Mount(path, rpc)

	return r
}
