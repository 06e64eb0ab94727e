// Cinematch - Content-Based Movie Recommendation Service
// Copyright 2026 Cinematch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinematch/cinematch

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cinematch/cinematch/internal/config"
)

// Router builds the HTTP handler tree.
type Router struct {
	handler *Handler
	cfg     *config.ServerConfig
}

// NewRouter creates a router around the handler set.
func NewRouter(handler *Handler, cfg *config.ServerConfig) *Router {
	return &Router{handler: handler, cfg: cfg}
}

// Setup wires middleware and routes and returns the root handler.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger())
	r.Use(chimiddleware.Recoverer)

	if len(rt.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	// Health and metrics sit outside the per-IP rate limit so monitoring
	// never gets throttled.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/", rt.handler.Health)
		r.Get("/ready", rt.handler.HealthReady)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		limit, window := rt.cfg.RateLimitReqs, rt.cfg.RateLimitWindow
		if limit <= 0 {
			limit = 100
		}
		if window <= 0 {
			window = time.Minute
		}
		r.Use(httprate.LimitByIP(limit, window))
		r.Use(prometheusMetrics())

		r.Route("/recommendations", func(r chi.Router) {
			r.Get("/user/{userID}", rt.handler.GetRecommendations)
			r.Post("/refresh", rt.handler.RefreshModel)
			r.Get("/status", rt.handler.ModelStatus)
		})
		r.Post("/ratings", rt.handler.RecordRating)
		r.Route("/movies", func(r chi.Router) {
			r.Get("/search", rt.handler.SearchMovies)
			r.Get("/{movieID}", rt.handler.GetMovie)
		})
	})

	return r
}
