// Cinematch - Content-Based Movie Recommendation Service
// Copyright 2026 Cinematch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinematch/cinematch

// Package api provides HTTP routing and handlers using the Chi router.
//
// All endpoints return the models.APIResponse envelope. Engine errors map
// onto HTTP statuses through their sentinel types: a build already running
// is 409, insufficient training data is 422, and unavailable backing
// services are 503.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/cinematch/cinematch/internal/catalog"
	"github.com/cinematch/cinematch/internal/metrics"
	"github.com/cinematch/cinematch/internal/models"
	"github.com/cinematch/cinematch/internal/recommend"
)

const handlerTimeout = 15 * time.Second

// RecommendationEngine is the engine surface the handlers need.
type RecommendationEngine interface {
	GetRecommendations(ctx context.Context, userID, n int) ([]recommend.Recommendation, error)
	RecordRating(ctx context.Context, userID, movieID int, rating float64) error
	RefreshModel(ctx context.Context) error
	Stats() recommend.EngineStats
	Status() recommend.Status
}

// MovieCatalog is the catalog surface the handlers need.
type MovieCatalog interface {
	GetMovie(ctx context.Context, movieID int) (*catalog.Movie, error)
	SearchMovies(ctx context.Context, query string) ([]catalog.Movie, error)
	BreakerState() string
}

// HistoryStore is the store surface the handlers need.
type HistoryStore interface {
	Stats(ctx context.Context) (users, ratings int, err error)
	Ping(ctx context.Context) error
}

// Handler holds dependencies for all HTTP handlers.
type Handler struct {
	engine  RecommendationEngine
	catalog MovieCatalog
	store   HistoryStore
}

// NewHandler creates the handler set.
func NewHandler(engine RecommendationEngine, cat MovieCatalog, store HistoryStore) *Handler {
	return &Handler{engine: engine, catalog: cat, store: store}
}

// GetRecommendations handles GET /api/v1/recommendations/user/{userID}.
// An empty list is a normal answer, not an error: it means no model, no
// history, or an anchor the model does not cover.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil || userID <= 0 {
		respondError(w, http.StatusBadRequest, "INVALID_USER_ID", "Invalid user ID", err)
		return
	}
	n := intQueryParam(r, "n", 0)

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	recs, err := h.engine.GetRecommendations(ctx, userID, n)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	metrics.RecommendationDuration.Observe(time.Since(start).Seconds())
	metrics.RecommendationResults.Observe(float64(len(recs)))

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"user_id":         userID,
			"recommendations": recs,
			"count":           len(recs),
		},
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// rateRequest is the POST /api/v1/ratings body.
type rateRequest struct {
	UserID  int     `json:"user_id" validate:"required,gt=0"`
	MovieID int     `json:"movie_id" validate:"required,gt=0"`
	Rating  float64 `json:"rating" validate:"gte=0,lte=10"`
}

// RecordRating handles POST /api/v1/ratings. Re-rating a movie updates the
// stored rating and refreshes its timestamp.
func (h *Handler) RecordRating(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondJSON(w, http.StatusBadRequest, &models.APIResponse{
			Status:   "error",
			Metadata: models.Metadata{Timestamp: time.Now()},
			Error:    apiErr,
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	if err := h.engine.RecordRating(ctx, req.UserID, req.MovieID, req.Rating); err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"user_id":  req.UserID,
			"movie_id": req.MovieID,
			"rating":   req.Rating,
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// SearchMovies handles GET /api/v1/movies/search.
func (h *Handler) SearchMovies(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		respondError(w, http.StatusBadRequest, "MISSING_QUERY", "Query parameter q is required", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	results, err := h.catalog.SearchMovies(ctx, query)
	if err != nil {
		respondCatalogError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"query":   query,
			"results": results,
			"count":   len(results),
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// GetMovie handles GET /api/v1/movies/{movieID}.
func (h *Handler) GetMovie(w http.ResponseWriter, r *http.Request) {
	movieID, err := strconv.Atoi(chi.URLParam(r, "movieID"))
	if err != nil || movieID <= 0 {
		respondError(w, http.StatusBadRequest, "INVALID_MOVIE_ID", "Invalid movie ID", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	movie, err := h.catalog.GetMovie(ctx, movieID)
	if err != nil {
		respondCatalogError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     movie,
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// RefreshModel handles POST /api/v1/recommendations/refresh. The build runs
// synchronously; a second refresh while one is running is rejected.
func (h *Handler) RefreshModel(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	err := h.engine.RefreshModel(r.Context())
	observeBuild(start, err)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	stats := h.engine.Stats()
	metrics.ModelVersion.Set(float64(stats.ModelVersion))
	metrics.ModelIndexedItems.Set(float64(stats.IndexedItems))
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   stats,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// ModelStatus handles GET /api/v1/recommendations/status.
func (h *Handler) ModelStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	data := map[string]interface{}{
		"engine":  h.engine.Stats(),
		"catalog": map[string]interface{}{"breaker": h.catalog.BreakerState()},
	}
	if users, ratings, err := h.store.Stats(ctx); err == nil {
		data["store"] = map[string]interface{}{"users": users, "ratings": ratings}
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// Health handles GET /api/v1/health. Liveness only; the process is up.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     map[string]string{"status": "ok"},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// HealthReady handles GET /api/v1/health/ready. Ready means the history
// store answers; the engine may still be building its first model, which
// degrades results but not availability.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "STORE_ERROR", "History store unavailable", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]string{
			"status": "ready",
			"engine": h.engine.Status().String(),
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// respondEngineError maps engine sentinel errors to HTTP statuses.
func respondEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, recommend.ErrBuildInProgress):
		respondError(w, http.StatusConflict, "BUILD_IN_PROGRESS", "A model build is already running", err)
	case errors.Is(err, recommend.ErrInsufficientTrainingData):
		respondError(w, http.StatusUnprocessableEntity, "INSUFFICIENT_TRAINING_DATA", "Not enough rated movies to build a model", err)
	case errors.Is(err, recommend.ErrHistoryUnavailable):
		respondError(w, http.StatusServiceUnavailable, "STORE_ERROR", "History store unavailable", err)
	case errors.Is(err, recommend.ErrCatalogUnavailable):
		respondError(w, http.StatusServiceUnavailable, "CATALOG_UNAVAILABLE", "Movie catalog unavailable", err)
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "TIMEOUT", "Request timed out", err)
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", err)
	}
}

// respondCatalogError maps catalog errors to HTTP statuses.
func respondCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Movie not found", err)
	case errors.Is(err, recommend.ErrCatalogUnavailable):
		respondError(w, http.StatusServiceUnavailable, "CATALOG_UNAVAILABLE", "Movie catalog unavailable", err)
	default:
		respondError(w, http.StatusBadGateway, "EXTERNAL_SERVICE_FAILED", "Catalog request failed", err)
	}
}

// observeBuild records build metrics by outcome.
func observeBuild(start time.Time, err error) {
	switch {
	case err == nil:
		metrics.ModelBuilds.WithLabelValues("success").Inc()
		metrics.ModelBuildDuration.Observe(time.Since(start).Seconds())
	case errors.Is(err, recommend.ErrBuildInProgress):
		metrics.ModelBuilds.WithLabelValues("busy").Inc()
	case errors.Is(err, recommend.ErrInsufficientTrainingData):
		metrics.ModelBuilds.WithLabelValues("insufficient_data").Inc()
	default:
		metrics.ModelBuilds.WithLabelValues("error").Inc()
	}
}
