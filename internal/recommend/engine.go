// Cinematch - Content-Based Movie Recommendation Service
// Copyright 2026 Cinematch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinematch/cinematch

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Engine coordinates model building and recommendation serving. It is safe
// for concurrent use: serving reads load the current model through an
// atomic pointer, and at most one build runs at a time.
type Engine struct {
	config Config
	logger zerolog.Logger

	catalog CatalogProvider
	history HistoryProvider
	store   ModelStore

	// Current model. Nil until the first successful build or load.
	model atomic.Pointer[SimilarityModel]

	// buildMu serializes builds. TryLock turns concurrent refresh
	// requests into ErrBuildInProgress instead of queueing them.
	buildMu  sync.Mutex
	building atomic.Bool

	stateMu      sync.RWMutex
	lastBuiltAt  time.Time
	lastBuildErr error

	requestCount atomic.Int64
	emptyCount   atomic.Int64
}

// Recommendation pairs a resolved movie with its similarity score.
type Recommendation struct {
	Item  Item    `json:"item"`
	Score float64 `json:"score"`
}

// EngineStats is a point-in-time snapshot of engine state for status
// reporting.
type EngineStats struct {
	Status         string    `json:"status"`
	ModelVersion   int       `json:"model_version"`
	ModelBuildID   string    `json:"model_build_id,omitempty"`
	IndexedItems   int       `json:"indexed_items"`
	LastBuiltAt    time.Time `json:"last_built_at"`
	LastBuildError string    `json:"last_build_error,omitempty"`
	Requests       int64     `json:"requests"`
	EmptyResponses int64     `json:"empty_responses"`
}

// NewEngine creates an engine with the given providers. Zero config values
// fall back to defaults.
func NewEngine(cfg Config, catalog CatalogProvider, history HistoryProvider, logger zerolog.Logger) *Engine {
	cfg.applyDefaults()
	return &Engine{
		config:  cfg,
		logger:  logger.With().Str("component", "engine").Logger(),
		catalog: catalog,
		history: history,
	}
}

// SetModelStore enables model persistence. When set, successful builds are
// saved and Initialize tries loading before building.
func (e *Engine) SetModelStore(store ModelStore) {
	e.store = store
}

// Initialize prepares the engine for serving. A persisted model is loaded
// when available, otherwise a fresh build runs. A failed initial build
// leaves the engine degraded but serving; the scheduler retries later.
func (e *Engine) Initialize(ctx context.Context) error {
	if e.store != nil {
		if model, err := e.store.LoadLatest(); err == nil {
			e.model.Store(model)
			e.stateMu.Lock()
			e.lastBuiltAt = model.BuiltAt
			e.stateMu.Unlock()
			e.logger.Info().
				Int("model_version", model.Version).
				Int("indexed_items", model.Size()).
				Time("built_at", model.BuiltAt).
				Msg("loaded persisted model")
			return nil
		} else if !errors.Is(err, ErrNoPersistedModel) {
			e.logger.Warn().Err(err).Msg("persisted model rejected, rebuilding")
		}
	}
	return e.RefreshModel(ctx)
}

// RefreshModel builds a new similarity model from the current catalog and
// history, then swaps it in atomically. In-flight requests keep the model
// they already loaded. Returns ErrBuildInProgress when another build is
// running; on any build failure the previous model, if any, stays in
// service.
func (e *Engine) RefreshModel(ctx context.Context) error {
	if !e.buildMu.TryLock() {
		return ErrBuildInProgress
	}
	defer e.buildMu.Unlock()

	e.building.Store(true)
	defer e.building.Store(false)

	buildCtx, cancel := context.WithTimeout(ctx, e.config.BuildTimeout)
	defer cancel()

	start := time.Now()
	version := 1
	if prev := e.model.Load(); prev != nil {
		version = prev.Version + 1
	}

	model, err := e.buildModel(buildCtx, version)

	e.stateMu.Lock()
	e.lastBuildErr = err
	if err == nil {
		e.lastBuiltAt = model.BuiltAt
	}
	e.stateMu.Unlock()

	if err != nil {
		e.logger.Error().Err(err).
			Dur("elapsed", time.Since(start)).
			Msg("model build failed")
		return err
	}

	e.model.Store(model)
	e.logger.Info().
		Int("model_version", model.Version).
		Str("build_id", model.BuildID).
		Int("indexed_items", model.Size()).
		Dur("elapsed", time.Since(start)).
		Msg("model build complete")

	if e.store != nil {
		if err := e.store.Save(model); err != nil {
			// Persistence is best effort; the in-memory model serves.
			e.logger.Warn().Err(err).Msg("model persistence failed")
		}
	}
	return nil
}

// buildModel assembles the training corpus, resolves metadata, and computes
// the similarity matrix.
func (e *Engine) buildModel(ctx context.Context, version int) (*SimilarityModel, error) {
	corpus, err := e.history.TrainingCorpus(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: training corpus: %v", ErrHistoryUnavailable, err)
	}

	ids, docs := e.resolveCorpus(ctx, corpus)
	if len(ids) < e.config.MinCorpusSize {
		return nil, fmt.Errorf("%w: %d valid movies, need %d",
			ErrInsufficientTrainingData, len(ids), e.config.MinCorpusSize)
	}

	return newSimilarityModel(ctx, ids, docs, version)
}

// resolveCorpus fetches metadata for each corpus id and produces the
// parallel id and feature document slices. Ids that fail to resolve are
// dropped; a partial corpus is still usable.
func (e *Engine) resolveCorpus(ctx context.Context, corpus []int) ([]int, []string) {
	ids := make([]int, 0, len(corpus))
	docs := make([]string, 0, len(corpus))
	dropped := 0
	for _, id := range corpus {
		if ctx.Err() != nil {
			break
		}
		item, err := e.catalog.GetItem(ctx, id)
		if err != nil {
			dropped++
			e.logger.Debug().Err(err).Int("movie_id", id).Msg("corpus movie unresolved")
			continue
		}
		ids = append(ids, item.ID)
		docs = append(docs, FeatureDocument(item, e.config.OverviewLimit))
	}
	if dropped > 0 {
		e.logger.Warn().
			Int("dropped", dropped).
			Int("resolved", len(ids)).
			Msg("some corpus movies could not be resolved")
	}
	return ids, docs
}

// GetRecommendations returns up to n movies similar to the user's anchor,
// the highest-rated movie in their history with the most recent rating
// breaking ties. Every movie the user has already rated is excluded. An
// empty slice with a nil error means there is nothing to recommend: no
// model yet, no history, or an anchor the model does not index.
func (e *Engine) GetRecommendations(ctx context.Context, userID, n int) ([]Recommendation, error) {
	e.requestCount.Add(1)
	n = e.clampN(n)

	logger := e.logger.With().Int("user_id", userID).Logger()

	model := e.model.Load()
	if model == nil {
		logger.Debug().Msg("no model available")
		return e.empty(), nil
	}

	history, err := e.history.GetHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: user %d: %v", ErrHistoryUnavailable, userID, err)
	}
	if len(history) == 0 {
		logger.Debug().Msg("user has no rating history")
		return e.empty(), nil
	}

	anchor := selectAnchor(history)
	exclude := make(map[int]struct{}, len(history))
	for _, ev := range history {
		exclude[ev.MovieID] = struct{}{}
	}

	neighbors, err := model.NeighborsOf(anchor.MovieID, exclude, n)
	if err != nil {
		if errors.Is(err, ErrItemNotIndexed) {
			logger.Debug().Int("anchor_id", anchor.MovieID).Msg("anchor not indexed")
			return e.empty(), nil
		}
		return nil, err
	}

	recs := e.resolveNeighbors(ctx, neighbors, logger)
	if len(recs) == 0 {
		e.emptyCount.Add(1)
	}
	logger.Debug().
		Int("anchor_id", anchor.MovieID).
		Int("model_version", model.Version).
		Int("results", len(recs)).
		Msg("recommendations served")
	return recs, nil
}

// resolveNeighbors fetches metadata for each neighbour, dropping any that
// fail to resolve.
func (e *Engine) resolveNeighbors(ctx context.Context, neighbors []Neighbor, logger zerolog.Logger) []Recommendation {
	recs := make([]Recommendation, 0, len(neighbors))
	for _, nb := range neighbors {
		item, err := e.catalog.GetItem(ctx, nb.MovieID)
		if err != nil {
			logger.Warn().Err(err).Int("movie_id", nb.MovieID).Msg("recommendation unresolved, dropping")
			continue
		}
		recs = append(recs, Recommendation{Item: *item, Score: nb.Score})
	}
	return recs
}

// RecordRating stores or updates a user's rating. The similarity model is
// unaffected until the next scheduled rebuild.
func (e *Engine) RecordRating(ctx context.Context, userID, movieID int, rating float64) error {
	if err := e.history.UpsertRating(ctx, userID, movieID, rating); err != nil {
		return fmt.Errorf("%w: record rating: %v", ErrHistoryUnavailable, err)
	}
	return nil
}

// Status returns the current lifecycle state.
func (e *Engine) Status() Status {
	if e.model.Load() != nil {
		return StatusReady
	}
	if e.building.Load() {
		return StatusBuilding
	}
	e.stateMu.RLock()
	failed := e.lastBuildErr != nil
	e.stateMu.RUnlock()
	if failed {
		return StatusDegraded
	}
	return StatusUninitialized
}

// Model returns the current model snapshot, or nil before the first build.
func (e *Engine) Model() *SimilarityModel {
	return e.model.Load()
}

// Stats returns a snapshot of engine state for the status endpoint.
func (e *Engine) Stats() EngineStats {
	stats := EngineStats{
		Status:         e.Status().String(),
		Requests:       e.requestCount.Load(),
		EmptyResponses: e.emptyCount.Load(),
	}
	if model := e.model.Load(); model != nil {
		stats.ModelVersion = model.Version
		stats.ModelBuildID = model.BuildID
		stats.IndexedItems = model.Size()
	}
	e.stateMu.RLock()
	stats.LastBuiltAt = e.lastBuiltAt
	if e.lastBuildErr != nil {
		stats.LastBuildError = e.lastBuildErr.Error()
	}
	e.stateMu.RUnlock()
	return stats
}

// selectAnchor picks the highest-rated event; among equal ratings the most
// recently rated wins.
func selectAnchor(history []RatingEvent) RatingEvent {
	anchor := history[0]
	for _, ev := range history[1:] {
		if ev.Rating > anchor.Rating ||
			(ev.Rating == anchor.Rating && ev.RatedAt.After(anchor.RatedAt)) {
			anchor = ev
		}
	}
	return anchor
}

func (e *Engine) clampN(n int) int {
	if n <= 0 {
		return e.config.DefaultN
	}
	if n > e.config.MaxN {
		return e.config.MaxN
	}
	return n
}

func (e *Engine) empty() []Recommendation {
	e.emptyCount.Add(1)
	return []Recommendation{}
}
