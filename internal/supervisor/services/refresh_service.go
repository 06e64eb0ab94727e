// Cinematch - Content-Based Movie Recommendation Service
// Copyright 2026 Cinematch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinematch/cinematch

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinematch/cinematch/internal/metrics"
	"github.com/cinematch/cinematch/internal/recommend"
)

// ModelEngine defines the engine operations the refresh service drives.
// Declared here so the service does not depend on the concrete engine.
type ModelEngine interface {
	// Initialize restores a persisted model or builds a fresh one.
	Initialize(ctx context.Context) error

	// RefreshModel rebuilds the similarity model from current data.
	RefreshModel(ctx context.Context) error

	// Stats reports the engine's current state.
	Stats() recommend.EngineStats
}

// RefreshServiceConfig holds configuration for the model refresh service.
type RefreshServiceConfig struct {
	// BuildOnStartup initializes the model when the service starts.
	BuildOnStartup bool

	// RefreshInterval is how often to rebuild the similarity model.
	RefreshInterval time.Duration
}

// RefreshService wraps the recommendation engine for Suture supervision.
// It initializes the model on startup and rebuilds it on a schedule so the
// model tracks new ratings without manual refresh calls.
type RefreshService struct {
	engine ModelEngine
	config RefreshServiceConfig
	logger zerolog.Logger
	name   string
}

// NewRefreshService creates a new model refresh service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRefreshService(engine ModelEngine, cfg RefreshServiceConfig, logger zerolog.Logger) *RefreshService {
	return &RefreshService{
		engine: engine,
		config: cfg,
		logger: logger.With().Str("service", "refresh").Logger(),
		name:   "model-refresh-service",
	}
}

// Serve implements the suture.Service interface.
// It manages the build lifecycle for the recommendation engine.
func (s *RefreshService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("build_on_startup", s.config.BuildOnStartup).
		Dur("refresh_interval", s.config.RefreshInterval).
		Msg("model refresh service starting")

	if s.config.BuildOnStartup {
		s.logger.Info().Msg("initializing model on startup")
		if err := s.initialize(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("initial model build failed (will retry on schedule)")
		}
	}

	if s.config.RefreshInterval <= 0 {
		s.config.RefreshInterval = 6 * time.Hour
	}

	ticker := time.NewTicker(s.config.RefreshInterval)
	defer ticker.Stop()

	s.logger.Info().Msg("model refresh service running")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("model refresh service shutting down")
			return ctx.Err()

		case <-ticker.C:
			s.logger.Debug().Msg("scheduled model refresh triggered")
			if err := s.refresh(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("scheduled model refresh failed")
			}
		}
	}
}

// initialize restores or builds the model, recording build metrics.
func (s *RefreshService) initialize(ctx context.Context) error {
	start := time.Now()
	err := s.engine.Initialize(ctx)
	s.observe(start, err)
	return err
}

// refresh performs one rebuild cycle.
func (s *RefreshService) refresh(ctx context.Context) error {
	start := time.Now()
	s.logger.Info().Msg("starting model rebuild")

	err := s.engine.RefreshModel(ctx)
	s.observe(start, err)
	if err != nil {
		// A concurrent build (e.g. via the refresh endpoint) already
		// covers this cycle.
		if errors.Is(err, recommend.ErrBuildInProgress) {
			s.logger.Debug().Msg("rebuild already in progress, skipping cycle")
			return nil
		}
		return err
	}

	stats := s.engine.Stats()
	s.logger.Info().
		Dur("duration", time.Since(start)).
		Int("model_version", stats.ModelVersion).
		Int("indexed_items", stats.IndexedItems).
		Msg("model rebuild complete")

	return nil
}

// observe records build metrics for one attempt.
func (s *RefreshService) observe(start time.Time, err error) {
	metrics.ModelBuildDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.ModelBuilds.WithLabelValues("success").Inc()
		stats := s.engine.Stats()
		metrics.ModelVersion.Set(float64(stats.ModelVersion))
		metrics.ModelIndexedItems.Set(float64(stats.IndexedItems))
	case errors.Is(err, recommend.ErrBuildInProgress):
		metrics.ModelBuilds.WithLabelValues("busy").Inc()
	case errors.Is(err, recommend.ErrInsufficientTrainingData):
		metrics.ModelBuilds.WithLabelValues("insufficient_data").Inc()
	default:
		metrics.ModelBuilds.WithLabelValues("error").Inc()
	}
}

// String returns the service name for logging.
func (s *RefreshService) String() string {
	return s.name
}
