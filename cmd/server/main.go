// Cinematch - Content-Based Movie Recommendation Service
// Copyright 2026 Cinematch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinematch/cinematch

// Package main is the entry point for the Cinematch server.
//
// Cinematch is a self-hosted content-based movie recommendation service. It
// records user ratings, fetches movie metadata from TMDB, builds a TF-IDF
// cosine similarity model over the rated corpus, and serves personalized
// recommendations over a REST API.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: load settings from environment variables and an
//     optional config file (Koanf v2)
//  2. History store: DuckDB database holding user rating events
//  3. Catalog: TMDB client with rate limiting and circuit breaking, backed
//     by a Badger metadata cache
//  4. Model storage: persisted similarity model artifacts (optional)
//  5. Recommendation engine: TF-IDF similarity model with atomic swap
//  6. HTTP server: REST API with Prometheus metrics
//
// Components run under a Suture supervision tree with two layers: the API
// layer holds the HTTP server and the background layer holds the model
// refresh scheduler, so a failed rebuild cycle never takes down serving.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (CINEMATCH_ prefix, e.g. CINEMATCH_SERVER_PORT)
//   - Config file (config.yaml)
//   - Built-in defaults
//
// A TMDB API key is required:
//
//	export CINEMATCH_CATALOG_API_KEY=your-tmdb-api-key
//	./cinematch
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops accepting
// new connections, waits for in-flight requests, persists nothing beyond the
// already-saved model artifacts, and closes the store and catalog cache.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cinematch/cinematch/internal/api"
	"github.com/cinematch/cinematch/internal/catalog"
	"github.com/cinematch/cinematch/internal/config"
	"github.com/cinematch/cinematch/internal/logging"
	"github.com/cinematch/cinematch/internal/recommend"
	"github.com/cinematch/cinematch/internal/recommend/storage"
	"github.com/cinematch/cinematch/internal/store"
	"github.com/cinematch/cinematch/internal/supervisor"
	"github.com/cinematch/cinematch/internal/supervisor/services"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("model_path", cfg.Recommend.ModelPath).
		Bool("build_on_startup", cfg.Recommend.BuildOnStartup).
		Msg("Starting Cinematch")

	if cfg.Catalog.APIKey == "" {
		logging.Warn().Msg("No TMDB API key configured (CINEMATCH_CATALOG_API_KEY); catalog requests will fail")
	}

	// Ratings history store (DuckDB)
	historyStore, err := store.New(&cfg.Database, logging.Logger())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize history store")
	}
	defer func() {
		if err := historyStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing history store")
		}
	}()
	logging.Info().Msg("History store initialized")

	// Movie catalog: TMDB client behind a Badger metadata cache
	cache, err := catalog.NewCache(cfg.Catalog.CachePath, cfg.Catalog.CacheTTL, logging.Logger())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open catalog cache")
	}
	client := catalog.NewClient(&cfg.Catalog, logging.Logger())
	catalogSvc := catalog.NewService(client, cache, logging.Logger())
	defer func() {
		if err := catalogSvc.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing catalog cache")
		}
	}()
	logging.Info().
		Str("base_url", cfg.Catalog.BaseURL).
		Str("cache_path", cfg.Catalog.CachePath).
		Msg("Catalog initialized")

	// Recommendation engine
	engine := recommend.NewEngine(recommend.Config{
		MinCorpusSize: cfg.Recommend.MinCorpusSize,
		OverviewLimit: cfg.Recommend.OverviewLimit,
		DefaultN:      cfg.Recommend.DefaultN,
		MaxN:          cfg.Recommend.MaxN,
		BuildTimeout:  cfg.Recommend.BuildTimeout,
	}, catalogSvc, historyStore, logging.Logger())

	// Model persistence (optional)
	if cfg.Recommend.ModelPath != "" {
		modelStore, err := storage.NewStore(cfg.Recommend.ModelPath, cfg.Recommend.KeepModelVersions, logging.Logger())
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open model storage")
		}
		engine.SetModelStore(modelStore)
		logging.Info().
			Str("path", cfg.Recommend.ModelPath).
			Int("keep_versions", cfg.Recommend.KeepModelVersions).
			Msg("Model persistence enabled")
	} else {
		logging.Info().Msg("Model persistence disabled; model is rebuilt on every start")
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Supervisor tree; the slog adapter routes suture events into zerolog
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	// HTTP server
	handler := api.NewHandler(engine, catalogSvc, historyStore)
	router := api.NewRouter(handler, &cfg.Server)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Timeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	tree.AddBackgroundService(services.NewRefreshService(engine, services.RefreshServiceConfig{
		BuildOnStartup:  cfg.Recommend.BuildOnStartup,
		RefreshInterval: cfg.Recommend.RefreshInterval,
	}, logging.Logger()))
	logging.Info().
		Dur("refresh_interval", cfg.Recommend.RefreshInterval).
		Msg("Model refresh service added")

	// Signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor closes the channel
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
