// Cinematch - Content-Based Movie Recommendation Service
// Copyright 2026 Cinematch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinematch/cinematch

// Package metrics provides Prometheus instrumentation for:
//   - API endpoint latency and throughput
//   - Recommendation serving latency and result sizes
//   - Model build duration, outcomes, and corpus size
//   - Catalog (TMDB) request outcomes and cache efficiency
//   - History store query performance
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinematch_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Recommendation metrics
	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cinematch_recommendation_duration_seconds",
			Help:    "Duration of recommendation requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecommendationResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cinematch_recommendation_results",
			Help:    "Number of items returned per recommendation request",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	RecommendationsEmpty = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_recommendations_empty_total",
			Help: "Recommendation requests that returned an empty list, by reason",
		},
		[]string{"reason"}, // "no_model", "no_history", "anchor_not_indexed", "exhausted"
	)

	// Model build metrics
	ModelBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cinematch_model_build_duration_seconds",
			Help:    "Duration of similarity model builds in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	ModelBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_model_builds_total",
			Help: "Total model build attempts by outcome",
		},
		[]string{"outcome"}, // "success", "insufficient_data", "error", "busy"
	)

	ModelIndexedItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cinematch_model_indexed_items",
			Help: "Number of items indexed by the current similarity model",
		},
	)

	ModelVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cinematch_model_version",
			Help: "Version of the currently serving similarity model",
		},
	)

	// Catalog metrics
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_catalog_requests_total",
			Help: "TMDB API requests by operation and outcome",
		},
		[]string{"operation", "outcome"}, // outcome: "ok", "not_found", "error"
	)

	CatalogCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinematch_catalog_cache_hits_total",
			Help: "Catalog metadata cache hits",
		},
	)

	CatalogCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinematch_catalog_cache_misses_total",
			Help: "Catalog metadata cache misses",
		},
	)

	// Store metrics
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinematch_store_query_duration_seconds",
			Help:    "Duration of history store queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_store_query_errors_total",
			Help: "History store query errors by operation",
		},
		[]string{"operation"},
	)
)

// ObserveHTTPRequest records a completed HTTP request.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// ObserveStoreQuery records a history store query and its outcome.
func ObserveStoreQuery(operation string, duration time.Duration, err error) {
	StoreQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		StoreQueryErrors.WithLabelValues(operation).Inc()
	}
}
