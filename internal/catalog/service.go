// Cinematch - Content-Based Movie Recommendation Service
// Copyright 2026 Cinematch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinematch/cinematch

package catalog

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/cinematch/cinematch/internal/metrics"
	"github.com/cinematch/cinematch/internal/recommend"
)

// Service combines the TMDB client with the local cache. It implements
// recommend.CatalogProvider.
type Service struct {
	client *Client
	cache  *Cache
	logger zerolog.Logger
}

// NewService creates a catalog service. cache may be nil, in which case
// every lookup goes to the API.
func NewService(client *Client, cache *Cache, logger zerolog.Logger) *Service {
	return &Service{
		client: client,
		cache:  cache,
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

// GetMovie returns movie metadata, preferring a fresh cache entry. On an
// API failure a stale cache entry is served instead; ErrNotFound is
// permanent and is neither cached nor masked by stale data.
func (s *Service) GetMovie(ctx context.Context, movieID int) (*Movie, error) {
	var stale *Movie
	if s.cache != nil {
		cached, fresh, err := s.cache.Get(movieID)
		if err != nil {
			s.logger.Warn().Err(err).Int("movie_id", movieID).Msg("cache read failed")
		} else if cached != nil {
			if fresh {
				metrics.CatalogCacheHits.Inc()
				return cached, nil
			}
			stale = cached
		}
		metrics.CatalogCacheMisses.Inc()
	}

	movie, err := s.client.GetMovie(ctx, movieID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if stale != nil {
			s.logger.Warn().Err(err).Int("movie_id", movieID).Msg("api failed, serving stale cache entry")
			return stale, nil
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(movie); err != nil {
			s.logger.Warn().Err(err).Int("movie_id", movieID).Msg("cache write failed")
		}
	}
	return movie, nil
}

// GetItem implements recommend.CatalogProvider.
func (s *Service) GetItem(ctx context.Context, movieID int) (*recommend.Item, error) {
	movie, err := s.GetMovie(ctx, movieID)
	if err != nil {
		return nil, err
	}
	return movie.Item(), nil
}

// SearchMovies searches the catalog by title. Results are not cached; the
// query space is unbounded and result lists go stale quickly.
func (s *Service) SearchMovies(ctx context.Context, query string) ([]Movie, error) {
	return s.client.SearchMovies(ctx, query)
}

// BreakerState exposes the client's circuit breaker state.
func (s *Service) BreakerState() string {
	return s.client.BreakerState()
}

// Close closes the cache.
func (s *Service) Close() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Close()
}
