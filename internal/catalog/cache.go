// Cinematch - Content-Based Movie Recommendation Service
// Copyright 2026 Cinematch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinematch/cinematch

package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

const movieKeyPrefix = "movie:"

// cachedMovie wraps a movie with its fetch time. Freshness is checked on
// read rather than with Badger's native TTL so stale entries survive as
// fallback data when the API is down.
type cachedMovie struct {
	Movie     Movie     `json:"movie"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Cache is a Badger-backed movie metadata cache.
type Cache struct {
	db     *badger.DB
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCache opens a Badger cache at path. An empty path opens an in-memory
// cache, used in tests.
func NewCache(path string, ttl time.Duration, logger zerolog.Logger) (*Cache, error) {
	cacheLogger := logger.With().Str("component", "catalog_cache").Logger()

	opts := badger.DefaultOptions(path).
		WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open catalog cache: %w", err)
	}

	return &Cache{db: db, ttl: ttl, logger: cacheLogger}, nil
}

// Get returns a cached movie and whether the entry is still fresh. A found
// but stale entry is returned with fresh=false so callers can use it as a
// fallback.
func (c *Cache) Get(movieID int) (movie *Movie, fresh bool, err error) {
	var cached cachedMovie
	err = c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(movieID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &cached)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache entry: %w", err)
	}

	fresh = c.ttl <= 0 || time.Since(cached.FetchedAt) < c.ttl
	return &cached.Movie, fresh, nil
}

// Set stores a movie with the current time as its fetch time.
func (c *Cache) Set(movie *Movie) error {
	data, err := json.Marshal(cachedMovie{Movie: *movie, FetchedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cacheKey(movie.ID), data)
	})
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Close closes the underlying Badger database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func cacheKey(movieID int) []byte {
	return []byte(movieKeyPrefix + strconv.Itoa(movieID))
}
