// Cinematch - Content-Based Movie Recommendation Service
// Copyright 2026 Cinematch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinematch/cinematch

package recommend

import (
	"context"
	"time"
)

// Status describes the engine lifecycle.
type Status int

const (
	// StatusUninitialized means no model exists and no build has completed.
	StatusUninitialized Status = iota
	// StatusBuilding means a model build is currently running.
	StatusBuilding
	// StatusReady means a model is loaded and serving recommendations.
	StatusReady
	// StatusDegraded means the last build failed and no usable model exists.
	// The engine keeps serving (empty results) and retries on schedule.
	StatusDegraded
)

// String returns a human-readable name for the status.
func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusBuilding:
		return "building"
	case StatusReady:
		return "ready"
	case StatusDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Item represents a movie with the metadata the engine needs for feature
// extraction and for presenting results.
type Item struct {
	// ID is the catalog movie identifier.
	ID int `json:"id"`

	// Title is the movie title.
	Title string `json:"title"`

	// Overview is the plot summary text.
	Overview string `json:"overview,omitempty"`

	// Genres is a slice of genre names.
	Genres []string `json:"genres,omitempty"`

	// ReleaseDate is the release date in YYYY-MM-DD form, if known.
	ReleaseDate string `json:"release_date,omitempty"`

	// PosterURL is the full poster image URL, if known.
	PosterURL string `json:"poster_url,omitempty"`
}

// RatingEvent is a single user rating of a movie.
type RatingEvent struct {
	// UserID is the internal user identifier.
	UserID int `json:"user_id"`

	// MovieID is the catalog movie identifier.
	MovieID int `json:"movie_id"`

	// Rating is the user's score (0-10).
	Rating float64 `json:"rating"`

	// RatedAt is when the rating was recorded or last updated.
	RatedAt time.Time `json:"rated_at"`
}

// CatalogProvider resolves movie ids to full metadata.
type CatalogProvider interface {
	// GetItem returns metadata for a single movie. Implementations handle
	// retries and caching; an error means the movie could not be resolved.
	GetItem(ctx context.Context, movieID int) (*Item, error)
}

// HistoryProvider supplies rating history and the training corpus.
type HistoryProvider interface {
	// GetHistory returns all ratings for a user, most recent first.
	GetHistory(ctx context.Context, userID int) ([]RatingEvent, error)

	// UpsertRating inserts or updates a single rating.
	UpsertRating(ctx context.Context, userID, movieID int, rating float64) error

	// TrainingCorpus returns the distinct rated movie ids ordered by rating
	// count descending, then movie id ascending.
	TrainingCorpus(ctx context.Context) ([]int, error)
}

// ModelStore persists similarity models across restarts.
type ModelStore interface {
	// Save writes a model as the newest version.
	Save(model *SimilarityModel) error

	// LoadLatest returns the newest valid persisted model, or an error when
	// none exists or the artifact fails verification.
	LoadLatest() (*SimilarityModel, error)
}

// Config holds engine tunables. Zero values are replaced with defaults by
// NewEngine.
type Config struct {
	// MinCorpusSize is the minimum number of resolved movies required to
	// build a model.
	MinCorpusSize int

	// OverviewLimit is the maximum number of characters of overview text
	// included in a feature document.
	OverviewLimit int

	// DefaultN is the number of recommendations returned when the caller
	// does not specify one.
	DefaultN int

	// MaxN caps the number of recommendations per request.
	MaxN int

	// BuildTimeout bounds a single model build.
	BuildTimeout time.Duration
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{
		MinCorpusSize: 3,
		OverviewLimit: 500,
		DefaultN:      5,
		MaxN:          50,
		BuildTimeout:  10 * time.Minute,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.MinCorpusSize <= 0 {
		c.MinCorpusSize = d.MinCorpusSize
	}
	if c.OverviewLimit <= 0 {
		c.OverviewLimit = d.OverviewLimit
	}
	if c.DefaultN <= 0 {
		c.DefaultN = d.DefaultN
	}
	if c.MaxN <= 0 {
		c.MaxN = d.MaxN
	}
	if c.BuildTimeout <= 0 {
		c.BuildTimeout = d.BuildTimeout
	}
}
