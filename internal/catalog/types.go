// Cinematch - Content-Based Movie Recommendation Service
// Copyright 2026 Cinematch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinematch/cinematch

// Package catalog provides movie metadata from The Movie Database (TMDB)
// with a local Badger cache.
//
// Lookups hit the cache first; fresh entries are served directly. On a miss
// or a stale entry the TMDB API is queried through a rate limiter and a
// circuit breaker with bounded retry. When the API is unreachable a stale
// cache entry is served as a fallback, but the cache is never authoritative
// while the API answers.
package catalog

import (
	"errors"

	"github.com/cinematch/cinematch/internal/recommend"
)

// ErrNotFound indicates the movie id does not exist in the catalog. This is
// a permanent answer and is never retried.
var ErrNotFound = errors.New("movie not found")

const imageBaseURL = "https://image.tmdb.org/t/p/w500"

// Movie is the TMDB representation of a movie.
type Movie struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
	PosterPath  string  `json:"poster_path"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	Genres      []Genre `json:"genres"`
}

// Genre is a TMDB genre entry.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// PosterURL returns the full poster URL at w500 size, or "" when the movie
// has no poster.
func (m *Movie) PosterURL() string {
	if m.PosterPath == "" {
		return ""
	}
	return imageBaseURL + m.PosterPath
}

// GenreNames returns the genre names in catalog order.
func (m *Movie) GenreNames() []string {
	names := make([]string, 0, len(m.Genres))
	for _, g := range m.Genres {
		names = append(names, g.Name)
	}
	return names
}

// Item converts the movie to the engine's item representation.
func (m *Movie) Item() *recommend.Item {
	return &recommend.Item{
		ID:          m.ID,
		Title:       m.Title,
		Overview:    m.Overview,
		Genres:      m.GenreNames(),
		ReleaseDate: m.ReleaseDate,
		PosterURL:   m.PosterURL(),
	}
}
