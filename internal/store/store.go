// Cinematch - Content-Based Movie Recommendation Service
// Copyright 2026 Cinematch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinematch/cinematch

// Package store provides the DuckDB-backed rating history store.
//
// The store holds one row per (user, movie) pair; re-rating a movie updates
// the rating and refreshes its timestamp. It also derives the training
// corpus, the distinct rated movies ordered by popularity.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"

	"github.com/cinematch/cinematch/internal/config"
	"github.com/cinematch/cinematch/internal/metrics"
	"github.com/cinematch/cinematch/internal/recommend"
)

// Store wraps the DuckDB connection and provides rating history access.
// It implements recommend.HistoryProvider.
type Store struct {
	conn   *sql.DB
	logger zerolog.Logger
}

// New opens the database, configures the connection pool, and creates the
// schema. An empty cfg.Path opens an in-memory database.
func New(cfg *config.DatabaseConfig, logger zerolog.Logger) (*Store, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	} else {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create database directory %s: %w", dir, err)
			}
		}
	}

	// Disable extension auto-install to prevent hangs in restricted
	// network environments.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		path, threads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// DuckDB is an embedded database; a small pool avoids write contention.
	conn.SetMaxOpenConns(threads)
	conn.SetMaxIdleConns(threads)
	conn.SetConnMaxLifetime(0)

	s := &Store{
		conn:   conn,
		logger: logger.With().Str("component", "store").Logger(),
	}
	if err := s.initSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	s.logger.Info().Str("path", path).Msg("history store ready")
	return s, nil
}

// initSchema creates tables and sequences when they do not exist.
func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE SEQUENCE IF NOT EXISTS user_history_id_seq`,
		`CREATE TABLE IF NOT EXISTS user_history (
			id       BIGINT PRIMARY KEY DEFAULT nextval('user_history_id_seq'),
			user_id  INTEGER NOT NULL,
			movie_id INTEGER NOT NULL,
			rating   DOUBLE NOT NULL,
			rated_at TIMESTAMP NOT NULL DEFAULT current_timestamp,
			UNIQUE (user_id, movie_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_history_user ON user_history (user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_user_history_movie ON user_history (movie_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.conn.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

// GetHistory returns every rating for a user, most recent first.
func (s *Store) GetHistory(ctx context.Context, userID int) ([]recommend.RatingEvent, error) {
	start := time.Now()
	rows, err := s.conn.QueryContext(ctx,
		`SELECT user_id, movie_id, rating, rated_at
		 FROM user_history
		 WHERE user_id = ?
		 ORDER BY rated_at DESC, movie_id ASC`, userID)
	metrics.ObserveStoreQuery("get_history", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("query history for user %d: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	var events []recommend.RatingEvent
	for rows.Next() {
		var ev recommend.RatingEvent
		if err := rows.Scan(&ev.UserID, &ev.MovieID, &ev.Rating, &ev.RatedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return events, nil
}

// UpsertRating inserts a rating or, when the user already rated the movie,
// updates the rating and refreshes the timestamp.
func (s *Store) UpsertRating(ctx context.Context, userID, movieID int, rating float64) error {
	start := time.Now()
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO user_history (user_id, movie_id, rating, rated_at)
		 VALUES (?, ?, ?, current_timestamp)
		 ON CONFLICT (user_id, movie_id)
		 DO UPDATE SET rating = excluded.rating, rated_at = excluded.rated_at`,
		userID, movieID, rating)
	metrics.ObserveStoreQuery("upsert_rating", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("upsert rating user %d movie %d: %w", userID, movieID, err)
	}
	return nil
}

// TrainingCorpus returns the distinct rated movie ids ordered by rating
// count descending, then movie id ascending so equal counts order
// deterministically.
func (s *Store) TrainingCorpus(ctx context.Context) ([]int, error) {
	start := time.Now()
	rows, err := s.conn.QueryContext(ctx,
		`SELECT movie_id
		 FROM user_history
		 GROUP BY movie_id
		 ORDER BY COUNT(*) DESC, movie_id ASC`)
	metrics.ObserveStoreQuery("training_corpus", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("query training corpus: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan corpus row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate corpus rows: %w", err)
	}
	return ids, nil
}

// Stats returns row counts for the status endpoint.
func (s *Store) Stats(ctx context.Context) (users, ratings int, err error) {
	start := time.Now()
	err = s.conn.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT user_id), COUNT(*) FROM user_history`).Scan(&users, &ratings)
	metrics.ObserveStoreQuery("stats", time.Since(start), err)
	if err != nil {
		return 0, 0, fmt.Errorf("query store stats: %w", err)
	}
	return users, ratings, nil
}

// Ping verifies the connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.conn.Close()
}
