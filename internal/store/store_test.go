// Cinematch - Content-Based Movie Recommendation Service
// Copyright 2026 Cinematch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinematch/cinematch

package store

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/cinematch/cinematch/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(&config.DatabaseConfig{MaxMemory: "256MB", Threads: 2}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsertAndGetHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertRating(ctx, 7, 100, 4); err != nil {
		t.Fatalf("UpsertRating() error: %v", err)
	}
	if err := s.UpsertRating(ctx, 7, 200, 5); err != nil {
		t.Fatalf("UpsertRating() error: %v", err)
	}
	if err := s.UpsertRating(ctx, 8, 100, 3); err != nil {
		t.Fatalf("UpsertRating() error: %v", err)
	}

	history, err := s.GetHistory(ctx, 7)
	if err != nil {
		t.Fatalf("GetHistory() error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("got %d events for user 7, want 2", len(history))
	}
	for _, ev := range history {
		if ev.UserID != 7 {
			t.Errorf("event for user %d leaked into user 7's history", ev.UserID)
		}
		if ev.RatedAt.IsZero() {
			t.Error("event has zero rated_at")
		}
	}
}

func TestUpsertRatingUpdatesExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertRating(ctx, 7, 100, 2); err != nil {
		t.Fatalf("UpsertRating() error: %v", err)
	}
	first, err := s.GetHistory(ctx, 7)
	if err != nil {
		t.Fatalf("GetHistory() error: %v", err)
	}

	if err := s.UpsertRating(ctx, 7, 100, 9.5); err != nil {
		t.Fatalf("UpsertRating() update error: %v", err)
	}

	history, err := s.GetHistory(ctx, 7)
	if err != nil {
		t.Fatalf("GetHistory() error: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("got %d events after re-rating, want 1", len(history))
	}
	if history[0].Rating != 9.5 {
		t.Errorf("rating = %v, want 9.5", history[0].Rating)
	}
	if history[0].RatedAt.Before(first[0].RatedAt) {
		t.Error("rated_at moved backwards on update")
	}
}

func TestGetHistoryEmpty(t *testing.T) {
	s := newTestStore(t)
	history, err := s.GetHistory(context.Background(), 999)
	if err != nil {
		t.Fatalf("GetHistory() error: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("got %d events for unknown user, want 0", len(history))
	}
}

func TestTrainingCorpusOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Movie 300 has three ratings, 100 has two, 200 and 50 one each.
	ratings := []struct {
		user, movie int
		rating      float64
	}{
		{1, 300, 5}, {2, 300, 4}, {3, 300, 3},
		{1, 100, 4}, {2, 100, 2},
		{1, 200, 5},
		{2, 50, 1},
	}
	for _, r := range ratings {
		if err := s.UpsertRating(ctx, r.user, r.movie, r.rating); err != nil {
			t.Fatalf("UpsertRating(%+v) error: %v", r, err)
		}
	}

	corpus, err := s.TrainingCorpus(ctx)
	if err != nil {
		t.Fatalf("TrainingCorpus() error: %v", err)
	}
	want := []int{300, 100, 50, 200}
	if len(corpus) != len(want) {
		t.Fatalf("corpus = %v, want %v", corpus, want)
	}
	for i := range want {
		if corpus[i] != want[i] {
			t.Fatalf("corpus = %v, want %v", corpus, want)
		}
	}
}

func TestTrainingCorpusEmpty(t *testing.T) {
	s := newTestStore(t)
	corpus, err := s.TrainingCorpus(context.Background())
	if err != nil {
		t.Fatalf("TrainingCorpus() error: %v", err)
	}
	if len(corpus) != 0 {
		t.Errorf("corpus = %v, want empty", corpus)
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertRating(ctx, 1, 100, 5); err != nil {
		t.Fatalf("UpsertRating() error: %v", err)
	}
	if err := s.UpsertRating(ctx, 1, 200, 4); err != nil {
		t.Fatalf("UpsertRating() error: %v", err)
	}
	if err := s.UpsertRating(ctx, 2, 100, 3); err != nil {
		t.Fatalf("UpsertRating() error: %v", err)
	}

	users, ratingCount, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if users != 2 {
		t.Errorf("users = %d, want 2", users)
	}
	if ratingCount != 3 {
		t.Errorf("ratings = %d, want 3", ratingCount)
	}
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error: %v", err)
	}
}
