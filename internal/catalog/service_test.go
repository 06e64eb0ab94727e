// Cinematch - Content-Based Movie Recommendation Service
// Copyright 2026 Cinematch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinematch/cinematch

package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	cache, err := NewCache("", ttl, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewCache() error: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t, time.Hour)

	movie := &Movie{ID: 550, Title: "Fight Club", Genres: []Genre{{ID: 18, Name: "Drama"}}}
	if err := cache.Set(movie); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	got, fresh, err := cache.Get(550)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got == nil || got.Title != "Fight Club" {
		t.Fatalf("Get() = %+v, want Fight Club", got)
	}
	if !fresh {
		t.Error("entry reported stale immediately after Set")
	}
}

func TestCacheMiss(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	got, _, err := cache.Get(123)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got != nil {
		t.Errorf("Get() on empty cache = %+v, want nil", got)
	}
}

func TestCacheStaleEntry(t *testing.T) {
	cache := newTestCache(t, time.Nanosecond)
	if err := cache.Set(&Movie{ID: 1, Title: "Old"}); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	time.Sleep(time.Millisecond)

	got, fresh, err := cache.Get(1)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got == nil {
		t.Fatal("stale entry was dropped, want it returned for fallback")
	}
	if fresh {
		t.Error("expired entry reported fresh")
	}
}

func TestServiceCachesAPIResults(t *testing.T) {
	var apiCalls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apiCalls.Add(1)
		_, _ = w.Write([]byte(`{"id": 550, "title": "Fight Club"}`))
	}))
	defer srv.Close()

	svc := NewService(
		NewClient(testClientConfig(srv.URL), zerolog.Nop()),
		newTestCache(t, time.Hour),
		zerolog.Nop(),
	)

	for i := 0; i < 3; i++ {
		movie, err := svc.GetMovie(context.Background(), 550)
		if err != nil {
			t.Fatalf("GetMovie() call %d error: %v", i, err)
		}
		if movie.Title != "Fight Club" {
			t.Errorf("title = %q", movie.Title)
		}
	}
	if got := apiCalls.Load(); got != 1 {
		t.Errorf("API saw %d calls, want 1 (rest served from cache)", got)
	}
}

func TestServiceServesStaleOnAPIFailure(t *testing.T) {
	var failing atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"id": 1, "title": "Cached Classic"}`))
	}))
	defer srv.Close()

	svc := NewService(
		NewClient(testClientConfig(srv.URL), zerolog.Nop()),
		newTestCache(t, time.Nanosecond),
		zerolog.Nop(),
	)

	// Populate the cache, then break the API. The entry is stale by the
	// second call but must still be served.
	if _, err := svc.GetMovie(context.Background(), 1); err != nil {
		t.Fatalf("initial GetMovie() error: %v", err)
	}
	failing.Store(true)
	time.Sleep(time.Millisecond)

	movie, err := svc.GetMovie(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetMovie() with API down error: %v", err)
	}
	if movie.Title != "Cached Classic" {
		t.Errorf("title = %q, want stale cache entry", movie.Title)
	}
}

func TestServiceErrorWithoutFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := NewService(
		NewClient(testClientConfig(srv.URL), zerolog.Nop()),
		newTestCache(t, time.Hour),
		zerolog.Nop(),
	)
	if _, err := svc.GetMovie(context.Background(), 42); err == nil {
		t.Error("expected error when API fails and cache is empty")
	}
}

func TestServiceGetItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"id": 550,
			"title": "Fight Club",
			"overview": "An insomniac office worker.",
			"genres": [{"id": 18, "name": "Drama"}, {"id": 53, "name": "Thriller"}]
		}`))
	}))
	defer srv.Close()

	svc := NewService(NewClient(testClientConfig(srv.URL), zerolog.Nop()), nil, zerolog.Nop())
	item, err := svc.GetItem(context.Background(), 550)
	if err != nil {
		t.Fatalf("GetItem() error: %v", err)
	}
	if item.ID != 550 || item.Title != "Fight Club" {
		t.Errorf("item = %+v", item)
	}
	if len(item.Genres) != 2 || item.Genres[0] != "Drama" {
		t.Errorf("genres = %v, want [Drama Thriller]", item.Genres)
	}
}
