// Cinematch - Content-Based Movie Recommendation Service
// Copyright 2026 Cinematch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinematch/cinematch

package storage

import (
	"context"
	"encoding/gob"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinematch/cinematch/internal/recommend"
)

func buildModel(t *testing.T, history recommend.HistoryProvider, catalog recommend.CatalogProvider) *recommend.SimilarityModel {
	t.Helper()
	engine := recommend.NewEngine(recommend.Config{}, catalog, history, zerolog.Nop())
	if err := engine.RefreshModel(context.Background()); err != nil {
		t.Fatalf("RefreshModel() error: %v", err)
	}
	return engine.Model()
}

type fixedCatalog map[int]*recommend.Item

func (c fixedCatalog) GetItem(_ context.Context, movieID int) (*recommend.Item, error) {
	item, ok := c[movieID]
	if !ok {
		return nil, errors.New("not found")
	}
	return item, nil
}

type fixedHistory []int

func (h fixedHistory) GetHistory(context.Context, int) ([]recommend.RatingEvent, error) {
	return nil, nil
}

func (h fixedHistory) UpsertRating(context.Context, int, int, float64) error {
	return nil
}

func (h fixedHistory) TrainingCorpus(context.Context) ([]int, error) {
	return h, nil
}

func testModel(t *testing.T) *recommend.SimilarityModel {
	t.Helper()
	catalog := fixedCatalog{
		1: {ID: 1, Title: "Orbit Heist", Genres: []string{"Action"}, Overview: "crew heist space station"},
		2: {ID: 2, Title: "Station Break", Genres: []string{"Action"}, Overview: "crew heist space rescue"},
		3: {ID: 3, Title: "Paris in Spring", Genres: []string{"Romance"}, Overview: "wedding paris spring"},
	}
	return buildModel(t, fixedHistory{1, 2, 3}, catalog)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 2, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}

	model := testModel(t)
	wantNeighbors, err := model.NeighborsOf(1, nil, 5)
	if err != nil {
		t.Fatalf("NeighborsOf() error: %v", err)
	}

	if err := store.Save(model); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := store.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest() error: %v", err)
	}
	if loaded.Version != model.Version {
		t.Errorf("loaded version = %d, want %d", loaded.Version, model.Version)
	}
	if loaded.Size() != model.Size() {
		t.Errorf("loaded size = %d, want %d", loaded.Size(), model.Size())
	}

	// A reloaded model must answer queries identically.
	gotNeighbors, err := loaded.NeighborsOf(1, nil, 5)
	if err != nil {
		t.Fatalf("loaded NeighborsOf() error: %v", err)
	}
	if len(gotNeighbors) != len(wantNeighbors) {
		t.Fatalf("got %d neighbors, want %d", len(gotNeighbors), len(wantNeighbors))
	}
	for i := range gotNeighbors {
		if gotNeighbors[i] != wantNeighbors[i] {
			t.Errorf("neighbor[%d] = %+v, want %+v", i, gotNeighbors[i], wantNeighbors[i])
		}
	}
}

func TestLoadLatestNoModel(t *testing.T) {
	store, err := NewStore(t.TempDir(), 2, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	if _, err := store.LoadLatest(); !errors.Is(err, recommend.ErrNoPersistedModel) {
		t.Errorf("error = %v, want ErrNoPersistedModel", err)
	}
}

func TestLoadRejectsCorruptArtifact(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 2, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	if err := store.Save(testModel(t)); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	// Corrupt the artifact in place.
	path := store.modelPath(store.LatestVersion())
	if err := os.WriteFile(path, []byte("not a gob stream"), 0o600); err != nil {
		t.Fatalf("corrupt artifact: %v", err)
	}

	if _, err := store.LoadLatest(); err == nil {
		t.Error("expected error loading corrupt artifact")
	}
}

func TestLoadRejectsSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	_, err := NewStore(dir, 2, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}

	// Hand-write an artifact with a future schema tag.
	sf := storedFile{Metadata: ModelMetadata{SchemaVersion: SchemaVersion + 1, ModelVersion: 1, SavedAt: time.Now()}}
	f, err := os.Create(filepath.Join(dir, "similarity_v1.gob.gz"))
	if err != nil {
		t.Fatalf("create artifact: %v", err)
	}
	if err := gob.NewEncoder(f).Encode(sf); err != nil {
		t.Fatalf("encode artifact: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close artifact: %v", err)
	}

	reopened, err := NewStore(dir, 2, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore() rescan error: %v", err)
	}
	if _, err := reopened.LoadLatest(); err == nil {
		t.Error("expected error for schema mismatch")
	}
}

func TestSavePrunesOldVersions(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 2, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}

	for v := 1; v <= 4; v++ {
		model := testModel(t)
		model.Version = v
		if err := store.Save(model); err != nil {
			t.Fatalf("Save(v%d) error: %v", v, err)
		}
	}

	versions, err := store.diskVersions()
	if err != nil {
		t.Fatalf("diskVersions() error: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("got %d versions on disk, want 2", len(versions))
	}
	if versions[0] != 3 || versions[1] != 4 {
		t.Errorf("retained versions = %v, want [3 4]", versions)
	}

	loaded, err := store.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest() error: %v", err)
	}
	if loaded.Version != 4 {
		t.Errorf("latest version = %d, want 4", loaded.Version)
	}
}

func TestStoreRescanFindsExisting(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 2, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	if err := store.Save(testModel(t)); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	reopened, err := NewStore(dir, 2, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore() rescan error: %v", err)
	}
	if got := reopened.LatestVersion(); got != 1 {
		t.Errorf("LatestVersion() after rescan = %d, want 1", got)
	}
	if _, err := reopened.LoadLatest(); err != nil {
		t.Errorf("LoadLatest() after rescan error: %v", err)
	}
}

func TestParseModelFilename(t *testing.T) {
	tests := []struct {
		name    string
		version int
		ok      bool
	}{
		{"similarity_v1.gob.gz", 1, true},
		{"similarity_v12.gob.gz", 12, true},
		{"similarity_v0.gob.gz", 0, false},
		{"similarity_v1.gob.gz.tmp", 0, false},
		{"other_v1.gob.gz", 0, false},
		{"similarity.gob.gz", 0, false},
		{"readme.txt", 0, false},
	}
	for _, tt := range tests {
		v, ok := parseModelFilename(tt.name)
		if ok != tt.ok || v != tt.version {
			t.Errorf("parseModelFilename(%q) = (%d, %v), want (%d, %v)", tt.name, v, ok, tt.version, tt.ok)
		}
	}
}
