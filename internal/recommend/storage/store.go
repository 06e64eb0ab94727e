// Cinematch - Content-Based Movie Recommendation Service
// Copyright 2026 Cinematch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinematch/cinematch

package storage

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinematch/cinematch/internal/recommend"
)

// SchemaVersion identifies the on-disk artifact layout. Bump it whenever
// the serialized model shape changes; older artifacts are then rejected and
// rebuilt rather than misread.
const SchemaVersion = 1

const modelName = "similarity"

// ModelMetadata describes a stored model artifact.
type ModelMetadata struct {
	// SchemaVersion is the artifact layout version.
	SchemaVersion int `json:"schema_version"`

	// ModelVersion is the engine's monotonically increasing build number.
	ModelVersion int `json:"model_version"`

	// BuiltAt is when the model build completed.
	BuiltAt time.Time `json:"built_at"`

	// SavedAt is when the artifact was written.
	SavedAt time.Time `json:"saved_at"`

	// ItemCount is the number of indexed movies.
	ItemCount int `json:"item_count"`

	// Checksum is the SHA-256 checksum of the raw model bytes.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed model size in bytes.
	SizeBytes int64 `json:"size_bytes"`
}

// storedFile is the on-disk format for model files.
type storedFile struct {
	Metadata       ModelMetadata
	CompressedData []byte
}

// Store manages similarity model persistence in a directory. It implements
// recommend.ModelStore and is safe for concurrent use.
type Store struct {
	baseDir string
	keep    int
	logger  zerolog.Logger

	mu     sync.Mutex
	latest int
}

// NewStore creates a model store at baseDir, creating the directory when
// needed and scanning it for existing artifacts. keep is the number of
// recent versions retained after each save; values below 1 keep one.
func NewStore(baseDir string, keep int, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create model directory: %w", err)
	}
	if keep < 1 {
		keep = 1
	}
	s := &Store{
		baseDir: baseDir,
		keep:    keep,
		logger:  logger.With().Str("component", "modelstore").Logger(),
	}
	if err := s.scan(); err != nil {
		return nil, fmt.Errorf("scan model directory: %w", err)
	}
	return s, nil
}

// scan records the newest model version present on disk.
func (s *Store) scan() error {
	versions, err := s.diskVersions()
	if err != nil {
		return err
	}
	if len(versions) > 0 {
		s.latest = versions[len(versions)-1]
	}
	return nil
}

// diskVersions returns all stored model versions in ascending order.
func (s *Store) diskVersions() ([]int, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}
	var versions []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if v, ok := parseModelFilename(entry.Name()); ok {
			versions = append(versions, v)
		}
	}
	sort.Ints(versions)
	return versions, nil
}

// parseModelFilename extracts the version from a name like
// "similarity_v3.gob.gz".
func parseModelFilename(name string) (version int, ok bool) {
	prefix := modelName + "_v"
	const suffix = ".gob.gz"
	if len(name) <= len(prefix)+len(suffix) {
		return 0, false
	}
	if name[:len(prefix)] != prefix || name[len(name)-len(suffix):] != suffix {
		return 0, false
	}
	if _, err := fmt.Sscanf(name[len(prefix):len(name)-len(suffix)], "%d", &version); err != nil {
		return 0, false
	}
	return version, version > 0
}

func (s *Store) modelPath(version int) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_v%d.gob.gz", modelName, version))
}

// Save writes the model as the newest artifact and prunes versions beyond
// the retention limit.
func (s *Store) Save(model *recommend.SimilarityModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(model); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	rawData := buf.Bytes()

	hash := sha256.Sum256(rawData)

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(rawData); err != nil {
		return fmt.Errorf("compress model: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("finalize compression: %w", err)
	}

	sf := storedFile{
		Metadata: ModelMetadata{
			SchemaVersion: SchemaVersion,
			ModelVersion:  model.Version,
			BuiltAt:       model.BuiltAt,
			SavedAt:       time.Now().UTC(),
			ItemCount:     model.Size(),
			Checksum:      hex.EncodeToString(hash[:]),
			SizeBytes:     int64(compressed.Len()),
		},
		CompressedData: compressed.Bytes(),
	}

	// Write to a temp file and rename so a crash mid-write never leaves a
	// truncated artifact under the final name.
	path := s.modelPath(model.Version)
	tmp := path + ".tmp"
	f, err := os.Create(tmp) //nolint:gosec // path is built from the configured base directory
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(sf); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write model file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish model file: %w", err)
	}

	if model.Version > s.latest {
		s.latest = model.Version
	}
	s.prune()

	s.logger.Info().
		Int("model_version", model.Version).
		Int64("size_bytes", sf.Metadata.SizeBytes).
		Msg("model saved")
	return nil
}

// prune removes artifacts beyond the retention limit. Caller holds mu.
func (s *Store) prune() {
	versions, err := s.diskVersions()
	if err != nil {
		s.logger.Warn().Err(err).Msg("prune scan failed")
		return
	}
	for len(versions) > s.keep {
		v := versions[0]
		versions = versions[1:]
		if err := os.Remove(s.modelPath(v)); err != nil {
			s.logger.Warn().Err(err).Int("model_version", v).Msg("prune remove failed")
			continue
		}
		s.logger.Debug().Int("model_version", v).Msg("old model pruned")
	}
}

// LoadLatest reads and verifies the newest artifact. It returns
// recommend.ErrNoPersistedModel when the directory holds no model; any
// other error means an artifact exists but failed verification.
func (s *Store) LoadLatest() (*recommend.SimilarityModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latest == 0 {
		return nil, recommend.ErrNoPersistedModel
	}
	return s.load(s.latest)
}

// LatestVersion returns the newest stored version, or 0 when none exists.
func (s *Store) LatestVersion() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// load reads one artifact and verifies schema tag and checksum. Caller
// holds mu.
func (s *Store) load(version int) (*recommend.SimilarityModel, error) {
	f, err := os.Open(s.modelPath(version)) //nolint:gosec // path is built from the configured base directory
	if err != nil {
		return nil, fmt.Errorf("open model file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}

	if sf.Metadata.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("schema version mismatch: artifact has %d, expected %d",
			sf.Metadata.SchemaVersion, SchemaVersion)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("decompress model: %w", err)
	}
	defer func() { _ = gzr.Close() }()

	rawData, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(rawData)
	if checksum := hex.EncodeToString(hash[:]); checksum != sf.Metadata.Checksum {
		return nil, fmt.Errorf("checksum mismatch: expected %s, got %s", sf.Metadata.Checksum, checksum)
	}

	var model recommend.SimilarityModel
	if err := gob.NewDecoder(bytes.NewReader(rawData)).Decode(&model); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}

	s.logger.Debug().
		Int("model_version", model.Version).
		Int("indexed_items", model.Size()).
		Msg("model loaded")
	return &model, nil
}
