// Cinematch - Content-Based Movie Recommendation Service
// Copyright 2026 Cinematch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinematch/cinematch

package recommend

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SimilarityModel is an immutable pairwise cosine similarity index over a
// fixed set of movies. Once built it is never mutated, so concurrent reads
// need no locking.
type SimilarityModel struct {
	// Version is the monotonically increasing build number.
	Version int

	// BuildID uniquely identifies this build across restarts, for
	// correlating logs with persisted artifacts.
	BuildID string

	// BuiltAt is when the build completed.
	BuiltAt time.Time

	// ItemIDs lists the indexed movie ids in row order.
	ItemIDs []int

	// Matrix is the K x K symmetric cosine similarity matrix. Row and
	// column order both follow ItemIDs and every diagonal entry is 1.
	Matrix [][]float64

	// Vectorizer is the fitted TF-IDF state the matrix was computed with.
	Vectorizer *VectorizerState

	rowIndex  map[int]int
	indexOnce sync.Once
}

// Neighbor is a single similarity result.
type Neighbor struct {
	// MovieID is the neighbouring movie's catalog id.
	MovieID int `json:"movie_id"`

	// Score is the cosine similarity to the anchor, in [0, 1].
	Score float64 `json:"score"`
}

// newSimilarityModel fits a TF-IDF vectorizer over the feature documents
// and computes the full pairwise similarity matrix. ids[i] corresponds to
// docs[i]. The context is checked once per row so a cancelled build stops
// promptly instead of finishing a large matrix.
func newSimilarityModel(ctx context.Context, ids []int, docs []string, version int) (*SimilarityModel, error) {
	if len(ids) != len(docs) {
		return nil, fmt.Errorf("id/document count mismatch: %d vs %d", len(ids), len(docs))
	}

	state, vecs := fitVectorizer(docs)

	k := len(ids)
	matrix := make([][]float64, k)
	for i := range matrix {
		matrix[i] = make([]float64, k)
	}
	for i := 0; i < k; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("similarity computation cancelled: %w", err)
		}
		matrix[i][i] = 1
		for j := i + 1; j < k; j++ {
			s := dot(vecs[i], vecs[j])
			matrix[i][j] = s
			matrix[j][i] = s
		}
	}

	model := &SimilarityModel{
		Version:    version,
		BuildID:    uuid.NewString(),
		BuiltAt:    time.Now().UTC(),
		ItemIDs:    append([]int(nil), ids...),
		Matrix:     matrix,
		Vectorizer: state,
	}
	return model, nil
}

// index returns the movie id to row lookup, building it on first use. The
// map is derived state and is rebuilt after deserialization.
func (m *SimilarityModel) index() map[int]int {
	m.indexOnce.Do(func() {
		m.rowIndex = make(map[int]int, len(m.ItemIDs))
		for i, id := range m.ItemIDs {
			m.rowIndex[id] = i
		}
	})
	return m.rowIndex
}

// Size returns the number of indexed movies.
func (m *SimilarityModel) Size() int {
	return len(m.ItemIDs)
}

// Contains reports whether a movie id is indexed.
func (m *SimilarityModel) Contains(movieID int) bool {
	_, ok := m.index()[movieID]
	return ok
}

// NeighborsOf returns up to k movies most similar to the anchor, ordered by
// descending similarity. The anchor itself and every id in exclude are
// omitted. Ties rank the movie with the lower row index first, so results
// are deterministic for a given model.
func (m *SimilarityModel) NeighborsOf(anchorID int, exclude map[int]struct{}, k int) ([]Neighbor, error) {
	row, ok := m.index()[anchorID]
	if !ok {
		return nil, fmt.Errorf("%w: movie %d", ErrItemNotIndexed, anchorID)
	}

	scores := m.Matrix[row]
	candidates := make([]Neighbor, 0, len(m.ItemIDs))
	for i, id := range m.ItemIDs {
		if i == row {
			continue
		}
		if _, skip := exclude[id]; skip {
			continue
		}
		candidates = append(candidates, Neighbor{MovieID: id, Score: scores[i]})
	}

	// Candidates were collected in row order, so a stable sort keeps the
	// lower row index first among equal scores.
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].Score > candidates[b].Score
	})

	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}
