// Cinematch - Content-Based Movie Recommendation Service
// Copyright 2026 Cinematch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinematch/cinematch

package recommend

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// VectorizerState holds the fitted TF-IDF vocabulary and inverse document
// frequencies. It is persisted with the similarity matrix so a reloaded
// model carries the exact parameters it was built with.
type VectorizerState struct {
	// Vocabulary maps each term to its dimension index.
	Vocabulary map[string]int

	// IDF is the inverse document frequency per dimension, smoothed as
	// ln((1+n)/(1+df)) + 1 over n training documents.
	IDF []float64
}

// sparseVec is a sparse term-weight vector keyed by dimension index.
type sparseVec map[int]float64

// tokenize lowercases a document and splits it into terms. Terms are
// maximal runs of letters and digits; single-character terms and stop
// words are dropped.
func tokenize(doc string) []string {
	fields := strings.FieldsFunc(strings.ToLower(doc), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) < 2 {
			continue
		}
		if _, stop := englishStopWords[f]; stop {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

// fitVectorizer learns vocabulary and IDF weights from the training
// documents and returns the fitted state together with the L2-normalized
// TF-IDF vector of each document.
func fitVectorizer(docs []string) (*VectorizerState, []sparseVec) {
	counts := make([]map[string]int, len(docs))
	df := make(map[string]int)
	for i, doc := range docs {
		tc := make(map[string]int)
		for _, term := range tokenize(doc) {
			tc[term]++
		}
		counts[i] = tc
		for term := range tc {
			df[term]++
		}
	}

	// Sorted vocabulary keeps dimension indices deterministic across runs.
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	state := &VectorizerState{
		Vocabulary: make(map[string]int, len(terms)),
		IDF:        make([]float64, len(terms)),
	}
	n := float64(len(docs))
	for j, term := range terms {
		state.Vocabulary[term] = j
		state.IDF[j] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	vecs := make([]sparseVec, len(docs))
	for i, tc := range counts {
		vecs[i] = state.weigh(tc)
	}
	return state, vecs
}

// Transform vectorizes a document with the fitted vocabulary. Terms unseen
// during fitting are ignored.
func (s *VectorizerState) Transform(doc string) map[int]float64 {
	tc := make(map[string]int)
	for _, term := range tokenize(doc) {
		if _, ok := s.Vocabulary[term]; ok {
			tc[term]++
		}
	}
	return s.weigh(tc)
}

// weigh converts raw term counts into an L2-normalized TF-IDF vector.
func (s *VectorizerState) weigh(termCounts map[string]int) sparseVec {
	vec := make(sparseVec, len(termCounts))
	var sumSq float64
	for term, tf := range termCounts {
		j, ok := s.Vocabulary[term]
		if !ok {
			continue
		}
		w := float64(tf) * s.IDF[j]
		vec[j] = w
		sumSq += w * w
	}
	if sumSq > 0 {
		norm := math.Sqrt(sumSq)
		for j, w := range vec {
			vec[j] = w / norm
		}
	}
	return vec
}

// dot returns the inner product of two sparse vectors. For L2-normalized
// inputs this is their cosine similarity.
func dot(a, b sparseVec) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float64
	for j, w := range a {
		if v, ok := b[j]; ok {
			sum += w * v
		}
	}
	return sum
}
