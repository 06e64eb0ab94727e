// Cinematch - Content-Based Movie Recommendation Service
// Copyright 2026 Cinematch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinematch/cinematch

package recommend

import (
	"math"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []string
	}{
		{
			name: "lowercases and splits on punctuation",
			doc:  "Space-station Heist!",
			want: []string{"space", "station", "heist"},
		},
		{
			name: "drops stop words",
			doc:  "the crew and the captain",
			want: []string{"crew", "captain"},
		},
		{
			name: "drops single character terms",
			doc:  "a b robot 7 42",
			want: []string{"robot", "42"},
		},
		{
			name: "empty document",
			doc:  "",
			want: nil,
		},
		{
			name: "only stop words",
			doc:  "and or but",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenize(tt.doc)
			if len(got) != len(tt.want) {
				t.Fatalf("tokenize(%q) = %v, want %v", tt.doc, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFitVectorizerNormalizesRows(t *testing.T) {
	_, vecs := fitVectorizer([]string{
		"space heist crew",
		"romance wedding",
	})
	for i, vec := range vecs {
		var sumSq float64
		for _, w := range vec {
			sumSq += w * w
		}
		if math.Abs(sumSq-1) > 1e-12 {
			t.Errorf("row %d squared norm = %v, want 1", i, sumSq)
		}
	}
}

func TestFitVectorizerIdenticalDocuments(t *testing.T) {
	_, vecs := fitVectorizer([]string{
		"space heist crew",
		"space heist crew",
		"romance wedding paris",
	})
	if got := dot(vecs[0], vecs[1]); math.Abs(got-1) > 1e-12 {
		t.Errorf("similarity of identical documents = %v, want 1", got)
	}
	if got := dot(vecs[0], vecs[2]); got != 0 {
		t.Errorf("similarity of disjoint documents = %v, want 0", got)
	}
}

func TestFitVectorizerEmptyDocument(t *testing.T) {
	_, vecs := fitVectorizer([]string{"space heist", ""})
	if len(vecs[1]) != 0 {
		t.Errorf("empty document vector has %d terms, want 0", len(vecs[1]))
	}
	if got := dot(vecs[0], vecs[1]); got != 0 {
		t.Errorf("similarity against empty document = %v, want 0", got)
	}
}

func TestVectorizerTransformMatchesFit(t *testing.T) {
	docs := []string{"space heist crew", "romance wedding", "space romance"}
	state, vecs := fitVectorizer(docs)
	for i, doc := range docs {
		got := state.Transform(doc)
		if len(got) != len(vecs[i]) {
			t.Fatalf("Transform(%q) has %d terms, fit row has %d", doc, len(got), len(vecs[i]))
		}
		for j, w := range vecs[i] {
			if math.Abs(got[j]-w) > 1e-12 {
				t.Errorf("Transform(%q) dim %d = %v, fit = %v", doc, j, got[j], w)
			}
		}
	}
}

func TestVectorizerTransformIgnoresUnknownTerms(t *testing.T) {
	state, _ := fitVectorizer([]string{"space heist"})
	got := state.Transform("submarine documentary")
	if len(got) != 0 {
		t.Errorf("Transform with unknown terms has %d entries, want 0", len(got))
	}
}
