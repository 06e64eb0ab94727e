// Cinematch - Content-Based Movie Recommendation Service
// Copyright 2026 Cinematch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinematch/cinematch

// Package recommend implements the content-based recommendation engine.
//
// The engine builds a TF-IDF similarity model over movie metadata (genres
// plus plot overview) and serves nearest-neighbour recommendations anchored
// on each user's highest-rated movie. Models are built asynchronously and
// swapped atomically, so serving reads are never blocked by a rebuild and
// every request sees one consistent model snapshot.
//
// The package has no dependencies on other internal packages. The
// CatalogProvider and HistoryProvider interfaces allow integration with the
// catalog and store packages without creating circular imports.
package recommend
