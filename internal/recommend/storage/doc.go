// Cinematch - Content-Based Movie Recommendation Service
// Copyright 2026 Cinematch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinematch/cinematch

// Package storage persists similarity models across restarts.
//
// Models are serialized with Go's gob encoding, compressed with gzip, and
// wrapped with metadata carrying a schema version, build version, and a
// SHA-256 checksum of the raw model bytes. An artifact whose schema tag or
// checksum does not match is rejected on load, in which case the engine
// rebuilds from source data instead of serving a corrupt model.
//
// Files are named similarity_v{version}.gob.gz; a configurable number of
// recent versions is retained and older ones are pruned after each save.
package storage
