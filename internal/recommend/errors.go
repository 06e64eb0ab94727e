// Cinematch - Content-Based Movie Recommendation Service
// Copyright 2026 Cinematch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinematch/cinematch

package recommend

import "errors"

// Sentinel errors returned by the engine. Callers match them with errors.Is;
// wrapped forms carry the underlying cause.
var (
	// ErrInsufficientTrainingData indicates the training corpus resolved to
	// fewer valid movies than the configured minimum. The previous model, if
	// any, remains in service.
	ErrInsufficientTrainingData = errors.New("insufficient training data")

	// ErrItemNotIndexed indicates a movie id is not present in the current
	// similarity model.
	ErrItemNotIndexed = errors.New("item not indexed")

	// ErrCatalogUnavailable indicates the movie catalog could not be reached
	// after retries. The condition is transient and the call may be retried.
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrHistoryUnavailable indicates the rating history store failed.
	ErrHistoryUnavailable = errors.New("history unavailable")

	// ErrBuildInProgress indicates a model build is already running. At most
	// one build runs at a time; concurrent refresh requests are rejected.
	ErrBuildInProgress = errors.New("model build already in progress")

	// ErrNoPersistedModel is returned by a ModelStore when no saved model
	// exists. Any other load error means an artifact was found but failed
	// verification.
	ErrNoPersistedModel = errors.New("no persisted model")
)
