// Cinematch - Content-Based Movie Recommendation Service
// Copyright 2026 Cinematch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinematch/cinematch

// Package models contains the shared API response envelope used by every
// HTTP endpoint.
package models

import "time"

// APIResponse is the standard envelope for all API responses.
//
// Success responses set Status to "success" and carry the payload in Data.
// Error responses set Status to "error" and populate Error; Data is null.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
//
// QueryTimeMS is the server-side processing time in milliseconds. Cached is
// set when the payload was served from a cache rather than computed fresh.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError represents an error response with structured details.
//
// Common codes: VALIDATION_ERROR, NOT_FOUND, MODEL_NOT_READY,
// BUILD_IN_PROGRESS, CATALOG_UNAVAILABLE, STORE_ERROR, INTERNAL_ERROR.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
