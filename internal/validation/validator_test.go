// Cinematch - Content-Based Movie Recommendation Service
// Copyright 2026 Cinematch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinematch/cinematch

package validation

import (
	"strings"
	"testing"
)

type rateRequest struct {
	UserID  int     `validate:"required,gt=0"`
	MovieID int     `validate:"required,gt=0"`
	Rating  float64 `validate:"gte=0,lte=10"`
}

func TestValidateStructPass(t *testing.T) {
	req := rateRequest{UserID: 1, MovieID: 550, Rating: 8.5}
	if err := ValidateStruct(&req); err != nil {
		t.Fatalf("expected validation to pass, got %v", err)
	}
}

func TestValidateStructSingleFailure(t *testing.T) {
	req := rateRequest{UserID: 1, MovieID: 550, Rating: 11}
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected validation failure for rating > 10")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if apiErr.Details["field"] != "Rating" {
		t.Errorf("details field = %v, want Rating", apiErr.Details["field"])
	}
}

func TestValidateStructMultipleFailures(t *testing.T) {
	req := rateRequest{UserID: 0, MovieID: 0, Rating: -1}
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if len(err.Errors()) != 3 {
		t.Errorf("got %d errors, want 3: %v", len(err.Errors()), err)
	}

	apiErr := err.ToAPIError()
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Error("expected fields detail for multiple errors")
	}
	if !strings.Contains(apiErr.Message, "UserID") {
		t.Errorf("message missing field name: %q", apiErr.Message)
	}
}

func TestRequiredMessage(t *testing.T) {
	req := rateRequest{MovieID: 1, Rating: 5}
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected validation failure for missing user id")
	}
	if got := err.Errors()[0].Error(); got != "UserID is required" {
		t.Errorf("message = %q, want %q", got, "UserID is required")
	}
}
