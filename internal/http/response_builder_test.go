package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"budgets/internal/core"
)

func TestResponseBuilder_JSON(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/budgets/7").
		JSON(map[string]string{"status": "ok"}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := w.Header().Get("Location"); got != "/api/budgets/7" {
		t.Errorf("Location = %q", got)
	}
	if w.Body.String() != "{\"status\":\"ok\"}\n" {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestResponseBuilder_NoBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().Status(http.StatusNoContent).Write(w)

	if w.Code != http.StatusNoContent {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusNoContent)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Body = %q, want empty", w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "" {
		t.Errorf("Content-Type = %q, want none", got)
	}
}

func TestErrorFor(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid input", fmt.Errorf("create budget: %w", core.ErrEmptyTitle), http.StatusUnprocessableEntity, "invalid_input"},
		{"invalid status", fmt.Errorf("%w: \"done\"", core.ErrInvalidStatus), http.StatusUnprocessableEntity, "invalid_status"},
		{"invalid transition", core.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
		{"not found", core.NotFoundf("expense", 9), http.StatusNotFound, "not_found"},
		{"missing identity", errMissingIdentity, http.StatusUnauthorized, "unauthenticated"},
		{"unauthorized", fmt.Errorf("%w: admin required", core.ErrUnauthorized), http.StatusForbidden, "forbidden"},
		{"bad request", errBadRequest, http.StatusBadRequest, "bad_request"},
		{"storage", fmt.Errorf("get budget: %w: %w", core.ErrStorageUnavailable, errors.New("database is locked")), http.StatusServiceUnavailable, "storage_unavailable"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			errorFor(tt.err).Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body errorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Error.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestErrorFor_HidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()
	errorFor(errors.New("sql: near \"SELEC\": syntax error")).Write(w)

	var body errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error.Message != "internal server error" {
		t.Errorf("message = %q leaks internals", body.Error.Message)
	}
}

func TestErrorFor_BudgetExceededDetails(t *testing.T) {
	err := fmt.Errorf("approve expense 3: %w", &core.BudgetExceededError{
		CategoryID:    4,
		CategoryTitle: "Marketing",
		Allocated:     core.Cents(10000),
		Approved:      core.Cents(9000),
		Requested:     core.Cents(2000),
	})

	w := httptest.NewRecorder()
	errorFor(err).Write(w)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	var body errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error.Code != "budget_exceeded" {
		t.Errorf("code = %q", body.Error.Code)
	}
	want := map[string]any{
		"category_id":    float64(4),
		"category_title": "Marketing",
		"allocated":      "100.00",
		"approved":       "90.00",
		"requested":      "20.00",
		"remaining":      "10.00",
	}
	for k, v := range want {
		if body.Error.Details[k] != v {
			t.Errorf("details[%s] = %v, want %v", k, body.Error.Details[k], v)
		}
	}
}
