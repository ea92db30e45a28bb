// This file implements utilities for parsing and validating request data:
// caller identity, JSON bodies, path ids and listing filters.
package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"budgets/internal/core"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	maxBodyBytes = 1 << 20
)

// ActorFromRequest resolves the caller from the identity headers set by the
// upstream auth layer.
func ActorFromRequest(r *http.Request) (core.Actor, error) {
	id := sanitizeInput(r.Header.Get(HeaderUserID))
	if id == "" {
		return core.Actor{}, fmt.Errorf("%w: %s header is required", errMissingIdentity, HeaderUserID)
	}
	role := core.Role(strings.ToLower(sanitizeInput(r.Header.Get(HeaderUserRole))))
	switch role {
	case core.RoleAdmin, core.RoleManager, core.RoleEntrepreneur:
	default:
		return core.Actor{}, fmt.Errorf("%w: unknown role %q", errMissingIdentity, role)
	}
	return core.Actor{ID: id, Role: role}, nil
}

// DecodeJSON reads a single JSON object into dst. Unknown fields and trailing
// data are rejected. Domain errors raised by field decoders pass through.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if core.IsDomainError(err) {
			return err
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: body exceeds %d bytes", errBadRequest, tooLarge.Limit)
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: malformed JSON: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after JSON object", errBadRequest)
	}
	return nil
}

// PathID parses a positive integer path parameter. Anything else cannot name
// a stored record, so it is reported as not found.
func PathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s %q: %w", name, raw, core.ErrNotFound)
	}
	return id, nil
}

// ParseExpenseFilter reads status, from, to, limit and offset from the query string.
func ParseExpenseFilter(q url.Values) (core.ExpenseFilter, error) {
	var f core.ExpenseFilter
	if v := strings.TrimSpace(q.Get("status")); v != "" {
		st, err := core.ParseStatus(v)
		if err != nil {
			return f, err
		}
		f.Status = st
	}
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return f, err
		}
		f.From = d
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return f, err
		}
		f.To = d
	}
	var err error
	if f.Limit, err = queryInt(q, "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = queryInt(q, "offset"); err != nil {
		return f, err
	}
	return f, nil
}

func queryInt(q url.Values, key string) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", core.ErrInvalidInput, key)
	}
	return n, nil
}

// jsonMoney accepts an amount as a JSON string ("125.50") or number (125.5).
type jsonMoney struct {
	core.Money
	set bool
}

func (m *jsonMoney) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	raw := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return fmt.Errorf("%w: amount must be a string or number", core.ErrInvalidInput)
		}
	}
	v, err := core.ParseMoney(raw)
	if err != nil {
		return err
	}
	m.Money = v
	m.set = true
	return nil
}

type createBudgetRequest struct {
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Total         jsonMoney `json:"total"`
	Currency      string    `json:"currency"`
	StartupCallID string    `json:"startup_call_id"`
}

type createCategoryRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Allocated   jsonMoney `json:"allocated"`
}

type updateAllocationRequest struct {
	Allocated jsonMoney `json:"allocated"`
}

type createExpenseRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Amount      jsonMoney `json:"amount"`
	Currency    string    `json:"currency"`
	Date        string    `json:"date"`
}

type transitionRequest struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

func requireAmount(field string, m jsonMoney) error {
	if !m.set {
		return fmt.Errorf("%w: %s is required", core.ErrInvalidInput, field)
	}
	return nil
}
