// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// JSON bodies, tolerant number fields and the query parameters shared by the
// listing and dashboard endpoints.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

const maxBodyBytes = 1 << 20

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// decodeJSON reads a single JSON object from the request body into dst.
// Unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.NewValidationError("body", "too large")
		}
		return core.NewValidationError("body", "unreadable")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return core.NewValidationError("body", "required")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return core.NewValidationError("body", "malformed JSON")
	}
	return nil
}

// flexAmount accepts a JSON number or a numeric string, with either decimal
// separator. It keeps the literal so no precision is lost to float64.
type flexAmount struct {
	raw string
	set bool
}

func (a *flexAmount) UnmarshalJSON(data []byte) error {
	s := string(bytes.TrimSpace(data))
	if s == "null" {
		*a = flexAmount{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	*a = flexAmount{raw: s, set: true}
	return nil
}

// Decimal parses the literal. A missing amount is a validation error.
func (a flexAmount) Decimal() (decimal.Decimal, error) {
	return core.ParseAmount(a.raw)
}

// flexInt accepts a JSON integer or a string holding one.
type flexInt struct {
	value int
	set   bool
}

func (n *flexInt) UnmarshalJSON(data []byte) error {
	s := string(bytes.TrimSpace(data))
	if s == "null" {
		*n = flexInt{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*n = flexInt{value: v, set: true}
	return nil
}

// parseDate accepts RFC 3339 timestamps and zone-less date or date-time
// forms. Zone-less input is read in loc.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if layout == time.RFC3339Nano {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognised date")
}

// QueryParams wraps url.Values with typed, validating accessors.
type QueryParams struct {
	values url.Values
	loc    *time.Location
}

func NewQueryParams(query url.Values, loc *time.Location) QueryParams {
	if loc == nil {
		loc = time.UTC
	}
	return QueryParams{values: query, loc: loc}
}

// present reports the trimmed value and whether it carries information.
// Empty strings and the literal "null" count as absent.
func (q QueryParams) present(name string) (string, bool) {
	v := strings.TrimSpace(q.values.Get(name))
	if v == "" || v == "null" {
		return "", false
	}
	return v, true
}

// Int returns the named integer, or fallback when it is absent.
func (q QueryParams) Int(name string, fallback int) (int, error) {
	v, ok := q.present(name)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, core.NewValidationError(name, "must be an integer")
	}
	return n, nil
}

// Positive is Int constrained to 1..max.
func (q QueryParams) Positive(name string, fallback, max int) (int, error) {
	n, err := q.Int(name, fallback)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > max {
		return 0, core.NewValidationError(name, "must be between 1 and "+strconv.Itoa(max))
	}
	return n, nil
}

// Time returns the named instant, or the zero time when it is absent.
func (q QueryParams) Time(name string) (time.Time, error) {
	v, ok := q.present(name)
	if !ok {
		return time.Time{}, nil
	}
	t, err := parseDate(v, q.loc)
	if err != nil {
		return time.Time{}, core.NewValidationError(name, "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
	}
	return t, nil
}

// Kind returns the transaction kind filter; "all" and absent mean any.
func (q QueryParams) Kind(name string) (core.Kind, error) {
	v, _ := q.present(name)
	return core.ParseKind(v)
}

// Category returns the category filter; "all" and absent mean any.
func (q QueryParams) Category(name string) string {
	v, ok := q.present(name)
	if !ok || v == "all" {
		return ""
	}
	return sanitizeInput(v)
}

// MonthYear reads month and year together. Both absent yields zeros; one
// without the other is rejected.
func (q QueryParams) MonthYear() (month, year int, err error) {
	if month, err = q.Int("month", 0); err != nil {
		return 0, 0, err
	}
	if year, err = q.Int("year", 0); err != nil {
		return 0, 0, err
	}
	if (month == 0) != (year == 0) {
		return 0, 0, core.NewValidationError("month", "month and year must be given together")
	}
	return month, year, nil
}
