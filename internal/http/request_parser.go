// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// list paging, report date ranges and path ids.

package http

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"kern/internal/api"
)

const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// Paging holds parsed list parameters.
type Paging struct {
	Skip   int
	Limit  int
	Status api.TransactionStatus
}

// Next returns the paging of the following page.
func (p Paging) Next() Paging {
	p.Skip += p.Limit
	return p
}

// Prev returns the paging of the previous page, clamped at zero.
func (p Paging) Prev() Paging {
	p.Skip = max(p.Skip-p.Limit, 0)
	return p
}

// Query renders p as query parameters, safe to place after "?" in a template.
func (p Paging) Query() template.URL {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(p.Skip))
	q.Set("limit", strconv.Itoa(p.Limit))
	if p.Status != "" {
		q.Set("status", string(p.Status))
	}
	return template.URL(q.Encode())
}

// ParsePaging extracts skip, limit and status from query parameters.
// Malformed or out-of-range values fall back to defaults; unknown
// statuses are dropped.
func ParsePaging(query url.Values) Paging {
	p := Paging{Limit: DefaultPageSize}

	if v := strings.TrimSpace(query.Get("skip")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			p.Skip = n
		}
	}
	if v := strings.TrimSpace(query.Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Limit = min(n, MaxPageSize)
		}
	}
	if s := api.TransactionStatus(strings.TrimSpace(query.Get("status"))); s.Valid() {
		p.Status = s
	}
	return p
}

// DateRange is the reporting window of the reports page.
type DateRange struct {
	Start api.Date
	End   api.Date
}

// ParseDateRange reads start_date and end_date. Missing values default to
// the first day of the current month and today.
func ParseDateRange(query url.Values, now time.Time) (DateRange, error) {
	r := DateRange{
		Start: api.NewDate(now.Year(), now.Month(), 1),
		End:   api.NewDate(now.Year(), now.Month(), now.Day()),
	}

	if v := strings.TrimSpace(query.Get("start_date")); v != "" {
		d, err := api.ParseDate(v)
		if err != nil {
			return DateRange{}, fmt.Errorf("invalid start date: %w", err)
		}
		r.Start = d
	}
	if v := strings.TrimSpace(query.Get("end_date")); v != "" {
		d, err := api.ParseDate(v)
		if err != nil {
			return DateRange{}, fmt.Errorf("invalid end date: %w", err)
		}
		r.End = d
	}
	if r.End.Before(r.Start.Time) {
		return DateRange{}, fmt.Errorf("end date %s is before start date %s", r.End, r.Start)
	}
	return r, nil
}

// ParseIDParam reads a uuid route parameter.
func ParseIDParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return id, nil
}

// SanitizeInput trims whitespace and removes control characters.
func SanitizeInput(input string) string {
	input = strings.TrimSpace(input)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, input)
}

// FormValue returns a sanitized form value.
func FormValue(r *http.Request, key string) string {
	return SanitizeInput(r.FormValue(key))
}
