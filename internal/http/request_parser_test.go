package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kern/internal/api"
)

func TestParsePaging(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Paging
	}{
		{"defaults", "", Paging{Limit: DefaultPageSize}},
		{"explicit", "skip=50&limit=10&status=flagged", Paging{Skip: 50, Limit: 10, Status: api.StatusFlagged}},
		{"limit capped", "limit=1000", Paging{Limit: MaxPageSize}},
		{"negative skip ignored", "skip=-3", Paging{Limit: DefaultPageSize}},
		{"garbage ignored", "skip=x&limit=y", Paging{Limit: DefaultPageSize}},
		{"unknown status dropped", "status=deleted", Paging{Limit: DefaultPageSize}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ParsePaging(q))
		})
	}
}

func TestPagingNavigation(t *testing.T) {
	p := Paging{Skip: 10, Limit: 25, Status: api.StatusPending}

	assert.Equal(t, 35, p.Next().Skip)
	assert.Equal(t, 0, p.Prev().Skip)
	assert.Equal(t, "limit=25&skip=10&status=pending", string(p.Query()))
}

func TestParseDateRange(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	r, err := ParseDateRange(url.Values{}, now)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", r.Start.String())
	assert.Equal(t, "2024-03-15", r.End.String())

	r, err = ParseDateRange(url.Values{"start_date": {"2024-01-01"}, "end_date": {"2024-01-31"}}, now)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", r.Start.String())
	assert.Equal(t, "2024-01-31", r.End.String())

	_, err = ParseDateRange(url.Values{"start_date": {"01/01/2024"}}, now)
	assert.Error(t, err)

	_, err = ParseDateRange(url.Values{"start_date": {"2024-02-01"}, "end_date": {"2024-01-01"}}, now)
	assert.Error(t, err)
}

func TestParseIDParam(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "6f1c1b7e-52a4-4c39-9d53-0f1f3f2d2b11")
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

	id, err := ParseIDParam(r, "id")
	require.NoError(t, err)
	assert.Equal(t, "6f1c1b7e-52a4-4c39-9d53-0f1f3f2d2b11", id.String())

	rctx.URLParams = chi.RouteParams{}
	rctx.URLParams.Add("id", "nope")
	_, err = ParseIDParam(r, "id")
	assert.Error(t, err)
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "hello world", SanitizeInput("  hello\x00 world\x07 "))
	assert.Equal(t, "a\tb", SanitizeInput("a\tb"))
}
