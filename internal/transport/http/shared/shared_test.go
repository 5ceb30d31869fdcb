package shared

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 15, 18, 30, 0, 0, time.UTC)

func TestDateRangeDefaults(t *testing.T) {
	v := NewValidator()
	from, to := v.DateRange("", "", time.UTC, now, 30)
	require.False(t, v.HasIssues())
	assert.Equal(t, time.Date(2025, 5, 16, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2025, 6, 15, 23, 59, 59, 0, time.UTC), to)
}

func TestDateRangeExplicit(t *testing.T) {
	v := NewValidator()
	from, to := v.DateRange("2025-06-01", "2025-06-02", time.UTC, now, 30)
	require.False(t, v.HasIssues())
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2025, 6, 2, 23, 59, 59, 0, time.UTC), to, "bare end date covers the day")

	v = NewValidator()
	v.DateRange("2025-06-10", "2025-06-01", time.UTC, now, 30)
	assert.True(t, v.HasIssues())

	v = NewValidator()
	v.DateRange("yesterday", "", time.UTC, now, 30)
	require.Len(t, v.Issues(), 1)
	assert.Equal(t, "startDate", v.Issues()[0].Field)
}

func TestDateRangeUsesZone(t *testing.T) {
	zone := time.FixedZone("CDT", -5*3600)
	v := NewValidator()
	from, _ := v.DateRange("2025-06-01", "", zone, now, 7)
	assert.Equal(t, time.Date(2025, 6, 1, 5, 0, 0, 0, time.UTC), from)
}

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=8"`
	Rating   int    `json:"rating" validate:"omitempty,min=1,max=5"`
}

func TestStructValidation(t *testing.T) {
	v := NewValidator()
	v.Struct(signup{Email: "nope", Password: "short", Rating: 9})
	issues := v.Issues()
	require.Len(t, issues, 3)
	assert.Equal(t, ValidationIssue{Field: "email", Reason: "must be a valid email address"}, issues[0])
	assert.Equal(t, ValidationIssue{Field: "password", Reason: "must be at least 8"}, issues[1])
	assert.Equal(t, ValidationIssue{Field: "rating", Reason: "must be at most 5"}, issues[2])

	v = NewValidator()
	v.Struct(signup{Email: "a@b.co", Password: "longenough"})
	assert.False(t, v.HasIssues())
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	assert.Equal(t, "10.0.0.9", ClientIP(r))

	r.Header.Set("X-Real-IP", "192.0.2.4")
	assert.Equal(t, "192.0.2.4", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", ClientIP(r))
}

func TestParsePagination(t *testing.T) {
	r := httptest.NewRequest("GET", "/?limit=900&offset=20", nil)
	page := ParsePagination(r, 100, 500)
	assert.Equal(t, Pagination{Limit: 500, Offset: 20}, page)

	r = httptest.NewRequest("GET", "/?limit=-3&offset=abc", nil)
	assert.Equal(t, Pagination{Limit: 100}, ParsePagination(r, 100, 500))

	rec := httptest.NewRecorder()
	page.WriteTotal(rec, 42)
	assert.Equal(t, "42", rec.Header().Get("X-Total-Count"))
}
