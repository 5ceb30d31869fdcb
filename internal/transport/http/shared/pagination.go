package shared

import (
	"net/http"
	"strconv"
)

// Pagination is a limit/offset window read from ?limit and ?offset.
type Pagination struct {
	Limit  int
	Offset int
}

// ParsePagination falls back to defaultLimit for a missing or non-positive
// limit and caps it at maxLimit. Negative or garbage offsets read as 0.
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Pagination {
	query := r.URL.Query()
	page := Pagination{
		Limit:  positiveInt(query.Get("limit"), defaultLimit),
		Offset: positiveInt(query.Get("offset"), 0),
	}
	if maxLimit > 0 {
		page.Limit = min(page.Limit, maxLimit)
	}
	return page
}

// WriteTotal exposes the unpaginated result size to list clients.
func (p Pagination) WriteTotal(w http.ResponseWriter, total int) {
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
}

func positiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
