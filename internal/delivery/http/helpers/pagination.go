package helpers

import (
	"net/http"
	"strconv"

	"eventpublisher/internal/domain"
)

// Pagination query parameter defaults and limits.
const (
	DefaultFrom = 0
	DefaultSize = 10
	MaxSize     = 100
)

// ParsePage reads from and size from the request query string,
// clamps them to valid ranges, and returns a domain.Page.
// Invalid or missing values fall back to defaults.
func ParsePage(r *http.Request) domain.Page {
	from := DefaultFrom
	if s := r.URL.Query().Get("from"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			from = v
		}
	}
	size := DefaultSize
	if s := r.URL.Query().Get("size"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 1 {
			size = min(v, MaxSize)
		}
	}
	return domain.Page{From: from, Size: size}
}
