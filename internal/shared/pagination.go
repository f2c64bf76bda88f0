package shared

import "math"

const (
	// DefaultPage is the first page.
	DefaultPage = 1
	// DefaultLimit is the page size used when none is requested.
	DefaultLimit = 10
	// MaxLimit caps the page size.
	MaxLimit = 100
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	Limit       int `json:"limit"`
	TotalCount  int `json:"totalCount"`
	TotalPages  int `json:"totalPages"`
}

// NormalizePage clamps page and limit to valid 1-indexed values.
func NormalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// Offset returns the row offset for page and limit.
func Offset(page, limit int) int {
	page, limit = NormalizePage(page, limit)
	return (page - 1) * limit
}

// NewPagination computes pagination metadata.
func NewPagination(page, limit, total int) Pagination {
	page, limit = NormalizePage(page, limit)
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return Pagination{CurrentPage: page, Limit: limit, TotalCount: total, TotalPages: totalPages}
}
