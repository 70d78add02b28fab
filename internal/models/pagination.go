package models

import "math"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage keeps (page-1)*page_size inside int for every page size.
	MaxPage = math.MaxInt / MaxPageSize
)

// Pagination holds the normalized page/page_size pair of a list request.
type Pagination struct {
	Page     int `query:"page"`
	PageSize int `query:"page_size"`
}

// Normalize applies the page size defaults. A page below 1 is left for the
// caller to reject.
func (p *Pagination) Normalize() {
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
}

// Offset returns the row offset of the current page. It never goes negative
// and saturates at math.MaxInt.
func (p Pagination) Offset() int {
	if p.Page < 1 || p.PageSize < 1 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.PageSize {
		return math.MaxInt
	}
	return (p.Page - 1) * p.PageSize
}

// Page is the list envelope returned by every list endpoint.
type Page[T any] struct {
	Count      int `json:"count"`
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
	Results    []T `json:"results"`
}

// NewPage builds a page envelope for a total row count.
func NewPage[T any](results []T, total int, p Pagination) *Page[T] {
	if results == nil {
		results = []T{}
	}
	totalPages := 0
	if total > 0 && p.PageSize > 0 {
		totalPages = (total + p.PageSize - 1) / p.PageSize
	}
	return &Page[T]{
		Count:      total,
		Page:       p.Page,
		TotalPages: totalPages,
		Results:    results,
	}
}

// Paginate slices a fully materialized list into the requested page.
func Paginate[T any](all []T, p Pagination) *Page[T] {
	start := min(max(p.Offset(), 0), len(all))
	end := min(start+max(p.PageSize, 0), len(all))
	page := make([]T, end-start)
	copy(page, all[start:end])
	return NewPage(page, len(all), p)
}
