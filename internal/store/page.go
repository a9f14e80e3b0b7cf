package store

import "strconv"

// Pagination defaults.
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// ParsePage coerces raw page/limit query values to positive integers.
// Missing or invalid values fall back to page 1 and limit 20; limit is
// capped at MaxLimit.
func ParsePage(rawPage, rawLimit string) (page, limit int) {
	return ClampPage(atoi(rawPage), atoi(rawLimit))
}

// ClampPage applies the pagination defaults to already-parsed values.
func ClampPage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// Result is one page of a query.
type Result struct {
	Docs        []*Document `json:"docs"`
	TotalDocs   int         `json:"totalDocs"`
	TotalPages  int         `json:"totalPages"`
	Page        int         `json:"page"`
	Limit       int         `json:"limit"`
	HasNextPage bool        `json:"hasNextPage"`
	HasPrevPage bool        `json:"hasPrevPage"`
	NextPage    *int        `json:"nextPage"`
	PrevPage    *int        `json:"prevPage"`
}

// NewResult computes the pagination envelope for a page of docs.
func NewResult(docs []*Document, total, page, limit int) *Result {
	if docs == nil {
		docs = []*Document{}
	}
	r := &Result{Docs: docs, TotalDocs: total, Page: page, Limit: limit}
	if limit > 0 {
		r.TotalPages = (total + limit - 1) / limit
	}
	r.HasPrevPage = page > 1
	r.HasNextPage = page < r.TotalPages
	if r.HasPrevPage {
		p := page - 1
		r.PrevPage = &p
	}
	if r.HasNextPage {
		n := page + 1
		r.NextPage = &n
	}
	return r
}
