package listutil

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

const (
	// DefaultPerPage applies when per_page is missing or unparsable.
	DefaultPerPage = 20
	// MaxPerPage bounds a single page; larger requests are clamped.
	MaxPerPage = 200
)

// Columns whitelists the query parameters a listing accepts.
// Names are the public parameter names; stores map them to their own columns.
type Columns struct {
	Sort   []string
	Filter []string
}

// ListParams is a parsed back-office list request.
type ListParams struct {
	Page    int // 1-indexed
	PerPage int
	Sort    string // "" when absent or not whitelisted
	Desc    bool
	Search  string
	Filters map[string]string // exact-match filters (e.g. category=Student)
}

// Query is what a store needs to fetch one page of records.
// An empty Sort means newest first.
type Query struct {
	Search  string
	Filters map[string]string
	Sort    string
	Desc    bool
	Limit   int
	Offset  int
}

// PageInfo carries pagination metadata for list responses.
type PageInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Page is one page of list results.
type Page[T any] struct {
	Items    []T      `json:"items"`
	PageInfo PageInfo `json:"pageInfo"`
}

// Parse reads page, per_page (or perPage), sort, dir, q and the whitelisted filters.
// PRE: none
// POST: 1 <= PerPage <= MaxPerPage; Sort is "" or a member of cols.Sort; Filters holds only cols.Filter keys
func Parse(q url.Values, cols Columns) ListParams {
	lp := ListParams{
		Page:    1,
		PerPage: DefaultPerPage,
		Search:  strings.TrimSpace(q.Get("q")),
		Filters: make(map[string]string),
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 1 {
		lp.Page = n
	}

	raw := q.Get("per_page")
	if raw == "" {
		raw = q.Get("perPage")
	}
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		lp.PerPage = min(n, MaxPerPage)
	}

	if s := q.Get("sort"); slices.Contains(cols.Sort, s) {
		lp.Sort = s
		lp.Desc = strings.EqualFold(q.Get("dir"), "desc")
	}

	for _, key := range cols.Filter {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			lp.Filters[key] = v
		}
	}
	return lp
}

// Query converts the parameters into a store query for the requested page.
// POST: Limit == PerPage, Offset == (Page-1) * PerPage
func (lp ListParams) Query() Query {
	return Query{
		Search:  lp.Search,
		Filters: lp.Filters,
		Sort:    lp.Sort,
		Desc:    lp.Desc,
		Limit:   lp.PerPage,
		Offset:  PageInfo{Page: lp.Page, PerPage: lp.PerPage}.Offset(),
	}
}

// NewPageInfo computes pagination metadata.
// POST: TotalPages >= 1; Page is clamped into [1, TotalPages]
func NewPageInfo(page, perPage, total int) PageInfo {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	pages := max(1, (total+perPage-1)/perPage)
	return PageInfo{
		Page:       min(max(page, 1), pages),
		PerPage:    perPage,
		Total:      total,
		TotalPages: pages,
	}
}

// NewPage wraps items fetched for lp with pagination metadata.
func NewPage[T any](items []T, lp ListParams, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, PageInfo: NewPageInfo(lp.Page, lp.PerPage, total)}
}

// Offset returns the row offset for the current page.
func (p PageInfo) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PerPage
}
