package pagination

import (
	"net/http"
	"strconv"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Params is a page request. Page is 1-based.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

func DefaultParams() Params {
	return Params{Page: 1, PerPage: DefaultPerPage}
}

// FromRequest reads ?page= and ?per_page=, ignoring values out of range.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()
	q := r.URL.Query()
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("per_page")); err == nil && v > 0 && v <= MaxPerPage {
		p.PerPage = v
	}
	return p
}

func (p Params) Offset() int { return (p.Page - 1) * p.PerPage }
func (p Params) Limit() int  { return p.PerPage }

// Result is one page of T plus totals.
type Result[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

func NewResult[T any](data []T, totalCount int, p Params) Result[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := (totalCount + p.PerPage - 1) / p.PerPage
	return Result[T]{
		Data:       data,
		TotalCount: totalCount,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
		HasPrev:    p.Page > 1,
	}
}
