package view

import (
	"math"
	"strconv"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Page selects a 1-based page of Limit records.
type Page struct {
	Page  int
	Limit int
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// ParsePage reads the page and limit query parameters. Empty values take
// defaults; limits above max are clamped. Pages whose offset would overflow
// are rejected.
func ParsePage(page, limit string, defaultLimit, maxLimit int) (Page, error) {
	p := Page{Page: 1, Limit: defaultLimit}
	if page != "" {
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 {
			return Page{}, invalid("page", "%q must be a positive integer", page)
		}
		p.Page = n
	}
	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			return Page{}, invalid("limit", "%q must be a positive integer", limit)
		}
		p.Limit = min(n, maxLimit)
	}
	if p.Page > math.MaxInt/p.Limit {
		return Page{}, invalid("page", "%d is out of range for limit %d", p.Page, p.Limit)
	}
	return p, nil
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// NewPagination computes page metadata for total matching records.
func NewPagination(p Page, total int64) Pagination {
	var pages int
	if p.Limit > 0 {
		pages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return Pagination{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: pages,
		HasNext:    p.Page < pages,
		HasPrev:    p.Page > 1,
	}
}
