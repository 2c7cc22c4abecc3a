package service

import "github.com/finance-tracker/internal/config"

// Pagination normalizes page requests against configured limits
type Pagination struct {
	DefaultPageSize int
	MaxPageSize     int
}

// NewPagination creates a Pagination from config
func NewPagination(cfg config.PaginationConfig) Pagination {
	return Pagination{
		DefaultPageSize: cfg.DefaultPageSize,
		MaxPageSize:     cfg.MaxPageSize,
	}
}

// Normalize clamps page to >= 1 and pageSize to [1, MaxPageSize]
func (p Pagination) Normalize(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = p.DefaultPageSize
	}
	if p.MaxPageSize > 0 && pageSize > p.MaxPageSize {
		pageSize = p.MaxPageSize
	}
	return page, pageSize
}
