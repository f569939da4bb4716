package audit

import (
	"context"
	"errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
	exportCap       = 10000
)

// Lister abstracts the repository for tests.
type Lister interface {
	List(ctx context.Context, filters Filters, limit, offset int) ([]Entry, error)
}

// Service coordinates audit trail reads.
type Service struct {
	repo Lister
}

// NewService constructs Service.
func NewService(repo Lister) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of the audit trail.
func (s *Service) Timeline(ctx context.Context, filters Filters) (Result, error) {
	if s == nil || s.repo == nil {
		return Result{}, errors.New("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	// Fetch one extra row to detect a next page without counting.
	rows, err := s.repo.List(ctx, filters, pageSize+1, offset)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}

	paging := Paging{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export returns the full filtered trail, capped to keep responses bounded.
func (s *Service) Export(ctx context.Context, filters Filters) ([]Entry, error) {
	if s == nil || s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	return s.repo.List(ctx, filters, exportCap, 0)
}
