// Package shared holds list filters and constants common to the
// masterdata registries.
package shared

// Default pagination.
const (
	DefaultPage  = 1
	DefaultLimit = 20
)

// Sort directions.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListFilters represents standard list page filters.
type ListFilters struct {
	Page    int
	Limit   int
	Search  string
	SortBy  string
	SortDir string

	IsActive *bool

	// Entity specific filters.
	Type       string
	GroupID    *int64
	AssemblyID *int64
	SupplierID *int64
}

// Offset computes the row offset for the current page.
func (f ListFilters) Offset() int {
	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit < 1 {
		limit = DefaultLimit
	}
	return (page - 1) * limit
}
