// Package pagination maps item lists onto fixed-size pages.
package pagination

// DefaultPerPage is the number of memos shown per page.
const DefaultPerPage = 5

// Page is one window over a list.
type Page[T any] struct {
	Items       []T `json:"items"`
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalItems  int `json:"totalItems"`
	PerPage     int `json:"perPage"`
}

// TotalPages returns max(1, ceil(n/perPage)). A non-positive perPage is
// treated as DefaultPerPage.
func TotalPages(n, perPage int) int {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if n <= 0 {
		return 1
	}
	return (n + perPage - 1) / perPage
}

// Clamp forces page into [1, total].
func Clamp(page, total int) int {
	if total < 1 {
		total = 1
	}
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}

// Paginate returns the clamped page of items.
func Paginate[T any](items []T, perPage, page int) Page[T] {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	total := TotalPages(len(items), perPage)
	current := Clamp(page, total)

	start := (current - 1) * perPage
	end := min(start+perPage, len(items))
	window := []T{}
	if start < end {
		window = items[start:end]
	}

	return Page[T]{
		Items:       window,
		CurrentPage: current,
		TotalPages:  total,
		TotalItems:  len(items),
		PerPage:     perPage,
	}
}

// Pager keeps a current page across changes to the underlying list.
type Pager[T any] struct {
	perPage int
	page    int
	items   []T
}

// NewPager creates a pager positioned on page 1.
func NewPager[T any](perPage int) *Pager[T] {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return &Pager[T]{perPage: perPage, page: 1}
}

// SetItems replaces the list and re-clamps the current page.
func (p *Pager[T]) SetItems(items []T) {
	p.items = items
	p.page = Clamp(p.page, TotalPages(len(items), p.perPage))
}

// GoTo moves to page n, clamped into range.
func (p *Pager[T]) GoTo(n int) {
	p.page = Clamp(n, TotalPages(len(p.items), p.perPage))
}

// Current returns the visible page.
func (p *Pager[T]) Current() Page[T] {
	return Paginate(p.items, p.perPage, p.page)
}
