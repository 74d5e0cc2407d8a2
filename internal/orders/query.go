package orders

import (
	"sort"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/backend"
)

const (
	PageSize = 10
	All      = "All"
)

type Sort string

const (
	SortNewest Sort = "newest"
	SortOldest Sort = "oldest"
	SortHigh   Sort = "high"
	SortLow    Sort = "low"
)

// Query is the admin order list's filter state. Zero values mean no filter,
// newest first and the first page.
type Query struct {
	Search  string `json:"search"`
	Status  string `json:"status"`
	Courier string `json:"courier"`
	Sort    Sort   `json:"sort"`
	Page    int    `json:"page"`
}

// Page is one slice of a filtered and sorted order list.
type Page struct {
	Orders     []backend.Order `json:"orders"`
	Page       int             `json:"page"`
	TotalPages int             `json:"totalPages"`
	Total      int             `json:"total"`
}

func (q Query) matches(o backend.Order) bool {
	if q.Status != "" && q.Status != All && o.Status != q.Status {
		return false
	}
	if c := strings.TrimSpace(q.Courier); c != "" && c != All {
		if !strings.Contains(strings.ToLower(o.Courier()), strings.ToLower(c)) {
			return false
		}
	}
	term := strings.ToLower(strings.TrimSpace(q.Search))
	if term == "" {
		return true
	}
	for _, f := range searchFields(o) {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func searchFields(o backend.Order) []string {
	return []string{
		o.ID,
		o.User.Name,
		o.User.Email,
		o.ShippingAddress.FullName,
		o.ShippingAddress.Email,
		o.ShippingAddress.Phone,
		o.TrackingNumber(),
	}
}

// Filter returns the matching orders in the query's sort order. The input is
// not modified.
func (q Query) Filter(all []backend.Order) []backend.Order {
	out := make([]backend.Order, 0, len(all))
	for _, o := range all {
		if q.matches(o) {
			out = append(out, o)
		}
	}
	var less func(a, b backend.Order) bool
	switch q.Sort {
	case SortOldest:
		less = func(a, b backend.Order) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortHigh:
		less = func(a, b backend.Order) bool { return a.TotalAmount > b.TotalAmount }
	case SortLow:
		less = func(a, b backend.Order) bool { return a.TotalAmount < b.TotalAmount }
	default:
		less = func(a, b backend.Order) bool { return a.CreatedAt.After(b.CreatedAt) }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Apply filters, sorts and cuts one page. The page number is clamped into
// [1, TotalPages].
func (q Query) Apply(all []backend.Order) Page {
	filtered := q.Filter(all)
	pages := (len(filtered) + PageSize - 1) / PageSize
	p := q.Page
	if p < 1 {
		p = 1
	}
	if pages > 0 && p > pages {
		p = pages
	}
	start := (p - 1) * PageSize
	end := start + PageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}
	return Page{Orders: filtered[start:end], Page: p, TotalPages: pages, Total: len(filtered)}
}

// Couriers lists the distinct non-empty couriers in first-seen order, for the
// courier filter dropdown.
func Couriers(all []backend.Order) []string {
	seen := make(map[string]bool)
	var out []string
	for _, o := range all {
		c := o.Courier()
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
