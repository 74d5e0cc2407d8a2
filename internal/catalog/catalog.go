// Package catalog shapes the product list for browsing: normalization,
// rating enrichment, the shop filters and category grouping.
package catalog

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-storefront/internal/backend"
	"github.com/ariefcatur/go-storefront/internal/logkey"
)

const uncategorized = "uncategorized"

// DefaultBands are offered when the backend has no filter document.
var DefaultBands = []backend.PriceBand{
	{Label: "Under ₹499", Min: 0, Max: 499},
	{Label: "₹500 - ₹999", Min: 500, Max: 999},
	{Label: "₹1000+", Min: 1000, Max: 999999},
}

// Normalize fills the image list, the primary image and the canonical id
// from whichever fields the backend populated.
func Normalize(p backend.Product) backend.Product {
	if p.Images == nil {
		p.Images = backend.Images{}
	}
	if p.Image == "" && len(p.Images) > 0 {
		p.Image = p.Images[0]
	}
	p.ID = p.Key()
	return p
}

// Capitalize upper-cases the first letter of each space separated word and
// lower-cases the rest.
func Capitalize(s string) string {
	words := strings.Split(s, " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(strings.ToLower(w))
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ")
}

type API interface {
	Products(ctx context.Context, search string) ([]backend.Product, error)
	ProductRatings(ctx context.Context, productID string) (backend.RatingSummary, error)
	Filters(ctx context.Context) (backend.Filters, error)
}

type Catalog struct {
	API API
	Log *slog.Logger
	// RatingFetches bounds concurrent rating lookups; 0 means 8.
	RatingFetches int
}

func (c *Catalog) log() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}

// Products loads, normalizes and rates every product. A failed rating lookup
// leaves that product at zero rather than failing the list.
func (c *Catalog) Products(ctx context.Context) ([]backend.Product, error) {
	raw, err := c.API.Products(ctx, "")
	if err != nil {
		c.log().Error("load products", logkey.ERROR, err)
		return nil, err
	}
	out := make([]backend.Product, len(raw))
	for i, p := range raw {
		out[i] = Normalize(p)
	}

	limit := c.RatingFetches
	if limit <= 0 {
		limit = 8
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range out {
		i := i
		g.Go(func() error {
			r, err := c.API.ProductRatings(gctx, out[i].ID)
			if err != nil {
				out[i].AvgRating, out[i].RatingCount = 0, 0
				return nil
			}
			out[i].AvgRating, out[i].RatingCount = r.Avg, r.Count
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

// Filters returns the configured taxonomy or, when it cannot be loaded, one
// derived from products with the default price bands.
func (c *Catalog) Filters(ctx context.Context, products []backend.Product) backend.Filters {
	f, err := c.API.Filters(ctx)
	if err != nil {
		c.log().Warn("filters load failed, deriving from products", logkey.ERROR, err)
		return Fallback(products)
	}
	if f.Categories == nil {
		f.Categories = []string{}
	}
	if f.Brands == nil {
		f.Brands = []string{}
	}
	if f.PriceBands == nil {
		f.PriceBands = []backend.PriceBand{}
	}
	return f
}

// Fallback derives categories and brands from the products themselves.
func Fallback(products []backend.Product) backend.Filters {
	return backend.Filters{
		Categories: distinctLabels(products, func(p backend.Product) string { return p.Category }),
		Brands:     distinctLabels(products, func(p backend.Product) string { return p.Brand }),
		PriceBands: append([]backend.PriceBand(nil), DefaultBands...),
	}
}

func distinctLabels(products []backend.Product, field func(backend.Product) string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, p := range products {
		k := strings.ToLower(field(p))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, Capitalize(k))
	}
	return out
}

// Selection is the shopper's active filter state. Categories and brands
// match case-insensitively; price bands are referenced by label.
type Selection struct {
	Search     string   `json:"search"`
	Categories []string `json:"categories"`
	Brands     []string `json:"brands"`
	PriceBands []string `json:"priceBands"`
}

func lowerSet(vals []string) map[string]bool {
	if len(vals) == 0 {
		return nil
	}
	m := make(map[string]bool, len(vals))
	for _, v := range vals {
		m[strings.ToLower(strings.TrimSpace(v))] = true
	}
	return m
}

// Apply keeps the products matching every active part of the selection,
// in their original order. bands resolves the selected labels.
func (s Selection) Apply(products []backend.Product, bands []backend.PriceBand) []backend.Product {
	term := strings.ToLower(strings.TrimSpace(s.Search))
	cats := lowerSet(s.Categories)
	brands := lowerSet(s.Brands)

	var ranges []backend.PriceBand
	if len(s.PriceBands) > 0 {
		want := make(map[string]bool, len(s.PriceBands))
		for _, l := range s.PriceBands {
			want[l] = true
		}
		for _, b := range bands {
			if want[b.Label] {
				ranges = append(ranges, b)
			}
		}
	}

	out := []backend.Product{}
	for _, p := range products {
		if term != "" && !containsAny(term, p.Name, p.Brand, p.Category) {
			continue
		}
		if cats != nil && !cats[strings.ToLower(p.Category)] {
			continue
		}
		if brands != nil && !brands[strings.ToLower(p.Brand)] {
			continue
		}
		if len(s.PriceBands) > 0 && !inBands(p.Price, ranges) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func containsAny(term string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func inBands(price float64, bands []backend.PriceBand) bool {
	for _, b := range bands {
		if price >= b.Min && price <= b.Max {
			return true
		}
	}
	return false
}

type Group struct {
	Key   string            `json:"key"`
	Label string            `json:"label"`
	Items []backend.Product `json:"items"`
}

// GroupByCategory buckets products by lower-cased category in first-seen
// order. Products without a category land in "uncategorized".
func GroupByCategory(products []backend.Product) []Group {
	idx := map[string]int{}
	var out []Group
	for _, p := range products {
		raw := p.Category
		if raw == "" {
			raw = uncategorized
		}
		key := strings.ToLower(strings.TrimSpace(raw))
		if key == "" {
			key = uncategorized
		}
		i, ok := idx[key]
		if !ok {
			i = len(out)
			idx[key] = i
			out = append(out, Group{Key: key, Label: Capitalize(raw)})
		}
		out[i].Items = append(out[i].Items, p)
	}
	return out
}
