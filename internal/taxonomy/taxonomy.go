// Package taxonomy edits the shop's filter document: the category and brand
// lists and the price bands. Edits are local until Save.
package taxonomy

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/backend"
)

const defaultBandMax = 999999

var (
	ErrEmptyName        = errors.New("taxonomy: name required")
	ErrDuplicate        = errors.New("taxonomy: already exists")
	ErrIndex            = errors.New("taxonomy: index out of range")
	ErrInvalidPriceBand = errors.New("taxonomy: invalid price band")
)

// BandError carries the operator-facing reason a price band was rejected.
type BandError struct{ Reason string }

func (e *BandError) Error() string { return e.Reason }

func (e *BandError) Unwrap() error { return ErrInvalidPriceBand }

type API interface {
	Filters(ctx context.Context) (backend.Filters, error)
	SaveFilters(ctx context.Context, f backend.Filters) error
}

type Editor struct {
	Categories []string            `json:"categories"`
	Brands     []string            `json:"brands"`
	Bands      []backend.PriceBand `json:"priceRanges"`
}

// FromFilters trims every entry. A band with no max gets the open upper bound.
func FromFilters(f backend.Filters) *Editor {
	e := &Editor{Categories: []string{}, Brands: []string{}, Bands: []backend.PriceBand{}}
	for _, c := range f.Categories {
		e.Categories = append(e.Categories, strings.TrimSpace(c))
	}
	for _, b := range f.Brands {
		e.Brands = append(e.Brands, strings.TrimSpace(b))
	}
	for _, b := range f.PriceBands {
		b.Label = strings.TrimSpace(b.Label)
		if b.Max == 0 && b.Min == 0 {
			b.Max = defaultBandMax
		}
		e.Bands = append(e.Bands, b)
	}
	return e
}

func Load(ctx context.Context, api API) (*Editor, error) {
	f, err := api.Filters(ctx)
	if err != nil {
		return nil, err
	}
	return FromFilters(f), nil
}

// Filters is the trimmed document Save sends.
func (e *Editor) Filters() backend.Filters {
	out := backend.Filters{Categories: []string{}, Brands: []string{}, PriceBands: []backend.PriceBand{}}
	for _, c := range e.Categories {
		out.Categories = append(out.Categories, strings.TrimSpace(c))
	}
	for _, b := range e.Brands {
		out.Brands = append(out.Brands, strings.TrimSpace(b))
	}
	for _, b := range e.Bands {
		b.Label = strings.TrimSpace(b.Label)
		out.PriceBands = append(out.PriceBands, b)
	}
	return out
}

func (e *Editor) Save(ctx context.Context, api API) error {
	return api.SaveFilters(ctx, e.Filters())
}

func (e *Editor) AddCategory(name string) error { return addUnique(&e.Categories, name) }
func (e *Editor) AddBrand(name string) error    { return addUnique(&e.Brands, name) }

func (e *Editor) RemoveCategory(i int) error { return remove(&e.Categories, i) }
func (e *Editor) RemoveBrand(i int) error    { return remove(&e.Brands, i) }
func (e *Editor) RemoveBand(i int) error     { return remove(&e.Bands, i) }

// Move shifts an entry by dir positions. Moves past either end are ignored.
func (e *Editor) MoveCategory(i, dir int) { move(e.Categories, i, dir) }
func (e *Editor) MoveBrand(i, dir int)    { move(e.Brands, i, dir) }
func (e *Editor) MoveBand(i, dir int)     { move(e.Bands, i, dir) }

// AddBand validates and appends a band from form input.
func (e *Editor) AddBand(label, min, max string) error {
	b, err := ParseBand(label, min, max)
	if err != nil {
		return err
	}
	e.Bands = append(e.Bands, b)
	return nil
}

func (e *Editor) UpdateBand(i int, label, min, max string) error {
	if i < 0 || i >= len(e.Bands) {
		return ErrIndex
	}
	b, err := ParseBand(label, min, max)
	if err != nil {
		return err
	}
	e.Bands[i] = b
	return nil
}

// ParseBand reads a band from form strings. Blank numbers count as zero.
func ParseBand(label, minS, maxS string) (backend.PriceBand, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return backend.PriceBand{}, &BandError{"Label required"}
	}
	lo, err1 := number(minS)
	hi, err2 := number(maxS)
	if err1 != nil || err2 != nil {
		return backend.PriceBand{}, &BandError{"Min & Max must be numbers"}
	}
	if lo < 0 || hi < 0 {
		return backend.PriceBand{}, &BandError{"Min/Max should be >= 0"}
	}
	if hi < lo {
		return backend.PriceBand{}, &BandError{"Max should be >= Min"}
	}
	return backend.PriceBand{Label: label, Min: lo, Max: hi}, nil
}

func number(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrSyntax
	}
	return f, nil
}

func addUnique(list *[]string, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	for _, v := range *list {
		if strings.EqualFold(v, name) {
			return ErrDuplicate
		}
	}
	*list = append(*list, name)
	return nil
}

func remove[T any](list *[]T, i int) error {
	if i < 0 || i >= len(*list) {
		return ErrIndex
	}
	*list = append((*list)[:i:i], (*list)[i+1:]...)
	return nil
}

func move[T any](list []T, i, dir int) {
	to := i + dir
	if i < 0 || i >= len(list) || to < 0 || to >= len(list) {
		return
	}
	item := list[i]
	if to < i {
		copy(list[to+1:i+1], list[to:i])
	} else {
		copy(list[i:to], list[i+1:to+1])
	}
	list[to] = item
}
