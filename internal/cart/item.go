// Package cart holds a shopping cart in memory and keeps it in step with the
// user's remote cart record by overwriting the whole record after every
// change.
package cart

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrUnknownItem = errors.New("cart: no such item")

// LineItem is one product row. Quantity is always at least 1; a row whose
// quantity would reach 0 is removed instead.
type LineItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image,omitempty"`
	Quantity  int     `json:"quantity"`
}

// Subtotal is price times quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return decimal.NewFromFloat(li.Price).Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// RawItem is an item as it arrives from any source, with whichever id field
// that source happened to fill in. A nil Quantity means the field was absent.
type RawItem struct {
	ProductID string
	MongoID   string
	ID        string
	Name      string
	Price     float64
	Image     string
	Quantity  *int
}

// ResolveID picks the canonical id: productId, then _id, then id. When all
// three are empty it falls back to DegenerateID and reports degenerate=true.
func ResolveID(r RawItem) (id string, degenerate bool) {
	for _, v := range []string{r.ProductID, r.MongoID, r.ID} {
		if v = strings.TrimSpace(v); v != "" {
			return v, false
		}
	}
	return DegenerateID(r.Name, r.Price), true
}

// DegenerateID builds a key from name and price for items that carry no id
// at all. It is only stable for the life of a session, and two distinct
// products with the same name and price collapse into one row.
func DegenerateID(name string, price float64) string {
	return name + "-" + decimal.NewFromFloat(price).String()
}

func normalize(r RawItem) (LineItem, bool) {
	id, degenerate := ResolveID(r)
	qty := 1
	if r.Quantity != nil && *r.Quantity > 0 {
		qty = *r.Quantity
	}
	return LineItem{
		ProductID: id,
		Name:      r.Name,
		Price:     r.Price,
		Image:     r.Image,
		Quantity:  qty,
	}, degenerate
}

// Total sums price times quantity over items.
func Total(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Subtotal())
	}
	return sum
}
