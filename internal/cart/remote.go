package cart

import (
	"context"

	"github.com/ariefcatur/go-storefront/internal/backend"
)

// Remote is the per-user cart record kept by the backend.
type Remote interface {
	LoadCart(ctx context.Context, userID string) ([]RawItem, error)
	SaveCart(ctx context.Context, userID string, items []LineItem) error
}

// LocalStore keeps the session copy of a cart. Load returns nil, nil when
// nothing is stored under key.
type LocalStore interface {
	Load(ctx context.Context, key string) ([]LineItem, error)
	Save(ctx context.Context, key string, items []LineItem) error
	Delete(ctx context.Context, key string) error
}

// BackendRemote adapts the REST client to Remote.
type BackendRemote struct {
	Client *backend.Client
}

func (b BackendRemote) LoadCart(ctx context.Context, userID string) ([]RawItem, error) {
	entries, err := b.Client.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]RawItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RawItem{
			ProductID: e.ProductID,
			MongoID:   e.MongoID,
			ID:        e.ID,
			Name:      e.Name,
			Price:     e.Price,
			Image:     e.Image,
			Quantity:  e.Quantity,
		})
	}
	return out, nil
}

// SaveCart sends every id field set to the canonical id, which is what other
// readers of the record expect.
func (b BackendRemote) SaveCart(ctx context.Context, userID string, items []LineItem) error {
	entries := make([]backend.CartEntry, 0, len(items))
	for _, it := range items {
		q := it.Quantity
		entries = append(entries, backend.CartEntry{
			ProductID: it.ProductID,
			MongoID:   it.ProductID,
			ID:        it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Image:     it.Image,
			Quantity:  &q,
		})
	}
	return b.Client.PutCart(ctx, userID, entries)
}

// RawFromProduct builds the add-to-cart input from a catalog product.
func RawFromProduct(p backend.Product) RawItem {
	img := p.Image
	if img == "" && len(p.Images) > 0 {
		img = p.Images[0]
	}
	return RawItem{
		ProductID: p.ProductID,
		MongoID:   p.ID,
		ID:        p.AltID,
		Name:      p.Name,
		Price:     p.Price,
		Image:     img,
	}
}
