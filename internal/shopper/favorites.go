// Package shopper holds the signed-in shopper's side data: favorites,
// product ratings and search history.
package shopper

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/ariefcatur/go-storefront/internal/backend"
	"github.com/ariefcatur/go-storefront/internal/logkey"
)

var (
	ErrLoginRequired = errors.New("shopper: login required")
	ErrNoProduct     = errors.New("shopper: product id required")
)

type FavoritesAPI interface {
	Favorites(ctx context.Context) ([]backend.Product, error)
	AddFavorite(ctx context.Context, productID string) error
	RemoveFavorite(ctx context.Context, productID string) error
}

// Favorites mirrors the shopper's favorite set. Membership only changes
// after the backend accepted the add or remove.
type Favorites struct {
	api FavoritesAPI
	log *slog.Logger

	mu  sync.RWMutex
	ids map[string]bool
}

func NewFavorites(api FavoritesAPI, log *slog.Logger) *Favorites {
	if log == nil {
		log = slog.Default()
	}
	return &Favorites{api: api, log: log, ids: map[string]bool{}}
}

// Load replaces the set. On failure the set is emptied.
func (f *Favorites) Load(ctx context.Context) error {
	list, err := f.api.Favorites(ctx)
	ids := make(map[string]bool, len(list))
	if err != nil {
		f.log.Error("load favorites", logkey.ERROR, err)
	} else {
		for _, p := range list {
			if k := p.Key(); k != "" {
				ids[k] = true
			}
		}
	}
	f.mu.Lock()
	f.ids = ids
	f.mu.Unlock()
	return err
}

func (f *Favorites) Has(productID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.ids[productID]
}

func (f *Favorites) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

// Toggle adds the product when absent and removes it when present, and
// reports the resulting membership.
func (f *Favorites) Toggle(ctx context.Context, productID string) (bool, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return false, ErrNoProduct
	}
	if f.Has(productID) {
		if err := f.Remove(ctx, productID); err != nil {
			return true, err
		}
		return false, nil
	}
	if err := f.Add(ctx, productID); err != nil {
		return false, err
	}
	return true, nil
}

func (f *Favorites) Add(ctx context.Context, productID string) error {
	if err := f.api.AddFavorite(ctx, productID); err != nil {
		f.log.Error("add favorite", logkey.ERROR, err, logkey.ProductID, productID)
		return err
	}
	f.mu.Lock()
	f.ids[productID] = true
	f.mu.Unlock()
	return nil
}

func (f *Favorites) Remove(ctx context.Context, productID string) error {
	if err := f.api.RemoveFavorite(ctx, productID); err != nil {
		f.log.Error("remove favorite", logkey.ERROR, err, logkey.ProductID, productID)
		return err
	}
	f.mu.Lock()
	delete(f.ids, productID)
	f.mu.Unlock()
	return nil
}
