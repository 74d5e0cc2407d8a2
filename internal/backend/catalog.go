package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ariefcatur/go-storefront/internal/session"
)

// Products lists the catalog. A non-empty search is passed as ?search=.
// The API answers either a bare array or {"products": [...]}.
func (c *Client) Products(ctx context.Context, search string) ([]Product, error) {
	path := "/api/products"
	if search != "" {
		path += "?search=" + url.QueryEscape(search)
	}
	var raw json.RawMessage
	if err := c.call(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[Product](raw, "products")
}

func (c *Client) Product(ctx context.Context, id string) (Product, error) {
	var p Product
	err := c.call(ctx, http.MethodGet, "/api/products/"+url.PathEscape(id), nil, &p)
	return p, err
}

func (c *Client) CreateProduct(ctx context.Context, p Product) (Product, error) {
	var out Product
	err := c.callAs(ctx, session.AudienceAdmin, http.MethodPost, "/api/products", p, &out)
	return out, err
}

func (c *Client) UpdateProduct(ctx context.Context, id string, p Product) (Product, error) {
	var out Product
	err := c.callAs(ctx, session.AudienceAdmin, http.MethodPut, "/api/products/"+url.PathEscape(id), p, &out)
	return out, err
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.callAs(ctx, session.AudienceAdmin, http.MethodDelete, "/api/products/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Filters(ctx context.Context) (Filters, error) {
	var f Filters
	err := c.call(ctx, http.MethodGet, "/api/filters", nil, &f)
	return f, err
}

func (c *Client) SaveFilters(ctx context.Context, f Filters) error {
	return c.callAs(ctx, session.AudienceAdmin, http.MethodPut, "/api/filters", f, nil)
}

func (c *Client) ProductRatings(ctx context.Context, productID string) (RatingSummary, error) {
	var r RatingSummary
	err := c.call(ctx, http.MethodGet, "/api/ratings/product/"+url.PathEscape(productID), nil, &r)
	return r, err
}

func (c *Client) SubmitRating(ctx context.Context, productID string, r RatingRequest) error {
	return c.call(ctx, http.MethodPost, "/api/ratings/"+url.PathEscape(productID), r, nil)
}

func (c *Client) Favorites(ctx context.Context) ([]Product, error) {
	var out struct {
		Favorites []Product `json:"favorites"`
	}
	err := c.call(ctx, http.MethodGet, "/api/favorites", nil, &out)
	return out.Favorites, err
}

func (c *Client) AddFavorite(ctx context.Context, productID string) error {
	return c.call(ctx, http.MethodPost, "/api/favorites/"+url.PathEscape(productID), struct{}{}, nil)
}

func (c *Client) RemoveFavorite(ctx context.Context, productID string) error {
	return c.call(ctx, http.MethodDelete, "/api/favorites/"+url.PathEscape(productID), nil, nil)
}

// SearchHistory tolerates entries that are plain strings or objects keyed by
// keyword, term, search or q. Empty entries are dropped.
func (c *Client) SearchHistory(ctx context.Context, userID string) ([]string, error) {
	var out struct {
		History []json.RawMessage `json:"history"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/search-history/"+url.PathEscape(userID)+"/history", nil, &out); err != nil {
		return nil, err
	}
	terms := make([]string, 0, len(out.History))
	for _, h := range out.History {
		if t := historyTerm(h); t != "" {
			terms = append(terms, t)
		}
	}
	return terms, nil
}

func historyTerm(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Keyword string `json:"keyword"`
		Term    string `json:"term"`
		Search  string `json:"search"`
		Q       string `json:"q"`
	}
	if json.Unmarshal(raw, &obj) != nil {
		return ""
	}
	for _, v := range []string{obj.Keyword, obj.Term, obj.Search, obj.Q} {
		if v != "" {
			return v
		}
	}
	return ""
}

func (c *Client) AddSearchHistory(ctx context.Context, userID, term string) error {
	body := map[string]string{"keyword": term, "term": term}
	return c.call(ctx, http.MethodPost, "/api/search-history/"+url.PathEscape(userID)+"/add", body, nil)
}

func (c *Client) ClearSearchHistory(ctx context.Context, userID string) error {
	return c.call(ctx, http.MethodDelete, "/api/search-history/"+url.PathEscape(userID)+"/clear", nil, nil)
}

// decodeList accepts a bare array or an object wrapping the array under key.
func decodeList[T any](raw json.RawMessage, key string) ([]T, error) {
	var list []T
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	inner, ok := wrapped[key]
	if !ok {
		return nil, nil
	}
	if err := json.Unmarshal(inner, &list); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return list, nil
}
