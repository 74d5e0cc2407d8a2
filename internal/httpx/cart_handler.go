package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-storefront/internal/backend"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/logkey"
	"github.com/ariefcatur/go-storefront/internal/notify"
	"github.com/ariefcatur/go-storefront/internal/session"
)

// ProductLookup resolves a bare product id for adds that carry nothing else.
type ProductLookup interface {
	Product(ctx context.Context, id string) (backend.Product, error)
}

type CartHandler struct {
	Carts    *cart.Registry
	Products ProductLookup
	Log      *slog.Logger
}

// addItemReq accepts a product in any of the shapes the catalog returns.
type addItemReq struct {
	ProductID string         `json:"productId"`
	MongoID   string         `json:"_id"`
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Price     float64        `json:"price"`
	Image     string         `json:"image"`
	Images    backend.Images `json:"images"`
}

type cartView struct {
	Items         []cart.LineItem `json:"items"`
	Total         string          `json:"total"`
	Count         int             `json:"count"`
	RecentlyAdded string          `json:"recentlyAdded,omitempty"`
	Toasts        []notify.Toast  `json:"toasts"`
}

func (h *CartHandler) Register(r chi.Router) {
	r.Get("/cart", h.get)
	r.Delete("/cart", h.clear)
	r.Post("/cart/items", h.add)
	r.Delete("/cart/items/{id}", h.removeOne)
	r.Delete("/cart/items/{id}/all", h.deleteRow)
	r.Post("/logout", h.logout)
}

func (h *CartHandler) holder(w http.ResponseWriter, r *http.Request) *cart.Holder {
	u, _ := session.From(r.Context()).CurrentUser()
	sid := ""
	if u.ID == "" {
		sid = sessionID(w, r)
	}
	return h.Carts.Get(r.Context(), u.ID, sid)
}

func view(c *cart.Holder) cartView {
	items := c.Items()
	if items == nil {
		items = []cart.LineItem{}
	}
	return cartView{
		Items:         items,
		Total:         cart.Total(items).StringFixed(2),
		Count:         len(items),
		RecentlyAdded: c.RecentlyAdded(),
		Toasts:        c.Toasts(),
	}
}

func (h *CartHandler) get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, view(h.holder(w, r)))
}

func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	var req addItemReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	raw, err := h.resolve(r.Context(), req)
	if err != nil {
		if backend.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusBadGateway, "could not load product")
		return
	}
	c := h.holder(w, r)
	c.Add(r.Context(), raw)
	writeJSON(w, http.StatusOK, view(c))
}

// resolve turns the request into a cart row. A request carrying only an id is
// filled in from the catalog when a lookup is configured.
func (h *CartHandler) resolve(ctx context.Context, req addItemReq) (cart.RawItem, error) {
	img := req.Image
	if img == "" && len(req.Images) > 0 {
		img = req.Images[0]
	}
	raw := cart.RawItem{
		ProductID: req.ProductID,
		MongoID:   req.MongoID,
		ID:        req.ID,
		Name:      req.Name,
		Price:     req.Price,
		Image:     img,
	}
	if req.Name != "" || h.Products == nil {
		return raw, nil
	}
	id, degenerate := cart.ResolveID(raw)
	if degenerate {
		return raw, nil
	}
	p, err := h.Products.Product(ctx, id)
	if err != nil {
		h.log().Warn("look up product for cart", logkey.ERROR, err, logkey.ProductID, id)
		return cart.RawItem{}, err
	}
	if p.Key() == "" {
		p.ProductID = id
	}
	return cart.RawFromProduct(p), nil
}

func (h *CartHandler) log() *slog.Logger {
	if h.Log != nil {
		return h.Log
	}
	return slog.Default()
}

func (h *CartHandler) removeOne(w http.ResponseWriter, r *http.Request) {
	c := h.holder(w, r)
	h.mutate(w, c, c.RemoveOne(r.Context(), chi.URLParam(r, "id")))
}

func (h *CartHandler) deleteRow(w http.ResponseWriter, r *http.Request) {
	c := h.holder(w, r)
	h.mutate(w, c, c.Delete(r.Context(), chi.URLParam(r, "id")))
}

func (h *CartHandler) mutate(w http.ResponseWriter, c *cart.Holder, err error) {
	if errors.Is(err, cart.ErrUnknownItem) {
		writeError(w, http.StatusNotFound, "item not in cart")
		return
	}
	writeJSON(w, http.StatusOK, view(c))
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	c := h.holder(w, r)
	c.Clear(r.Context())
	writeJSON(w, http.StatusOK, view(c))
}

// logout drops the caller's cart from memory and the session store, leaving
// the remote record for the next sign-in, and expires the session cookie.
func (h *CartHandler) logout(w http.ResponseWriter, r *http.Request) {
	u, _ := session.From(r.Context()).CurrentUser()
	sid := ""
	if c, err := r.Cookie(SessionCookie); err == nil {
		sid = c.Value
	}
	if u.ID != "" {
		h.Carts.Drop(r.Context(), u.ID, "")
	}
	if sid != "" {
		h.Carts.Drop(r.Context(), "", sid)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
