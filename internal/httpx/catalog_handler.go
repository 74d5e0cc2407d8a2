package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-storefront/internal/backend"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/shopper"
)

// ShopperAPI is the backend surface behind the browsing and account routes.
type ShopperAPI interface {
	catalog.API
	shopper.FavoritesAPI
	shopper.RatingsAPI
	shopper.HistoryAPI
	SubmitContact(ctx context.Context, req backend.ContactRequest) error
}

type CatalogHandler struct {
	API     ShopperAPI
	Catalog *catalog.Catalog
	Log     *slog.Logger
}

type catalogView struct {
	Products []backend.Product `json:"products"`
	Filters  backend.Filters   `json:"filters"`
	Groups   []catalog.Group   `json:"groups"`
}

type rateReq struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type searchReq struct {
	Term string `json:"term"`
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Get("/catalog", h.list)
	r.Get("/catalog/suggest", h.suggest)
	r.Post("/contact", h.contact)
	r.Group(func(r chi.Router) {
		r.Use(RequireUser)
		r.Get("/favorites", h.favorites)
		r.Post("/favorites/{id}", h.addFavorite)
		r.Delete("/favorites/{id}", h.removeFavorite)
		r.Post("/ratings/{id}", h.rate)
		r.Get("/search-history", h.history)
		r.Post("/search-history", h.recordSearch)
		r.Delete("/search-history", h.clearHistory)
	})
}

// list serves the shop page: every product, the filter taxonomy and the
// category groups, narrowed by ?search, ?category, ?brand and ?band.
func (h *CatalogHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	products, err := h.Catalog.Products(ctx)
	if err != nil {
		logFailure(h.Log, r, "catalog", err)
		writeError(w, http.StatusBadGateway, "Failed to load products")
		return
	}
	filters := h.Catalog.Filters(ctx, products)
	q := r.URL.Query()
	sel := catalog.Selection{
		Search:     q.Get("search"),
		Categories: q["category"],
		Brands:     q["brand"],
		PriceBands: q["band"],
	}
	visible := sel.Apply(products, filters.PriceBands)
	writeJSON(w, http.StatusOK, catalogView{
		Products: visible,
		Filters:  filters,
		Groups:   catalog.GroupByCategory(visible),
	})
}

func (h *CatalogHandler) suggest(w http.ResponseWriter, r *http.Request) {
	list := catalog.Suggest(r.Context(), h.API, r.URL.Query().Get("q"))
	if list == nil {
		list = []backend.Product{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": list})
}

func (h *CatalogHandler) favorites(w http.ResponseWriter, r *http.Request) {
	list, err := h.API.Favorites(r.Context())
	if err != nil {
		logFailure(h.Log, r, "favorites", err)
		writeError(w, http.StatusBadGateway, "Failed to load favorites")
		return
	}
	out := make([]backend.Product, 0, len(list))
	for _, p := range list {
		out = append(out, catalog.Normalize(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"favorites": out})
}

func (h *CatalogHandler) addFavorite(w http.ResponseWriter, r *http.Request) {
	h.favorite(w, r, true)
}

func (h *CatalogHandler) removeFavorite(w http.ResponseWriter, r *http.Request) {
	h.favorite(w, r, false)
}

func (h *CatalogHandler) favorite(w http.ResponseWriter, r *http.Request, add bool) {
	id := chi.URLParam(r, "id")
	favs := shopper.NewFavorites(h.API, h.Log)
	var err error
	if add {
		err = favs.Add(r.Context(), id)
	} else {
		err = favs.Remove(r.Context(), id)
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, "Failed to update favorites")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"productId": id, "favorite": add})
}

func (h *CatalogHandler) rate(w http.ResponseWriter, r *http.Request) {
	var req rateReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sum, err := shopper.Rate(r.Context(), h.API, chi.URLParam(r, "id"), req.Rating, req.Comment)
	switch {
	case errors.Is(err, shopper.ErrRatingRange):
		writeError(w, http.StatusBadRequest, "Please select a rating between 1 and 5 stars")
	case errors.Is(err, shopper.ErrLoginRequired):
		writeError(w, http.StatusUnauthorized, "Please login to submit rating")
	case err != nil:
		msg := "Failed to submit rating"
		var ae *backend.APIError
		if errors.As(err, &ae) && ae.Message != "" {
			msg = ae.Message
		}
		writeError(w, http.StatusBadGateway, msg)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"avgRating": sum.Avg, "ratingsCount": sum.Count, "rating": req.Rating})
	}
}

func (h *CatalogHandler) history(w http.ResponseWriter, r *http.Request) {
	list := shopper.History{API: h.API}.Recent(r.Context())
	if list == nil {
		list = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": list})
}

func (h *CatalogHandler) recordSearch(w http.ResponseWriter, r *http.Request) {
	var req searchReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := (shopper.History{API: h.API}).Record(r.Context(), req.Term); err != nil {
		logFailure(h.Log, r, "record search", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) clearHistory(w http.ResponseWriter, r *http.Request) {
	if err := (shopper.History{API: h.API}).Clear(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, "Failed to clear history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) contact(w http.ResponseWriter, r *http.Request) {
	var req backend.ContactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "Name, email and message are required")
		return
	}
	if err := h.API.SubmitContact(r.Context(), req); err != nil {
		writeError(w, http.StatusBadGateway, "Failed to send message")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Message sent"})
}
