package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-storefront/internal/backend"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/projector"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/ariefcatur/go-storefront/internal/session"
)

// CustomerOrdersAPI is the signed-in shopper's view of orders.
type CustomerOrdersAPI interface {
	MyOrders(ctx context.Context) ([]backend.Order, error)
	MyOrder(ctx context.Context, id string) (backend.Order, error)
	TrackingForOrder(ctx context.Context, aud session.Audience, orderID string) (backend.Tracking, error)
}

type OrdersHandler struct {
	API CustomerOrdersAPI
	// Status is the projector's cache; nil disables the fast path.
	Status projector.Cache
	Log    *slog.Logger
}

type trackingView struct {
	Tracking *backend.Tracking       `json:"tracking"`
	Timeline []backend.TrackingEvent `json:"timeline"`
	Badge    orders.Badge            `json:"badge,omitempty"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(RequireUser)
		r.Get("/orders/mine", h.mine)
		r.Get("/orders/{id}", h.getOrder)
		r.Get("/orders/{id}/tracking", h.tracking)
		r.Get("/orders/{id}/status", h.status)
	})
}

func (h *OrdersHandler) mine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := h.API.MyOrders(ctx)
	if err != nil {
		logFailure(h.Log, r, "my orders", err)
		writeError(w, http.StatusBadGateway, "Failed to load orders")
		return
	}
	if list == nil {
		list = []backend.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": list})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.API.MyOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		if backend.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		logFailure(h.Log, r, "my order", err)
		writeError(w, http.StatusBadGateway, "Failed to load order")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// tracking returns the timeline most recent first. An order without a
// tracking record yields an empty view, not an error.
func (h *OrdersHandler) tracking(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	t, err := h.API.TrackingForOrder(ctx, session.AudienceUser, chi.URLParam(r, "id"))
	if err != nil {
		if backend.IsNotFound(err) {
			writeJSON(w, http.StatusOK, trackingView{Timeline: []backend.TrackingEvent{}})
			return
		}
		logFailure(h.Log, r, "tracking", err)
		writeError(w, http.StatusBadGateway, "Failed to load tracking")
		return
	}
	writeJSON(w, http.StatusOK, trackingView{Tracking: &t, Timeline: orders.Timeline(&t), Badge: orders.BadgeFor(t.Status)})
}

// status reads the order through the shopper's own token, so only the
// owner gets an answer, then overlays the tracking state the projector has
// cached. A cache miss is primed from the order.
func (h *OrdersHandler) status(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.API.MyOrder(ctx, orderID)
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	st := redisx.OrderStatus{
		OrderID:        o.ID,
		Status:         o.Status,
		Courier:        o.Courier(),
		TrackingNumber: o.TrackingNumber(),
	}
	if h.Status == nil {
		writeJSON(w, http.StatusOK, st)
		return
	}
	cached, ok, err := h.Status.Get(ctx, o.ID)
	if err == nil && ok {
		st.TrackingStatus = cached.TrackingStatus
		st.UpdatedAt = cached.UpdatedAt
		if st.Courier == "" {
			st.Courier = cached.Courier
		}
		if st.TrackingNumber == "" {
			st.TrackingNumber = cached.TrackingNumber
		}
		writeJSON(w, http.StatusOK, st)
		return
	}
	if err := h.Status.Put(ctx, st); err != nil {
		logFailure(h.Log, r, "prime status cache", err)
	}
	writeJSON(w, http.StatusOK, st)
}
