package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-storefront/internal/backend"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/checkout"
	"github.com/ariefcatur/go-storefront/internal/session"
)

type CheckoutHandler struct {
	Service *checkout.Service
	Carts   *cart.Registry
	Log     *slog.Logger
}

type checkoutReq struct {
	Address checkout.Address     `json:"address"`
	Proof   backend.PaymentProof `json:"proof"`
}

type failReq struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason"`
}

type fieldReq struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (h *CheckoutHandler) Register(r chi.Router) {
	r.Post("/checkout/validate", h.validate)
	r.Group(func(r chi.Router) {
		r.Use(RequireUser)
		r.Post("/checkout/cod", h.cod)
		r.Post("/checkout/online", h.startOnline)
		r.Post("/checkout/online/verify", h.completeOnline)
		r.Post("/checkout/online/fail", h.failOnline)
	})
}

func (h *CheckoutHandler) cart(r *http.Request) *cart.Holder {
	u, _ := session.From(r.Context()).CurrentUser()
	return h.Carts.Get(r.Context(), u.ID, "")
}

// statusFor maps checkout failures onto HTTP codes; the body always carries
// the shopper-facing message.
func statusFor(err error) int {
	var ve checkout.ValidationErrors
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.Is(err, checkout.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusBadRequest
	case errors.Is(err, checkout.ErrDuplicateSubmit), errors.Is(err, checkout.ErrPaymentUnknown):
		return http.StatusConflict
	case errors.Is(err, checkout.ErrPaymentNotVerified), errors.Is(err, checkout.ErrPaymentFailed):
		return http.StatusPaymentRequired
	}
	return http.StatusBadGateway
}

func (h *CheckoutHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= 500 {
		logFailure(h.Log, r, "checkout", err)
	}
	body := map[string]any{"error": checkout.Message(err)}
	var ve checkout.ValidationErrors
	if errors.As(err, &ve) {
		body["fields"] = ve
	}
	writeJSON(w, code, body)
}

func (h *CheckoutHandler) validate(w http.ResponseWriter, r *http.Request) {
	var req fieldReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	msg := checkout.ValidateField(req.Field, req.Value)
	writeJSON(w, http.StatusOK, map[string]any{"field": req.Field, "valid": msg == "", "message": msg})
}

func (h *CheckoutHandler) cod(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	conf, err := h.Service.PlaceCOD(r.Context(), h.cart(r), req.Address)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, conf)
}

func (h *CheckoutHandler) startOnline(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	intent, err := h.Service.StartOnline(r.Context(), h.cart(r), req.Address)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

func (h *CheckoutHandler) completeOnline(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	conf, err := h.Service.CompleteOnline(r.Context(), h.cart(r), req.Address, req.Proof)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, conf)
}

func (h *CheckoutHandler) failOnline(w http.ResponseWriter, r *http.Request) {
	var req failReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.fail(w, r, h.Service.FailOnline(r.Context(), req.OrderID, req.Reason))
}
