package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/ariefcatur/go-storefront/internal/session"
)

// Orders is the admin listing of every order.
func (c *Client) Orders(ctx context.Context) ([]Order, error) {
	var raw json.RawMessage
	if err := c.callAs(ctx, session.AudienceAdmin, http.MethodGet, "/api/orders", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[Order](raw, "orders")
}

func (c *Client) Order(ctx context.Context, id string) (Order, error) {
	var o Order
	err := c.callAs(ctx, session.AudienceAdmin, http.MethodGet, "/api/orders/"+url.PathEscape(id), nil, &o)
	return o, err
}

func (c *Client) MyOrders(ctx context.Context) ([]Order, error) {
	var raw json.RawMessage
	if err := c.call(ctx, http.MethodGet, "/api/orders/my-orders", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[Order](raw, "orders")
}

func (c *Client) MyOrder(ctx context.Context, id string) (Order, error) {
	var o Order
	err := c.call(ctx, http.MethodGet, "/api/orders/my-orders/"+url.PathEscape(id), nil, &o)
	return o, err
}

// Checkout creates the order. The response body is not relied upon.
func (c *Client) Checkout(ctx context.Context, req CheckoutRequest) error {
	return c.call(ctx, http.MethodPost, "/api/orders/checkout", req, nil)
}

func (c *Client) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	body := map[string]string{"status": status}
	return c.callAs(ctx, session.AudienceAdmin, http.MethodPut, "/api/orders/"+url.PathEscape(orderID)+"/status", body, nil)
}

// TrackingForOrder returns the latest tracking record; a 404 means none yet.
func (c *Client) TrackingForOrder(ctx context.Context, aud session.Audience, orderID string) (Tracking, error) {
	var t Tracking
	err := c.callAs(ctx, aud, http.MethodGet, "/api/tracking/order/"+url.PathEscape(orderID), nil, &t)
	return t, err
}

func (c *Client) CreateTracking(ctx context.Context, orderID string, req CreateTrackingRequest) (Tracking, error) {
	var t Tracking
	err := c.callAs(ctx, session.AudienceAdmin, http.MethodPost, "/api/tracking/"+url.PathEscape(orderID)+"/create", req, &t)
	return t, err
}

func (c *Client) PollTracking(ctx context.Context, trackingID string) error {
	return c.callAs(ctx, session.AudienceAdmin, http.MethodPost, "/api/tracking/"+url.PathEscape(trackingID)+"/poll", struct{}{}, nil)
}

func (c *Client) UpdateTrackingStatus(ctx context.Context, trackingID string, req TrackingStatusRequest) error {
	return c.callAs(ctx, session.AudienceAdmin, http.MethodPatch, "/api/tracking/"+url.PathEscape(trackingID)+"/status", req, nil)
}

func (c *Client) CreatePaymentOrder(ctx context.Context, req PaymentOrderRequest) (PaymentOrder, error) {
	var out struct {
		Order PaymentOrder `json:"order"`
	}
	err := c.call(ctx, http.MethodPost, "/api/payments/create-order", req, &out)
	return out.Order, err
}

// VerifyPayment reports the backend's verdict on the gateway signature.
func (c *Client) VerifyPayment(ctx context.Context, proof PaymentProof) (bool, error) {
	var out struct {
		Success bool `json:"success"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/payments/verify-payment", proof, &out); err != nil {
		return false, err
	}
	return out.Success, nil
}

func (c *Client) GetCart(ctx context.Context, userID string) ([]CartEntry, error) {
	var out struct {
		Cart []CartEntry `json:"cart"`
	}
	err := c.call(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/cart", nil, &out)
	return out.Cart, err
}

// PutCart replaces the whole remote cart with entries.
func (c *Client) PutCart(ctx context.Context, userID string, entries []CartEntry) error {
	if entries == nil {
		entries = []CartEntry{}
	}
	body := map[string][]CartEntry{"cart": entries}
	return c.call(ctx, http.MethodPut, "/api/users/"+url.PathEscape(userID)+"/cart", body, nil)
}
