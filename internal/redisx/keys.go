package redisx

import "time"

const (
	// Session copy of a cart: cart:session:{user:<id>:<token tag>|anon:<session>} -> JSON []cart.LineItem
	KeyCartSession = "cart:session:%s"

	// Checkout double-submit guard: idem:checkout:{user_id}:{cart_digest} -> "1"
	KeyIdemCheckout = "idem:checkout:%s:%s"

	// Cart priced for a started online payment: pay:intent:{user_id}:{gateway_order_id} -> JSON []cart.LineItem
	KeyPaymentIntent = "pay:intent:%s:%s"

	// Status projection: order_status:{order_id} -> {"status": "...", "tracking_status": "...", ...}
	KeyOrderStatus = "order_status:%s"

	// Dedup of consumed events: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency   = 30 * time.Second
	TTLPaymentIntent = 30 * time.Minute
	TTLStatusCache   = 10 * time.Minute
	TTLDedup         = 48 * time.Hour
)
