package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-storefront/internal/cart"
)

// CartStore keeps session carts as JSON with a sliding TTL.
type CartStore struct {
	RDB *redis.Client
	TTL time.Duration
}

func (s *CartStore) Load(ctx context.Context, key string) ([]cart.LineItem, error) {
	b, err := s.RDB.Get(ctx, fmt.Sprintf(KeyCartSession, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var items []cart.LineItem
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("decode session cart %s: %w", key, err)
	}
	return items, nil
}

func (s *CartStore) Save(ctx context.Context, key string, items []cart.LineItem) error {
	if items == nil {
		items = []cart.LineItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return s.RDB.Set(ctx, fmt.Sprintf(KeyCartSession, key), b, s.TTL).Err()
}

func (s *CartStore) Delete(ctx context.Context, key string) error {
	return s.RDB.Del(ctx, fmt.Sprintf(KeyCartSession, key)).Err()
}

// Guard is a SETNX lock used to collapse double-submitted checkouts.
type Guard struct {
	RDB *redis.Client
	TTL time.Duration
}

// Acquire reports true when the caller now owns the key.
func (g *Guard) Acquire(ctx context.Context, userID, digest string) (bool, error) {
	ttl := g.TTL
	if ttl <= 0 {
		ttl = TTLIdempotency
	}
	return g.RDB.SetNX(ctx, fmt.Sprintf(KeyIdemCheckout, userID, digest), "1", ttl).Result()
}

func (g *Guard) Release(ctx context.Context, userID, digest string) error {
	return g.RDB.Del(ctx, fmt.Sprintf(KeyIdemCheckout, userID, digest)).Err()
}

// PaymentIntents keeps the rows a started online payment was priced on, so
// completing it orders exactly what was paid for.
type PaymentIntents struct {
	RDB *redis.Client
	TTL time.Duration
}

func (p *PaymentIntents) Put(ctx context.Context, userID, gatewayOrderID string, items []cart.LineItem) error {
	ttl := p.TTL
	if ttl <= 0 {
		ttl = TTLPaymentIntent
	}
	b, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return p.RDB.Set(ctx, fmt.Sprintf(KeyPaymentIntent, userID, gatewayOrderID), b, ttl).Err()
}

// Get returns nil, nil when the intent is unknown or expired.
func (p *PaymentIntents) Get(ctx context.Context, userID, gatewayOrderID string) ([]cart.LineItem, error) {
	b, err := p.RDB.Get(ctx, fmt.Sprintf(KeyPaymentIntent, userID, gatewayOrderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var items []cart.LineItem
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("decode payment intent %s: %w", gatewayOrderID, err)
	}
	return items, nil
}

func (p *PaymentIntents) Delete(ctx context.Context, userID, gatewayOrderID string) error {
	return p.RDB.Del(ctx, fmt.Sprintf(KeyPaymentIntent, userID, gatewayOrderID)).Err()
}

// OrderStatus is the cached projection of one order.
type OrderStatus struct {
	OrderID        string    `json:"order_id"`
	Status         string    `json:"status,omitempty"`
	TrackingStatus string    `json:"tracking_status,omitempty"`
	Courier        string    `json:"courier,omitempty"`
	TrackingNumber string    `json:"tracking_number,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type StatusCache struct {
	RDB *redis.Client
}

// Get returns ok=false on a cache miss.
func (c *StatusCache) Get(ctx context.Context, orderID string) (OrderStatus, bool, error) {
	var st OrderStatus
	b, err := c.RDB.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return st, false, nil
	}
	if err != nil {
		return st, false, err
	}
	if err := json.Unmarshal(b, &st); err != nil {
		return st, false, fmt.Errorf("decode status %s: %w", orderID, err)
	}
	return st, true, nil
}

func (c *StatusCache) Put(ctx context.Context, st OrderStatus) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return c.RDB.Set(ctx, fmt.Sprintf(KeyOrderStatus, st.OrderID), b, TTLStatusCache).Err()
}

// Dedup remembers processed event ids per consuming service.
type Dedup struct {
	RDB     *redis.Client
	Service string
}

// First reports true the first time id is seen.
func (d *Dedup) First(ctx context.Context, id string) (bool, error) {
	return d.RDB.SetNX(ctx, fmt.Sprintf(KeyDedup, d.Service, id), "1", TTLDedup).Result()
}

// Forget lets id be processed again, used when handling failed after First.
func (d *Dedup) Forget(ctx context.Context, id string) error {
	return d.RDB.Del(ctx, fmt.Sprintf(KeyDedup, d.Service, id)).Err()
}
