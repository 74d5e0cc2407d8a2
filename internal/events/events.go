// Package events defines the storefront's event envelope (v1), the event
// types and their payloads, and the topic each one is published on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	EventCartSaved          = "CartSaved"
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventTrackingUpdated    = "TrackingUpdated"
)

const Version = 1

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // user id for carts, order id otherwise
	Payload       json.RawMessage `json:"payload"`
}

type CartItem struct {
	ProductID string  `json:"product_id"`
	Qty       int     `json:"qty"`
	Price     float64 `json:"price"`
}

type CartSavedPayload struct {
	UserID string     `json:"user_id"`
	Items  []CartItem `json:"items"`
	Total  string     `json:"total"`
}

type OrderPlacedPayload struct {
	UserID        string     `json:"user_id"`
	Items         []CartItem `json:"items"`
	Total         string     `json:"total"`
	PaymentMethod string     `json:"payment_method"`
	PaymentStatus string     `json:"payment_status"`
	LoyaltyPoints int64      `json:"loyalty_points"`
	PaymentRef    string     `json:"payment_ref,omitempty"`
}

type OrderStatusChangedPayload struct {
	OrderID string `json:"order_id"`
	From    string `json:"from,omitempty"`
	To      string `json:"to"`
	Forced  bool   `json:"forced"`
}

type TrackingUpdatedPayload struct {
	OrderID        string `json:"order_id"`
	TrackingID     string `json:"tracking_id"`
	Courier        string `json:"courier,omitempty"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	Status         string `json:"status"`
	Action         string `json:"action"` // create | append | poll
}

// New wraps payload in a fresh v1 envelope.
func New(eventType, producer, traceID, correlationID string, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  Version,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: correlationID,
		Payload:       b,
	}, nil
}

// Decode unwraps an envelope payload into T.
func Decode[T any](env Envelope) (T, error) {
	var t T
	if err := json.Unmarshal(env.Payload, &t); err != nil {
		return t, fmt.Errorf("decode %s payload: %w", env.EventType, err)
	}
	return t, nil
}

// Publisher hands an envelope to the bus. Implementations must not block on
// the network.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

type discard struct{}

func (discard) Publish(context.Context, Envelope) error { return nil }

// Discard is the publisher used when no broker is configured.
var Discard Publisher = discard{}

// Recorder keeps every published envelope in memory.
type Recorder struct {
	mu   sync.Mutex
	envs []Envelope
}

func (r *Recorder) Publish(_ context.Context, env Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = append(r.envs, env)
	return nil
}

func (r *Recorder) Envelopes() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Envelope, len(r.envs))
	copy(out, r.envs)
	return out
}

// OfType filters the recorded envelopes by event type.
func (r *Recorder) OfType(eventType string) []Envelope {
	var out []Envelope
	for _, e := range r.Envelopes() {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}
