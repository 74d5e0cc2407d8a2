package checkout

import (
	"context"
	"sync"

	"github.com/ariefcatur/go-storefront/internal/cart"
)

// Intents remembers the rows each started online payment was priced on,
// keyed by user and gateway order id. Get returns nil, nil for an unknown id.
type Intents interface {
	Put(ctx context.Context, userID, gatewayOrderID string, items []cart.LineItem) error
	Get(ctx context.Context, userID, gatewayOrderID string) ([]cart.LineItem, error)
	Delete(ctx context.Context, userID, gatewayOrderID string) error
}

// MemoryIntents is the in-process Intents used when no shared store is
// configured. Entries live until completed.
type MemoryIntents struct {
	mu    sync.Mutex
	items map[string][]cart.LineItem
}

func NewMemoryIntents() *MemoryIntents {
	return &MemoryIntents{items: map[string][]cart.LineItem{}}
}

func (m *MemoryIntents) Put(_ context.Context, userID, gatewayOrderID string, items []cart.LineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[userID+"/"+gatewayOrderID] = append([]cart.LineItem(nil), items...)
	return nil
}

func (m *MemoryIntents) Get(_ context.Context, userID, gatewayOrderID string) ([]cart.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items, ok := m.items[userID+"/"+gatewayOrderID]
	if !ok {
		return nil, nil
	}
	return append([]cart.LineItem(nil), items...), nil
}

func (m *MemoryIntents) Delete(_ context.Context, userID, gatewayOrderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, userID+"/"+gatewayOrderID)
	return nil
}
