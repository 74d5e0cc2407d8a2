package projector

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-storefront/internal/events"
	"github.com/ariefcatur/go-storefront/internal/redisx"
)

type memDedup struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (d *memDedup) First(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen[id] {
		return false, nil
	}
	d.seen[id] = true
	return true, nil
}

func (d *memDedup) Forget(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
	return nil
}

type memCache struct {
	mu      sync.Mutex
	m       map[string]redisx.OrderStatus
	puts    int
	failPut bool
}

func (c *memCache) Get(_ context.Context, id string) (redisx.OrderStatus, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.m[id]
	return st, ok, nil
}

func (c *memCache) Put(_ context.Context, st redisx.OrderStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failPut {
		return errors.New("redis down")
	}
	c.puts++
	c.m[st.OrderID] = st
	return nil
}

func newService() (*Service, *memDedup, *memCache) {
	d := &memDedup{seen: map[string]bool{}}
	c := &memCache{m: map[string]redisx.OrderStatus{}}
	return &Service{Dedup: d, Cache: c}, d, c
}

func message(t *testing.T, env events.Envelope) kafkago.Message {
	t.Helper()
	b, err := json.Marshal(env)
	require.NoError(t, err)
	return kafkago.Message{Topic: events.TopicFor(env.EventType), Value: b}
}

func envelope(t *testing.T, eventType string, at time.Time, payload any) events.Envelope {
	t.Helper()
	env, err := events.New(eventType, "test", "trace-1", "o1", payload)
	require.NoError(t, err)
	env.OccurredAt = at
	return env
}

func TestHandleMessage_ProjectsStatusAndTracking(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, cache := newService()
	t0 := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, svc.HandleMessage(ctx, message(t, envelope(t, events.EventOrderStatusChanged, t0,
		events.OrderStatusChangedPayload{OrderID: "o1", From: "Pending", To: "Shipped"}))))
	require.NoError(t, svc.HandleMessage(ctx, message(t, envelope(t, events.EventTrackingUpdated, t0.Add(time.Minute),
		events.TrackingUpdatedPayload{OrderID: "o1", TrackingID: "t1", Courier: "BlueDart", TrackingNumber: "AWB1", Status: "Created", Action: "create"}))))
	require.NoError(t, svc.HandleMessage(ctx, message(t, envelope(t, events.EventTrackingUpdated, t0.Add(2*time.Minute),
		events.TrackingUpdatedPayload{OrderID: "o1", TrackingID: "t1", Status: "In Transit", Action: "poll"}))))

	st := cache.m["o1"]
	assert.Equal(t, "Shipped", st.Status)
	assert.Equal(t, "In Transit", st.TrackingStatus)
	assert.Equal(t, "BlueDart", st.Courier, "empty fields keep the cached value")
	assert.Equal(t, "AWB1", st.TrackingNumber)
	assert.Equal(t, t0.Add(2*time.Minute), st.UpdatedAt)
}

func TestHandleMessage_DedupAndOrdering(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, cache := newService()
	t0 := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	newer := envelope(t, events.EventOrderStatusChanged, t0.Add(time.Hour), events.OrderStatusChangedPayload{OrderID: "o1", To: "Delivered"})
	require.NoError(t, svc.HandleMessage(ctx, message(t, newer)))
	require.NoError(t, svc.HandleMessage(ctx, message(t, newer)))
	assert.Equal(t, 1, cache.puts, "redelivery is skipped")

	older := envelope(t, events.EventOrderStatusChanged, t0, events.OrderStatusChangedPayload{OrderID: "o1", To: "Shipped"})
	require.NoError(t, svc.HandleMessage(ctx, message(t, older)))
	assert.Equal(t, "Delivered", cache.m["o1"].Status, "late events do not roll back")
}

func TestHandleMessage_FailureReleasesDedup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, dedup, cache := newService()

	env := envelope(t, events.EventOrderStatusChanged, time.Now().UTC(), events.OrderStatusChangedPayload{OrderID: "o1", To: "Shipped"})
	cache.failPut = true
	require.Error(t, svc.HandleMessage(ctx, message(t, env)))
	assert.False(t, dedup.seen[env.EventID])

	cache.failPut = false
	require.NoError(t, svc.HandleMessage(ctx, message(t, env)))
	assert.Equal(t, "Shipped", cache.m["o1"].Status)
}

func TestHandleMessage_SkipsJunk(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, cache := newService()

	assert.NoError(t, svc.HandleMessage(ctx, kafkago.Message{Value: []byte("{not json")}))

	future := envelope(t, events.EventOrderStatusChanged, time.Now(), events.OrderStatusChangedPayload{OrderID: "o1", To: "Shipped"})
	future.EventVersion = events.Version + 1
	assert.NoError(t, svc.HandleMessage(ctx, message(t, future)))

	placed := envelope(t, events.EventOrderPlaced, time.Now(), events.OrderPlacedPayload{UserID: "u1", Total: "100"})
	assert.NoError(t, svc.HandleMessage(ctx, message(t, placed)))

	assert.Zero(t, cache.puts)
}
