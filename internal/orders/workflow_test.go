package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-storefront/internal/backend"
	"github.com/ariefcatur/go-storefront/internal/events"
	"github.com/ariefcatur/go-storefront/internal/notify"
	"github.com/ariefcatur/go-storefront/internal/session"
)

var errDown = errors.New("backend down")

// fakeAPI keeps one order and at most one tracking record in memory.
type fakeAPI struct {
	mu       sync.Mutex
	order    backend.Order
	tracking *backend.Tracking
	fail     map[string]bool
	calls    map[string]int
	created  backend.CreateTrackingRequest
}

func newFakeAPI(o backend.Order) *fakeAPI {
	return &fakeAPI{order: o, fail: map[string]bool{}, calls: map[string]int{}}
}

func (f *fakeAPI) hit(name string) error {
	f.calls[name]++
	if f.fail[name] {
		return errDown
	}
	return nil
}

func (f *fakeAPI) Order(_ context.Context, id string) (backend.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("order"); err != nil {
		return backend.Order{}, err
	}
	if id != f.order.ID {
		return backend.Order{}, &backend.APIError{Status: 404, Message: "not found"}
	}
	return f.order, nil
}

func (f *fakeAPI) TrackingForOrder(_ context.Context, aud session.Audience, orderID string) (backend.Tracking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if aud != session.AudienceAdmin {
		return backend.Tracking{}, errors.New("expected admin audience")
	}
	if err := f.hit("tracking"); err != nil {
		return backend.Tracking{}, err
	}
	if f.tracking == nil {
		return backend.Tracking{}, &backend.APIError{Status: 404, Message: "no tracking"}
	}
	return *f.tracking, nil
}

func (f *fakeAPI) CreateTracking(_ context.Context, orderID string, req backend.CreateTrackingRequest) (backend.Tracking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("create"); err != nil {
		return backend.Tracking{}, err
	}
	f.created = req
	f.tracking = &backend.Tracking{
		ID: "trk1", OrderID: orderID, Courier: req.Courier, TrackingNumber: req.TrackingNumber,
		Status: "Created", Auto: req.Auto,
		History: []backend.TrackingEvent{{Status: "Created", Timestamp: time.Now()}},
	}
	return *f.tracking, nil
}

func (f *fakeAPI) PollTracking(_ context.Context, trackingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("poll"); err != nil {
		return err
	}
	f.tracking.Status = "In Transit"
	f.tracking.History = append(f.tracking.History, backend.TrackingEvent{Status: "In Transit", Timestamp: time.Now()})
	return nil
}

func (f *fakeAPI) UpdateTrackingStatus(_ context.Context, trackingID string, req backend.TrackingStatusRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("append"); err != nil {
		return err
	}
	f.tracking.Status = req.Status
	f.tracking.History = append(f.tracking.History, backend.TrackingEvent{Status: req.Status, Message: req.Message, Timestamp: time.Now()})
	return nil
}

func (f *fakeAPI) UpdateOrderStatus(_ context.Context, orderID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("status"); err != nil {
		return err
	}
	f.order.Status = status
	return nil
}

func newWorkflow(t *testing.T, api API) (*Workflow, *notify.Center, *events.Recorder) {
	t.Helper()
	center := notify.NewCenter(time.Minute, nil)
	t.Cleanup(center.Close)
	rec := &events.Recorder{}
	return &Workflow{API: api, Notify: center, Events: rec, Producer: "test"}, center, rec
}

func lastToast(c *notify.Center) notify.Toast {
	ts := c.Active()
	if len(ts) == 0 {
		return notify.Toast{}
	}
	return ts[len(ts)-1]
}

func TestWorkflow_LoadWithoutTracking(t *testing.T) {
	t.Parallel()
	api := newFakeAPI(backend.Order{ID: "o1", Status: "Pending"})
	wf, _, _ := newWorkflow(t, api)

	d, err := wf.Load(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", d.Order.ID)
	assert.False(t, d.HasTracking())
	assert.Equal(t, BadgeGray, d.OrderBadge)
}

func TestWorkflow_LoadFailureToasts(t *testing.T) {
	t.Parallel()
	api := newFakeAPI(backend.Order{ID: "o1"})
	api.fail["order"] = true
	wf, center, _ := newWorkflow(t, api)

	_, err := wf.Load(context.Background(), "o1")
	require.Error(t, err)
	assert.Equal(t, "Failed to load order", lastToast(center).Message)
	assert.Equal(t, notify.KindError, lastToast(center).Kind)
}

func TestWorkflow_CreateTracking(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	api := newFakeAPI(backend.Order{ID: "o1", Status: "Processing"})
	wf, center, rec := newWorkflow(t, api)

	d, err := wf.Load(ctx, "o1")
	require.NoError(t, err)

	_, err = wf.CreateTracking(ctx, d, "  ", "", false)
	require.ErrorIs(t, err, ErrTrackingInput)
	assert.Equal(t, "Enter courier or leave empty to use MockCourier", lastToast(center).Message)
	assert.Zero(t, api.calls["create"])

	d, err = wf.CreateTracking(ctx, d, "", "AWB123", true)
	require.NoError(t, err)
	assert.Equal(t, DefaultCourier, api.created.Courier)
	assert.Equal(t, "AWB123", api.created.TrackingNumber)
	assert.True(t, api.created.Auto)
	assert.False(t, api.created.UseAftership)
	assert.True(t, d.HasTracking(), "view is re-fetched after success")
	assert.Equal(t, "Tracking created", lastToast(center).Message)

	evs := rec.OfType(events.EventTrackingUpdated)
	require.Len(t, evs, 1)
	p, err := events.Decode[events.TrackingUpdatedPayload](evs[0])
	require.NoError(t, err)
	assert.Equal(t, "create", p.Action)
	assert.Equal(t, "o1", p.OrderID)
}

func TestWorkflow_CreateTrackingFailureKeepsView(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	api := newFakeAPI(backend.Order{ID: "o1", Status: "Processing"})
	api.fail["create"] = true
	wf, center, rec := newWorkflow(t, api)

	before, err := wf.Load(ctx, "o1")
	require.NoError(t, err)
	after, err := wf.CreateTracking(ctx, before, "BlueDart", "", false)
	require.Error(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, "Failed to create tracking", lastToast(center).Message)
	assert.Empty(t, rec.Envelopes())
}

func TestWorkflow_AppendAndPoll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	api := newFakeAPI(backend.Order{ID: "o1", Status: "Shipped"})
	wf, center, rec := newWorkflow(t, api)

	d, err := wf.Load(ctx, "o1")
	require.NoError(t, err)

	_, err = wf.Poll(ctx, d)
	require.ErrorIs(t, err, ErrNoTracking)
	assert.Equal(t, "No tracking to poll", lastToast(center).Message)

	_, err = wf.AppendStatus(ctx, d, "Delivered", "")
	require.ErrorIs(t, err, ErrNoTracking)
	assert.Equal(t, "No tracking to update", lastToast(center).Message)

	d, err = wf.CreateTracking(ctx, d, "BlueDart", "", false)
	require.NoError(t, err)

	_, err = wf.AppendStatus(ctx, d, " ", "")
	require.ErrorIs(t, err, ErrStatusRequired)
	assert.Equal(t, "Please pick a status", lastToast(center).Message)

	d, err = wf.Poll(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, "Polled tracking (check timeline)", lastToast(center).Message)
	assert.Equal(t, "In Transit", d.Timeline[0].Status)

	d, err = wf.AppendStatus(ctx, d, "out_for_delivery", "With rider")
	require.NoError(t, err)
	assert.Equal(t, "Tracking status updated", lastToast(center).Message)
	require.Len(t, d.Timeline, 3)
	assert.Equal(t, "Out for Delivery", d.Timeline[0].Status)
	assert.Equal(t, "With rider", d.Timeline[0].Message)
	assert.Equal(t, BadgeYellow, d.TrackingBadge)

	assert.Len(t, rec.OfType(events.EventTrackingUpdated), 3)
}

func TestWorkflow_PollFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	api := newFakeAPI(backend.Order{ID: "o1"})
	wf, center, _ := newWorkflow(t, api)

	d, err := wf.Load(ctx, "o1")
	require.NoError(t, err)
	d, err = wf.CreateTracking(ctx, d, "X", "", false)
	require.NoError(t, err)

	api.fail["poll"] = true
	after, err := wf.Poll(ctx, d)
	require.Error(t, err)
	assert.Equal(t, d, after)
	assert.Equal(t, "Failed to poll tracking", lastToast(center).Message)
}

func TestWorkflow_ForceStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	api := newFakeAPI(backend.Order{ID: "o1", Status: "Pending"})
	wf, center, rec := newWorkflow(t, api)

	d, err := wf.Load(ctx, "o1")
	require.NoError(t, err)

	d, err = wf.ForceStatus(ctx, d, "processing")
	require.NoError(t, err)
	assert.Equal(t, "Processing", d.Order.Status)
	assert.Equal(t, "Order status updated", lastToast(center).Message)

	d, err = wf.ForceStatus(ctx, d, "Pending")
	require.NoError(t, err, "backward moves are allowed")
	assert.Equal(t, "Pending", d.Order.Status)

	evs := rec.OfType(events.EventOrderStatusChanged)
	require.Len(t, evs, 2)
	first, err := events.Decode[events.OrderStatusChangedPayload](evs[0])
	require.NoError(t, err)
	assert.False(t, first.Forced)
	second, err := events.Decode[events.OrderStatusChangedPayload](evs[1])
	require.NoError(t, err)
	assert.True(t, second.Forced)
	assert.Equal(t, "Processing", second.From)
	assert.Equal(t, "Pending", second.To)

	api.fail["status"] = true
	after, err := wf.ForceStatus(ctx, d, "Shipped")
	require.Error(t, err)
	assert.Equal(t, d, after)
	assert.Equal(t, "Failed to update order status", lastToast(center).Message)

	_, err = wf.ForceStatus(ctx, d, "Lost")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
