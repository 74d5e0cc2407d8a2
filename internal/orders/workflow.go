// Package orders is the admin side of orders: status vocabularies and badges,
// the order/tracking workflow, list queries and exports.
package orders

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/backend"
	"github.com/ariefcatur/go-storefront/internal/events"
	"github.com/ariefcatur/go-storefront/internal/logkey"
	"github.com/ariefcatur/go-storefront/internal/notify"
	"github.com/ariefcatur/go-storefront/internal/session"
)

const DefaultCourier = "MockCourier"

var (
	ErrNoTracking     = errors.New("orders: no tracking record")
	ErrTrackingInput  = errors.New("orders: courier or tracking number required")
	ErrStatusRequired = errors.New("orders: status required")
)

// API is the slice of the REST client the workflow drives.
type API interface {
	Order(ctx context.Context, id string) (backend.Order, error)
	TrackingForOrder(ctx context.Context, aud session.Audience, orderID string) (backend.Tracking, error)
	CreateTracking(ctx context.Context, orderID string, req backend.CreateTrackingRequest) (backend.Tracking, error)
	PollTracking(ctx context.Context, trackingID string) error
	UpdateTrackingStatus(ctx context.Context, trackingID string, req backend.TrackingStatusRequest) error
	UpdateOrderStatus(ctx context.Context, orderID, status string) error
}

// Workflow runs admin actions against one order. Every action is a single
// backend call; on success the order and tracking are fetched again and the
// fresh view is returned, on failure a toast is raised and the caller's view
// is returned untouched.
type Workflow struct {
	API      API
	Notify   *notify.Center
	Events   events.Publisher
	Producer string
	Log      *slog.Logger
}

func (w *Workflow) log() *slog.Logger {
	if w.Log != nil {
		return w.Log
	}
	return slog.Default()
}

func (w *Workflow) toast(kind notify.Kind, msg string) {
	if w.Notify != nil {
		w.Notify.Push("", kind, msg)
	}
}

// Load fetches the order and its latest tracking. A missing tracking record
// is not an error.
func (w *Workflow) Load(ctx context.Context, orderID string) (Detail, error) {
	o, err := w.API.Order(ctx, orderID)
	if err != nil {
		w.log().Error("load order", logkey.ERROR, err, logkey.OrderID, orderID)
		w.toast(notify.KindError, "Failed to load order")
		return Detail{}, err
	}
	t, err := w.API.TrackingForOrder(ctx, session.AudienceAdmin, orderID)
	if err != nil {
		if !backend.IsNotFound(err) {
			w.log().Warn("load tracking", logkey.ERROR, err, logkey.OrderID, orderID)
		}
		return newDetail(o, nil), nil
	}
	return newDetail(o, &t), nil
}

// refresh re-reads server truth after a successful action, keeping the old
// view if the re-read fails.
func (w *Workflow) refresh(ctx context.Context, d Detail) Detail {
	fresh, err := w.Load(ctx, d.Order.ID)
	if err != nil {
		return d
	}
	return fresh
}

// CreateTracking opens a tracking record. An empty courier falls back to
// MockCourier, but at least one of courier and number must be given.
func (w *Workflow) CreateTracking(ctx context.Context, d Detail, courier, number string, auto bool) (Detail, error) {
	courier, number = strings.TrimSpace(courier), strings.TrimSpace(number)
	if courier == "" && number == "" {
		w.toast(notify.KindError, "Enter courier or leave empty to use MockCourier")
		return d, ErrTrackingInput
	}
	if courier == "" {
		courier = DefaultCourier
	}
	t, err := w.API.CreateTracking(ctx, d.Order.ID, backend.CreateTrackingRequest{
		Courier:        courier,
		TrackingNumber: number,
		Auto:           auto,
		UseAftership:   false,
	})
	if err != nil {
		w.log().Error("create tracking", logkey.ERROR, err, logkey.OrderID, d.Order.ID)
		w.toast(notify.KindError, "Failed to create tracking")
		return d, err
	}
	w.toast(notify.KindSuccess, "Tracking created")
	w.publishTracking(ctx, d.Order.ID, t.ID, courier, t.TrackingNumber, t.Status, "create")
	return w.refresh(ctx, d), nil
}

// AppendStatus adds an operator-chosen event to the tracking history.
func (w *Workflow) AppendStatus(ctx context.Context, d Detail, status, message string) (Detail, error) {
	if !d.HasTracking() {
		w.toast(notify.KindError, "No tracking to update")
		return d, ErrNoTracking
	}
	if strings.TrimSpace(status) == "" {
		w.toast(notify.KindError, "Please pick a status")
		return d, ErrStatusRequired
	}
	st, err := ParseTrackingStatus(status)
	if err != nil {
		w.toast(notify.KindError, "Please pick a status")
		return d, err
	}
	err = w.API.UpdateTrackingStatus(ctx, d.Tracking.ID, backend.TrackingStatusRequest{Status: string(st), Message: message})
	if err != nil {
		w.log().Error("update tracking status", logkey.ERROR, err, logkey.OrderID, d.Order.ID)
		w.toast(notify.KindError, "Failed to update tracking status")
		return d, err
	}
	w.toast(notify.KindSuccess, "Tracking status updated")
	w.publishTracking(ctx, d.Order.ID, d.Tracking.ID, d.Tracking.Courier, d.Tracking.TrackingNumber, string(st), "append")
	return w.refresh(ctx, d), nil
}

// Poll asks the backend to query the courier for live status.
func (w *Workflow) Poll(ctx context.Context, d Detail) (Detail, error) {
	if !d.HasTracking() {
		w.toast(notify.KindError, "No tracking to poll")
		return d, ErrNoTracking
	}
	if err := w.API.PollTracking(ctx, d.Tracking.ID); err != nil {
		w.log().Error("poll tracking", logkey.ERROR, err, logkey.OrderID, d.Order.ID)
		w.toast(notify.KindError, "Failed to poll tracking")
		return d, err
	}
	w.toast(notify.KindSuccess, "Polled tracking (check timeline)")
	fresh := w.refresh(ctx, d)
	if fresh.Tracking != nil {
		w.publishTracking(ctx, d.Order.ID, fresh.Tracking.ID, fresh.Tracking.Courier, fresh.Tracking.TrackingNumber, fresh.Tracking.Status, "poll")
	}
	return fresh, nil
}

// ForceStatus sets the order's status to any vocabulary value. Moves that
// are not a lifecycle step are allowed but logged as forced.
func (w *Workflow) ForceStatus(ctx context.Context, d Detail, status string) (Detail, error) {
	to, err := ParseStatus(status)
	if err != nil {
		w.toast(notify.KindError, "Failed to update order status")
		return d, err
	}
	from := Status(d.Order.Status)
	forced := from != to && !CanTransition(from, to)
	if forced {
		w.log().Warn("forced order status", logkey.OrderID, d.Order.ID, "from", from, "to", to)
	}
	if err := w.API.UpdateOrderStatus(ctx, d.Order.ID, string(to)); err != nil {
		w.log().Error("update order status", logkey.ERROR, err, logkey.OrderID, d.Order.ID)
		w.toast(notify.KindError, "Failed to update order status")
		return d, err
	}
	w.toast(notify.KindSuccess, "Order status updated")
	w.publish(ctx, events.EventOrderStatusChanged, d.Order.ID, events.OrderStatusChangedPayload{
		OrderID: d.Order.ID, From: string(from), To: string(to), Forced: forced,
	})
	return w.refresh(ctx, d), nil
}

func (w *Workflow) publishTracking(ctx context.Context, orderID, trackingID, courier, number, status, action string) {
	w.publish(ctx, events.EventTrackingUpdated, orderID, events.TrackingUpdatedPayload{
		OrderID:        orderID,
		TrackingID:     trackingID,
		Courier:        courier,
		TrackingNumber: number,
		Status:         status,
		Action:         action,
	})
}

func (w *Workflow) publish(ctx context.Context, eventType, orderID string, payload any) {
	if w.Events == nil {
		return
	}
	env, err := events.New(eventType, w.Producer, logkey.TraceFrom(ctx), orderID, payload)
	if err == nil {
		err = w.Events.Publish(ctx, env)
	}
	if err != nil {
		w.log().Error("publish", logkey.ERROR, err, logkey.EventType, eventType)
	}
}
