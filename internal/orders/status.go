package orders

import (
	"errors"
	"strings"
)

var ErrInvalidStatus = errors.New("orders: unknown status")

// Status is the order's own lifecycle, independent of its tracking record.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
)

var OrderStatuses = []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusProcessing: true, StatusCancelled: true},
	StatusProcessing: {StatusShipped: true, StatusCancelled: true},
	StatusShipped:    {StatusDelivered: true, StatusCancelled: true},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// CanTransition reports whether to is the lifecycle step after from.
// Cancelled is reachable from any non-terminal state.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Terminal() bool { return s == StatusDelivered || s == StatusCancelled }

// ParseStatus matches s against the vocabulary ignoring case.
func ParseStatus(s string) (Status, error) {
	for _, st := range OrderStatuses {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", ErrInvalidStatus
}

// TrackingStatus is a courier event status chosen by an operator.
type TrackingStatus string

const (
	TrackingCreated        TrackingStatus = "Created"
	TrackingProcessing     TrackingStatus = "Processing"
	TrackingInTransit      TrackingStatus = "In Transit"
	TrackingOutForDelivery TrackingStatus = "Out for Delivery"
	TrackingDelivered      TrackingStatus = "Delivered"
	TrackingException      TrackingStatus = "Exception"
)

var TrackingStatuses = []TrackingStatus{
	TrackingCreated, TrackingProcessing, TrackingInTransit,
	TrackingOutForDelivery, TrackingDelivered, TrackingException,
}

// ParseTrackingStatus accepts the display form in any case, and the
// snake_case form couriers report ("out_for_delivery").
func ParseTrackingStatus(s string) (TrackingStatus, error) {
	norm := strings.ReplaceAll(strings.TrimSpace(s), "_", " ")
	for _, st := range TrackingStatuses {
		if strings.EqualFold(norm, string(st)) {
			return st, nil
		}
	}
	return "", ErrInvalidStatus
}
