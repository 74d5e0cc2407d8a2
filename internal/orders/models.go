package orders

import (
	"strings"

	"github.com/ariefcatur/go-storefront/internal/backend"
)

// Badge is the colour class a status is shown with.
type Badge string

const (
	BadgeGreen  Badge = "green"
	BadgeYellow Badge = "yellow"
	BadgeBlue   Badge = "blue"
	BadgeRed    Badge = "red"
	BadgeGray   Badge = "gray"
)

// badgeRules are checked in order; the first rule with a matching substring wins.
var badgeRules = []struct {
	badge Badge
	any   []string
}{
	{BadgeGreen, []string{"delivered"}},
	{BadgeYellow, []string{"shipped", "out for delivery", "out_for_delivery"}},
	{BadgeBlue, []string{"in transit", "in_transit", "processing"}},
	{BadgeRed, []string{"exception", "failed", "cancel"}},
}

// BadgeFor classifies both order and tracking statuses, including the
// free-form ones a courier poll may return. Pending and anything unknown are gray.
func BadgeFor(status string) Badge {
	s := strings.ToLower(status)
	for _, r := range badgeRules {
		for _, sub := range r.any {
			if strings.Contains(s, sub) {
				return r.badge
			}
		}
	}
	return BadgeGray
}

// Timeline is the tracking history most recent first. The record itself is
// never modified.
func Timeline(t *backend.Tracking) []backend.TrackingEvent {
	if t == nil {
		return nil
	}
	out := make([]backend.TrackingEvent, len(t.History))
	for i, ev := range t.History {
		out[len(t.History)-1-i] = ev
	}
	return out
}

// Detail is the admin view of one order with its tracking side by side.
type Detail struct {
	Order         backend.Order           `json:"order"`
	Tracking      *backend.Tracking       `json:"tracking"`
	Timeline      []backend.TrackingEvent `json:"timeline"`
	OrderBadge    Badge                   `json:"orderBadge"`
	TrackingBadge Badge                   `json:"trackingBadge,omitempty"`
}

func newDetail(o backend.Order, t *backend.Tracking) Detail {
	d := Detail{Order: o, Tracking: t, Timeline: Timeline(t), OrderBadge: BadgeFor(o.Status)}
	if t != nil {
		d.TrackingBadge = BadgeFor(t.Status)
	}
	return d
}

// HasTracking reports whether a tracking record exists for the order.
func (d Detail) HasTracking() bool { return d.Tracking != nil && d.Tracking.ID != "" }
