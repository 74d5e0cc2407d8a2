package events

const (
	TopicCartSaved       = "storefront.cart.saved"
	TopicOrderPlaced     = "storefront.order.placed"
	TopicOrderStatus     = "storefront.order.status"
	TopicTrackingUpdated = "storefront.tracking.updated"
)

// Topics lists every topic the storefront writes to.
var Topics = []string{TopicCartSaved, TopicOrderPlaced, TopicOrderStatus, TopicTrackingUpdated}

// TopicFor maps an event type to its topic, or "" when unknown.
func TopicFor(eventType string) string {
	switch eventType {
	case EventCartSaved:
		return TopicCartSaved
	case EventOrderPlaced:
		return TopicOrderPlaced
	case EventOrderStatusChanged:
		return TopicOrderStatus
	case EventTrackingUpdated:
		return TopicTrackingUpdated
	}
	return ""
}

// PartitionKey keeps every event of one order (or one user's cart) in order.
func PartitionKey(id string) []byte { return []byte(id) }
