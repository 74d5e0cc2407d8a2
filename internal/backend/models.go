package backend

import (
	"encoding/json"
	"time"
)

// Images accepts either a JSON array of urls or a single url string.
type Images []string

func (im *Images) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*im = list
		return nil
	}
	var one string
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	if one == "" {
		*im = nil
		return nil
	}
	*im = Images{one}
	return nil
}

type Product struct {
	ID          string  `json:"_id,omitempty"`
	AltID       string  `json:"id,omitempty"`
	ProductID   string  `json:"productId,omitempty"`
	Name        string  `json:"name"`
	Brand       string  `json:"brand,omitempty"`
	Category    string  `json:"category,omitempty"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Image       string  `json:"image,omitempty"`
	Images      Images  `json:"images,omitempty"`
	Video       string  `json:"video,omitempty"`
	Description string  `json:"description,omitempty"`
	AvgRating   float64 `json:"avgRating,omitempty"`
	RatingCount int     `json:"ratingsCount,omitempty"`
}

// Key returns the first non-empty id field.
func (p Product) Key() string {
	for _, id := range []string{p.ID, p.AltID, p.ProductID} {
		if id != "" {
			return id
		}
	}
	return ""
}

type RatingSummary struct {
	Avg   float64 `json:"avg"`
	Count int     `json:"count"`
}

type PriceBand struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

type Filters struct {
	Categories []string    `json:"categories"`
	Brands     []string    `json:"brands"`
	PriceBands []PriceBand `json:"priceRanges"`
}

// CartEntry is one row of the remote cart record. Quantity is a pointer so a
// missing field can be told apart from zero.
type CartEntry struct {
	ProductID string  `json:"productId,omitempty"`
	MongoID   string  `json:"_id,omitempty"`
	ID        string  `json:"id,omitempty"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image,omitempty"`
	Quantity  *int    `json:"quantity,omitempty"`
}

type OrderItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image,omitempty"`
}

type ShippingAddress struct {
	FullName   string `json:"fullName"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country,omitempty"`
}

// UserRef is either a bare user id or a populated user object.
type UserRef struct {
	ID    string `json:"_id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

func (u *UserRef) UnmarshalJSON(b []byte) error {
	var id string
	if err := json.Unmarshal(b, &id); err == nil {
		*u = UserRef{ID: id}
		return nil
	}
	type plain UserRef
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*u = UserRef(p)
	return nil
}

type TrackingMetadata struct {
	Courier        string `json:"courier,omitempty"`
	TrackingNumber string `json:"trackingNumber,omitempty"`
}

type Order struct {
	ID               string            `json:"_id"`
	User             UserRef           `json:"userId"`
	Items            []OrderItem       `json:"items"`
	TotalAmount      float64           `json:"totalAmount"`
	ShippingAddress  ShippingAddress   `json:"shippingAddress"`
	PaymentMethod    string            `json:"paymentMethod"`
	PaymentStatus    string            `json:"paymentStatus"`
	Status           string            `json:"status"`
	CreatedAt        time.Time         `json:"createdAt"`
	TrackingMetadata *TrackingMetadata `json:"trackingMetadata,omitempty"`
	Tracking         []TrackingRef     `json:"tracking,omitempty"`
}

type TrackingRef struct {
	ID      string `json:"_id,omitempty"`
	Courier string `json:"courier,omitempty"`
}

// Courier looks in trackingMetadata first and then in the first tracking ref.
func (o Order) Courier() string {
	if o.TrackingMetadata != nil && o.TrackingMetadata.Courier != "" {
		return o.TrackingMetadata.Courier
	}
	if len(o.Tracking) > 0 {
		return o.Tracking[0].Courier
	}
	return ""
}

func (o Order) TrackingNumber() string {
	if o.TrackingMetadata != nil {
		return o.TrackingMetadata.TrackingNumber
	}
	return ""
}

type TrackingEvent struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Location  string    `json:"location,omitempty"`
	Proof     string    `json:"proof,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Tracking struct {
	ID             string          `json:"_id"`
	OrderID        string          `json:"orderId"`
	Courier        string          `json:"courier"`
	TrackingNumber string          `json:"trackingNumber"`
	Status         string          `json:"status"`
	Auto           bool            `json:"auto,omitempty"`
	History        []TrackingEvent `json:"history"`
}

type CheckoutRequest struct {
	UserID          string          `json:"userId"`
	Email           string          `json:"email"`
	Items           []OrderItem     `json:"items"`
	TotalAmount     float64         `json:"totalAmount"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	PaymentStatus   string          `json:"paymentStatus"`
}

type PaymentOrderRequest struct {
	Amount  float64           `json:"amount"`
	Receipt string            `json:"receipt"`
	Notes   map[string]string `json:"notes,omitempty"`
}

type PaymentOrder struct {
	ID       string  `json:"id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// PaymentProof is what the gateway hands back to the success callback.
type PaymentProof struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

type User struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Mobile    string    `json:"mobile,omitempty"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

type Contact struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject,omitempty"`
	Message   string    `json:"message"`
	Replied   bool      `json:"replied"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

type RatingRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

type CreateTrackingRequest struct {
	Courier        string `json:"courier"`
	TrackingNumber string `json:"trackingNumber,omitempty"`
	Auto           bool   `json:"auto"`
	UseAftership   bool   `json:"useAftership"`
}

type TrackingStatusRequest struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
