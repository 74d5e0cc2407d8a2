// Package checkout validates the shipping form and submits orders over the
// two payment paths: cash on delivery, and an online gateway payment that is
// verified by the backend before the order is created.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-storefront/internal/backend"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/events"
	"github.com/ariefcatur/go-storefront/internal/logkey"
	"github.com/ariefcatur/go-storefront/internal/loyalty"
	"github.com/ariefcatur/go-storefront/internal/session"
)

const (
	MethodCOD     = "COD"
	MethodOnline  = "Razorpay"
	StatusPending = "Pending"
	StatusPaid    = "Paid"
)

var (
	ErrEmptyCart          = errors.New("checkout: cart is empty")
	ErrNotAuthenticated   = errors.New("checkout: sign in required")
	ErrDuplicateSubmit    = errors.New("checkout: order already being placed")
	ErrOrderFailed        = errors.New("checkout: order not placed")
	ErrPaymentInit        = errors.New("checkout: payment not initialized")
	ErrPaymentNotVerified = errors.New("checkout: payment not verified")
	ErrPaymentFailed      = errors.New("checkout: payment failed")
	ErrPaymentUnknown     = errors.New("checkout: no pending payment for this order")
)

// Message turns a checkout error into the text shown to the shopper.
func Message(err error) string {
	var ve ValidationErrors
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return "Please fix the highlighted fields."
	case errors.Is(err, ErrEmptyCart):
		return "Your cart is empty."
	case errors.Is(err, ErrNotAuthenticated):
		return "Please log in to place an order."
	case errors.Is(err, ErrDuplicateSubmit):
		return "Your order is already being placed."
	case errors.Is(err, ErrPaymentInit):
		return "Unable to initialize payment."
	case errors.Is(err, ErrPaymentNotVerified):
		return "Payment verification failed."
	case errors.Is(err, ErrPaymentUnknown):
		return "Payment session expired. Please try again."
	case errors.Is(err, ErrPaymentFailed):
		if msg := strings.TrimPrefix(err.Error(), ErrPaymentFailed.Error()+": "); msg != err.Error() {
			return "Payment failed: " + msg
		}
		return "Payment failed."
	case errors.Is(err, ErrOrderFailed):
		return "Something went wrong while placing your order."
	}
	return "Server verification error. Try again later."
}

// Backend is the slice of the REST client checkout needs.
type Backend interface {
	Checkout(ctx context.Context, req backend.CheckoutRequest) error
	CreatePaymentOrder(ctx context.Context, req backend.PaymentOrderRequest) (backend.PaymentOrder, error)
	VerifyPayment(ctx context.Context, proof backend.PaymentProof) (bool, error)
}

// Cart is what checkout reads from and clears.
type Cart interface {
	Items() []cart.LineItem
	Clear(ctx context.Context)
}

// Guard collapses concurrent submits of the same cart into one order call.
type Guard interface {
	Acquire(ctx context.Context, userID, digest string) (bool, error)
	Release(ctx context.Context, userID, digest string) error
}

type Service struct {
	Backend  Backend
	Guard    Guard
	Ledger   loyalty.Ledger
	Intents  Intents
	Events   events.Publisher
	Producer string
	Log      *slog.Logger
	Now      func() time.Time

	intentsOnce sync.Once
}

type Confirmation struct {
	Name          string          `json:"name"`
	Total         decimal.Decimal `json:"total"`
	EarnedPoints  int64           `json:"earnedPoints"`
	PaymentMethod string          `json:"paymentMethod"`
	Receipt       string          `json:"receipt"`
}

// PaymentIntent is the gateway order the client pays against.
type PaymentIntent struct {
	Receipt  string          `json:"receipt"`
	OrderID  string          `json:"orderId"`
	Amount   float64         `json:"amount"`
	Currency string          `json:"currency"`
	Total    decimal.Decimal `json:"total"`
}

func (s *Service) log() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) intents() Intents {
	s.intentsOnce.Do(func() {
		if s.Intents == nil {
			s.Intents = NewMemoryIntents()
		}
	})
	return s.Intents
}

func (s *Service) receipt() string {
	return "rcpt_" + strconv.FormatInt(s.now().UnixMilli(), 10)
}

func signedIn(ctx context.Context) (session.User, error) {
	sess := session.From(ctx)
	user, ok := sess.CurrentUser()
	if !ok || !sess.Authenticated() {
		return session.User{}, ErrNotAuthenticated
	}
	return user, nil
}

// precheck is shared by every path: signed in, cart not empty, form valid.
func (s *Service) precheck(ctx context.Context, c Cart, addr Address) (session.User, []cart.LineItem, error) {
	user, err := signedIn(ctx)
	if err != nil {
		return user, nil, err
	}
	items := c.Items()
	if len(items) == 0 {
		return user, nil, ErrEmptyCart
	}
	if err := Validate(addr); err != nil {
		return user, nil, err
	}
	return user, items, nil
}

// PlaceCOD submits a cash-on-delivery order. On failure the cart is left
// exactly as it was.
func (s *Service) PlaceCOD(ctx context.Context, c Cart, addr Address) (Confirmation, error) {
	user, items, err := s.precheck(ctx, c, addr)
	if err != nil {
		return Confirmation{}, err
	}
	return s.submit(ctx, c, user, addr, items, MethodCOD, StatusPending, s.receipt(), "")
}

// StartOnline asks the backend for a gateway order covering the cart total
// and remembers the rows it was priced on until the payment completes.
func (s *Service) StartOnline(ctx context.Context, c Cart, addr Address) (PaymentIntent, error) {
	user, items, err := s.precheck(ctx, c, addr)
	if err != nil {
		return PaymentIntent{}, err
	}
	total := cart.Total(items)
	rcpt := s.receipt()
	po, err := s.Backend.CreatePaymentOrder(ctx, backend.PaymentOrderRequest{
		Amount:  total.InexactFloat64(),
		Receipt: rcpt,
		Notes:   map[string]string{"userId": user.ID},
	})
	if err != nil {
		s.log().Error("create payment order", logkey.ERROR, err, logkey.UserID, user.ID)
		return PaymentIntent{}, fmt.Errorf("%w: %v", ErrPaymentInit, err)
	}
	if err := s.intents().Put(ctx, user.ID, po.ID, items); err != nil {
		s.log().Error("store payment intent", logkey.ERROR, err, logkey.UserID, user.ID)
		return PaymentIntent{}, fmt.Errorf("%w: %v", ErrPaymentInit, err)
	}
	return PaymentIntent{Receipt: rcpt, OrderID: po.ID, Amount: po.Amount, Currency: po.Currency, Total: total}, nil
}

// CompleteOnline verifies the gateway's signature and, only if the backend
// accepts it, creates the paid order for the rows StartOnline priced. Rows
// added to the cart in between are not part of the order.
func (s *Service) CompleteOnline(ctx context.Context, c Cart, addr Address, proof backend.PaymentProof) (Confirmation, error) {
	user, err := signedIn(ctx)
	if err != nil {
		return Confirmation{}, err
	}
	if err := Validate(addr); err != nil {
		return Confirmation{}, err
	}
	items, err := s.intents().Get(ctx, user.ID, proof.OrderID)
	if err != nil {
		s.log().Error("load payment intent", logkey.ERROR, err, logkey.UserID, user.ID)
		return Confirmation{}, fmt.Errorf("load payment intent: %w", err)
	}
	if len(items) == 0 {
		s.log().Warn("unknown payment", logkey.UserID, user.ID, "gateway_order", proof.OrderID)
		return Confirmation{}, ErrPaymentUnknown
	}
	if current := c.Items(); Digest(current, MethodOnline) != Digest(items, MethodOnline) {
		s.log().Warn("cart changed during payment", logkey.UserID, user.ID, "gateway_order", proof.OrderID,
			"paid_total", cart.Total(items).StringFixed(2), "cart_total", cart.Total(current).StringFixed(2))
	}

	ok, err := s.Backend.VerifyPayment(ctx, proof)
	if err != nil {
		s.log().Error("verify payment", logkey.ERROR, err, logkey.UserID, user.ID)
		return Confirmation{}, fmt.Errorf("verify payment: %w", err)
	}
	if !ok {
		s.log().Warn("payment not verified", logkey.UserID, user.ID, "gateway_order", proof.OrderID)
		return Confirmation{}, ErrPaymentNotVerified
	}
	conf, err := s.submit(ctx, c, user, addr, items, MethodOnline, StatusPaid, proof.OrderID, proof.PaymentID)
	if err != nil {
		return conf, err
	}
	if err := s.intents().Delete(ctx, user.ID, proof.OrderID); err != nil {
		s.log().Error("drop payment intent", logkey.ERROR, err, logkey.UserID, user.ID)
	}
	return conf, nil
}

// FailOnline records a failure reported by the gateway. No order exists and
// none is created.
func (s *Service) FailOnline(ctx context.Context, gatewayOrderID, reason string) error {
	user, _ := session.From(ctx).CurrentUser()
	s.log().Warn("payment failed", logkey.UserID, user.ID, "gateway_order", gatewayOrderID, "reason", reason)
	if reason == "" {
		return ErrPaymentFailed
	}
	return fmt.Errorf("%w: %s", ErrPaymentFailed, reason)
}

func (s *Service) submit(ctx context.Context, c Cart, user session.User, addr Address, items []cart.LineItem,
	method, status, ref, paymentRef string) (Confirmation, error) {
	log := s.log().With(logkey.UserID, user.ID, "method", method)
	digest := Digest(items, method)

	if s.Guard != nil {
		acquired, err := s.Guard.Acquire(ctx, user.ID, digest)
		if err != nil {
			log.Error("checkout guard", logkey.ERROR, err)
		} else if !acquired {
			return Confirmation{}, ErrDuplicateSubmit
		}
	}

	total := cart.Total(items)
	email := user.Email
	if email == "" {
		email = addr.Email
	}
	req := backend.CheckoutRequest{
		UserID:          user.ID,
		Email:           email,
		Items:           orderItems(items),
		TotalAmount:     total.InexactFloat64(),
		ShippingAddress: addr.shipping(),
		PaymentMethod:   method,
		PaymentStatus:   status,
	}
	if err := s.Backend.Checkout(ctx, req); err != nil {
		log.Error("checkout", logkey.ERROR, err)
		if s.Guard != nil {
			if rerr := s.Guard.Release(ctx, user.ID, digest); rerr != nil {
				log.Error("release checkout guard", logkey.ERROR, rerr)
			}
		}
		return Confirmation{}, fmt.Errorf("%w: %v", ErrOrderFailed, err)
	}

	points := loyalty.Points(total)
	if s.Ledger != nil {
		if _, err := s.Ledger.Award(ctx, user.ID, ref, total, points); err != nil {
			log.Error("award loyalty", logkey.ERROR, err)
		}
	}
	c.Clear(ctx)
	s.publish(ctx, user, items, total, method, status, points, paymentRef)

	return Confirmation{
		Name:          addr.FullName,
		Total:         total,
		EarnedPoints:  points,
		PaymentMethod: method,
		Receipt:       ref,
	}, nil
}

func (s *Service) publish(ctx context.Context, user session.User, items []cart.LineItem, total decimal.Decimal,
	method, status string, points int64, paymentRef string) {
	if s.Events == nil {
		return
	}
	evItems := make([]events.CartItem, 0, len(items))
	for _, it := range items {
		evItems = append(evItems, events.CartItem{ProductID: it.ProductID, Qty: it.Quantity, Price: it.Price})
	}
	env, err := events.New(events.EventOrderPlaced, s.Producer, logkey.TraceFrom(ctx), user.ID, events.OrderPlacedPayload{
		UserID:        user.ID,
		Items:         evItems,
		Total:         total.StringFixed(2),
		PaymentMethod: method,
		PaymentStatus: status,
		LoyaltyPoints: points,
		PaymentRef:    paymentRef,
	})
	if err == nil {
		err = s.Events.Publish(ctx, env)
	}
	if err != nil {
		s.log().Error("publish order placed", logkey.ERROR, err)
	}
}

func orderItems(items []cart.LineItem) []backend.OrderItem {
	out := make([]backend.OrderItem, 0, len(items))
	for _, it := range items {
		out = append(out, backend.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Image:     it.Image,
		})
	}
	return out
}

var digestSpace = uuid.MustParse("6f1c2a3e-9b7d-4c1e-8a55-3d2f0b9e7c41")

// Digest names a cart snapshot and payment method; identical submits share it.
func Digest(items []cart.LineItem, method string) string {
	var b strings.Builder
	b.WriteString(method)
	for _, it := range items {
		b.WriteString("|")
		b.WriteString(it.ProductID)
		b.WriteString(":")
		b.WriteString(strconv.Itoa(it.Quantity))
		b.WriteString("@")
		b.WriteString(strconv.FormatFloat(it.Price, 'f', -1, 64))
	}
	return uuid.NewSHA1(digestSpace, []byte(b.String())).String()
}
