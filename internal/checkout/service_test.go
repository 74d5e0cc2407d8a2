package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-storefront/internal/backend"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/events"
	"github.com/ariefcatur/go-storefront/internal/loyalty"
	"github.com/ariefcatur/go-storefront/internal/session"
)

// fakeAPI is a backend that keeps the user's cart record and counts orders.
type fakeAPI struct {
	mu          sync.Mutex
	cart        []backend.CartEntry
	orders      []backend.CheckoutRequest
	failOrders  bool
	verifyOK    bool
	paymentReqs []backend.PaymentOrderRequest
}

func (f *fakeAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch {
		case r.URL.Path == "/api/users/u1/cart" && r.Method == http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]any{"cart": f.cart})
		case r.URL.Path == "/api/users/u1/cart" && r.Method == http.MethodPut:
			var body struct {
				Cart []backend.CartEntry `json:"cart"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			f.cart = body.Cart
		case r.URL.Path == "/api/orders/checkout":
			if f.failOrders {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte(`{"message":"upstream down"}`))
				return
			}
			var req backend.CheckoutRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			f.orders = append(f.orders, req)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"message":"Order placed"}`))
		case r.URL.Path == "/api/payments/create-order":
			var req backend.PaymentOrderRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			f.paymentReqs = append(f.paymentReqs, req)
			_, _ = w.Write([]byte(`{"order":{"id":"order_G1","amount":125000,"currency":"INR"}}`))
		case r.URL.Path == "/api/payments/verify-payment":
			_ = json.NewEncoder(w).Encode(map[string]bool{"success": f.verifyOK})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func (f *fakeAPI) orderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

func (f *fakeAPI) remoteCartLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cart)
}

type fixture struct {
	api    *fakeAPI
	client *backend.Client
	holder *cart.Holder
	svc    *Service
	rec    *events.Recorder
	ledger *loyalty.Memory
	ctx    context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	two, one := 2, 1
	api := &fakeAPI{
		verifyOK: true,
		cart: []backend.CartEntry{
			{ProductID: "p1", Name: "Rose Serum", Price: 500, Quantity: &two},
			{ProductID: "p2", Name: "Kajal", Price: 250, Quantity: &one},
		},
	}
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)

	client := backend.New(srv.URL, 2*time.Second)
	ctx := session.With(context.Background(),
		session.WithUser(session.User{ID: "u1", Email: "john@example.com", Name: "John Doe"}, "user-token", ""))

	holder := cart.NewHolder("u1", cart.Options{Remote: cart.BackendRemote{Client: client}})
	holder.Load(ctx)

	rec := &events.Recorder{}
	ledger := loyalty.NewMemory()
	svc := &Service{
		Backend:  client,
		Ledger:   ledger,
		Events:   rec,
		Producer: "test",
		Now:      func() time.Time { return time.UnixMilli(1700000000000) },
	}
	return &fixture{api: api, client: client, holder: holder, svc: svc, rec: rec, ledger: ledger, ctx: ctx}
}

func TestPlaceCOD_Success(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	require.True(t, decimal.NewFromInt(1250).Equal(f.holder.Total()))

	conf, err := f.svc.PlaceCOD(f.ctx, f.holder, validAddress())
	require.NoError(t, err)

	assert.Equal(t, 1, f.api.orderCount(), "exactly one order-creation call")
	assert.Zero(t, f.holder.Len(), "cart cleared locally")
	assert.Zero(t, f.api.remoteCartLen(), "cart cleared remotely")

	assert.Equal(t, "John Doe", conf.Name)
	assert.True(t, decimal.NewFromInt(1250).Equal(conf.Total))
	assert.EqualValues(t, 25, conf.EarnedPoints)
	assert.Equal(t, "rcpt_1700000000000", conf.Receipt)

	order := f.api.orders[0]
	assert.Equal(t, "COD", order.PaymentMethod)
	assert.Equal(t, "Pending", order.PaymentStatus)
	assert.Equal(t, 1250.0, order.TotalAmount)
	assert.Equal(t, "u1", order.UserID)
	assert.Equal(t, "India", order.ShippingAddress.Country)
	require.Len(t, order.Items, 2)
	assert.Equal(t, backend.OrderItem{ProductID: "p1", Name: "Rose Serum", Price: 500, Quantity: 2}, order.Items[0])

	bal, _ := f.ledger.Balance(f.ctx, "u1")
	assert.EqualValues(t, 25, bal)
	assert.Len(t, f.rec.OfType(events.EventOrderPlaced), 1)
}

func TestPlaceCOD_BackendFailureKeepsCart(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.api.mu.Lock()
	f.api.failOrders = true
	f.api.mu.Unlock()

	_, err := f.svc.PlaceCOD(f.ctx, f.holder, validAddress())
	require.ErrorIs(t, err, ErrOrderFailed)
	assert.Equal(t, "Something went wrong while placing your order.", Message(err))

	assert.Equal(t, 2, f.holder.Len())
	assert.True(t, decimal.NewFromInt(1250).Equal(f.holder.Total()))
	assert.Equal(t, 2, f.api.remoteCartLen())
	assert.Empty(t, f.rec.OfType(events.EventOrderPlaced))
	bal, _ := f.ledger.Balance(f.ctx, "u1")
	assert.Zero(t, bal)
}

func TestPlaceCOD_NetworkFailureKeepsCart(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()
	f.svc.Backend = backend.New(dead.URL, 500*time.Millisecond)

	_, err := f.svc.PlaceCOD(f.ctx, f.holder, validAddress())
	require.ErrorIs(t, err, ErrOrderFailed)
	assert.Equal(t, 2, f.holder.Len())
	assert.Zero(t, f.api.orderCount())
}

func TestPlaceCOD_ValidationNeverReachesBackend(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	addr := validAddress()
	addr.PostalCode = "5600"
	_, err := f.svc.PlaceCOD(f.ctx, f.holder, addr)

	var ve ValidationErrors
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve, "postalCode")
	assert.Zero(t, f.api.orderCount())
	assert.Equal(t, 2, f.holder.Len())
}

func TestPlaceCOD_Preconditions(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.PlaceCOD(context.Background(), f.holder, validAddress())
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	f.holder.Clear(f.ctx)
	_, err = f.svc.PlaceCOD(f.ctx, f.holder, validAddress())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, f.api.orderCount())
}

type memGuard struct {
	mu       sync.Mutex
	held     map[string]bool
	released atomic.Int32
}

func (g *memGuard) Acquire(_ context.Context, userID, digest string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	k := userID + ":" + digest
	if g.held[k] {
		return false, nil
	}
	g.held[k] = true
	return true, nil
}

func (g *memGuard) Release(_ context.Context, userID, digest string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, userID+":"+digest)
	g.released.Add(1)
	return nil
}

// slowCart hands out the same snapshot until cleared, like two clicks that
// both read the cart before either order returns.
type slowCart struct {
	items []cart.LineItem
}

func (c *slowCart) Items() []cart.LineItem { return c.items }
func (c *slowCart) Clear(context.Context)  {}

func TestSubmit_GuardCollapsesDoubleSubmit(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	guard := &memGuard{held: map[string]bool{}}
	f.svc.Guard = guard

	c := &slowCart{items: f.holder.Items()}
	_, err := f.svc.PlaceCOD(f.ctx, c, validAddress())
	require.NoError(t, err)
	_, err = f.svc.PlaceCOD(f.ctx, c, validAddress())
	require.ErrorIs(t, err, ErrDuplicateSubmit)
	assert.Equal(t, 1, f.api.orderCount())
}

func TestSubmit_GuardReleasedOnFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	guard := &memGuard{held: map[string]bool{}}
	f.svc.Guard = guard
	f.api.mu.Lock()
	f.api.failOrders = true
	f.api.mu.Unlock()

	_, err := f.svc.PlaceCOD(f.ctx, f.holder, validAddress())
	require.ErrorIs(t, err, ErrOrderFailed)
	assert.EqualValues(t, 1, guard.released.Load())

	f.api.mu.Lock()
	f.api.failOrders = false
	f.api.mu.Unlock()
	_, err = f.svc.PlaceCOD(f.ctx, f.holder, validAddress())
	require.NoError(t, err, "a failed attempt must not block the retry")
}

func TestOnline_VerifiedPaymentCreatesPaidOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	intent, err := f.svc.StartOnline(f.ctx, f.holder, validAddress())
	require.NoError(t, err)
	assert.Equal(t, "order_G1", intent.OrderID)
	assert.Equal(t, "INR", intent.Currency)
	assert.Zero(t, f.api.orderCount(), "no order before payment")
	require.Len(t, f.api.paymentReqs, 1)
	assert.Equal(t, "rcpt_1700000000000", f.api.paymentReqs[0].Receipt)
	assert.Equal(t, 1250.0, f.api.paymentReqs[0].Amount)
	assert.Equal(t, "u1", f.api.paymentReqs[0].Notes["userId"])

	conf, err := f.svc.CompleteOnline(f.ctx, f.holder, validAddress(), backend.PaymentProof{
		OrderID: "order_G1", PaymentID: "pay_1", Signature: "sig",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 25, conf.EarnedPoints)
	require.Equal(t, 1, f.api.orderCount())
	assert.Equal(t, "Razorpay", f.api.orders[0].PaymentMethod)
	assert.Equal(t, "Paid", f.api.orders[0].PaymentStatus)
	assert.Zero(t, f.holder.Len())
}

func TestOnline_UnverifiedPaymentCreatesNothing(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.api.mu.Lock()
	f.api.verifyOK = false
	f.api.mu.Unlock()

	_, err := f.svc.StartOnline(f.ctx, f.holder, validAddress())
	require.NoError(t, err)
	_, err = f.svc.CompleteOnline(f.ctx, f.holder, validAddress(), backend.PaymentProof{OrderID: "order_G1"})
	require.ErrorIs(t, err, ErrPaymentNotVerified)
	assert.Equal(t, "Payment verification failed.", Message(err))
	assert.Zero(t, f.api.orderCount())
	assert.Equal(t, 2, f.holder.Len())
}

func TestOnline_OrdersTheRowsThatWerePriced(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	intent, err := f.svc.StartOnline(f.ctx, f.holder, validAddress())
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(1250).Equal(intent.Total))

	f.holder.Add(f.ctx, cart.RawItem{ProductID: "p9", Name: "Perfume", Price: 5000})
	require.Equal(t, 3, f.holder.Len())

	conf, err := f.svc.CompleteOnline(f.ctx, f.holder, validAddress(), backend.PaymentProof{
		OrderID: "order_G1", PaymentID: "pay_1", Signature: "sig",
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1250).Equal(conf.Total))
	require.Equal(t, 1, f.api.orderCount())
	assert.Equal(t, 1250.0, f.api.orders[0].TotalAmount)
	require.Len(t, f.api.orders[0].Items, 2)
	for _, it := range f.api.orders[0].Items {
		assert.NotEqual(t, "p9", it.ProductID)
	}

	_, err = f.svc.CompleteOnline(f.ctx, f.holder, validAddress(), backend.PaymentProof{
		OrderID: "order_G1", PaymentID: "pay_1", Signature: "sig",
	})
	require.ErrorIs(t, err, ErrPaymentUnknown, "a completed payment cannot be replayed")
	assert.Equal(t, 1, f.api.orderCount())
}

func TestOnline_UnknownPaymentCreatesNothing(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.CompleteOnline(f.ctx, f.holder, validAddress(), backend.PaymentProof{
		OrderID: "order_other", PaymentID: "pay_1", Signature: "sig",
	})
	require.ErrorIs(t, err, ErrPaymentUnknown)
	assert.Equal(t, "Payment session expired. Please try again.", Message(err))
	assert.Zero(t, f.api.orderCount())
	assert.Equal(t, 2, f.holder.Len())
}

func TestOnline_GatewayFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	err := f.svc.FailOnline(f.ctx, "order_G1", "Card declined")
	require.ErrorIs(t, err, ErrPaymentFailed)
	assert.Equal(t, "Payment failed: Card declined", Message(err))
	assert.Zero(t, f.api.orderCount())
	assert.Equal(t, 2, f.holder.Len())
}

func TestDigest_StableAndSensitive(t *testing.T) {
	t.Parallel()

	items := []cart.LineItem{{ProductID: "p1", Price: 500, Quantity: 2}}
	a := Digest(items, MethodCOD)
	assert.Equal(t, a, Digest(items, MethodCOD))
	assert.NotEqual(t, a, Digest(items, MethodOnline))
	assert.NotEqual(t, a, Digest([]cart.LineItem{{ProductID: "p1", Price: 500, Quantity: 3}}, MethodCOD))
}
