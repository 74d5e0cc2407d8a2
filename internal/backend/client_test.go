package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-storefront/internal/session"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", 2*time.Second)
}

func withTokens(user, admin string) context.Context {
	s := session.WithUser(session.User{ID: "u1"}, user, admin)
	return session.With(context.Background(), s)
}

func TestAudienceFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want session.Audience
	}{
		{"/api/admin/contacts", session.AudienceAdmin},
		{"/api/admin/export/orders?format=csv", session.AudienceAdmin},
		{"/api/products", session.AudienceUser},
		{"/api/orders/my-orders", session.AudienceUser},
	}
	for _, tt := range tests {
		tt := tt
		assert.Equal(t, tt.want, audienceFor(tt.path), tt.path)
	}
}

func TestClient_AttachesTokenByRoute(t *testing.T) {
	t.Parallel()

	seen := map[string]string{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen[r.URL.Path] = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"messages":[]}`))
	})
	ctx := withTokens("user-tok", "admin-tok")

	_, err := c.Contacts(ctx)
	require.NoError(t, err)
	_, err = c.Favorites(ctx)
	require.NoError(t, err)
	_, err = c.Order(ctx, "o1")
	require.NoError(t, err)

	assert.Equal(t, "Bearer admin-tok", seen["/api/admin/contacts"])
	assert.Equal(t, "Bearer user-tok", seen["/api/favorites"])
	assert.Equal(t, "Bearer admin-tok", seen["/api/orders/o1"], "explicit admin audience")
}

func TestClient_NoTokenWhenAnonymous(t *testing.T) {
	t.Parallel()

	var auth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	})
	_, err := c.Products(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, auth)
}

func TestClient_APIError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tracking/order/o1":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Tracking not found"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"boom"}`))
		}
	})

	_, err := c.TrackingForOrder(context.Background(), session.AudienceAdmin, "o1")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "Tracking not found")

	err = c.Checkout(context.Background(), CheckoutRequest{})
	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusInternalServerError, ae.Status)
	assert.Equal(t, "boom", ae.Message)
	assert.False(t, IsNotFound(err))
}

func TestClient_ProductsShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bare array", `[{"_id":"a","name":"Lip","price":10,"images":"x.png"}]`, 1},
		{"wrapped", `{"products":[{"_id":"a","name":"Lip"},{"id":"b","name":"Kohl"}]}`, 2},
		{"wrapped without key", `{"total":0}`, 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			ps, err := c.Products(context.Background(), "")
			require.NoError(t, err)
			assert.Len(t, ps, tt.want)
		})
	}
}

func TestClient_ProductsSearchQuery(t *testing.T) {
	t.Parallel()

	var q string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q = r.URL.Query().Get("search")
		_, _ = w.Write([]byte(`[]`))
	})
	_, err := c.Products(context.Background(), "rose oil")
	require.NoError(t, err)
	assert.Equal(t, "rose oil", q)
}

func TestClient_SearchHistoryTolerant(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/search-history/u1/history", r.URL.Path)
		_, _ = w.Write([]byte(`{"history":["serum",{"keyword":"kajal"},{"term":"toner"},{"q":"mask"},{"other":"x"},""]}`))
	})
	terms, err := c.SearchHistory(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"serum", "kajal", "toner", "mask"}, terms)
}

func TestClient_PutCartSendsWholeArray(t *testing.T) {
	t.Parallel()

	var got map[string][]CartEntry
	var method string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		b, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(b, &got))
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.PutCart(context.Background(), "u1", nil))
	assert.Equal(t, http.MethodPut, method)
	require.Contains(t, got, "cart")
	assert.Empty(t, got["cart"])
}

func TestClient_VerifyPayment(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var p PaymentProof
		_ = json.NewDecoder(r.Body).Decode(&p)
		ok := p.Signature == "good"
		_ = json.NewEncoder(w).Encode(map[string]bool{"success": ok})
	})

	ok, err := c.VerifyPayment(context.Background(), PaymentProof{OrderID: "o", PaymentID: "p", Signature: "good"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.VerifyPayment(context.Background(), PaymentProof{Signature: "bad"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_ExportOrdersQuery(t *testing.T) {
	t.Parallel()

	var q map[string][]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q = r.URL.Query()
		_, _ = w.Write([]byte("id,status\n"))
	})
	b, err := c.ExportOrders(withTokens("", "adm"), "csv", "Shipped", "")
	require.NoError(t, err)
	assert.Equal(t, "id,status\n", string(b))
	assert.Equal(t, []string{"csv"}, q["format"])
	assert.Equal(t, []string{"Shipped"}, q["status"])
	assert.NotContains(t, q, "courier")
}

func TestModels_LooseShapes(t *testing.T) {
	t.Parallel()

	var o Order
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"o1","userId":"u9","tracking":[{"courier":"BlueDart"}]}`), &o))
	assert.Equal(t, "u9", o.User.ID)
	assert.Equal(t, "BlueDart", o.Courier())

	require.NoError(t, json.Unmarshal([]byte(`{"_id":"o2","userId":{"_id":"u1","name":"Asha"},"trackingMetadata":{"courier":"Delhivery","trackingNumber":"T1"}}`), &o))
	assert.Equal(t, "Asha", o.User.Name)
	assert.Equal(t, "Delhivery", o.Courier())
	assert.Equal(t, "T1", o.TrackingNumber())

	var p Product
	require.NoError(t, json.Unmarshal([]byte(`{"productId":"p1","images":["a","b"]}`), &p))
	assert.Equal(t, "p1", p.Key())
	assert.Equal(t, Images{"a", "b"}, p.Images)
}
