package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storefront/internal/domain/carts"
	"storefront/internal/domain/orders"
	"storefront/internal/domain/storage"
	"storefront/internal/remote"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	registry *carts.Registry
	store    *storage.Container
	svc      *Service
	calls    *atomic.Int32
	lastBody *atomic.Value
}

func newFixture(t *testing.T, status int, body string) *fixture {
	t.Helper()

	f := &fixture{calls: &atomic.Int32{}, lastBody: &atomic.Value{}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		assert.Equal(t, "/orders", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("Idempotency-Key"))

		raw, _ := io.ReadAll(r.Body)
		f.lastBody.Store(raw)

		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	f.registry = carts.NewRegistry(nil, 0, nil)
	f.store = storage.NewMemoryContainer(nil)
	f.svc = NewService(
		f.registry,
		remote.NewClient(srv.URL, "token", time.Second),
		f.store,
		orders.NewReferenceGenerator("secret"),
		time.Second,
		nil,
	)
	return f
}

func (f *fixture) fill(t *testing.T, userID string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.registry.Add(ctx, userID, carts.Product{ID: "7", Name: "Ball", Price: decimal.RequireFromString("19.90")}, 2)
	require.NoError(t, err)
}

func (f *fixture) cart(t *testing.T, userID string) carts.Snapshot {
	t.Helper()
	s, err := f.registry.Snapshot(context.Background(), userID)
	require.NoError(t, err)
	return s
}

func TestBuildRequest(t *testing.T) {
	t.Parallel()

	c := carts.New("u1")
	c.Add(carts.Product{ID: "7", Name: "Ball", Price: decimal.RequireFromString("19.9")}, 2)
	c.Add(carts.Product{Name: "Gift wrap", Price: decimal.RequireFromString("0.333")}, 3)

	req := BuildRequest("u1", c.Snapshot())
	raw, err := json.Marshal(req)
	require.NoError(t, err)

	// subtotal 40.799, tax 8.1598, shipping 6.90 -> 55.8588
	assert.JSONEq(t, `{
		"userId": "u1",
		"lines": [
			{"id": "7", "qty": 2, "price": 19.90},
			{"id": "Gift wrap", "qty": 3, "price": 0.33}
		],
		"total": 55.86
	}`, string(raw))
}

func TestCheckout_SuccessClearsCart(t *testing.T) {
	t.Parallel()

	f := newFixture(t, http.StatusCreated, `{"success": true, "data": {"orderId": "o-9", "total": 54.66}}`)
	f.fill(t, "u1")

	order, err := f.svc.Checkout(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, "o-9", order.RemoteOrderID)
	assert.Equal(t, "54.66", order.Total.StringFixed(2))
	assert.Equal(t, "54.66", order.ConfirmedTotal.StringFixed(2))
	assert.Equal(t, 2, order.ItemCount)
	assert.Regexp(t, `^SF-`, order.Reference)

	assert.True(t, f.cart(t, "u1").Empty())

	var sent OrderRequest
	require.NoError(t, json.Unmarshal(f.lastBody.Load().([]byte), &sent))
	assert.Equal(t, "u1", sent.UserID)
	require.Len(t, sent.Lines, 1)
	assert.Equal(t, "7", sent.Lines[0].ID)
	assert.Equal(t, 2, sent.Lines[0].Qty)
	assert.Equal(t, "19.90", sent.Lines[0].Price.String())
	assert.Equal(t, "54.66", sent.Total.String())

	recorded, err := f.store.Orders.GetByReference(context.Background(), "u1", order.Reference)
	require.NoError(t, err)
	assert.Equal(t, "o-9", recorded.RemoteOrderID)
	require.Len(t, recorded.Lines, 1)
}

func TestCheckout_FailureKeepsCart(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		kind    Kind
		message string
	}{
		{"client error", http.StatusUnprocessableEntity, `{"message": "item 7 is out of stock"}`, KindRejected, "item 7 is out of stock"},
		{"client error without body", http.StatusBadRequest, ``, KindRejected, "the order was rejected"},
		{"server error", http.StatusInternalServerError, `{"message": "db down"}`, KindUnavailable, "the order service is unavailable, please try again"},
		{"success false in a 200", http.StatusOK, `{"success": false, "message": "payment declined"}`, KindRejected, "payment declined"},
		{"failed status in a wrapper", http.StatusOK, `{"data": {"status": "failed"}}`, KindRejected, "the order was rejected"},
		{"2xx without order id", http.StatusOK, `{"success": true}`, KindInvalidResponse, "the order could not be confirmed"},
		{"2xx with html", http.StatusOK, `<html></html>`, KindInvalidResponse, "the order could not be confirmed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, tt.status, tt.body)
			f.fill(t, "u1")
			before := f.cart(t, "u1")

			order, err := f.svc.Checkout(context.Background(), "u1")
			require.Error(t, err)
			assert.Nil(t, order)
			assert.True(t, IsKind(err, tt.kind), "got %v", err)

			var ce *Error
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.message, ce.Message)
			assert.Equal(t, tt.status, ce.StatusCode)

			after := f.cart(t, "u1")
			assert.Equal(t, before.Version, after.Version, "cart must be untouched")
			assert.Len(t, after.Items, 1)

			list, total, err := f.store.Orders.ListByUser(context.Background(), "u1", 10, 0)
			require.NoError(t, err)
			assert.Zero(t, total)
			assert.Empty(t, list)
		})
	}
}

func TestCheckout_TransportFailureKeepsCart(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	registry := carts.NewRegistry(nil, 0, nil)
	_, _ = registry.Add(context.Background(), "u1", carts.Product{ID: "1", Price: decimal.NewFromInt(5)}, 1)

	svc := NewService(registry, remote.NewClient(url, "", time.Second), nil, orders.NewReferenceGenerator("s"), time.Second, nil)

	_, err := svc.Checkout(context.Background(), "u1")
	assert.True(t, IsKind(err, KindUnavailable))

	s, _ := registry.Snapshot(context.Background(), "u1")
	assert.Len(t, s.Items, 1)
}

func TestCheckout_NotConfiguredIsUnavailable(t *testing.T) {
	t.Parallel()

	registry := carts.NewRegistry(nil, 0, nil)
	_, _ = registry.Add(context.Background(), "u1", carts.Product{ID: "1", Price: decimal.NewFromInt(5)}, 1)

	svc := NewService(registry, remote.NewClient("", "", time.Second), nil, orders.NewReferenceGenerator("s"), 0, nil)

	_, err := svc.Checkout(context.Background(), "u1")
	assert.True(t, IsKind(err, KindUnavailable))
	assert.ErrorIs(t, err, remote.ErrNotConfigured)
}

func TestCheckout_EmptyCart(t *testing.T) {
	t.Parallel()

	f := newFixture(t, http.StatusCreated, `{"orderId": "o-1"}`)

	_, err := f.svc.Checkout(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, f.calls.Load(), "no request for an empty cart")
}

func TestCheckout_TotalMismatchStillConfirms(t *testing.T) {
	t.Parallel()

	f := newFixture(t, http.StatusOK, `{"orderId": "o-1", "total_cents": 5000}`)
	f.fill(t, "u1")

	order, err := f.svc.Checkout(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "54.66", order.Total.StringFixed(2))
	assert.Equal(t, "50.00", order.ConfirmedTotal.StringFixed(2))
	assert.True(t, f.cart(t, "u1").Empty())
}

func TestNewService_RequiresReferenceGenerator(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		NewService(carts.NewRegistry(nil, 0, nil), remote.NewClient("", "", 0), nil, nil, 0, nil)
	})
}

func TestCheckout_KeepsLinesAddedWhileOrdering(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	registry := carts.NewRegistry(nil, 0, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the user keeps shopping while the order is in flight
		_, err := registry.Add(ctx, "u1", carts.Product{ID: "9", Name: "Net", Price: decimal.RequireFromString("5")}, 1)
		assert.NoError(t, err)
		_, err = registry.ChangeQty(ctx, "u1", "7", 1)
		assert.NoError(t, err)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"orderId": "o-1"}`))
	}))
	t.Cleanup(srv.Close)

	svc := NewService(registry, remote.NewClient(srv.URL, "token", time.Second), nil,
		orders.NewReferenceGenerator("secret"), time.Second, nil)

	_, err := registry.Add(ctx, "u1", carts.Product{ID: "7", Name: "Ball", Price: decimal.RequireFromString("19.90")}, 2)
	require.NoError(t, err)

	order, err := svc.Checkout(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, order.Lines, 1)

	left, err := registry.Snapshot(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, left.Items, 2)
	assert.Equal(t, "7", left.Items[0].Key)
	assert.Equal(t, 1, left.Items[0].Quantity, "only the ordered quantity is taken out")
	assert.Equal(t, "9", left.Items[1].Key)
	assert.Equal(t, 1, left.Items[1].Quantity)
}

func TestCheckout_RetryReusesIdempotencyKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var (
		mu   sync.Mutex
		keys []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		mu.Unlock()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	registry := carts.NewRegistry(nil, 0, nil)
	svc := NewService(registry, remote.NewClient(srv.URL, "token", time.Second), nil,
		orders.NewReferenceGenerator("secret"), time.Second, nil)

	_, err := registry.Add(ctx, "u1", carts.Product{ID: "7", Name: "Ball", Price: decimal.RequireFromString("19.90")}, 2)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = svc.Checkout(ctx, "u1")
		require.True(t, IsKind(err, KindUnavailable))
	}

	_, err = registry.ChangeQty(ctx, "u1", "7", 1)
	require.NoError(t, err)
	_, err = svc.Checkout(ctx, "u1")
	require.True(t, IsKind(err, KindUnavailable))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, keys, 3)
	assert.NotEmpty(t, keys[0])
	assert.Equal(t, keys[0], keys[1], "an unchanged cart is retried under the same key")
	assert.NotEqual(t, keys[1], keys[2], "a changed cart is a new order")
}
