package transport_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/pkg/cart"
	"storefront/pkg/inventory/application"
	invmodel "storefront/pkg/inventory/domain/model"
	invservice "storefront/pkg/inventory/domain/service"
	"storefront/pkg/localstore"
	"storefront/pkg/order/domain/model"
	"storefront/pkg/order/domain/service"
	"storefront/pkg/order/transport"
)

type stubCoordinator struct {
	err   error
	order *model.Order
}

func (s *stubCoordinator) PlaceOrder(_ context.Context, _ service.PlaceOrderInput) (*model.Order, error) {
	return s.order, s.err
}

// listStore serves a fixed product list to the cache.
type listStore struct {
	products []invmodel.Product
}

func (s *listStore) NextID() (uuid.UUID, error)                       { return uuid.New(), nil }
func (s *listStore) Create(context.Context, *invmodel.Product) error  { return nil }
func (s *listStore) List(context.Context) ([]invmodel.Product, error) { return s.products, nil }
func (s *listStore) GetStock(context.Context, uuid.UUID) (int, error) { return 0, nil }
func (s *listStore) Increment(context.Context, uuid.UUID, int) error  { return nil }
func (s *listStore) Find(context.Context, uuid.UUID) (*invmodel.Product, error) {
	return nil, invmodel.ErrProductNotFound
}
func (s *listStore) ConditionalDecrement(context.Context, uuid.UUID, int) (bool, error) {
	return false, nil
}

func newRouter(t *testing.T, coordinator service.Coordinator, products []invmodel.Product) (*mux.Router, *cart.Cart) {
	slots, err := localstore.New(t.TempDir())
	require.NoError(t, err)
	basket := cart.New(slots)

	log, _ := logtest.NewNullLogger()
	cache := application.NewCache(&listStore{products: products}, log)
	cache.Refresh(context.Background())

	r := mux.NewRouter()
	transport.NewHandler(coordinator, cache, basket).Register(r)
	return r, basket
}

func post(r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw)))
	return rec
}

func TestCheckoutStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"missing session", service.ErrMissingSession, http.StatusUnauthorized},
		{"empty selection", service.ErrEmptySelection, http.StatusBadRequest},
		{"missing address", service.ErrMissingAddress, http.StatusBadRequest},
		{"insufficient stock", &invservice.InsufficientStockError{ProductName: "Silk Saree"}, http.StatusConflict},
		{"payment verification", service.ErrPaymentVerificationFailed, http.StatusPaymentRequired},
		{"persist failure", service.ErrOrderPersistFailed, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, _ := newRouter(t, &stubCoordinator{err: tc.err}, nil)
			rec := post(r, "/checkout", map[string]string{"user_id": "u", "payment_method": "cod"})
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestCheckoutSuccessReturnsOrder(t *testing.T) {
	order := &model.Order{ID: uuid.New(), Status: model.Confirmed}
	r, _ := newRouter(t, &stubCoordinator{order: order}, nil)

	rec := post(r, "/checkout", map[string]string{"user_id": "u", "payment_method": "razorpay"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), order.ID.String())
}

func TestAddToCartRejectsOutOfStock(t *testing.T) {
	soldOut := invmodel.Product{ID: uuid.New(), Name: "Saree", Stock: 0, Status: invmodel.OutOfStock}
	r, _ := newRouter(t, &stubCoordinator{}, []invmodel.Product{soldOut})

	rec := post(r, "/cart/items", cart.LineItem{ProductID: soldOut.ID, Name: "Saree", PriceCents: 100, Quantity: 1})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetCartFlagsOutOfStockLines(t *testing.T) {
	available := invmodel.Product{ID: uuid.New(), Name: "Cotton", Stock: 5, Status: invmodel.Active}
	soldOut := invmodel.Product{ID: uuid.New(), Name: "Silk", Stock: 0, Status: invmodel.OutOfStock}
	r, basket := newRouter(t, &stubCoordinator{}, []invmodel.Product{available, soldOut})

	require.NoError(t, basket.Add(cart.LineItem{ProductID: available.ID, Name: "Cotton", PriceCents: 100, Quantity: 1}))
	require.NoError(t, basket.Add(cart.LineItem{ProductID: soldOut.ID, Name: "Silk", PriceCents: 200, Quantity: 1}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items           []cart.LineItem `json:"items"`
		CheckoutBlocked bool            `json:"checkout_blocked"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.CheckoutBlocked)
	require.Len(t, resp.Items, 2)
	assert.False(t, resp.Items[0].OutOfStock)
	assert.True(t, resp.Items[1].OutOfStock)
}
