package admin_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/pkg/admin"
	invmodel "storefront/pkg/inventory/domain/model"
	"storefront/pkg/notification"
	ordermodel "storefront/pkg/order/domain/model"
)

func TestDashboardRequeriesOnBusTick(t *testing.T) {
	store := &stubStore{}
	orders := &stubOrders{}
	log, _ := logtest.NewNullLogger()

	dash := admin.NewDashboard(store, orders, log)
	bus := notification.NewBus(log, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dash.Start(ctx, bus)

	assert.Empty(t, dash.Products(), "initial view of an empty store")

	// A sale happens somewhere else; the dashboard only learns about it
	// from the bus tick and re-queries.
	store.set([]invmodel.Product{{ID: uuid.New(), Name: "Silk Saree", Stock: 2, Status: invmodel.Active}})
	orders.set([]ordermodel.Order{{ID: uuid.New(), Status: ordermodel.Confirmed}})

	bus.Trigger()
	time.Sleep(60 * time.Millisecond)

	require.Len(t, dash.Products(), 1)
	assert.Equal(t, "Silk Saree", dash.Products()[0].Name)
	require.Len(t, dash.RecentOrders(), 1)
}

func TestDashboardRoutes(t *testing.T) {
	store := &stubStore{}
	store.set([]invmodel.Product{{ID: uuid.New(), Name: "Saree", Stock: 1, Status: invmodel.Active}})
	orders := &stubOrders{}
	log, _ := logtest.NewNullLogger()

	dash := admin.NewDashboard(store, orders, log)
	dash.Refresh(context.Background())

	r := mux.NewRouter()
	dash.RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/admin/products", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "Saree")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/admin/orders", nil))
	assert.Equal(t, 200, rec.Code)
}

type stubStore struct {
	mu       sync.Mutex
	products []invmodel.Product
}

func (s *stubStore) set(p []invmodel.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = p
}

func (s *stubStore) NextID() (uuid.UUID, error) { return uuid.New(), nil }

func (s *stubStore) Create(_ context.Context, _ *invmodel.Product) error { return nil }

func (s *stubStore) Find(_ context.Context, _ uuid.UUID) (*invmodel.Product, error) {
	return nil, invmodel.ErrProductNotFound
}

func (s *stubStore) List(_ context.Context) ([]invmodel.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products, nil
}

func (s *stubStore) GetStock(_ context.Context, _ uuid.UUID) (int, error) { return 0, nil }

func (s *stubStore) ConditionalDecrement(_ context.Context, _ uuid.UUID, _ int) (bool, error) {
	return false, nil
}

func (s *stubStore) Increment(_ context.Context, _ uuid.UUID, _ int) error { return nil }

type stubOrders struct {
	mu     sync.Mutex
	orders []ordermodel.Order
}

func (s *stubOrders) set(o []ordermodel.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = o
}

func (s *stubOrders) NextID() (uuid.UUID, error) { return uuid.New(), nil }

func (s *stubOrders) Create(_ context.Context, _ *ordermodel.Order) error { return nil }

func (s *stubOrders) Find(_ context.Context, _ uuid.UUID) (*ordermodel.Order, error) {
	return nil, ordermodel.ErrOrderNotFound
}

func (s *stubOrders) ListRecent(_ context.Context, _ int) ([]ordermodel.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders, nil
}
