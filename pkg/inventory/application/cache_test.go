package application_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/pkg/cart"
	"storefront/pkg/inventory/application"
	"storefront/pkg/inventory/domain/model"
	"storefront/pkg/notification"
)

func TestRefreshUpdatesAvailability(t *testing.T) {
	store := newCountingStore()
	id := store.add("Silk Saree", 3)
	log, _ := logtest.NewNullLogger()
	cache := application.NewCache(store, log)

	cache.Refresh(context.Background())
	assert.True(t, cache.Available(id, 1))
	assert.True(t, cache.Available(id, 3))
	assert.False(t, cache.Available(id, 4))
	assert.False(t, cache.Available(uuid.New(), 1), "unknown product is unavailable")

	store.setStock(id, 0)
	cache.Refresh(context.Background())
	assert.False(t, cache.Available(id, 1))

	p, ok := cache.Product(id)
	require.True(t, ok)
	assert.Equal(t, model.OutOfStock, p.Status)
}

func TestFlagCartKeepsLinesInPlace(t *testing.T) {
	store := newCountingStore()
	inStock := store.add("Cotton Saree", 5)
	soldOut := store.add("Kanjivaram Saree", 0)
	log, _ := logtest.NewNullLogger()
	cache := application.NewCache(store, log)
	cache.Refresh(context.Background())

	items, blocked := cache.FlagCart([]cart.LineItem{
		{ProductID: inStock, Name: "Cotton Saree", Quantity: 2},
		{ProductID: soldOut, Name: "Kanjivaram Saree", Quantity: 1},
	})

	assert.True(t, blocked, "checkout disabled while a line is out of stock")
	require.Len(t, items, 2, "affected lines are flagged, never removed")
	assert.False(t, items[0].OutOfStock)
	assert.True(t, items[1].OutOfStock)

	// A line exceeding remaining stock is also flagged.
	items, blocked = cache.FlagCart([]cart.LineItem{{ProductID: inStock, Name: "Cotton Saree", Quantity: 9}})
	assert.True(t, blocked)
	assert.True(t, items[0].OutOfStock)
}

func TestBusTickCausesSingleRefetch(t *testing.T) {
	store := newCountingStore()
	store.add("Saree", 5)
	log, _ := logtest.NewNullLogger()
	cache := application.NewCache(store, log)

	bus := notification.NewBus(log, 30*time.Millisecond)
	bus.OnInventoryChanged(func() { cache.Refresh(context.Background()) })

	// The same logical event arrives over two delivery paths.
	bus.Trigger()
	bus.Trigger()

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, int32(1), store.listCalls())
}

type countingStore struct {
	mu       sync.Mutex
	lists    int32
	products map[uuid.UUID]*model.Product
}

func newCountingStore() *countingStore {
	return &countingStore{products: make(map[uuid.UUID]*model.Product)}
}

func (m *countingStore) add(name string, stock int) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.products[id] = &model.Product{ID: id, Name: name, Stock: stock, Status: model.StatusForStock(stock)}
	return id
}

func (m *countingStore) setStock(id uuid.UUID, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[id].Stock = stock
	m.products[id].Status = model.StatusForStock(stock)
}

func (m *countingStore) listCalls() int32 { return atomic.LoadInt32(&m.lists) }

func (m *countingStore) NextID() (uuid.UUID, error) { return uuid.New(), nil }

func (m *countingStore) Create(_ context.Context, p *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *p
	m.products[p.ID] = &clone
	return nil
}

func (m *countingStore) Find(_ context.Context, id uuid.UUID) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, model.ErrProductNotFound
	}
	clone := *p
	return &clone, nil
}

func (m *countingStore) List(_ context.Context) ([]model.Product, error) {
	atomic.AddInt32(&m.lists, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, *p)
	}
	return out, nil
}

func (m *countingStore) GetStock(_ context.Context, id uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return 0, model.ErrProductNotFound
	}
	return p.Stock, nil
}

func (m *countingStore) ConditionalDecrement(_ context.Context, id uuid.UUID, quantity int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok || p.Stock < quantity {
		return false, nil
	}
	p.Stock -= quantity
	p.Status = model.StatusForStock(p.Stock)
	return true, nil
}

func (m *countingStore) Increment(_ context.Context, id uuid.UUID, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return model.ErrProductNotFound
	}
	p.Stock += quantity
	p.Status = model.StatusForStock(p.Stock)
	return nil
}
