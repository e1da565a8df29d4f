// Package admin is the back-office view: it never computes inventory
// itself, it re-queries the store whenever the notification bus ticks
// and serves whatever it last fetched.
package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	invmodel "storefront/pkg/inventory/domain/model"
	"storefront/pkg/notification"
	ordermodel "storefront/pkg/order/domain/model"
)

const recentOrderLimit = 50

type Dashboard struct {
	store  invmodel.StockStore
	orders ordermodel.OrderRepository
	log    logrus.FieldLogger

	mu          sync.RWMutex
	products    []invmodel.Product
	recentOrder []ordermodel.Order
}

func NewDashboard(store invmodel.StockStore, orders ordermodel.OrderRepository, log logrus.FieldLogger) *Dashboard {
	return &Dashboard{store: store, orders: orders, log: log}
}

// Start performs the initial query and re-queries on every bus tick
// until ctx is cancelled.
func (d *Dashboard) Start(ctx context.Context, bus *notification.Bus) {
	d.Refresh(ctx)
	unsubscribe := bus.OnInventoryChanged(func() { d.Refresh(ctx) })
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
}

func (d *Dashboard) Refresh(ctx context.Context) {
	products, err := d.store.List(ctx)
	if err != nil {
		d.log.WithError(err).Warn("admin product refresh failed")
		return
	}
	orders, err := d.orders.ListRecent(ctx, recentOrderLimit)
	if err != nil {
		d.log.WithError(err).Warn("admin order refresh failed")
		return
	}

	d.mu.Lock()
	d.products = products
	d.recentOrder = orders
	d.mu.Unlock()
}

func (d *Dashboard) Products() []invmodel.Product {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.products
}

func (d *Dashboard) RecentOrders() []ordermodel.Order {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.recentOrder
}

func (d *Dashboard) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/admin/products", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, d.Products())
	}).Methods(http.MethodGet)

	r.HandleFunc("/admin/orders", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, d.RecentOrders())
	}).Methods(http.MethodGet)
}

func writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
