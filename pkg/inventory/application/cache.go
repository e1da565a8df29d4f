// Package application holds the per-context view of inventory: the
// last-known product list that drives availability badges and purchase
// controls.
package application

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"storefront/pkg/cart"
	"storefront/pkg/inventory/domain/model"
)

// Cache is loosely consistent with the store: any notification tick
// triggers Refresh, which re-fetches the authoritative product set.
// Concurrent ticks collapse into a single store query.
type Cache struct {
	store model.StockStore
	log   logrus.FieldLogger

	group singleflight.Group

	mu       sync.RWMutex
	products map[uuid.UUID]model.Product
}

func NewCache(store model.StockStore, log logrus.FieldLogger) *Cache {
	return &Cache{
		store:    store,
		log:      log,
		products: make(map[uuid.UUID]model.Product),
	}
}

// Refresh re-fetches the full product set. Safe to call redundantly;
// used as the bus refresh handler.
func (c *Cache) Refresh(ctx context.Context) {
	_, err, _ := c.group.Do("refresh", func() (interface{}, error) {
		products, err := c.store.List(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		c.products = make(map[uuid.UUID]model.Product, len(products))
		for _, p := range products {
			c.products[p.ID] = p
		}
		return nil, nil
	})
	if err != nil {
		c.log.WithError(err).Warn("inventory refresh failed, keeping last-known view")
	}
}

func (c *Cache) Products() []model.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	return out
}

func (c *Cache) Product(id uuid.UUID) (model.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	return p, ok
}

// Available reports whether the purchase controls for a product should
// be enabled: the product is known, active, and can cover quantity.
func (c *Cache) Available(id uuid.UUID, quantity int) bool {
	p, ok := c.Product(id)
	return ok && p.Available() && p.Stock >= quantity
}

// FlagCart marks cart lines whose product can no longer cover them and
// reports whether checkout must stay disabled. Affected lines are
// flagged in place, never removed; the shopper decides what to drop.
func (c *Cache) FlagCart(items []cart.LineItem) ([]cart.LineItem, bool) {
	blocked := false
	for i := range items {
		items[i].OutOfStock = !c.Available(items[i].ProductID, items[i].Quantity)
		if items[i].OutOfStock {
			blocked = true
		}
	}
	return items, blocked
}
