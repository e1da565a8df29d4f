// Package cart holds the shopper's selection for one context. Contents
// are private to the context that wrote them; only inventory
// availability is reconciled across contexts, never the cart itself.
package cart

import (
	"errors"

	"github.com/google/uuid"

	"storefront/pkg/localstore"
)

const (
	cartKey    = "cart"
	addressKey = "deliveryAddress"
	buyNowKey  = "buyNowItem"
)

var ErrInvalidQuantity = errors.New("quantity must be a positive number")

// LineItem is a denormalized snapshot taken at add-to-cart time. It is
// not re-validated against the product until checkout.
type LineItem struct {
	ProductID  uuid.UUID `json:"product_id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	Quantity   int       `json:"quantity"`
	ImageURL   string    `json:"image_url"`
	Category   string    `json:"category"`

	// OutOfStock is set by the inventory cache when the product can no
	// longer cover this line. The line stays in the cart, flagged,
	// until the shopper removes it.
	OutOfStock bool `json:"out_of_stock,omitempty"`
}

type Address struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Street   string `json:"street"`
	City     string `json:"city"`
	State    string `json:"state"`
	Pincode  string `json:"pincode"`
}

func (a Address) Complete() bool {
	return a.FullName != "" && a.Phone != "" && a.Street != "" && a.City != "" && a.Pincode != ""
}

type Cart struct {
	store *localstore.Store
}

func New(store *localstore.Store) *Cart {
	return &Cart{store: store}
}

func (c *Cart) Items() ([]LineItem, error) {
	var items []LineItem
	if _, err := c.store.Get(cartKey, &items); err != nil {
		if err == localstore.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return items, nil
}

func (c *Cart) Add(item LineItem) error {
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	items, err := c.Items()
	if err != nil {
		return err
	}
	for i := range items {
		if items[i].ProductID == item.ProductID {
			items[i].Quantity += item.Quantity
			return c.store.Set(cartKey, items)
		}
	}
	return c.store.Set(cartKey, append(items, item))
}

// UpdateQuantity sets the quantity for a line; zero removes it.
func (c *Cart) UpdateQuantity(productID uuid.UUID, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	items, err := c.Items()
	if err != nil {
		return err
	}
	out := items[:0]
	for _, it := range items {
		if it.ProductID == productID {
			if quantity == 0 {
				continue
			}
			it.Quantity = quantity
		}
		out = append(out, it)
	}
	return c.store.Set(cartKey, out)
}

func (c *Cart) Remove(productID uuid.UUID) error {
	return c.UpdateQuantity(productID, 0)
}

func (c *Cart) Clear() error {
	return c.store.Delete(cartKey)
}

func (c *Cart) Flag(items []LineItem) error {
	return c.store.Set(cartKey, items)
}

func (c *Cart) TotalCents() (int64, error) {
	items, err := c.Items()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, it := range items {
		total += it.PriceCents * int64(it.Quantity)
	}
	return total, nil
}

func (c *Cart) SetAddress(a Address) error {
	return c.store.Set(addressKey, a)
}

func (c *Cart) Address() (*Address, error) {
	var a Address
	if _, err := c.store.Get(addressKey, &a); err != nil {
		if err == localstore.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// Buy-now is the single-item fast path that bypasses the cart.

func (c *Cart) SetBuyNow(item LineItem) error {
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	return c.store.Set(buyNowKey, item)
}

func (c *Cart) BuyNow() (*LineItem, error) {
	var item LineItem
	if _, err := c.store.Get(buyNowKey, &item); err != nil {
		if err == localstore.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (c *Cart) ClearBuyNow() error {
	return c.store.Delete(buyNowKey)
}
