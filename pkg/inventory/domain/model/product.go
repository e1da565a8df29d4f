package model

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock quantity")
)

type ProductStatus string

const (
	Active     ProductStatus = "active"
	OutOfStock ProductStatus = "out-of-stock"
)

// StatusForStock derives the product status from its stock count.
// Status is never stored independently of stock; every stock writer
// must persist both in the same operation.
func StatusForStock(stock int) ProductStatus {
	if stock > 0 {
		return Active
	}
	return OutOfStock
}

type Product struct {
	ID         uuid.UUID     `db:"id"`
	Name       string        `db:"name"`
	Category   string        `db:"category"`
	ImageURL   string        `db:"image_url"`
	PriceCents int64         `db:"price_cents"`
	Stock      int           `db:"stock"`
	Status     ProductStatus `db:"status"`
	CreatedAt  time.Time     `db:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at"`
}

func (p Product) Available() bool {
	return p.Status == Active && p.Stock > 0
}

// StockStore is the authoritative inventory store. ConditionalDecrement
// and Increment are the only permitted writers of the stock column.
type StockStore interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, product *Product) error
	Find(ctx context.Context, id uuid.UUID) (*Product, error)
	List(ctx context.Context) ([]Product, error)
	GetStock(ctx context.Context, id uuid.UUID) (int, error)

	// ConditionalDecrement atomically subtracts quantity from stock,
	// succeeding only when current stock >= quantity. The decrement and
	// the derived status change land in one storage-level operation;
	// callers must never emulate this with a read followed by a write.
	ConditionalDecrement(ctx context.Context, id uuid.UUID, quantity int) (bool, error)

	// Increment is the compensating restore. It fails only when the
	// product no longer exists.
	Increment(ctx context.Context, id uuid.UUID, quantity int) error
}

// ProductChange is delivered by the store's change feed whenever any
// writer touches a product row. Delivery is at-least-once and may be
// delayed or dropped; consumers re-query the store rather than trusting
// these fields.
type ProductChange struct {
	ProductID uuid.UUID     `json:"product_id"`
	Stock     int           `json:"stock"`
	Status    ProductStatus `json:"status"`
}

// ChangeFeed is the store's push channel for product row changes.
type ChangeFeed interface {
	Subscribe(ctx context.Context, fn func(ProductChange)) (Subscription, error)
}

// Subscription stops delivery when closed. Close is safe to call more
// than once.
type Subscription interface {
	Close() error
}
