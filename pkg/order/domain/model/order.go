package model

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrOrderNotFound = errors.New("order not found")

type OrderStatus string

const (
	Pending   OrderStatus = "pending"
	Confirmed OrderStatus = "confirmed"
	Shipped   OrderStatus = "shipped"
	Cancelled OrderStatus = "cancelled"
)

const (
	PaymentCOD      = "cod"
	PaymentRazorpay = "razorpay"
)

// Item is a snapshot of a cart line at the moment of purchase. Items
// are immutable once the order is created.
type Item struct {
	ProductID  uuid.UUID `json:"product_id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	Quantity   int       `json:"quantity"`
	ImageURL   string    `json:"image_url"`
	Category   string    `json:"category"`
}

type ShippingAddress struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Street   string `json:"street"`
	City     string `json:"city"`
	State    string `json:"state"`
	Pincode  string `json:"pincode"`
}

type Order struct {
	ID              uuid.UUID
	UserID          string
	Items           []Item
	TotalCents      int64
	ShippingAddress ShippingAddress
	Status          OrderStatus
	PaymentMethod   string
	PaymentID       string
	CreatedAt       time.Time
}

type OrderRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, order *Order) error
	Find(ctx context.Context, id uuid.UUID) (*Order, error)
	ListRecent(ctx context.Context, limit int) ([]Order, error)
}
