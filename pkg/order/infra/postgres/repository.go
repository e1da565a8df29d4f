package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"storefront/pkg/order/domain/model"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// orderRow maps the orders table; items and the shipping address live
// in jsonb columns.
type orderRow struct {
	ID              uuid.UUID `db:"id"`
	UserID          string    `db:"user_id"`
	Items           string    `db:"items"`
	TotalCents      int64     `db:"total_cents"`
	ShippingAddress string    `db:"shipping_address"`
	Status          string    `db:"status"`
	PaymentMethod   string    `db:"payment_method"`
	PaymentID       string    `db:"payment_id"`
	CreatedAt       time.Time `db:"created_at"`
}

func (r *Repository) NextID() (uuid.UUID, error) {
	return uuid.New(), nil
}

func (r *Repository) Create(ctx context.Context, order *model.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return errors.Wrap(err, "marshal order items")
	}
	addr, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return errors.Wrap(err, "marshal shipping address")
	}

	row := orderRow{
		ID:              order.ID,
		UserID:          order.UserID,
		Items:           string(items),
		TotalCents:      order.TotalCents,
		ShippingAddress: string(addr),
		Status:          string(order.Status),
		PaymentMethod:   order.PaymentMethod,
		PaymentID:       order.PaymentID,
		CreatedAt:       order.CreatedAt,
	}
	const q = `
		INSERT INTO orders (id, user_id, items, total_cents, shipping_address, status, payment_method, payment_id, created_at)
		VALUES (:id, :user_id, CAST(:items AS jsonb), :total_cents, CAST(:shipping_address AS jsonb), :status, :payment_method, :payment_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, q, row); err != nil {
		return errors.Wrap(err, "insert order")
	}
	return nil
}

func (r *Repository) Find(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var row orderRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM orders WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, model.ErrOrderNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select order")
	}
	return row.toOrder()
}

func (r *Repository) ListRecent(ctx context.Context, limit int) ([]model.Order, error) {
	var rows []orderRow
	err := r.db.SelectContext(ctx, &rows, `SELECT * FROM orders ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select orders")
	}

	orders := make([]model.Order, 0, len(rows))
	for _, row := range rows {
		o, err := row.toOrder()
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, nil
}

func (row orderRow) toOrder() (*model.Order, error) {
	o := model.Order{
		ID:            row.ID,
		UserID:        row.UserID,
		TotalCents:    row.TotalCents,
		Status:        model.OrderStatus(row.Status),
		PaymentMethod: row.PaymentMethod,
		PaymentID:     row.PaymentID,
		CreatedAt:     row.CreatedAt,
	}
	if err := json.Unmarshal([]byte(row.Items), &o.Items); err != nil {
		return nil, errors.Wrap(err, "unmarshal order items")
	}
	if err := json.Unmarshal([]byte(row.ShippingAddress), &o.ShippingAddress); err != nil {
		return nil, errors.Wrap(err, "unmarshal shipping address")
	}
	return &o, nil
}
