package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"storefront/pkg/inventory/domain/model"
)

// Repository is the Postgres-backed model.StockStore. The stock column
// is only ever written through ConditionalDecrement and Increment;
// both fold the derived status into the same UPDATE so no reader can
// observe stock and status disagreeing.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) NextID() (uuid.UUID, error) {
	return uuid.New(), nil
}

func (r *Repository) Create(ctx context.Context, p *model.Product) error {
	const q = `
		INSERT INTO products (id, name, category, image_url, price_cents, stock, status, created_at, updated_at)
		VALUES (:id, :name, :category, :image_url, :price_cents, :stock, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, q, p); err != nil {
		return errors.Wrap(err, "insert product")
	}
	return nil
}

func (r *Repository) Find(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := r.db.GetContext(ctx, &p, `SELECT * FROM products WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, model.ErrProductNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select product")
	}
	return &p, nil
}

func (r *Repository) List(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := r.db.SelectContext(ctx, &products, `SELECT * FROM products ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "select products")
	}
	return products, nil
}

func (r *Repository) GetStock(ctx context.Context, id uuid.UUID) (int, error) {
	var stock int
	err := r.db.GetContext(ctx, &stock, `SELECT stock FROM products WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return 0, model.ErrProductNotFound
	}
	if err != nil {
		return 0, errors.Wrap(err, "select stock")
	}
	return stock, nil
}

func (r *Repository) ConditionalDecrement(ctx context.Context, id uuid.UUID, quantity int) (bool, error) {
	// One conditional UPDATE, never a read followed by a write: two
	// contexts racing for the last units must be serialized by the
	// store, and the WHERE predicate is what keeps stock >= 0.
	const q = `
		UPDATE products
		SET stock = stock - $2,
		    status = CASE WHEN stock - $2 > 0 THEN 'active' ELSE 'out-of-stock' END,
		    updated_at = now()
		WHERE id = $1 AND stock >= $2`
	res, err := r.db.ExecContext(ctx, q, id, quantity)
	if err != nil {
		return false, errors.Wrap(err, "conditional stock decrement")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "rows affected")
	}
	return n == 1, nil
}

func (r *Repository) Increment(ctx context.Context, id uuid.UUID, quantity int) error {
	const q = `
		UPDATE products
		SET stock = stock + $2,
		    status = CASE WHEN stock + $2 > 0 THEN 'active' ELSE 'out-of-stock' END,
		    updated_at = now()
		WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, quantity)
	if err != nil {
		return errors.Wrap(err, "stock increment")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return model.ErrProductNotFound
	}
	return nil
}
