package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sellergrid/service-core-go/internal/catalog/entity"
)

// ProductRepo provides data access for the products table using sqlx.
type ProductRepo struct {
	db *sqlx.DB
}

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

// EnsureTable creates the products table if not exists (idempotent).
func (r *ProductRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS products (
  id VARCHAR(32) PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  price NUMERIC(12,2) NOT NULL DEFAULT 0,
  available BOOLEAN NOT NULL DEFAULT true,
  owner_id VARCHAR(32) NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_products_owner ON products(owner_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// GetByID fetches a product, or nil when absent.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	const q = `SELECT id, name, description, price, available, owner_id, created_at
	  FROM products WHERE id=$1`
	var row entity.Product
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &row, nil
}

// GetAll lists all products ordered by creation time.
func (r *ProductRepo) GetAll(ctx context.Context) ([]*entity.Product, error) {
	const q = `SELECT id, name, description, price, available, owner_id, created_at
	  FROM products ORDER BY created_at`
	var rows []*entity.Product
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return rows, nil
}

// GetByOwner lists a single owner's products.
func (r *ProductRepo) GetByOwner(ctx context.Context, ownerID string) ([]*entity.Product, error) {
	const q = `SELECT id, name, description, price, available, owner_id, created_at
	  FROM products WHERE owner_id=$1 ORDER BY created_at`
	var rows []*entity.Product
	if err := r.db.SelectContext(ctx, &rows, q, ownerID); err != nil {
		return nil, fmt.Errorf("list products by owner: %w", err)
	}
	return rows, nil
}

// ExistsForOwner reports whether the owner already has a product with the
// same name and description.
func (r *ProductRepo) ExistsForOwner(ctx context.Context, ownerID, name, description string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM products WHERE owner_id=$1 AND name=$2 AND description=$3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, q, ownerID, name, description); err != nil {
		return false, fmt.Errorf("probe product: %w", err)
	}
	return exists, nil
}

// Add inserts a new product row.
func (r *ProductRepo) Add(ctx context.Context, p *entity.Product) error {
	const q = `INSERT INTO products (id, name, description, price, available, owner_id)
	  VALUES (:id, :name, :description, :price, :available, :owner_id)`
	if _, err := r.db.NamedExecContext(ctx, q, p); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// Update persists mutable fields of an existing product.
func (r *ProductRepo) Update(ctx context.Context, p *entity.Product) error {
	const q = `UPDATE products
	  SET name=:name, description=:description, price=:price, available=:available
	  WHERE id=:id`
	if _, err := r.db.NamedExecContext(ctx, q, p); err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

// Delete removes a product by id.
func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id=$1`, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}
