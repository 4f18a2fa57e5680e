package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `id, name, price, stock, min_stock, category_id, created_at, updated_at`

func scanProduct(row interface{ Scan(dest ...any) error }) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Price,
		&p.Stock,
		&p.MinStock,
		&p.CategoryID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

const getProduct = `
SELECT ` + productColumns + `
FROM products
WHERE id = $1
`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProduct, id))
}

const getProductForUpdate = `
SELECT ` + productColumns + `
FROM products
WHERE id = $1
FOR NO KEY UPDATE
`

// GetProductForUpdate locks the product row so concurrent stock checks and
// decrements against the same product serialize instead of racing.
func (q *Queries) GetProductForUpdate(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProductForUpdate, id))
}

const listProducts = `
SELECT ` + productColumns + `
FROM products
ORDER BY name
`

func (q *Queries) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

const listLowStockProducts = `
SELECT ` + productColumns + `
FROM products
WHERE stock <= min_stock
ORDER BY name
`

func (q *Queries) ListLowStockProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.Query(ctx, listLowStockProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

const createProduct = `
INSERT INTO products (name, price, stock, min_stock, category_id)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + productColumns + `
`

type CreateProductParams struct {
	Name       string
	Price      pgtype.Numeric
	Stock      int32
	MinStock   int32
	CategoryID pgtype.UUID
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, createProduct,
		arg.Name, arg.Price, arg.Stock, arg.MinStock, arg.CategoryID))
}

const updateProduct = `
UPDATE products
SET name = $2, price = $3, min_stock = $4, category_id = $5, updated_at = now()
WHERE id = $1
RETURNING ` + productColumns + `
`

type UpdateProductParams struct {
	ID         uuid.UUID
	Name       string
	Price      pgtype.Numeric
	MinStock   int32
	CategoryID pgtype.UUID
}

// UpdateProduct edits catalog fields. Stock is deliberately excluded: stock
// only moves through AdjustProductStock so every change leaves a StockLog row.
func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, updateProduct,
		arg.ID, arg.Name, arg.Price, arg.MinStock, arg.CategoryID))
}

const deleteProduct = `
DELETE FROM products
WHERE id = $1
`

func (q *Queries) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, deleteProduct, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const adjustProductStock = `
UPDATE products
SET stock = stock + $2, updated_at = now()
WHERE id = $1
RETURNING ` + productColumns + `
`

type AdjustProductStockParams struct {
	ID    uuid.UUID
	Delta int32
}

// AdjustProductStock applies a signed stock delta. The products.stock CHECK
// constraint backstops the non-negative invariant at commit time.
func (q *Queries) AdjustProductStock(ctx context.Context, arg AdjustProductStockParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, adjustProductStock, arg.ID, arg.Delta))
}
