package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createArea = `
INSERT INTO areas (name)
VALUES ($1)
RETURNING id, name, created_at
`

func (q *Queries) CreateArea(ctx context.Context, name string) (Area, error) {
	var a Area
	err := q.db.QueryRow(ctx, createArea, name).Scan(&a.ID, &a.Name, &a.CreatedAt)
	return a, err
}

const listAreas = `
SELECT id, name, created_at
FROM areas
ORDER BY name
`

func (q *Queries) ListAreas(ctx context.Context) ([]Area, error) {
	rows, err := q.db.Query(ctx, listAreas)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var areas []Area
	for rows.Next() {
		var a Area
		if err := rows.Scan(&a.ID, &a.Name, &a.CreatedAt); err != nil {
			return nil, err
		}
		areas = append(areas, a)
	}
	return areas, rows.Err()
}

const createCategory = `
INSERT INTO categories (name)
VALUES ($1)
RETURNING id, name, created_at
`

func (q *Queries) CreateCategory(ctx context.Context, name string) (Category, error) {
	var c Category
	err := q.db.QueryRow(ctx, createCategory, name).Scan(&c.ID, &c.Name, &c.CreatedAt)
	return c, err
}

const listCategories = `
SELECT id, name, created_at
FROM categories
ORDER BY name
`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

const createSupplier = `
INSERT INTO suppliers (name, phone)
VALUES ($1, $2)
RETURNING id, name, phone, created_at
`

type CreateSupplierParams struct {
	Name  string
	Phone pgtype.Text
}

func (q *Queries) CreateSupplier(ctx context.Context, arg CreateSupplierParams) (Supplier, error) {
	var s Supplier
	err := q.db.QueryRow(ctx, createSupplier, arg.Name, arg.Phone).
		Scan(&s.ID, &s.Name, &s.Phone, &s.CreatedAt)
	return s, err
}

const listSuppliers = `
SELECT id, name, phone, created_at
FROM suppliers
ORDER BY name
`

func (q *Queries) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := q.db.Query(ctx, listSuppliers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.Phone, &s.CreatedAt); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}
