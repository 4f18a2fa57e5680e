package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const stockLogColumns = `id, product_id, quantity, type, supplier_id, note, created_at`

func scanStockLog(row interface{ Scan(dest ...any) error }) (StockLog, error) {
	var l StockLog
	err := row.Scan(
		&l.ID,
		&l.ProductID,
		&l.Quantity,
		&l.Type,
		&l.SupplierID,
		&l.Note,
		&l.CreatedAt,
	)
	return l, err
}

const createStockLog = `
INSERT INTO stock_logs (product_id, quantity, type, supplier_id, note)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + stockLogColumns + `
`

type CreateStockLogParams struct {
	ProductID  uuid.UUID
	Quantity   int32
	Type       string
	SupplierID pgtype.UUID
	Note       pgtype.Text
}

// CreateStockLog appends one movement row. Rows are never updated or
// deleted; the table is the inventory audit trail.
func (q *Queries) CreateStockLog(ctx context.Context, arg CreateStockLogParams) (StockLog, error) {
	return scanStockLog(q.db.QueryRow(ctx, createStockLog,
		arg.ProductID, arg.Quantity, arg.Type, arg.SupplierID, arg.Note))
}

const listStockLogsByProduct = `
SELECT ` + stockLogColumns + `
FROM stock_logs
WHERE product_id = $1
ORDER BY created_at DESC
`

func (q *Queries) ListStockLogsByProduct(ctx context.Context, productID uuid.UUID) ([]StockLog, error) {
	rows, err := q.db.Query(ctx, listStockLogsByProduct, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []StockLog
	for rows.Next() {
		l, err := scanStockLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
