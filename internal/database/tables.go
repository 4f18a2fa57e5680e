package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const tableColumns = `id, number, capacity, status, running_total, area_id, created_at, updated_at`

func scanTable(row interface{ Scan(dest ...any) error }) (Table, error) {
	var t Table
	err := row.Scan(
		&t.ID,
		&t.Number,
		&t.Capacity,
		&t.Status,
		&t.RunningTotal,
		&t.AreaID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	return t, err
}

const getTable = `
SELECT ` + tableColumns + `
FROM tables
WHERE id = $1
`

func (q *Queries) GetTable(ctx context.Context, id uuid.UUID) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, getTable, id))
}

const getTableForUpdate = `
SELECT ` + tableColumns + `
FROM tables
WHERE id = $1
FOR NO KEY UPDATE
`

// GetTableForUpdate locks the table row for the duration of the transaction.
// Serializes concurrent mutations of running_total and status.
func (q *Queries) GetTableForUpdate(ctx context.Context, id uuid.UUID) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, getTableForUpdate, id))
}

const listTables = `
SELECT ` + tableColumns + `
FROM tables
ORDER BY number
`

func (q *Queries) ListTables(ctx context.Context) ([]Table, error) {
	rows, err := q.db.Query(ctx, listTables)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

const listTablesByStatus = `
SELECT ` + tableColumns + `
FROM tables
WHERE status = $1
ORDER BY number
`

func (q *Queries) ListTablesByStatus(ctx context.Context, status string) ([]Table, error) {
	rows, err := q.db.Query(ctx, listTablesByStatus, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

const updateTableStatus = `
UPDATE tables
SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + tableColumns + `
`

type UpdateTableStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) UpdateTableStatus(ctx context.Context, arg UpdateTableStatusParams) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, updateTableStatus, arg.ID, arg.Status))
}

const occupyTable = `
UPDATE tables
SET status = 'OCCUPIED', running_total = running_total + $2, updated_at = now()
WHERE id = $1
RETURNING ` + tableColumns + `
`

type OccupyTableParams struct {
	ID     uuid.UUID
	Amount pgtype.Numeric
}

// OccupyTable marks the table occupied and adds an order total to its
// running total in one statement.
func (q *Queries) OccupyTable(ctx context.Context, arg OccupyTableParams) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, occupyTable, arg.ID, arg.Amount))
}

const addToTableTotal = `
UPDATE tables
SET running_total = running_total + $2, updated_at = now()
WHERE id = $1
RETURNING ` + tableColumns + `
`

type AddToTableTotalParams struct {
	ID     uuid.UUID
	Amount pgtype.Numeric
}

func (q *Queries) AddToTableTotal(ctx context.Context, arg AddToTableTotalParams) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, addToTableTotal, arg.ID, arg.Amount))
}

const setTableState = `
UPDATE tables
SET status = $2, running_total = $3, capacity = $4, updated_at = now()
WHERE id = $1
RETURNING ` + tableColumns + `
`

type SetTableStateParams struct {
	ID           uuid.UUID
	Status       string
	RunningTotal pgtype.Numeric
	Capacity     int32
}

// SetTableState writes status, running_total and capacity together. Used by
// move/merge/release flows where the cached total must be set explicitly.
func (q *Queries) SetTableState(ctx context.Context, arg SetTableStateParams) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, setTableState, arg.ID, arg.Status, arg.RunningTotal, arg.Capacity))
}

const createTable = `
INSERT INTO tables (number, capacity, status, area_id)
VALUES ($1, $2, $3, $4)
RETURNING ` + tableColumns + `
`

type CreateTableParams struct {
	Number   int32
	Capacity int32
	Status   string
	AreaID   pgtype.UUID
}

func (q *Queries) CreateTable(ctx context.Context, arg CreateTableParams) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, createTable, arg.Number, arg.Capacity, arg.Status, arg.AreaID))
}
