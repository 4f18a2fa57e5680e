package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, table_id, created_by, status, total, payment_method,
	cash_amount, credit_amount, printed, paid_at, created_at, updated_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.TableID,
		&o.CreatedBy,
		&o.Status,
		&o.Total,
		&o.PaymentMethod,
		&o.CashAmount,
		&o.CreditAmount,
		&o.Printed,
		&o.PaidAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}

func (q *Queries) scanOrders(ctx context.Context, sql string, args ...any) ([]Order, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const createOrder = `
INSERT INTO orders (table_id, created_by, status, total)
VALUES ($1, $2, $3, $4)
RETURNING ` + orderColumns + `
`

type CreateOrderParams struct {
	TableID   uuid.UUID
	CreatedBy uuid.UUID
	Status    string
	Total     pgtype.Numeric
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.TableID, arg.CreatedBy, arg.Status, arg.Total))
}

const getOrder = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForUpdate = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
FOR NO KEY UPDATE
`

// GetOrderForUpdate locks the order row to serialize concurrent payment and
// cancellation attempts against the same order.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

const listOpenOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE status <> 'PAID'
ORDER BY created_at
`

// ListOpenOrders returns every order not yet settled.
func (q *Queries) ListOpenOrders(ctx context.Context) ([]Order, error) {
	return q.scanOrders(ctx, listOpenOrders)
}

const listOpenOrdersByTable = `
SELECT ` + orderColumns + `
FROM orders
WHERE table_id = $1 AND status <> 'PAID'
ORDER BY created_at
`

func (q *Queries) ListOpenOrdersByTable(ctx context.Context, tableID uuid.UUID) ([]Order, error) {
	return q.scanOrders(ctx, listOpenOrdersByTable, tableID)
}

const updateOrderStatus = `
UPDATE orders
SET status = $2, updated_at = now()
WHERE id = $1 AND status NOT IN ('PAID', 'CANCELLED')
RETURNING ` + orderColumns + `
`

type UpdateOrderStatusParams struct {
	ID     uuid.UUID
	Status string
}

// UpdateOrderStatus moves an order between in-progress statuses. Settled
// orders never match: PAID has already left the table's running total, so
// reopening one would desync the tab.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status))
}

const setOrderPaid = `
UPDATE orders
SET status = 'PAID',
    payment_method = $2,
    cash_amount = $3,
    credit_amount = $4,
    paid_at = now(),
    updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns + `
`

type SetOrderPaidParams struct {
	ID            uuid.UUID
	PaymentMethod string
	CashAmount    pgtype.Numeric
	CreditAmount  pgtype.Numeric
}

func (q *Queries) SetOrderPaid(ctx context.Context, arg SetOrderPaidParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, setOrderPaid,
		arg.ID, arg.PaymentMethod, arg.CashAmount, arg.CreditAmount))
}

const markOrderPrinted = `
UPDATE orders
SET printed = true, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns + `
`

func (q *Queries) MarkOrderPrinted(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderPrinted, id))
}

const countActiveOrdersByTable = `
SELECT count(*)
FROM orders
WHERE table_id = $1 AND status NOT IN ('PAID', 'CANCELLED')
`

// CountActiveOrdersByTable counts orders still contributing to the table's
// running total.
func (q *Queries) CountActiveOrdersByTable(ctx context.Context, tableID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countActiveOrdersByTable, tableID).Scan(&n)
	return n, err
}

const listSettledOrderIDsByTable = `
SELECT id
FROM orders
WHERE table_id = $1 AND status IN ('SERVED', 'PAID')
`

// ListSettledOrderIDsByTable returns the orders swept by settle-and-archive
// when the table's last open order is paid.
func (q *Queries) ListSettledOrderIDsByTable(ctx context.Context, tableID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, listSettledOrderIDsByTable, tableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const reassignTableOrders = `
UPDATE orders
SET table_id = $2, updated_at = now()
WHERE table_id = $1 AND status = ANY($3)
`

type ReassignTableOrdersParams struct {
	FromTableID uuid.UUID
	ToTableID   uuid.UUID
	Statuses    []string
}

// ReassignTableOrders moves every order in the given statuses to another
// table and reports how many rows moved.
func (q *Queries) ReassignTableOrders(ctx context.Context, arg ReassignTableOrdersParams) (int64, error) {
	tag, err := q.db.Exec(ctx, reassignTableOrders, arg.FromTableID, arg.ToTableID, arg.Statuses)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deleteOrder = `
DELETE FROM orders
WHERE id = $1
`

func (q *Queries) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, deleteOrder, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// --- Order items ---

const orderItemColumns = `id, order_id, product_id, name, price, quantity, note, created_at`

func scanOrderItem(row interface{ Scan(dest ...any) error }) (OrderItem, error) {
	var it OrderItem
	err := row.Scan(
		&it.ID,
		&it.OrderID,
		&it.ProductID,
		&it.Name,
		&it.Price,
		&it.Quantity,
		&it.Note,
		&it.CreatedAt,
	)
	return it, err
}

const createOrderItem = `
INSERT INTO order_items (order_id, product_id, name, price, quantity, note)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + orderItemColumns + `
`

type CreateOrderItemParams struct {
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Name      string
	Price     pgtype.Numeric
	Quantity  int32
	Note      pgtype.Text
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.ProductID, arg.Name, arg.Price, arg.Quantity, arg.Note))
}

const listOrderItemsByOrder = `
SELECT ` + orderItemColumns + `
FROM order_items
WHERE order_id = $1
ORDER BY created_at
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		it, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const deleteOrderItemsByOrder = `
DELETE FROM order_items
WHERE order_id = $1
`

func (q *Queries) DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteOrderItemsByOrder, orderID)
	return err
}
