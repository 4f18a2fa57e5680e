package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/saji-pos/api/internal/database"
	"github.com/saji-pos/api/internal/enum"
	"github.com/saji-pos/api/internal/printer"
	"github.com/shopspring/decimal"
)

// printTimeout bounds the post-commit printer call. The transaction has
// already committed by the time this runs; a slow bridge can only delay the
// response, never the unit of work.
const printTimeout = 5 * time.Second

// OrderStore defines the DB methods needed by the order lifecycle.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	GetTableForUpdate(ctx context.Context, id uuid.UUID) (database.Table, error)
	GetProductForUpdate(ctx context.Context, id uuid.UUID) (database.Product, error)
	AdjustProductStock(ctx context.Context, arg database.AdjustProductStockParams) (database.Product, error)
	CreateStockLog(ctx context.Context, arg database.CreateStockLogParams) (database.StockLog, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	OccupyTable(ctx context.Context, arg database.OccupyTableParams) (database.Table, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	CountActiveOrdersByTable(ctx context.Context, tableID uuid.UUID) (int64, error)
	SetTableState(ctx context.Context, arg database.SetTableStateParams) (database.Table, error)
	AddToTableTotal(ctx context.Context, arg database.AddToTableTotalParams) (database.Table, error)
	DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	MarkOrderPrinted(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetUser(ctx context.Context, id uuid.UUID) (database.User, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	TableID   string
	CreatedBy uuid.UUID
	Items     []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single item in the order.
type CreateOrderItemRequest struct {
	ProductID string
	Quantity  int32
	Note      string
}

// OrderResult is a fully expanded order: row, item snapshots, table, creator.
type OrderResult struct {
	Order database.Order
	Items []database.OrderItem
	Table database.Table
	User  database.User

	// PrintWarning carries a best-effort print failure. The order itself
	// succeeded; callers surface this as a soft warning.
	PrintWarning string
}

// OrderService handles the order lifecycle.
type OrderService struct {
	store    OrderStore
	pool     TxBeginner
	newStore NewOrderStore
	events   EventPublisher
	printer  printer.Printer
}

// NewOrderService creates a new OrderService.
func NewOrderService(store OrderStore, pool TxBeginner, newStore NewOrderStore, events EventPublisher, p printer.Printer) *OrderService {
	return &OrderService{store: store, pool: pool, newStore: newStore, events: events, printer: p}
}

// snapshotItem holds a prepared order item before insert.
type snapshotItem struct {
	productID uuid.UUID
	name      string
	price     decimal.Decimal
	quantity  int32
	note      string
}

// CreateOrder validates the request against live inventory and creates the
// order atomically: order + item snapshots + stock decrements + stock logs +
// table occupancy all commit together or not at all.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	tableID, err := uuid.Parse(req.TableID)
	if err != nil {
		return nil, ErrInvalidTableID
	}
	for i, item := range req.Items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		if _, err := uuid.Parse(item.ProductID); err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidProductID)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// Lock the table row first: concurrent creates against the same table
	// serialize here, so running_total updates never interleave.
	table, err := store.GetTableForUpdate(ctx, tableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("get table: %w", err)
	}

	// Stock check + price snapshot under product row locks. Two concurrent
	// orders for the same product cannot both pass the check.
	total := decimal.Zero
	snapshots := make([]snapshotItem, 0, len(req.Items))
	for i, item := range req.Items {
		productID := uuid.MustParse(item.ProductID)
		product, err := store.GetProductForUpdate(ctx, productID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrProductNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get product: %w", i, err)
		}
		if product.Stock < item.Quantity {
			return nil, fmt.Errorf("item[%d] (%s): %w", i, product.Name, ErrInsufficientStock)
		}

		price := numericToDecimal(product.Price)
		total = total.Add(price.Mul(decimal.NewFromInt32(item.Quantity)))
		snapshots = append(snapshots, snapshotItem{
			productID: productID,
			name:      product.Name,
			price:     price,
			quantity:  item.Quantity,
			note:      item.Note,
		})
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		TableID:   tableID,
		CreatedBy: req.CreatedBy,
		Status:    enum.OrderStatusPending,
		Total:     decimalToNumeric(total),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]database.OrderItem, 0, len(snapshots))
	for _, snap := range snapshots {
		note := pgtype.Text{}
		if snap.note != "" {
			note = pgtype.Text{String: snap.note, Valid: true}
		}
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:   order.ID,
			ProductID: snap.productID,
			Name:      snap.name,
			Price:     decimalToNumeric(snap.price),
			Quantity:  snap.quantity,
			Note:      note,
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)

		if _, err := store.AdjustProductStock(ctx, database.AdjustProductStockParams{
			ID:    snap.productID,
			Delta: -snap.quantity,
		}); err != nil {
			return nil, fmt.Errorf("decrement stock: %w", err)
		}
		if _, err := store.CreateStockLog(ctx, database.CreateStockLogParams{
			ProductID: snap.productID,
			Quantity:  -snap.quantity,
			Type:      enum.StockTypeOut,
			Note:      pgtype.Text{String: fmt.Sprintf("order %s", order.ID), Valid: true},
		}); err != nil {
			return nil, fmt.Errorf("create stock log: %w", err)
		}
	}

	table, err = store.OccupyTable(ctx, database.OccupyTableParams{
		ID:     tableID,
		Amount: decimalToNumeric(total),
	})
	if err != nil {
		return nil, fmt.Errorf("occupy table: %w", err)
	}

	user, err := store.GetUser(ctx, req.CreatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	result := &OrderResult{Order: order, Items: items, Table: table, User: user}

	// Post-commit fan-out. Nothing below can undo the order.
	s.events.Broadcast(EventNewOrder, NewOrderEvent{
		ID:        order.ID,
		Table:     tableSnapshot(table),
		Items:     itemSummaries(items),
		Total:     total.StringFixed(2),
		CreatedAt: order.CreatedAt,
	})
	s.events.Broadcast(EventTableStatusUpdated, TableStatusUpdatedEvent{
		ID:          table.ID,
		Status:      table.Status,
		Number:      table.Number,
		TotalAmount: numericToDecimal(table.RunningTotal).StringFixed(2),
	})

	result.PrintWarning = printTicket(s.printer, printer.Ticket{
		Kind:        printer.KindKitchen,
		OrderID:     order.ID,
		TableNumber: table.Number,
		Lines:       ticketLines(items),
		Total:       total.StringFixed(2),
	})

	return result, nil
}

// UpdateStatus moves an order to a new in-progress status. Terminal states
// have dedicated flows: PAID through payment, CANCELLED through Cancel.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, status string) (*OrderResult, error) {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, ErrInvalidOrderID
	}
	switch status {
	case enum.OrderStatusPending, enum.OrderStatusPreparing,
		enum.OrderStatusReady, enum.OrderStatusServed:
	default:
		return nil, ErrInvalidStatus
	}

	// The update matches in-progress orders only; a settled order must not
	// come back to life with its total already cleared from the table.
	order, err := s.store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{ID: id, Status: status})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := s.store.GetOrder(ctx, id); getErr == nil {
				return nil, ErrAlreadyPaid
			}
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	items, err := s.store.ListOrderItemsByOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	s.events.Broadcast(EventOrderUpdated, OrderUpdatedEvent{
		ID:     order.ID,
		Status: order.Status,
		Total:  numericToDecimal(order.Total).StringFixed(2),
		Items:  itemSummaries(items),
	})

	return &OrderResult{Order: order, Items: items}, nil
}

// Cancel deletes an order and compensates inventory: every item's quantity
// goes back to its product with a StockLog(IN) row. The table is freed only
// when no other active order remains on it.
func (s *OrderService) Cancel(ctx context.Context, orderID string) error {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return ErrInvalidOrderID
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("get order: %w", err)
	}
	if order.Status == enum.OrderStatusPaid {
		return ErrAlreadyPaid
	}

	table, err := store.GetTableForUpdate(ctx, order.TableID)
	if err != nil {
		return fmt.Errorf("get table: %w", err)
	}

	items, err := store.ListOrderItemsByOrder(ctx, id)
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}

	for _, item := range items {
		if _, err := store.AdjustProductStock(ctx, database.AdjustProductStockParams{
			ID:    item.ProductID,
			Delta: item.Quantity,
		}); err != nil {
			return fmt.Errorf("restore stock: %w", err)
		}
		if _, err := store.CreateStockLog(ctx, database.CreateStockLogParams{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Type:      enum.StockTypeIn,
			Note:      pgtype.Text{String: fmt.Sprintf("cancelled order %s", order.ID), Valid: true},
		}); err != nil {
			return fmt.Errorf("create stock log: %w", err)
		}
	}

	// This order still counts as active until deleted below.
	active, err := store.CountActiveOrdersByTable(ctx, table.ID)
	if err != nil {
		return fmt.Errorf("count active orders: %w", err)
	}
	remaining := active - 1

	if err := store.DeleteOrderItemsByOrder(ctx, id); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	if err := store.DeleteOrder(ctx, id); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	if remaining == 0 {
		table, err = store.SetTableState(ctx, database.SetTableStateParams{
			ID:           table.ID,
			Status:       enum.TableStatusAvailable,
			RunningTotal: decimalToNumeric(decimal.Zero),
			Capacity:     table.Capacity,
		})
	} else {
		table, err = store.AddToTableTotal(ctx, database.AddToTableTotalParams{
			ID:     table.ID,
			Amount: decimalToNumeric(numericToDecimal(order.Total).Neg()),
		})
	}
	if err != nil {
		return fmt.Errorf("update table: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	s.events.Broadcast(EventOrderDeleted, OrderDeletedEvent{ID: order.ID})
	s.events.Broadcast(EventTableStatusUpdated, TableStatusUpdatedEvent{
		ID:          table.ID,
		Status:      table.Status,
		Number:      table.Number,
		TotalAmount: numericToDecimal(table.RunningTotal).StringFixed(2),
	})

	return nil
}

// MarkPrinted flags an order as having had its kitchen ticket printed.
// No inventory or financial effect.
func (s *OrderService) MarkPrinted(ctx context.Context, orderID string) (database.Order, error) {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return database.Order{}, ErrInvalidOrderID
	}
	order, err := s.store.MarkOrderPrinted(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("mark order printed: %w", err)
	}
	return order, nil
}

// printTicket sends a ticket with its own deadline and reports a warning
// string on failure. Never returns an error: print problems are logged and
// downgraded to a warning on the response.
func printTicket(p printer.Printer, t printer.Ticket) string {
	ctx, cancel := context.WithTimeout(context.Background(), printTimeout)
	defer cancel()

	res := p.Print(ctx, t)
	if !res.Success {
		log.Printf("ERROR: print %s ticket for order %s: %s", t.Kind, t.OrderID, res.Message)
		return fmt.Sprintf("print failed: %s", res.Message)
	}
	return ""
}

func ticketLines(items []database.OrderItem) []printer.Line {
	lines := make([]printer.Line, len(items))
	for i, it := range items {
		lines[i] = printer.Line{
			Name:     it.Name,
			Quantity: it.Quantity,
			Price:    numericToDecimal(it.Price).StringFixed(2),
			Note:     it.Note.String,
		}
	}
	return lines
}
