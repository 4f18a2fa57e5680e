package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/saji-pos/api/internal/database"
	"github.com/saji-pos/api/internal/enum"
	"github.com/saji-pos/api/internal/printer"
	"github.com/shopspring/decimal"
)

// PaymentStore defines the DB methods needed to settle orders.
// Satisfied by *database.Queries (and its WithTx variant).
type PaymentStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	GetTableForUpdate(ctx context.Context, id uuid.UUID) (database.Table, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	SetOrderPaid(ctx context.Context, arg database.SetOrderPaidParams) (database.Order, error)
	CountActiveOrdersByTable(ctx context.Context, tableID uuid.UUID) (int64, error)
	ListSettledOrderIDsByTable(ctx context.Context, tableID uuid.UUID) ([]uuid.UUID, error)
	DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	SetTableState(ctx context.Context, arg database.SetTableStateParams) (database.Table, error)
	AddToTableTotal(ctx context.Context, arg database.AddToTableTotalParams) (database.Table, error)
	GetUser(ctx context.Context, id uuid.UUID) (database.User, error)
}

// NewPaymentStore creates a PaymentStore from a DBTX (pool or tx).
type NewPaymentStore func(db database.DBTX) PaymentStore

// PayRequest is the input for settling an order.
type PayRequest struct {
	OrderID       string
	PaymentMethod string
	CashAmount    string
	CreditAmount  string
}

// PaymentService settles orders and closes out tables.
type PaymentService struct {
	store    PaymentStore
	pool     TxBeginner
	newStore NewPaymentStore
	events   EventPublisher
	printer  printer.Printer
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(store PaymentStore, pool TxBeginner, newStore NewPaymentStore, events EventPublisher, p printer.Printer) *PaymentService {
	return &PaymentService{store: store, pool: pool, newStore: newStore, events: events, printer: p}
}

// tender is the validated split of a payment.
type tender struct {
	cash   decimal.Decimal
	credit decimal.Decimal
}

// Pay settles an order. In one transaction: mark the order PAID, then either
// release the table (last open order, with the settle-and-archive sweep) or
// decrement its running total. Receipt printing and event fan-out happen
// after commit and can never roll the payment back.
func (s *PaymentService) Pay(ctx context.Context, req PayRequest) (*OrderResult, error) {
	id, err := uuid.Parse(req.OrderID)
	if err != nil {
		return nil, ErrInvalidOrderID
	}
	switch req.PaymentMethod {
	case enum.PaymentMethodCash, enum.PaymentMethodCredit, enum.PaymentMethodSplit:
	default:
		return nil, ErrInvalidPaymentMethod
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// Lock the order row before reading its status. Two concurrent payments
	// against the same order serialize here; the loser sees PAID.
	order, err := store.GetOrderForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Status == enum.OrderStatusPaid {
		return nil, ErrAlreadyPaid
	}

	total := numericToDecimal(order.Total)
	tnd, err := validateTender(req, total)
	if err != nil {
		return nil, err
	}

	// Lock the table row before counting its orders. Two concurrent payments
	// on the same table cannot both decide "I am the last order".
	table, err := store.GetTableForUpdate(ctx, order.TableID)
	if err != nil {
		return nil, fmt.Errorf("get table: %w", err)
	}
	prevTotal := numericToDecimal(table.RunningTotal)

	items, err := store.ListOrderItemsByOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	order, err = store.SetOrderPaid(ctx, database.SetOrderPaidParams{
		ID:            id,
		PaymentMethod: req.PaymentMethod,
		CashAmount:    decimalToNumeric(tnd.cash),
		CreditAmount:  decimalToNumeric(tnd.credit),
	})
	if err != nil {
		return nil, fmt.Errorf("set order paid: %w", err)
	}

	// The just-paid order no longer counts.
	remaining, err := store.CountActiveOrdersByTable(ctx, table.ID)
	if err != nil {
		return nil, fmt.Errorf("count active orders: %w", err)
	}

	var newTotal decimal.Decimal
	if remaining == 0 {
		// Settle-and-archive: the table session is over, purge its settled
		// history (SERVED and PAID orders, this one included). StockLog rows
		// are kept, so the inventory audit trail survives the sweep.
		ids, err := store.ListSettledOrderIDsByTable(ctx, table.ID)
		if err != nil {
			return nil, fmt.Errorf("list settled orders: %w", err)
		}
		for _, oid := range ids {
			if err := store.DeleteOrderItemsByOrder(ctx, oid); err != nil {
				return nil, fmt.Errorf("purge order items: %w", err)
			}
			if err := store.DeleteOrder(ctx, oid); err != nil {
				return nil, fmt.Errorf("purge order: %w", err)
			}
		}
		table, err = store.SetTableState(ctx, database.SetTableStateParams{
			ID:           table.ID,
			Status:       enum.TableStatusAvailable,
			RunningTotal: decimalToNumeric(decimal.Zero),
			Capacity:     table.Capacity,
		})
		if err != nil {
			return nil, fmt.Errorf("release table: %w", err)
		}
		newTotal = decimal.Zero
	} else {
		table, err = store.AddToTableTotal(ctx, database.AddToTableTotalParams{
			ID:     table.ID,
			Amount: decimalToNumeric(total.Neg()),
		})
		if err != nil {
			return nil, fmt.Errorf("decrement table total: %w", err)
		}
		newTotal = prevTotal.Sub(total)
	}

	user, err := store.GetUser(ctx, order.CreatedBy)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	result := &OrderResult{Order: order, Items: items, Table: table, User: user}

	method := order.PaymentMethod.String
	paidAt := order.PaidAt.Time
	s.events.Broadcast(EventOrderUpdated, OrderUpdatedEvent{
		ID:            order.ID,
		Status:        order.Status,
		Total:         total.StringFixed(2),
		Items:         itemSummaries(items),
		PaymentMethod: &method,
		PaidAt:        &paidAt,
	})
	// totalAmount derives from the pre-reset table state so subscribers see
	// a consistent before/after even when the table was just zeroed.
	s.events.Broadcast(EventTableStatusUpdated, TableStatusUpdatedEvent{
		ID:          table.ID,
		Status:      table.Status,
		Number:      table.Number,
		TotalAmount: newTotal.StringFixed(2),
	})

	result.PrintWarning = printTicket(s.printer, printer.Ticket{
		Kind:          printer.KindReceipt,
		OrderID:       order.ID,
		TableNumber:   table.Number,
		Lines:         ticketLines(items),
		Total:         total.StringFixed(2),
		PaymentMethod: req.PaymentMethod,
		CashAmount:    tnd.cash.StringFixed(2),
		CreditAmount:  tnd.credit.StringFixed(2),
	})

	return result, nil
}

// PrintBill renders a pre-payment bill for an open order. Read-only: no
// state is mutated, and a settled order cannot be billed again.
func (s *PaymentService) PrintBill(ctx context.Context, orderID string) (*OrderResult, error) {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, ErrInvalidOrderID
	}

	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Status == enum.OrderStatusPaid {
		return nil, ErrAlreadyPaid
	}

	items, err := s.store.ListOrderItemsByOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	table, err := s.store.GetTable(ctx, order.TableID)
	if err != nil {
		return nil, fmt.Errorf("get table: %w", err)
	}

	result := &OrderResult{Order: order, Items: items, Table: table}
	result.PrintWarning = printTicket(s.printer, printer.Ticket{
		Kind:        printer.KindBill,
		OrderID:     order.ID,
		TableNumber: table.Number,
		Lines:       ticketLines(items),
		Total:       numericToDecimal(order.Total).StringFixed(2),
	})
	return result, nil
}

// validateTender checks the cash/credit split against the order total.
func validateTender(req PayRequest, total decimal.Decimal) (tender, error) {
	parse := func(s string) (decimal.Decimal, error) {
		if s == "" {
			return decimal.Zero, nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil || d.IsNegative() {
			return decimal.Zero, ErrInvalidAmount
		}
		return d, nil
	}

	cash, err := parse(req.CashAmount)
	if err != nil {
		return tender{}, err
	}
	credit, err := parse(req.CreditAmount)
	if err != nil {
		return tender{}, err
	}

	switch req.PaymentMethod {
	case enum.PaymentMethodCash:
		// Cash amount is what the guest handed over; it may exceed the total
		// (change is the cashier's problem) but never fall short.
		if cash.IsZero() {
			cash = total
		}
		if cash.LessThan(total) {
			return tender{}, ErrCashBelowTotal
		}
		return tender{cash: cash, credit: decimal.Zero}, nil
	case enum.PaymentMethodCredit:
		return tender{cash: decimal.Zero, credit: total}, nil
	default: // SPLIT
		if cash.IsZero() || credit.IsZero() {
			return tender{}, ErrSplitAmounts
		}
		if !cash.Add(credit).Equal(total) {
			return tender{}, ErrSplitAmounts
		}
		return tender{cash: cash, credit: credit}, nil
	}
}
