package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/saji-pos/api/internal/database"
	"github.com/saji-pos/api/internal/enum"
	"github.com/saji-pos/api/internal/printer"
)

// mockPaymentStore implements PaymentStore with configurable behavior.
// Functions left nil panic on use, which catches calls a test did not expect.
type mockPaymentStore struct {
	getOrderFn                   func(ctx context.Context, id uuid.UUID) (database.Order, error)
	getOrderForUpdateFn          func(ctx context.Context, id uuid.UUID) (database.Order, error)
	getTableFn                   func(ctx context.Context, id uuid.UUID) (database.Table, error)
	getTableForUpdateFn          func(ctx context.Context, id uuid.UUID) (database.Table, error)
	listOrderItemsByOrderFn      func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	setOrderPaidFn               func(ctx context.Context, arg database.SetOrderPaidParams) (database.Order, error)
	countActiveOrdersByTableFn   func(ctx context.Context, tableID uuid.UUID) (int64, error)
	listSettledOrderIDsByTableFn func(ctx context.Context, tableID uuid.UUID) ([]uuid.UUID, error)
	deleteOrderItemsByOrderFn    func(ctx context.Context, orderID uuid.UUID) error
	deleteOrderFn                func(ctx context.Context, id uuid.UUID) error
	setTableStateFn              func(ctx context.Context, arg database.SetTableStateParams) (database.Table, error)
	addToTableTotalFn            func(ctx context.Context, arg database.AddToTableTotalParams) (database.Table, error)
	getUserFn                    func(ctx context.Context, id uuid.UUID) (database.User, error)
}

func (m *mockPaymentStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderFn(ctx, id)
}
func (m *mockPaymentStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderForUpdateFn(ctx, id)
}
func (m *mockPaymentStore) GetTable(ctx context.Context, id uuid.UUID) (database.Table, error) {
	return m.getTableFn(ctx, id)
}
func (m *mockPaymentStore) GetTableForUpdate(ctx context.Context, id uuid.UUID) (database.Table, error) {
	return m.getTableForUpdateFn(ctx, id)
}
func (m *mockPaymentStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return m.listOrderItemsByOrderFn(ctx, orderID)
}
func (m *mockPaymentStore) SetOrderPaid(ctx context.Context, arg database.SetOrderPaidParams) (database.Order, error) {
	return m.setOrderPaidFn(ctx, arg)
}
func (m *mockPaymentStore) CountActiveOrdersByTable(ctx context.Context, tableID uuid.UUID) (int64, error) {
	return m.countActiveOrdersByTableFn(ctx, tableID)
}
func (m *mockPaymentStore) ListSettledOrderIDsByTable(ctx context.Context, tableID uuid.UUID) ([]uuid.UUID, error) {
	return m.listSettledOrderIDsByTableFn(ctx, tableID)
}
func (m *mockPaymentStore) DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) error {
	return m.deleteOrderItemsByOrderFn(ctx, orderID)
}
func (m *mockPaymentStore) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	return m.deleteOrderFn(ctx, id)
}
func (m *mockPaymentStore) SetTableState(ctx context.Context, arg database.SetTableStateParams) (database.Table, error) {
	return m.setTableStateFn(ctx, arg)
}
func (m *mockPaymentStore) AddToTableTotal(ctx context.Context, arg database.AddToTableTotalParams) (database.Table, error) {
	return m.addToTableTotalFn(ctx, arg)
}
func (m *mockPaymentStore) GetUser(ctx context.Context, id uuid.UUID) (database.User, error) {
	return m.getUserFn(ctx, id)
}

func openOrder(orderID, tableID uuid.UUID, total string) database.Order {
	return database.Order{
		ID:      orderID,
		TableID: tableID,
		Status:  enum.OrderStatusServed,
		Total:   makeNumeric(total),
	}
}

// defaultPaymentStore covers a table with one open SERVED order.
func defaultPaymentStore(orderID, tableID uuid.UUID) *mockPaymentStore {
	return &mockPaymentStore{
		getOrderForUpdateFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			if id == orderID {
				return openOrder(orderID, tableID, "50000.00"), nil
			}
			return database.Order{}, pgx.ErrNoRows
		},
		getTableForUpdateFn: func(ctx context.Context, id uuid.UUID) (database.Table, error) {
			return makeTable(tableID, enum.TableStatusOccupied, "50000.00"), nil
		},
		listOrderItemsByOrderFn: func(ctx context.Context, oid uuid.UUID) ([]database.OrderItem, error) {
			return []database.OrderItem{
				{ID: uuid.New(), OrderID: orderID, Name: "Grilled Chicken Rice", Price: makeNumeric("25000.00"), Quantity: 2},
			}, nil
		},
		setOrderPaidFn: func(ctx context.Context, arg database.SetOrderPaidParams) (database.Order, error) {
			o := openOrder(orderID, tableID, "50000.00")
			o.Status = enum.OrderStatusPaid
			o.PaymentMethod = pgtype.Text{String: arg.PaymentMethod, Valid: true}
			o.CashAmount = arg.CashAmount
			o.CreditAmount = arg.CreditAmount
			o.PaidAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
			return o, nil
		},
		countActiveOrdersByTableFn: func(ctx context.Context, tid uuid.UUID) (int64, error) {
			return 0, nil
		},
		listSettledOrderIDsByTableFn: func(ctx context.Context, tid uuid.UUID) ([]uuid.UUID, error) {
			return []uuid.UUID{orderID}, nil
		},
		deleteOrderItemsByOrderFn: func(ctx context.Context, oid uuid.UUID) error { return nil },
		deleteOrderFn:             func(ctx context.Context, id uuid.UUID) error { return nil },
		setTableStateFn: func(ctx context.Context, arg database.SetTableStateParams) (database.Table, error) {
			return makeTable(tableID, arg.Status, "0.00"), nil
		},
		getUserFn: func(ctx context.Context, id uuid.UUID) (database.User, error) {
			return database.User{}, pgx.ErrNoRows
		},
	}
}

func newTestPaymentService(store *mockPaymentStore) (*PaymentService, *recordingPublisher, *stubPrinter) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	events := &recordingPublisher{}
	p := okPrinter()
	newStore := func(db database.DBTX) PaymentStore { return store }
	return NewPaymentService(store, pool, newStore, events, p), events, p
}

func TestPay_InvalidMethod(t *testing.T) {
	svc, _, _ := newTestPaymentService(defaultPaymentStore(uuid.New(), uuid.New()))

	_, err := svc.Pay(context.Background(), PayRequest{
		OrderID:       uuid.New().String(),
		PaymentMethod: "BARTER",
	})
	if !errors.Is(err, ErrInvalidPaymentMethod) {
		t.Fatalf("expected ErrInvalidPaymentMethod, got: %v", err)
	}
}

func TestPay_AlreadyPaid(t *testing.T) {
	orderID, tableID := uuid.New(), uuid.New()
	store := defaultPaymentStore(orderID, tableID)
	store.getOrderForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		o := openOrder(orderID, tableID, "50000.00")
		o.Status = enum.OrderStatusPaid
		return o, nil
	}
	svc, events, p := newTestPaymentService(store)

	_, err := svc.Pay(context.Background(), PayRequest{
		OrderID:       orderID.String(),
		PaymentMethod: enum.PaymentMethodCash,
	})
	if !errors.Is(err, ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got: %v", err)
	}
	if len(events.events) != 0 || len(p.tickets) != 0 {
		t.Fatal("a rejected payment must have no side effects")
	}
}

func TestPay_CashBelowTotal(t *testing.T) {
	orderID, tableID := uuid.New(), uuid.New()
	svc, _, _ := newTestPaymentService(defaultPaymentStore(orderID, tableID))

	_, err := svc.Pay(context.Background(), PayRequest{
		OrderID:       orderID.String(),
		PaymentMethod: enum.PaymentMethodCash,
		CashAmount:    "40000",
	})
	if !errors.Is(err, ErrCashBelowTotal) {
		t.Fatalf("expected ErrCashBelowTotal, got: %v", err)
	}
}

func TestPay_SplitMustSumToTotal(t *testing.T) {
	orderID, tableID := uuid.New(), uuid.New()
	svc, _, _ := newTestPaymentService(defaultPaymentStore(orderID, tableID))

	cases := []struct {
		name         string
		cash, credit string
	}{
		{"wrong sum", "30000", "10000"},
		{"missing credit", "50000", ""},
		{"missing cash", "", "50000"},
	}
	for _, tc := range cases {
		_, err := svc.Pay(context.Background(), PayRequest{
			OrderID:       orderID.String(),
			PaymentMethod: enum.PaymentMethodSplit,
			CashAmount:    tc.cash,
			CreditAmount:  tc.credit,
		})
		if !errors.Is(err, ErrSplitAmounts) {
			t.Fatalf("%s: expected ErrSplitAmounts, got: %v", tc.name, err)
		}
	}
}

func TestPay_NegativeAmount(t *testing.T) {
	orderID, tableID := uuid.New(), uuid.New()
	svc, _, _ := newTestPaymentService(defaultPaymentStore(orderID, tableID))

	_, err := svc.Pay(context.Background(), PayRequest{
		OrderID:       orderID.String(),
		PaymentMethod: enum.PaymentMethodCash,
		CashAmount:    "-5",
	})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got: %v", err)
	}
}

func TestPay_LastOrderReleasesTable(t *testing.T) {
	orderID, tableID := uuid.New(), uuid.New()
	earlier := uuid.New() // SERVED order from the same sitting, already settled
	store := defaultPaymentStore(orderID, tableID)
	store.listSettledOrderIDsByTableFn = func(ctx context.Context, tid uuid.UUID) ([]uuid.UUID, error) {
		return []uuid.UUID{earlier, orderID}, nil
	}

	var purged []uuid.UUID
	store.deleteOrderFn = func(ctx context.Context, id uuid.UUID) error {
		purged = append(purged, id)
		return nil
	}
	var released *database.SetTableStateParams
	store.setTableStateFn = func(ctx context.Context, arg database.SetTableStateParams) (database.Table, error) {
		released = &arg
		return makeTable(tableID, arg.Status, "0.00"), nil
	}

	svc, events, p := newTestPaymentService(store)
	result, err := svc.Pay(context.Background(), PayRequest{
		OrderID:       orderID.String(),
		PaymentMethod: enum.PaymentMethodCredit,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Order.Status != enum.OrderStatusPaid {
		t.Fatalf("order status: got %s, want PAID", result.Order.Status)
	}
	if len(purged) != 2 {
		t.Fatalf("purged orders: got %v, want both settled orders", purged)
	}
	if released == nil || released.Status != enum.TableStatusAvailable || !numericEquals(released.RunningTotal, "0") {
		t.Fatalf("table not released: %+v", released)
	}
	types := events.types()
	if len(types) != 2 || types[0] != EventOrderUpdated || types[1] != EventTableStatusUpdated {
		t.Fatalf("events: got %v, want [orderUpdated tableStatusUpdated]", types)
	}
	if len(p.tickets) != 1 || p.tickets[0].Kind != printer.KindReceipt {
		t.Fatalf("expected one RECEIPT ticket, got %+v", p.tickets)
	}
}

func TestPay_OtherOrdersDecrementTotal(t *testing.T) {
	orderID, tableID := uuid.New(), uuid.New()
	store := defaultPaymentStore(orderID, tableID)
	store.getTableForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Table, error) {
		return makeTable(tableID, enum.TableStatusOccupied, "80000.00"), nil
	}
	store.countActiveOrdersByTableFn = func(ctx context.Context, tid uuid.UUID) (int64, error) {
		return 1, nil
	}
	store.setTableStateFn = func(ctx context.Context, arg database.SetTableStateParams) (database.Table, error) {
		t := makeTable(tableID, arg.Status, "0.00")
		return t, errors.New("must not release table with open orders")
	}

	var decremented pgtype.Numeric
	store.addToTableTotalFn = func(ctx context.Context, arg database.AddToTableTotalParams) (database.Table, error) {
		decremented = arg.Amount
		return makeTable(tableID, enum.TableStatusOccupied, "30000.00"), nil
	}

	svc, events, _ := newTestPaymentService(store)
	result, err := svc.Pay(context.Background(), PayRequest{
		OrderID:       orderID.String(),
		PaymentMethod: enum.PaymentMethodCash,
		CashAmount:    "50000",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !numericEquals(decremented, "-50000") {
		t.Fatalf("table decrement: got %v, want -50000.00", numericToDecimal(decremented))
	}
	if result.Table.Status != enum.TableStatusOccupied {
		t.Fatalf("table status: got %s, want OCCUPIED", result.Table.Status)
	}

	// The table event carries the post-payment amount.
	last := events.events[len(events.events)-1]
	tableEvt, ok := last.payload.(TableStatusUpdatedEvent)
	if !ok {
		t.Fatalf("last event payload: %T", last.payload)
	}
	if tableEvt.TotalAmount != "30000.00" {
		t.Fatalf("table event total: got %s, want 30000.00", tableEvt.TotalAmount)
	}
}

func TestPay_CashOverTotalIsChange(t *testing.T) {
	orderID, tableID := uuid.New(), uuid.New()
	store := defaultPaymentStore(orderID, tableID)

	var paid *database.SetOrderPaidParams
	setPaid := store.setOrderPaidFn
	store.setOrderPaidFn = func(ctx context.Context, arg database.SetOrderPaidParams) (database.Order, error) {
		paid = &arg
		return setPaid(ctx, arg)
	}

	svc, _, _ := newTestPaymentService(store)
	_, err := svc.Pay(context.Background(), PayRequest{
		OrderID:       orderID.String(),
		PaymentMethod: enum.PaymentMethodCash,
		CashAmount:    "100000",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if paid == nil || !numericEquals(paid.CashAmount, "100000") || !numericEquals(paid.CreditAmount, "0") {
		t.Fatalf("tender: %+v", paid)
	}
}

func TestPrintBill_AlreadyPaid(t *testing.T) {
	orderID, tableID := uuid.New(), uuid.New()
	store := defaultPaymentStore(orderID, tableID)
	store.getOrderFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		o := openOrder(orderID, tableID, "50000.00")
		o.Status = enum.OrderStatusPaid
		return o, nil
	}
	svc, _, _ := newTestPaymentService(store)

	if _, err := svc.PrintBill(context.Background(), orderID.String()); !errors.Is(err, ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got: %v", err)
	}
}

func TestPrintBill_ReadOnly(t *testing.T) {
	orderID, tableID := uuid.New(), uuid.New()
	store := defaultPaymentStore(orderID, tableID)
	store.getOrderFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return openOrder(orderID, tableID, "50000.00"), nil
	}
	store.getTableFn = func(ctx context.Context, id uuid.UUID) (database.Table, error) {
		return makeTable(tableID, enum.TableStatusOccupied, "50000.00"), nil
	}
	// Mutation functions would panic if PrintBill touched them.
	store.setOrderPaidFn = nil
	store.setTableStateFn = nil
	store.addToTableTotalFn = nil
	store.deleteOrderFn = nil
	store.deleteOrderItemsByOrderFn = nil

	svc, events, p := newTestPaymentService(store)
	result, err := svc.PrintBill(context.Background(), orderID.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Order.Status != enum.OrderStatusServed {
		t.Fatalf("order status changed: %s", result.Order.Status)
	}
	if len(events.events) != 0 {
		t.Fatalf("bill printing must not broadcast, got %v", events.types())
	}
	if len(p.tickets) != 1 || p.tickets[0].Kind != printer.KindBill {
		t.Fatalf("expected one BILL ticket, got %+v", p.tickets)
	}
}
