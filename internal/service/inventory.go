package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/saji-pos/api/internal/database"
	"github.com/saji-pos/api/internal/enum"
)

// InventoryStore defines the DB methods needed by the stock ledger.
// Satisfied by *database.Queries (and its WithTx variant).
type InventoryStore interface {
	CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	GetProductForUpdate(ctx context.Context, id uuid.UUID) (database.Product, error)
	AdjustProductStock(ctx context.Context, arg database.AdjustProductStockParams) (database.Product, error)
	CreateStockLog(ctx context.Context, arg database.CreateStockLogParams) (database.StockLog, error)
	ListStockLogsByProduct(ctx context.Context, productID uuid.UUID) ([]database.StockLog, error)
}

// NewInventoryStore creates an InventoryStore from a DBTX (pool or tx).
type NewInventoryStore func(db database.DBTX) InventoryStore

// RestockRequest is a supplier delivery.
type RestockRequest struct {
	ProductID  string
	Quantity   int32
	SupplierID string
	Note       string
}

// AdjustRequest is a manual correction (stocktake, waste, breakage).
type AdjustRequest struct {
	ProductID string
	Delta     int32
	Note      string
}

// MovementResult pairs the updated product with the appended ledger row.
type MovementResult struct {
	Product database.Product
	Log     database.StockLog
}

// InventoryService maintains product stock levels and the movement ledger.
// Every stock change, whatever its origin, lands as one StockLog row.
type InventoryService struct {
	store    InventoryStore
	pool     TxBeginner
	newStore NewInventoryStore
}

// NewInventoryService creates a new InventoryService.
func NewInventoryService(store InventoryStore, pool TxBeginner, newStore NewInventoryStore) *InventoryService {
	return &InventoryService{store: store, pool: pool, newStore: newStore}
}

// CreateProduct inserts a catalog row. A product that opens with stock on
// hand gets an IN row for the opening quantity, otherwise units would exist
// that no ledger entry accounts for.
func (s *InventoryService) CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error) {
	if arg.Stock == 0 {
		product, err := s.store.CreateProduct(ctx, arg)
		if err != nil {
			return database.Product{}, fmt.Errorf("create product: %w", err)
		}
		return product, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Product{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	product, err := store.CreateProduct(ctx, arg)
	if err != nil {
		return database.Product{}, fmt.Errorf("create product: %w", err)
	}
	if _, err := store.CreateStockLog(ctx, database.CreateStockLogParams{
		ProductID: product.ID,
		Quantity:  arg.Stock,
		Type:      enum.StockTypeIn,
		Note:      pgtype.Text{String: "opening stock", Valid: true},
	}); err != nil {
		return database.Product{}, fmt.Errorf("create stock log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Product{}, fmt.Errorf("commit tx: %w", err)
	}
	return product, nil
}

// Restock records an incoming delivery: stock up, one IN row.
func (s *InventoryService) Restock(ctx context.Context, req RestockRequest) (*MovementResult, error) {
	if req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, ErrInvalidProductID
	}
	supplierID := pgtype.UUID{}
	if req.SupplierID != "" {
		sid, err := uuid.Parse(req.SupplierID)
		if err != nil {
			return nil, ErrInvalidProductID
		}
		supplierID = pgtype.UUID{Bytes: sid, Valid: true}
	}

	return s.apply(ctx, productID, req.Quantity, enum.StockTypeIn, supplierID, req.Note)
}

// Adjust records a signed manual correction. A negative delta may not drive
// stock below zero.
func (s *InventoryService) Adjust(ctx context.Context, req AdjustRequest) (*MovementResult, error) {
	if req.Delta == 0 {
		return nil, ErrInvalidQuantity
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, ErrInvalidProductID
	}

	return s.apply(ctx, productID, req.Delta, enum.StockTypeAdjustment, pgtype.UUID{}, req.Note)
}

// Movements lists the product's ledger, newest first.
func (s *InventoryService) Movements(ctx context.Context, productID string) ([]database.StockLog, error) {
	id, err := uuid.Parse(productID)
	if err != nil {
		return nil, ErrInvalidProductID
	}
	if _, err := s.store.GetProduct(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	logs, err := s.store.ListStockLogsByProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list stock logs: %w", err)
	}
	return logs, nil
}

// apply performs a locked stock change plus its ledger row in one
// transaction.
func (s *InventoryService) apply(ctx context.Context, productID uuid.UUID, delta int32, movementType string, supplierID pgtype.UUID, noteStr string) (*MovementResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	product, err := store.GetProductForUpdate(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product.Stock+delta < 0 {
		return nil, ErrStockBelowZero
	}

	product, err = store.AdjustProductStock(ctx, database.AdjustProductStockParams{
		ID:    productID,
		Delta: delta,
	})
	if err != nil {
		return nil, fmt.Errorf("adjust stock: %w", err)
	}

	note := pgtype.Text{}
	if noteStr != "" {
		note = pgtype.Text{String: noteStr, Valid: true}
	}
	logRow, err := store.CreateStockLog(ctx, database.CreateStockLogParams{
		ProductID:  productID,
		Quantity:   delta,
		Type:       movementType,
		SupplierID: supplierID,
		Note:       note,
	})
	if err != nil {
		return nil, fmt.Errorf("create stock log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &MovementResult{Product: product, Log: logRow}, nil
}
