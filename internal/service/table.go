package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/saji-pos/api/internal/database"
	"github.com/saji-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// TableStore defines the DB methods needed to move and merge tables.
// Satisfied by *database.Queries (and its WithTx variant).
type TableStore interface {
	GetTableForUpdate(ctx context.Context, id uuid.UUID) (database.Table, error)
	SetTableState(ctx context.Context, arg database.SetTableStateParams) (database.Table, error)
	UpdateTableStatus(ctx context.Context, arg database.UpdateTableStatusParams) (database.Table, error)
	ReassignTableOrders(ctx context.Context, arg database.ReassignTableOrdersParams) (int64, error)
}

// NewTableStore creates a TableStore from a DBTX (pool or tx).
type NewTableStore func(db database.DBTX) TableStore

// TablePairResult holds both tables after a move or merge.
type TablePairResult struct {
	First  database.Table
	Second database.Table
}

// TableService manages occupancy transitions between tables.
type TableService struct {
	pool     TxBeginner
	newStore NewTableStore
	events   EventPublisher
}

// NewTableService creates a new TableService.
func NewTableService(pool TxBeginner, newStore NewTableStore, events EventPublisher) *TableService {
	return &TableService{pool: pool, newStore: newStore, events: events}
}

// Move reassigns every active order from an occupied source table to an
// available target, transferring the cached running total explicitly: the
// order rows carry their value via the table foreign key, but running_total
// is denormalized and desynchronizes unless written here.
func (s *TableService) Move(ctx context.Context, sourceID, targetID string) (*TablePairResult, error) {
	src, tgt, err := parseTablePair(sourceID, targetID)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	source, target, err := lockTablePair(ctx, store, src, tgt)
	if err != nil {
		return nil, err
	}
	if source.Status != enum.TableStatusOccupied {
		return nil, ErrTableNotOccupied
	}
	if target.Status != enum.TableStatusAvailable {
		return nil, ErrTableNotAvailable
	}

	if _, err := store.ReassignTableOrders(ctx, database.ReassignTableOrdersParams{
		FromTableID: src,
		ToTableID:   tgt,
		Statuses:    enum.OrderActiveStatuses,
	}); err != nil {
		return nil, fmt.Errorf("reassign orders: %w", err)
	}

	moved := numericToDecimal(source.RunningTotal)
	target, err = store.SetTableState(ctx, database.SetTableStateParams{
		ID:           tgt,
		Status:       enum.TableStatusOccupied,
		RunningTotal: decimalToNumeric(numericToDecimal(target.RunningTotal).Add(moved)),
		Capacity:     target.Capacity,
	})
	if err != nil {
		return nil, fmt.Errorf("update target table: %w", err)
	}
	source, err = store.SetTableState(ctx, database.SetTableStateParams{
		ID:           src,
		Status:       enum.TableStatusAvailable,
		RunningTotal: decimalToNumeric(decimal.Zero),
		Capacity:     source.Capacity,
	})
	if err != nil {
		return nil, fmt.Errorf("update source table: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.events.Broadcast(EventTablesMoved, TablesMovedEvent{
		SourceTable: tableSnapshot(source),
		TargetTable: tableSnapshot(target),
	})

	return &TablePairResult{First: source, Second: target}, nil
}

// Merge moves the merge table's active orders onto the main table, frees the
// merge table and widens the main table's nominal capacity by the merged
// seats. Both tables must be occupied.
func (s *TableService) Merge(ctx context.Context, mainID, mergeID string) (*TablePairResult, error) {
	mainUUID, mergeUUID, err := parseTablePair(mainID, mergeID)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	main, merge, err := lockTablePair(ctx, store, mainUUID, mergeUUID)
	if err != nil {
		return nil, err
	}
	if main.Status != enum.TableStatusOccupied || merge.Status != enum.TableStatusOccupied {
		return nil, ErrTableNotOccupied
	}

	if _, err := store.ReassignTableOrders(ctx, database.ReassignTableOrdersParams{
		FromTableID: mergeUUID,
		ToTableID:   mainUUID,
		Statuses:    enum.OrderActiveStatuses,
	}); err != nil {
		return nil, fmt.Errorf("reassign orders: %w", err)
	}

	main, err = store.SetTableState(ctx, database.SetTableStateParams{
		ID:           mainUUID,
		Status:       enum.TableStatusOccupied,
		RunningTotal: decimalToNumeric(numericToDecimal(main.RunningTotal).Add(numericToDecimal(merge.RunningTotal))),
		Capacity:     main.Capacity + merge.Capacity,
	})
	if err != nil {
		return nil, fmt.Errorf("update main table: %w", err)
	}
	merge, err = store.SetTableState(ctx, database.SetTableStateParams{
		ID:           mergeUUID,
		Status:       enum.TableStatusAvailable,
		RunningTotal: decimalToNumeric(decimal.Zero),
		Capacity:     merge.Capacity,
	})
	if err != nil {
		return nil, fmt.Errorf("update merge table: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.events.Broadcast(EventTablesMerged, TablesMergedEvent{
		MainTable:  tableSnapshot(main),
		MergeTable: tableSnapshot(merge),
	})

	return &TablePairResult{First: main, Second: merge}, nil
}

// Reserve marks an available table reserved.
func (s *TableService) Reserve(ctx context.Context, tableID string) (database.Table, error) {
	return s.transition(ctx, tableID, enum.TableStatusAvailable, enum.TableStatusReserved, ErrTableNotAvailable)
}

// Release frees a reserved table without touching orders or totals.
func (s *TableService) Release(ctx context.Context, tableID string) (database.Table, error) {
	return s.transition(ctx, tableID, enum.TableStatusReserved, enum.TableStatusAvailable, ErrTableNotReserved)
}

// transition performs a locked status flip guarded by the required current
// status.
func (s *TableService) transition(ctx context.Context, tableID, from, to string, conflict error) (database.Table, error) {
	id, err := uuid.Parse(tableID)
	if err != nil {
		return database.Table{}, ErrInvalidTableID
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Table{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	table, err := store.GetTableForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Table{}, ErrTableNotFound
		}
		return database.Table{}, fmt.Errorf("get table: %w", err)
	}
	if table.Status != from {
		return database.Table{}, conflict
	}

	table, err = store.UpdateTableStatus(ctx, database.UpdateTableStatusParams{ID: id, Status: to})
	if err != nil {
		return database.Table{}, fmt.Errorf("update table status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Table{}, fmt.Errorf("commit tx: %w", err)
	}

	s.events.Broadcast(EventTableStatusUpdated, TableStatusUpdatedEvent{
		ID:          table.ID,
		Status:      table.Status,
		Number:      table.Number,
		TotalAmount: numericToDecimal(table.RunningTotal).StringFixed(2),
	})

	return table, nil
}

func parseTablePair(firstID, secondID string) (uuid.UUID, uuid.UUID, error) {
	first, err := uuid.Parse(firstID)
	if err != nil {
		return uuid.Nil, uuid.Nil, ErrInvalidTableID
	}
	second, err := uuid.Parse(secondID)
	if err != nil {
		return uuid.Nil, uuid.Nil, ErrInvalidTableID
	}
	if first == second {
		return uuid.Nil, uuid.Nil, ErrSameTable
	}
	return first, second, nil
}

// lockTablePair locks both rows in a fixed id order so two concurrent
// operations over the same pair cannot deadlock, then returns them matched
// to the caller's argument order.
func lockTablePair(ctx context.Context, store TableStore, a, b uuid.UUID) (database.Table, database.Table, error) {
	first, second := a, b
	if bytes.Compare(b[:], a[:]) < 0 {
		first, second = b, a
	}

	lock := func(id uuid.UUID) (database.Table, error) {
		t, err := store.GetTableForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return database.Table{}, ErrTableNotFound
			}
			return database.Table{}, fmt.Errorf("get table: %w", err)
		}
		return t, nil
	}

	t1, err := lock(first)
	if err != nil {
		return database.Table{}, database.Table{}, err
	}
	t2, err := lock(second)
	if err != nil {
		return database.Table{}, database.Table{}, err
	}

	if first == a {
		return t1, t2, nil
	}
	return t2, t1, nil
}
