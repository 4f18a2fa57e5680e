package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/saji-pos/api/internal/database"
	"github.com/saji-pos/api/internal/enum"
	"github.com/saji-pos/api/internal/service"
)

// TableServicer defines the service methods needed by table handlers.
// Satisfied by *service.TableService.
type TableServicer interface {
	Move(ctx context.Context, sourceID, targetID string) (*service.TablePairResult, error)
	Merge(ctx context.Context, mainID, mergeID string) (*service.TablePairResult, error)
	Reserve(ctx context.Context, tableID string) (database.Table, error)
	Release(ctx context.Context, tableID string) (database.Table, error)
}

// TableReadStore defines the database methods needed by table read handlers.
// Satisfied by *database.Queries.
type TableReadStore interface {
	GetTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	ListTables(ctx context.Context) ([]database.Table, error)
	ListTablesByStatus(ctx context.Context, status string) ([]database.Table, error)
}

// TableHandler handles table endpoints.
type TableHandler struct {
	svc   TableServicer
	store TableReadStore
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(svc TableServicer, store TableReadStore) *TableHandler {
	return &TableHandler{svc: svc, store: store}
}

// RegisterRoutes registers table endpoints on the given Chi router.
// Expected to be mounted at /tables
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/move", h.Move)
	r.Post("/merge", h.Merge)
	r.Post("/{id}/reserve", h.Reserve)
	r.Post("/{id}/release", h.Release)
}

type tablePairRequest struct {
	SourceTableID string `json:"source_table_id"`
	TargetTableID string `json:"target_table_id"`
}

type tableResponse struct {
	ID           uuid.UUID  `json:"id"`
	Number       int32      `json:"number"`
	Capacity     int32      `json:"capacity"`
	Status       string     `json:"status"`
	RunningTotal string     `json:"running_total"`
	AreaID       *uuid.UUID `json:"area_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type tablePairResponse struct {
	Source tableResponse `json:"source"`
	Target tableResponse `json:"target"`
}

// List handles GET /tables. Supports ?status= filtering.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		tables []database.Table
		err    error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		if !enum.ValidTableStatus(status) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table status"})
			return
		}
		tables, err = h.store.ListTablesByStatus(r.Context(), status)
	} else {
		tables, err = h.store.ListTables(r.Context())
	}
	if err != nil {
		log.Printf("ERROR: list tables: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]tableResponse, len(tables))
	for i, t := range tables {
		resp[i] = dbTableToResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /tables/{id}.
func (h *TableHandler) Get(w http.ResponseWriter, r *http.Request) {
	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	table, err := h.store.GetTable(r.Context(), tableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: get table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbTableToResponse(table))
}

// Move handles POST /tables/move. Relocates all active orders from the
// source table to an available target.
func (h *TableHandler) Move(w http.ResponseWriter, r *http.Request) {
	h.pairOperation(w, r, "move tables", h.svc.Move)
}

// Merge handles POST /tables/merge. Folds the source table's party into
// the target, which must already be occupied.
func (h *TableHandler) Merge(w http.ResponseWriter, r *http.Request) {
	h.pairOperation(w, r, "merge tables", func(ctx context.Context, sourceID, targetID string) (*service.TablePairResult, error) {
		// For merge the target is the main table that survives.
		return h.svc.Merge(ctx, targetID, sourceID)
	})
}

func (h *TableHandler) pairOperation(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, sourceID, targetID string) (*service.TablePairResult, error)) {
	var req tablePairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := fn(r.Context(), req.SourceTableID, req.TargetTableID)
	if err != nil {
		respondServiceError(w, op, err)
		return
	}

	writeJSON(w, http.StatusOK, tablePairResponse{
		Source: dbTableToResponse(result.First),
		Target: dbTableToResponse(result.Second),
	})
}

// Reserve handles POST /tables/{id}/reserve.
func (h *TableHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	h.statusOperation(w, r, "reserve table", h.svc.Reserve)
}

// Release handles POST /tables/{id}/release.
func (h *TableHandler) Release(w http.ResponseWriter, r *http.Request) {
	h.statusOperation(w, r, "release table", h.svc.Release)
}

func (h *TableHandler) statusOperation(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, tableID string) (database.Table, error)) {
	table, err := fn(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, dbTableToResponse(table))
}

func dbTableToResponse(t database.Table) tableResponse {
	resp := tableResponse{
		ID:           t.ID,
		Number:       t.Number,
		Capacity:     t.Capacity,
		Status:       t.Status,
		RunningTotal: numericString(t.RunningTotal),
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
	if t.AreaID.Valid {
		areaID := uuid.UUID(t.AreaID.Bytes)
		resp.AreaID = &areaID
	}
	return resp
}
