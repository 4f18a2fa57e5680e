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
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/saji-pos/api/internal/database"
	"github.com/saji-pos/api/internal/service"
	"github.com/shopspring/decimal"
)

// InventoryServicer defines the service methods needed by stock handlers.
// Satisfied by *service.InventoryService.
type InventoryServicer interface {
	CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	Restock(ctx context.Context, req service.RestockRequest) (*service.MovementResult, error)
	Adjust(ctx context.Context, req service.AdjustRequest) (*service.MovementResult, error)
	Movements(ctx context.Context, productID string) ([]database.StockLog, error)
}

// ProductStore defines the database methods needed by product handlers.
// Satisfied by *database.Queries.
type ProductStore interface {
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	ListProducts(ctx context.Context) ([]database.Product, error)
	ListLowStockProducts(ctx context.Context) ([]database.Product, error)
	UpdateProduct(ctx context.Context, arg database.UpdateProductParams) (database.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

// ProductHandler handles product catalog and stock endpoints.
type ProductHandler struct {
	svc   InventoryServicer
	store ProductStore
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(svc InventoryServicer, store ProductStore) *ProductHandler {
	return &ProductHandler{svc: svc, store: store}
}

// RegisterReadRoutes registers product read endpoints on the given Chi
// router. Expected to be mounted at /products
func (h *ProductHandler) RegisterReadRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/low-stock", h.ListLowStock)
	r.Get("/{id}", h.Get)
}

// RegisterManageRoutes registers catalog and stock mutation endpoints.
// Expected to be mounted at /products behind a management role check.
func (h *ProductHandler) RegisterManageRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/restock", h.Restock)
	r.Post("/{id}/adjust", h.Adjust)
	r.Get("/{id}/stock-logs", h.StockLogs)
}

type productRequest struct {
	Name       string `json:"name"`
	Price      string `json:"price"`
	Stock      int32  `json:"stock"`
	MinStock   int32  `json:"min_stock"`
	CategoryID string `json:"category_id"`
}

type restockRequest struct {
	Quantity   int32  `json:"quantity"`
	SupplierID string `json:"supplier_id"`
	Note       string `json:"note"`
}

type adjustStockRequest struct {
	Delta int32  `json:"delta"`
	Note  string `json:"note"`
}

type productResponse struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Price      string     `json:"price"`
	Stock      int32      `json:"stock"`
	MinStock   int32      `json:"min_stock"`
	CategoryID *uuid.UUID `json:"category_id"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type stockLogResponse struct {
	ID         uuid.UUID  `json:"id"`
	ProductID  uuid.UUID  `json:"product_id"`
	Quantity   int32      `json:"quantity"`
	Type       string     `json:"type"`
	SupplierID *uuid.UUID `json:"supplier_id"`
	Note       *string    `json:"note"`
	CreatedAt  time.Time  `json:"created_at"`
}

type movementResponse struct {
	Product productResponse  `json:"product"`
	Log     stockLogResponse `json:"log"`
}

// List handles GET /products.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	h.listWith(w, r, "list products", h.store.ListProducts)
}

// ListLowStock handles GET /products/low-stock. Returns products at or
// below their minimum stock level.
func (h *ProductHandler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	h.listWith(w, r, "list low stock products", h.store.ListLowStockProducts)
}

func (h *ProductHandler) listWith(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context) ([]database.Product, error)) {
	products, err := fn(r.Context())
	if err != nil {
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = dbProductToResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /products/{id}.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	product, err := h.store.GetProduct(r.Context(), productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: get product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbProductToResponse(product))
}

// Create handles POST /products.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	price, categoryID, errMsg := parseProductFields(req)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMsg})
		return
	}
	if req.Stock < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "stock cannot be negative"})
		return
	}

	// Routed through the inventory service so non-zero opening stock lands
	// in the ledger.
	product, err := h.svc.CreateProduct(r.Context(), database.CreateProductParams{
		Name:       req.Name,
		Price:      price,
		Stock:      req.Stock,
		MinStock:   req.MinStock,
		CategoryID: categoryID,
	})
	if err != nil {
		log.Printf("ERROR: create product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, dbProductToResponse(product))
}

// Update handles PUT /products/{id}. Stock is not editable here; use the
// restock and adjust endpoints so every change lands in the ledger.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	price, categoryID, errMsg := parseProductFields(req)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMsg})
		return
	}

	product, err := h.store.UpdateProduct(r.Context(), database.UpdateProductParams{
		ID:         productID,
		Name:       req.Name,
		Price:      price,
		MinStock:   req.MinStock,
		CategoryID: categoryID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: update product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbProductToResponse(product))
}

// Delete handles DELETE /products/{id}.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	if err := h.store.DeleteProduct(r.Context(), productID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: delete product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Restock handles POST /products/{id}/restock.
func (h *ProductHandler) Restock(w http.ResponseWriter, r *http.Request) {
	var req restockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.Restock(r.Context(), service.RestockRequest{
		ProductID:  chi.URLParam(r, "id"),
		Quantity:   req.Quantity,
		SupplierID: req.SupplierID,
		Note:       req.Note,
	})
	if err != nil {
		respondServiceError(w, "restock product", err)
		return
	}

	writeJSON(w, http.StatusOK, movementToResponse(result))
}

// Adjust handles POST /products/{id}/adjust. Delta may be negative but
// may not push stock below zero.
func (h *ProductHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.Adjust(r.Context(), service.AdjustRequest{
		ProductID: chi.URLParam(r, "id"),
		Delta:     req.Delta,
		Note:      req.Note,
	})
	if err != nil {
		respondServiceError(w, "adjust product stock", err)
		return
	}

	writeJSON(w, http.StatusOK, movementToResponse(result))
}

// StockLogs handles GET /products/{id}/stock-logs, newest first.
func (h *ProductHandler) StockLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.svc.Movements(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, "list stock logs", err)
		return
	}

	resp := make([]stockLogResponse, len(logs))
	for i, l := range logs {
		resp[i] = dbStockLogToResponse(l)
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func parseProductFields(req productRequest) (pgtype.Numeric, pgtype.UUID, string) {
	var price pgtype.Numeric
	var categoryID pgtype.UUID

	if req.Name == "" {
		return price, categoryID, "name is required"
	}
	d, err := decimal.NewFromString(req.Price)
	if err != nil || d.IsNegative() {
		return price, categoryID, "invalid price"
	}
	if err := price.Scan(d.StringFixed(2)); err != nil {
		return price, categoryID, "invalid price"
	}
	if req.MinStock < 0 {
		return price, categoryID, "min_stock cannot be negative"
	}
	if req.CategoryID != "" {
		id, err := uuid.Parse(req.CategoryID)
		if err != nil {
			return price, categoryID, "invalid category_id"
		}
		categoryID = pgtype.UUID{Bytes: id, Valid: true}
	}
	return price, categoryID, ""
}

func movementToResponse(res *service.MovementResult) movementResponse {
	return movementResponse{
		Product: dbProductToResponse(res.Product),
		Log:     dbStockLogToResponse(res.Log),
	}
}

func dbProductToResponse(p database.Product) productResponse {
	resp := productResponse{
		ID:        p.ID,
		Name:      p.Name,
		Price:     numericString(p.Price),
		Stock:     p.Stock,
		MinStock:  p.MinStock,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.CategoryID.Valid {
		categoryID := uuid.UUID(p.CategoryID.Bytes)
		resp.CategoryID = &categoryID
	}
	return resp
}

func dbStockLogToResponse(l database.StockLog) stockLogResponse {
	resp := stockLogResponse{
		ID:        l.ID,
		ProductID: l.ProductID,
		Quantity:  l.Quantity,
		Type:      l.Type,
		Note:      textPtr(l.Note),
		CreatedAt: l.CreatedAt,
	}
	if l.SupplierID.Valid {
		supplierID := uuid.UUID(l.SupplierID.Bytes)
		resp.SupplierID = &supplierID
	}
	return resp
}
