package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/saji-pos/api/internal/database"
)

// LookupStore defines the database methods needed by lookup handlers.
// Satisfied by *database.Queries.
type LookupStore interface {
	CreateArea(ctx context.Context, name string) (database.Area, error)
	ListAreas(ctx context.Context) ([]database.Area, error)
	CreateCategory(ctx context.Context, name string) (database.Category, error)
	ListCategories(ctx context.Context) ([]database.Category, error)
	CreateSupplier(ctx context.Context, arg database.CreateSupplierParams) (database.Supplier, error)
	ListSuppliers(ctx context.Context) ([]database.Supplier, error)
}

// LookupHandler serves the small reference tables: areas, categories,
// suppliers.
type LookupHandler struct {
	store LookupStore
}

// NewLookupHandler creates a new LookupHandler.
func NewLookupHandler(store LookupStore) *LookupHandler {
	return &LookupHandler{store: store}
}

// RegisterReadRoutes registers lookup list endpoints on the given Chi router.
func (h *LookupHandler) RegisterReadRoutes(r chi.Router) {
	r.Get("/areas", h.ListAreas)
	r.Get("/categories", h.ListCategories)
	r.Get("/suppliers", h.ListSuppliers)
}

// RegisterManageRoutes registers lookup create endpoints. Expected to sit
// behind a management role check.
func (h *LookupHandler) RegisterManageRoutes(r chi.Router) {
	r.Post("/areas", h.CreateArea)
	r.Post("/categories", h.CreateCategory)
	r.Post("/suppliers", h.CreateSupplier)
}

type namedRequest struct {
	Name string `json:"name"`
}

type supplierRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type namedResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type supplierResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// ListAreas handles GET /areas.
func (h *LookupHandler) ListAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := h.store.ListAreas(r.Context())
	if err != nil {
		log.Printf("ERROR: list areas: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	resp := make([]namedResponse, len(areas))
	for i, a := range areas {
		resp[i] = namedResponse{ID: a.ID, Name: a.Name, CreatedAt: a.CreatedAt}
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateArea handles POST /areas.
func (h *LookupHandler) CreateArea(w http.ResponseWriter, r *http.Request) {
	var req namedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	area, err := h.store.CreateArea(r.Context(), req.Name)
	if err != nil {
		log.Printf("ERROR: create area: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, namedResponse{ID: area.ID, Name: area.Name, CreatedAt: area.CreatedAt})
}

// ListCategories handles GET /categories.
func (h *LookupHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		log.Printf("ERROR: list categories: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	resp := make([]namedResponse, len(categories))
	for i, c := range categories {
		resp[i] = namedResponse{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt}
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateCategory handles POST /categories.
func (h *LookupHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req namedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	category, err := h.store.CreateCategory(r.Context(), req.Name)
	if err != nil {
		log.Printf("ERROR: create category: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, namedResponse{ID: category.ID, Name: category.Name, CreatedAt: category.CreatedAt})
}

// ListSuppliers handles GET /suppliers.
func (h *LookupHandler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.store.ListSuppliers(r.Context())
	if err != nil {
		log.Printf("ERROR: list suppliers: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	resp := make([]supplierResponse, len(suppliers))
	for i, s := range suppliers {
		resp[i] = supplierResponse{ID: s.ID, Name: s.Name, Phone: textPtr(s.Phone), CreatedAt: s.CreatedAt}
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateSupplier handles POST /suppliers.
func (h *LookupHandler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	var phone pgtype.Text
	if req.Phone != "" {
		phone = pgtype.Text{String: req.Phone, Valid: true}
	}
	supplier, err := h.store.CreateSupplier(r.Context(), database.CreateSupplierParams{
		Name:  req.Name,
		Phone: phone,
	})
	if err != nil {
		log.Printf("ERROR: create supplier: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, supplierResponse{ID: supplier.ID, Name: supplier.Name, Phone: textPtr(supplier.Phone), CreatedAt: supplier.CreatedAt})
}
