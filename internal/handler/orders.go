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
	"github.com/saji-pos/api/internal/middleware"
	"github.com/saji-pos/api/internal/service"
	"github.com/shopspring/decimal"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderResult, error)
	UpdateStatus(ctx context.Context, orderID, status string) (*service.OrderResult, error)
	Cancel(ctx context.Context, orderID string) error
	MarkPrinted(ctx context.Context, orderID string) (database.Order, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOpenOrders(ctx context.Context) ([]database.Order, error)
	ListOpenOrdersByTable(ctx context.Context, tableID uuid.UUID) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	GetTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	GetUser(ctx context.Context, id uuid.UUID) (database.User, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore) *OrderHandler {
	return &OrderHandler{svc: svc, store: store}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.UpdateStatus)
	r.Delete("/{id}", h.Cancel)
	r.Post("/{id}/print-status", h.MarkPrinted)
}

// --- Request / Response types ---

type createOrderRequest struct {
	TableID string                   `json:"table_id"`
	Items   []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
	Note      string `json:"note"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	ID            uuid.UUID           `json:"id"`
	TableID       uuid.UUID           `json:"table_id"`
	CreatedBy     uuid.UUID           `json:"created_by"`
	Status        string              `json:"status"`
	Total         string              `json:"total"`
	PaymentMethod *string             `json:"payment_method"`
	CashAmount    *string             `json:"cash_amount"`
	CreditAmount  *string             `json:"credit_amount"`
	Printed       bool                `json:"printed"`
	PaidAt        *time.Time          `json:"paid_at"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Items         []orderItemResponse `json:"items,omitempty"`
	Table         *tableResponse      `json:"table,omitempty"`
	User          *userResponse       `json:"user,omitempty"`
	Warning       string              `json:"warning,omitempty"`
}

type orderItemResponse struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	Quantity  int32     `json:"quantity"`
	Note      *string   `json:"note"`
}

type userResponse struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Role     string    `json:"role"`
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.CreateOrderItemRequest{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Note:      it.Note,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		TableID:   req.TableID,
		CreatedBy: claims.UserID,
		Items:     items,
	})
	if err != nil {
		respondServiceError(w, "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, orderResultToResponse(result))
}

// List handles GET /orders. Settled (PAID) orders are excluded; pass
// ?table_id= to narrow to one table.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		orders []database.Order
		err    error
	)
	if tid := r.URL.Query().Get("table_id"); tid != "" {
		tableID, parseErr := uuid.Parse(tid)
		if parseErr != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table_id"})
			return
		}
		orders, err = h.store.ListOpenOrdersByTable(r.Context(), tableID)
	} else {
		orders, err = h.store.ListOpenOrders(r.Context())
	}
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		items, err := h.store.ListOrderItemsByOrder(r.Context(), o.ID)
		if err != nil {
			log.Printf("ERROR: list order items: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		or := dbOrderToResponse(o)
		or.Items = orderItemsToResponse(items)
		resp = append(resp, or)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := dbOrderToResponse(order)

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	resp.Items = orderItemsToResponse(items)

	if table, err := h.store.GetTable(r.Context(), order.TableID); err == nil {
		tr := dbTableToResponse(table)
		resp.Table = &tr
	}
	if user, err := h.store.GetUser(r.Context(), order.CreatedBy); err == nil {
		resp.User = &userResponse{ID: user.ID, FullName: user.FullName, Role: user.Role}
	}

	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PATCH /orders/{id}.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		respondServiceError(w, "update order status", err)
		return
	}

	writeJSON(w, http.StatusOK, orderResultToResponse(result))
}

// Cancel handles DELETE /orders/{id}. Restores stock and may free the table.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, "cancel order", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkPrinted handles POST /orders/{id}/print-status.
func (h *OrderHandler) MarkPrinted(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.MarkPrinted(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, "mark order printed", err)
		return
	}
	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// --- Helpers ---

func orderResultToResponse(res *service.OrderResult) orderResponse {
	resp := dbOrderToResponse(res.Order)
	resp.Items = orderItemsToResponse(res.Items)
	resp.Warning = res.PrintWarning
	if res.Table.ID != uuid.Nil {
		tr := dbTableToResponse(res.Table)
		resp.Table = &tr
	}
	if res.User.ID != uuid.Nil {
		resp.User = &userResponse{ID: res.User.ID, FullName: res.User.FullName, Role: res.User.Role}
	}
	return resp
}

func dbOrderToResponse(o database.Order) orderResponse {
	return orderResponse{
		ID:            o.ID,
		TableID:       o.TableID,
		CreatedBy:     o.CreatedBy,
		Status:        o.Status,
		Total:         numericString(o.Total),
		PaymentMethod: textPtr(o.PaymentMethod),
		CashAmount:    numericPtr(o.CashAmount),
		CreditAmount:  numericPtr(o.CreditAmount),
		Printed:       o.Printed,
		PaidAt:        timestampPtr(o.PaidAt),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func orderItemsToResponse(items []database.OrderItem) []orderItemResponse {
	out := make([]orderItemResponse, len(items))
	for i, it := range items {
		out[i] = orderItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     numericString(it.Price),
			Quantity:  it.Quantity,
			Note:      textPtr(it.Note),
		}
	}
	return out
}

// respondServiceError maps a service error kind to its HTTP status. Internal
// failures are logged with the failing operation and masked.
func respondServiceError(w http.ResponseWriter, op string, err error) {
	switch service.Classify(err) {
	case service.KindValidation:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case service.KindNotFound:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case service.KindConflict:
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func numericString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

func numericPtr(n pgtype.Numeric) *string {
	if !n.Valid {
		return nil
	}
	s := numericString(n)
	return &s
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func timestampPtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
