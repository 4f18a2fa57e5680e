package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/saji-pos/api/internal/database"
	"github.com/saji-pos/api/internal/enum"
	"github.com/saji-pos/api/internal/handler"
	"github.com/saji-pos/api/internal/middleware"
	"github.com/saji-pos/api/internal/service"
)

type mockInventoryService struct {
	createProductFn func(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	restockFn       func(ctx context.Context, req service.RestockRequest) (*service.MovementResult, error)
	adjustFn        func(ctx context.Context, req service.AdjustRequest) (*service.MovementResult, error)
	movementsFn     func(ctx context.Context, productID string) ([]database.StockLog, error)
}

func (m *mockInventoryService) CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error) {
	return m.createProductFn(ctx, arg)
}
func (m *mockInventoryService) Restock(ctx context.Context, req service.RestockRequest) (*service.MovementResult, error) {
	return m.restockFn(ctx, req)
}
func (m *mockInventoryService) Adjust(ctx context.Context, req service.AdjustRequest) (*service.MovementResult, error) {
	return m.adjustFn(ctx, req)
}
func (m *mockInventoryService) Movements(ctx context.Context, productID string) ([]database.StockLog, error) {
	return m.movementsFn(ctx, productID)
}

type mockProductStore struct {
	getProductFn           func(ctx context.Context, id uuid.UUID) (database.Product, error)
	listProductsFn         func(ctx context.Context) ([]database.Product, error)
	listLowStockProductsFn func(ctx context.Context) ([]database.Product, error)
	updateProductFn        func(ctx context.Context, arg database.UpdateProductParams) (database.Product, error)
	deleteProductFn        func(ctx context.Context, id uuid.UUID) error
}

func (m *mockProductStore) GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error) {
	if m.getProductFn != nil {
		return m.getProductFn(ctx, id)
	}
	return database.Product{}, pgx.ErrNoRows
}
func (m *mockProductStore) ListProducts(ctx context.Context) ([]database.Product, error) {
	if m.listProductsFn != nil {
		return m.listProductsFn(ctx)
	}
	return []database.Product{}, nil
}
func (m *mockProductStore) ListLowStockProducts(ctx context.Context) ([]database.Product, error) {
	if m.listLowStockProductsFn != nil {
		return m.listLowStockProductsFn(ctx)
	}
	return []database.Product{}, nil
}
func (m *mockProductStore) UpdateProduct(ctx context.Context, arg database.UpdateProductParams) (database.Product, error) {
	if m.updateProductFn != nil {
		return m.updateProductFn(ctx, arg)
	}
	return database.Product{}, pgx.ErrNoRows
}
func (m *mockProductStore) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if m.deleteProductFn != nil {
		return m.deleteProductFn(ctx, id)
	}
	return pgx.ErrNoRows
}

func setupProductRouter(svc *mockInventoryService, store *mockProductStore) *chi.Mux {
	h := handler.NewProductHandler(svc, store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/products", func(r chi.Router) {
		h.RegisterReadRoutes(r)
		h.RegisterManageRoutes(r)
	})
	return r
}

func TestCreateProductHandler_Success(t *testing.T) {
	productID := uuid.New()
	var captured database.CreateProductParams
	svc := &mockInventoryService{
		createProductFn: func(ctx context.Context, arg database.CreateProductParams) (database.Product, error) {
			captured = arg
			return database.Product{ID: productID, Name: arg.Name, Price: arg.Price, Stock: arg.Stock, MinStock: arg.MinStock}, nil
		},
	}
	router := setupProductRouter(svc, &mockProductStore{})

	body := map[string]any{
		"name":      "Nasi Goreng",
		"price":     "25000",
		"stock":     40,
		"min_stock": 5,
	}
	rr := doAuthRequest(t, router, "POST", "/products", body, uuid.New(), enum.UserRoleManager)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201, body: %s", rr.Code, rr.Body.String())
	}
	if captured.Name != "Nasi Goreng" || captured.Stock != 40 || captured.MinStock != 5 {
		t.Fatalf("params not passed through: %+v", captured)
	}
	resp := decodeJSON(t, rr)
	if resp["price"] != "25000.00" {
		t.Fatalf("price must be normalized to two decimals, got %v", resp["price"])
	}
}

func TestCreateProductHandler_InvalidPrice(t *testing.T) {
	router := setupProductRouter(&mockInventoryService{}, &mockProductStore{})

	for _, price := range []string{"", "abc", "-5.00"} {
		body := map[string]any{"name": "Es Teh", "price": price}
		rr := doAuthRequest(t, router, "POST", "/products", body, uuid.New(), enum.UserRoleManager)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("price %q: got %d, want 400", price, rr.Code)
		}
	}
}

func TestCreateProductHandler_NegativeStock(t *testing.T) {
	router := setupProductRouter(&mockInventoryService{}, &mockProductStore{})

	body := map[string]any{"name": "Es Teh", "price": "8000", "stock": -1}
	rr := doAuthRequest(t, router, "POST", "/products", body, uuid.New(), enum.UserRoleManager)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
}

func TestUpdateProductHandler_NotFound(t *testing.T) {
	router := setupProductRouter(&mockInventoryService{}, &mockProductStore{})

	body := map[string]any{"name": "Es Teh", "price": "8000"}
	rr := doAuthRequest(t, router, "PUT", "/products/"+uuid.New().String(), body, uuid.New(), enum.UserRoleManager)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rr.Code)
	}
}

func TestDeleteProductHandler_Success(t *testing.T) {
	store := &mockProductStore{
		deleteProductFn: func(ctx context.Context, id uuid.UUID) error { return nil },
	}
	router := setupProductRouter(&mockInventoryService{}, store)

	rr := doAuthRequest(t, router, "DELETE", "/products/"+uuid.New().String(), nil, uuid.New(), enum.UserRoleManager)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want 204", rr.Code)
	}
}

func TestRestockHandler_Success(t *testing.T) {
	productID := uuid.New()
	var captured service.RestockRequest
	svc := &mockInventoryService{
		restockFn: func(ctx context.Context, req service.RestockRequest) (*service.MovementResult, error) {
			captured = req
			return &service.MovementResult{
				Product: database.Product{ID: productID, Name: "Iced Tea", Stock: 34},
				Log:     database.StockLog{ID: uuid.New(), ProductID: productID, Quantity: 24, Type: enum.StockTypeIn},
			}, nil
		},
	}
	router := setupProductRouter(svc, &mockProductStore{})

	body := map[string]any{"quantity": 24, "note": "weekly delivery"}
	rr := doAuthRequest(t, router, "POST", "/products/"+productID.String()+"/restock", body, uuid.New(), enum.UserRoleManager)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200, body: %s", rr.Code, rr.Body.String())
	}
	if captured.ProductID != productID.String() || captured.Quantity != 24 {
		t.Fatalf("request not passed through: %+v", captured)
	}
	resp := decodeJSON(t, rr)
	logEntry := resp["log"].(map[string]any)
	if logEntry["type"] != enum.StockTypeIn {
		t.Fatalf("log type: got %v", logEntry["type"])
	}
}

func TestAdjustHandler_StockBelowZero(t *testing.T) {
	svc := &mockInventoryService{
		adjustFn: func(ctx context.Context, req service.AdjustRequest) (*service.MovementResult, error) {
			return nil, service.ErrStockBelowZero
		},
	}
	router := setupProductRouter(svc, &mockProductStore{})

	body := map[string]any{"delta": -10, "note": "spoilage"}
	rr := doAuthRequest(t, router, "POST", "/products/"+uuid.New().String()+"/adjust", body, uuid.New(), enum.UserRoleManager)
	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want 409", rr.Code)
	}
}

func TestStockLogsHandler_NotFound(t *testing.T) {
	svc := &mockInventoryService{
		movementsFn: func(ctx context.Context, productID string) ([]database.StockLog, error) {
			return nil, service.ErrProductNotFound
		},
	}
	router := setupProductRouter(svc, &mockProductStore{})

	rr := doAuthRequest(t, router, "GET", "/products/"+uuid.New().String()+"/stock-logs", nil, uuid.New(), enum.UserRoleManager)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rr.Code)
	}
}

func TestListLowStockHandler(t *testing.T) {
	store := &mockProductStore{
		listLowStockProductsFn: func(ctx context.Context) ([]database.Product, error) {
			return []database.Product{{ID: uuid.New(), Name: "Iced Tea", Stock: 2, MinStock: 5}}, nil
		},
	}
	router := setupProductRouter(&mockInventoryService{}, store)

	rr := doAuthRequest(t, router, "GET", "/products/low-stock", nil, uuid.New(), enum.UserRoleCashier)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 1 || resp[0]["name"] != "Iced Tea" {
		t.Fatalf("unexpected list: %v", resp)
	}
}
