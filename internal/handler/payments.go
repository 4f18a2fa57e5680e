package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/saji-pos/api/internal/service"
)

// PaymentServicer defines the service methods needed by payment handlers.
// Satisfied by *service.PaymentService.
type PaymentServicer interface {
	Pay(ctx context.Context, req service.PayRequest) (*service.OrderResult, error)
	PrintBill(ctx context.Context, orderID string) (*service.OrderResult, error)
}

// PaymentHandler handles payment endpoints.
type PaymentHandler struct {
	svc PaymentServicer
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(svc PaymentServicer) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// RegisterRoutes registers payment endpoints on the given Chi router.
// Expected to be mounted at /orders
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/{id}/payment", h.Pay)
	r.Post("/{id}/print-bill", h.PrintBill)
}

type payRequest struct {
	PaymentMethod string `json:"payment_method"`
	CashAmount    string `json:"cash_amount"`
	CreditAmount  string `json:"credit_amount"`
}

// Pay handles POST /orders/{id}/payment.
func (h *PaymentHandler) Pay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.Pay(r.Context(), service.PayRequest{
		OrderID:       chi.URLParam(r, "id"),
		PaymentMethod: req.PaymentMethod,
		CashAmount:    req.CashAmount,
		CreditAmount:  req.CreditAmount,
	})
	if err != nil {
		respondServiceError(w, "pay order", err)
		return
	}

	writeJSON(w, http.StatusOK, orderResultToResponse(result))
}

// PrintBill handles POST /orders/{id}/print-bill. Read-only; the order
// stays unpaid.
func (h *PaymentHandler) PrintBill(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.PrintBill(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, "print bill", err)
		return
	}

	writeJSON(w, http.StatusOK, orderResultToResponse(result))
}
