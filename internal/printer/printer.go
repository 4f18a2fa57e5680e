// Package printer is the client side of the external print subsystem. The
// restaurant hardware (kitchen ticket printer, cash register) sits behind an
// HTTP bridge; this package only knows the print(ticket) contract.
package printer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Ticket kinds understood by the print bridge.
const (
	KindKitchen = "KITCHEN"
	KindBill    = "BILL"
	KindReceipt = "RECEIPT"
)

// Line is one printed item row.
type Line struct {
	Name     string `json:"name"`
	Quantity int32  `json:"quantity"`
	Price    string `json:"price"`
	Note     string `json:"note,omitempty"`
}

// Ticket is the payload sent to the print bridge.
type Ticket struct {
	Kind          string    `json:"kind"`
	OrderID       uuid.UUID `json:"order_id"`
	TableNumber   int32     `json:"table_number"`
	Lines         []Line    `json:"lines"`
	Total         string    `json:"total"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	CashAmount    string    `json:"cash_amount,omitempty"`
	CreditAmount  string    `json:"credit_amount,omitempty"`
}

// Result is the bridge's answer. Success=false is an expected outcome
// (printer offline, out of paper); callers downgrade it to a warning.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Printer sends tickets to the physical print subsystem.
type Printer interface {
	Print(ctx context.Context, t Ticket) Result
}

// HTTPPrinter posts tickets to the print bridge over HTTP.
type HTTPPrinter struct {
	url    string
	client *http.Client
}

// NewHTTPPrinter creates a printer client for the given bridge URL.
func NewHTTPPrinter(url string) *HTTPPrinter {
	return &HTTPPrinter{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Print posts the ticket and decodes the bridge's result. Transport errors
// are folded into a failed Result; this method never returns an error so a
// caller cannot accidentally propagate one into a transaction.
func (p *HTTPPrinter) Print(ctx context.Context, t Ticket) Result {
	body, err := json.Marshal(t)
	if err != nil {
		return Result{Success: false, Message: fmt.Sprintf("encode ticket: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return Result{Success: false, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{Success: false, Message: fmt.Sprintf("print bridge unreachable: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Success: false, Message: fmt.Sprintf("print bridge returned %d", resp.StatusCode)}
	}

	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return Result{Success: false, Message: fmt.Sprintf("decode bridge response: %v", err)}
	}
	return res
}

// LogPrinter is used when no print bridge is configured. Tickets are logged
// and reported as printed.
type LogPrinter struct{}

func (LogPrinter) Print(_ context.Context, t Ticket) Result {
	log.Printf("print (%s) order=%s table=%d lines=%d total=%s",
		t.Kind, t.OrderID, t.TableNumber, len(t.Lines), t.Total)
	return Result{Success: true, Message: "logged"}
}
