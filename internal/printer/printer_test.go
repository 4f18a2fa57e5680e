package printer_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/saji-pos/api/internal/printer"
)

func sampleTicket() printer.Ticket {
	return printer.Ticket{
		Kind:        printer.KindKitchen,
		OrderID:     uuid.New(),
		TableNumber: 7,
		Lines: []printer.Line{
			{Name: "Nasi Goreng", Quantity: 2, Price: "25000.00", Note: "extra spicy"},
		},
		Total: "50000.00",
	}
}

func TestHTTPPrinter_Success(t *testing.T) {
	var received printer.Ticket
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: got %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type: got %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode ticket: %v", err)
		}
		json.NewEncoder(w).Encode(printer.Result{Success: true, Message: "printed"})
	}))
	defer srv.Close()

	p := printer.NewHTTPPrinter(srv.URL)
	res := p.Print(context.Background(), sampleTicket())

	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if received.Kind != printer.KindKitchen || received.TableNumber != 7 {
		t.Fatalf("ticket not transmitted: %+v", received)
	}
	if len(received.Lines) != 1 || received.Lines[0].Note != "extra spicy" {
		t.Fatalf("lines not transmitted: %+v", received.Lines)
	}
}

func TestHTTPPrinter_BridgeReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(printer.Result{Success: false, Message: "out of paper"})
	}))
	defer srv.Close()

	p := printer.NewHTTPPrinter(srv.URL)
	res := p.Print(context.Background(), sampleTicket())

	if res.Success {
		t.Fatal("expected failure result")
	}
	if res.Message != "out of paper" {
		t.Fatalf("message: got %q", res.Message)
	}
}

func TestHTTPPrinter_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := printer.NewHTTPPrinter(srv.URL)
	res := p.Print(context.Background(), sampleTicket())

	if res.Success {
		t.Fatal("expected failure result")
	}
}

func TestHTTPPrinter_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	p := printer.NewHTTPPrinter(srv.URL)
	res := p.Print(context.Background(), sampleTicket())

	if res.Success {
		t.Fatal("expected failure result when bridge is down")
	}
}

func TestLogPrinter_AlwaysSucceeds(t *testing.T) {
	res := printer.LogPrinter{}.Print(context.Background(), sampleTicket())
	if !res.Success {
		t.Fatalf("log printer must report success, got %+v", res)
	}
}
